// Package log points the process-wide slog default at a rotating
// file.  Library packages accept a Logger interface instead; this
// package is for the binaries.
package log

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	setupOnce   sync.Once
	initialized atomic.Bool
)

// Setup sends the slog default to logFile with rotation.  Debug
// lowers the level and adds source positions.  Only the first call
// does anything.
func Setup(logFile string, debug bool) {
	setupOnce.Do(func() {
		rotator := &lumberjack.Logger{
			Filename: logFile,
			MaxSize:  10, // MB
			MaxAge:   30, // days
		}
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		handler := slog.NewJSONHandler(rotator, &slog.HandlerOptions{
			Level:     level,
			AddSource: debug,
		})
		slog.SetDefault(slog.New(handler))
		initialized.Store(true)
	})
}

// Initialized reports whether Setup has run.
func Initialized() bool {
	return initialized.Load()
}

// RecoverPanic turns a panic into a timestamped crash file in the
// working directory, then runs cleanup.  Defer it at the top of
// goroutines that must not take the process down.
func RecoverPanic(name string, cleanup func()) {
	r := recover()
	if r == nil {
		return
	}
	stamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("subshell-panic-%s-%s.log", name, stamp)
	if file, err := os.Create(filename); err == nil {
		defer file.Close()
		fmt.Fprintf(file, "panic in %s: %v\n\n", name, r)
		fmt.Fprintf(file, "time: %s\n\n", time.Now().Format(time.RFC3339))
		fmt.Fprintf(file, "stack:\n%s\n", debug.Stack())
	}
	if cleanup != nil {
		cleanup()
	}
}
