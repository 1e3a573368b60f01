package pump

import (
	"io"
	"os"
	"sync"
	"time"
)

// readDeadliner is the subset of os.File used to bound a pipe read.
type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// Reader drains one subprocess pipe in the background, appending raw
// bytes to Into the moment they arrive. It never waits for a line
// terminator, so a prompt written with no trailing newline is visible
// to a consumer of Into within roughly one Poll interval.
//
// Populate the exported fields, then call Start. Stop merely signals;
// the loop also ends on its own when the pipe closes. Either way,
// Done is closed once the loop has exited.
type Reader struct {
	// Name tags log traffic, e.g. "stdOut".
	Name string

	// Src is the pipe to drain.
	Src io.Reader

	// Into receives everything read from Src.
	Into *Buffer

	// Mirror, if not nil, also receives everything read from Src.
	// Mirror write failures are ignored; mirroring is advisory.
	Mirror io.Writer

	// Poll bounds each read, so that the stop signal is noticed
	// even while the subprocess is silent.
	Poll time.Duration

	// Logger accepts debug traffic; nil means silence.
	Logger Logger

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Start fires off the drain loop.
func (r *Reader) Start() {
	if r.Poll <= 0 {
		r.Poll = DefaultPoll
	}
	if r.Logger == nil {
		r.Logger = nopLogger{}
	}
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.loop()
}

// Stop signals the drain loop to exit.
// Safe to call any number of times, from any goroutine.
func (r *Reader) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Done is closed when the drain loop has exited, whether from Stop,
// from pipe closure, or from subprocess death.
func (r *Reader) Done() <-chan struct{} { return r.done }

func (r *Reader) loop() {
	defer close(r.done)
	dl, canDeadline := r.Src.(readDeadliner)
	buff := make([]byte, readChunkSize)
	r.Logger.Debug("drain loop started", "pipe", r.Name)
	for {
		select {
		case <-r.stop:
			r.Logger.Debug("drain loop stopped", "pipe", r.Name)
			return
		default:
		}
		if canDeadline {
			if err := dl.SetReadDeadline(time.Now().Add(r.Poll)); err != nil {
				// Src isn't a pipe that supports deadlines.
				// Fall back to blocking reads; those end when
				// the pipe closes.
				canDeadline = false
			}
		}
		n, err := r.Src.Read(buff)
		if n > 0 {
			_, _ = r.Into.Write(buff[:n])
			if r.Mirror != nil {
				_, _ = r.Mirror.Write(buff[:n])
			}
			r.Logger.Debug("drained bytes", "pipe", r.Name, "count", n)
		}
		if err != nil {
			if os.IsTimeout(err) {
				// Nothing arrived within Poll; not an error.
				continue
			}
			// EOF or a broken pipe. Exit quietly;
			// Into keeps whatever was captured.
			r.Logger.Debug("pipe closed", "pipe", r.Name, "err", err)
			return
		}
		if n == 0 && !canDeadline {
			// A zero byte read with nothing bounding the next one;
			// sleep so the stop check above gets a chance.
			time.Sleep(r.Poll)
		}
	}
}
