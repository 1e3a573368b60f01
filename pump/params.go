package pump

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Params captures all parameters to pump.Start.
// It's a mix of subprocess parameters, like Path and Args,
// and drain parameters like the poll interval and mirror writers.
type Params struct {
	// Path is either the absolute path to the executable, or a $PATH
	// relative command name.  This is the shell being run.
	Path string

	// Args has the arguments, flags and flag arguments for the
	// shell invocation.
	Args []string

	// WorkingDir is the working directory of the shell process.
	WorkingDir string

	// Env holds extra environment entries in "KEY=value" form.
	// They are appended to the parent process environment.
	Env []string

	// Terminator, if not 0, is appended to the end of every line
	// sent via WriteLine.  This is a convenience for shells like
	// mysql that want such things.  Example: ';'
	Terminator byte

	// Poll bounds each pipe read.  It caps how stale captured output
	// can be, and how long a reader stop signal can go unnoticed.
	Poll time.Duration

	// MirrorOut, if not nil, receives a copy of everything the
	// subprocess writes to stdout, as it arrives.
	MirrorOut io.Writer

	// MirrorErr is like MirrorOut, but for stderr.
	MirrorErr io.Writer

	// Logger accepts debug traffic from the drain loops and the
	// reaper; nil means silence.  A *slog.Logger works here.
	Logger Logger
}

const (
	// DefaultPoll keeps prompt text fresh while letting the drain
	// loops idle when the shell is quiet.
	DefaultPoll = 100 * time.Millisecond

	// readChunkSize is the size of a single drain read.
	readChunkSize = 4096
)

// Validate fills in defaults and returns an error
// if there's a problem in the Params.
func (p *Params) Validate() error {
	p.setDefaults()
	if err := p.validateWorkDir(); err != nil {
		return err
	}
	return p.validatePath()
}

func (p *Params) setDefaults() {
	if p.Poll <= 0 {
		p.Poll = DefaultPoll
	}
	if p.Logger == nil {
		p.Logger = nopLogger{}
	}
}

func (p *Params) validateWorkDir() (err error) {
	p.WorkingDir, err = filepath.Abs(p.WorkingDir)
	if err != nil {
		return paramErrCaused(err, "bad working dir path")
	}
	var info os.FileInfo
	info, err = os.Stat(p.WorkingDir)
	if err != nil {
		return paramErrCaused(err, "bad working dir stat")
	}
	if !info.IsDir() {
		return paramErr("%q is not a directory that exists", p.WorkingDir)
	}
	return nil
}

func (p *Params) validatePath() error {
	if p.Path == "" {
		return paramErr("must specify Path to the executable to run")
	}
	if _, err := exec.LookPath(p.Path); err != nil {
		return paramErrCaused(err, "path %q not available", p.Path)
	}
	return nil
}
