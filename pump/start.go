package pump

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// Start launches the subprocess described by p with pipes attached to
// stdin, stdout and stderr, and fires off a Reader draining each
// output pipe into its own Buffer.
// To shut down gracefully, call StopReaders, close stdin via CloseIn,
// then await Done.
func Start(p *Params) (*Proc, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	cmd := exec.Command(p.Path, p.Args...)
	cmd.Dir = p.WorkingDir
	if len(p.Env) > 0 {
		cmd.Env = append(os.Environ(), p.Env...)
	}

	stdIn, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("getting stdIn for %q; %w", p.Path, err)
	}
	stdOut, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("getting stdOut for %q; %w", p.Path, err)
	}
	stdErr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("getting stdErr for %q; %w", p.Path, err)
	}

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("trying to start %s - %w", p.Path, err)
	}

	pr := &Proc{
		In:       stdIn,
		Out:      &Buffer{},
		Err:      &Buffer{},
		term:     p.Terminator,
		cmd:      cmd,
		logger:   p.Logger,
		done:     make(chan struct{}),
		exitCode: ExitCodeUnknown,
	}
	pr.outReader = &Reader{
		Name:   "stdOut",
		Src:    stdOut,
		Into:   pr.Out,
		Mirror: p.MirrorOut,
		Poll:   p.Poll,
		Logger: p.Logger,
	}
	pr.errReader = &Reader{
		Name:   "stdErr",
		Src:    stdErr,
		Into:   pr.Err,
		Mirror: p.MirrorErr,
		Poll:   p.Poll,
		Logger: p.Logger,
	}
	pr.outReader.Start()
	pr.errReader.Start()
	go pr.waitLoop()
	return pr, nil
}

// ExitCodeUnknown is reported while the subprocess is still running,
// and afterwards if its true exit status could not be recovered.
const ExitCodeUnknown = -1

// Proc is a started subprocess with both output pipes under drain.
type Proc struct {
	// In is the subprocess stdin.  Most callers want WriteLine
	// instead of writing In directly.
	In io.WriteCloser

	// Out accumulates everything the subprocess wrote to stdout.
	Out *Buffer

	// Err accumulates everything the subprocess wrote to stderr.
	Err *Buffer

	term      byte
	cmd       *exec.Cmd
	outReader *Reader
	errReader *Reader
	logger    Logger

	closeOnce sync.Once
	closeErr  error

	// done guards waitErr and exitCode; they are written once
	// before done is closed and never after.
	done     chan struct{}
	waitErr  error
	exitCode int
}

// waitLoop reaps the subprocess.  Reaping closes the pipes, so it
// must not run until both drain loops have let go of them.
func (p *Proc) waitLoop() {
	<-p.outReader.Done()
	<-p.errReader.Done()
	err := p.cmd.Wait()
	p.exitCode = exitStatus(err)
	p.waitErr = err
	close(p.done)
	p.logger.Debug(
		"subprocess reaped", "path", p.cmd.Path, "exitCode", p.exitCode)
}

// Done is closed once the subprocess has exited and been reaped.
// ExitCode and WaitErr hold their final values after that.
func (p *Proc) Done() <-chan struct{} { return p.done }

// ExitCode returns the subprocess exit status.
// It returns ExitCodeUnknown until Done is closed,
// and also if the process was killed by a signal.
func (p *Proc) ExitCode() int {
	select {
	case <-p.done:
		return p.exitCode
	default:
		return ExitCodeUnknown
	}
}

// WaitErr returns the reap error, nil for a clean exit.
// Like ExitCode, it's meaningful only after Done is closed.
func (p *Proc) WaitErr() error {
	select {
	case <-p.done:
		return p.waitErr
	default:
		return nil
	}
}

// Alive reports whether the subprocess has not yet been reaped.
func (p *Proc) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// WriteLine sends line to the subprocess stdin,
// assuring proper termination.
func (p *Proc) WriteLine(line string) error {
	p.logger.Debug("writing to stdIn", "line", abbrev(line))
	if _, err := p.In.Write(ensureTerminated(line, p.term)); err != nil {
		return fmt.Errorf("unable to write to stdIn; %w", err)
	}
	return nil
}

// StopReaders signals both drain loops to exit and waits for them
// to do so.  Call this before CloseIn when tearing down, so that
// nothing is reading a pipe that reaping is about to close.
func (p *Proc) StopReaders() {
	p.outReader.Stop()
	p.errReader.Stop()
	<-p.outReader.Done()
	<-p.errReader.Done()
}

// CloseIn closes the subprocess stdin, the graceful shutdown signal
// for a shell.  Safe to call more than once.
func (p *Proc) CloseIn() error {
	p.closeOnce.Do(func() { p.closeErr = p.In.Close() })
	return p.closeErr
}

// Kill forcibly terminates the subprocess.
func (p *Proc) Kill() error {
	return p.cmd.Process.Kill()
}

// exitStatus maps a reap error to a numeric exit status.
func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return ExitCodeUnknown
}
