package subshell

import (
	"fmt"
	"strings"
	"time"

	"github.com/tkellem/subshell/dialect"
	"github.com/tkellem/subshell/pump"
)

// NewSession returns a new Session built from Params, in the off state.
func NewSession(p Params) Session {
	inf := &sessInfra{params: &p}
	return &sessMutex{
		infra: inf,
		state: &sessStateOff{infra: inf},
	}
}

// sessInfra holds Session infrastructure shared by all Session states.
type sessInfra struct {
	// params configures the subprocess and the scan loop.
	// Validated on each Start.
	params *Params

	// dialect is the shell behavior in play; set on Start.
	dialect dialect.Dialect

	// proc is the shell subprocess; nil before the first Start.
	proc *pump.Proc

	// open is the issued command whose completion report has not
	// yet been observed; nil outside the open state.
	open *Command

	// consumedOut is the absolute offset into proc.Out just past the
	// last completion report.  Scanning for the next report starts
	// here, so one command's output can never bleed into another's.
	consumedOut int

	// history holds every command issued by a caller, in order.
	// It survives restarts.
	history []*Command

	logger pump.Logger
}

// startProbe is issued on Start to prove the completion-report
// protocol round-trips.  Its output is discarded, taking any shell
// startup banner with it.
const startProbe = "echo ready"

func (eInf *sessInfra) infraStart(d time.Duration) error {
	if err := eInf.params.Validate(); err != nil {
		return err
	}
	eInf.dialect = eInf.params.Dialect
	eInf.logger = eInf.params.Logger

	pp := eInf.params.Params
	pp.Env = append(eInf.dialect.Environ(), pp.Env...)
	proc, err := pump.Start(&pp)
	if err != nil {
		return err
	}
	eInf.proc = proc
	eInf.consumedOut = 0
	eInf.open = nil

	eInf.logger.Debug(
		"infraStart; probing the completion report protocol",
		"dialect", eInf.dialect.Name())
	w := eInf.plainCmd(startProbe)
	w.probe = true
	if _, err = eInf.infraIssue(w); err != nil {
		return err
	}
	if _, err = eInf.infraWait(d); err != nil {
		// The protocol never came up; the subprocess is useless.
		eInf.open = nil
		eInf.proc.StopReaders()
		_ = eInf.proc.CloseIn()
		_ = eInf.proc.Kill()
		return fmt.Errorf("starting; %w", err)
	}
	eInf.logger.Debug("infraStart; shell is up")
	return nil
}

func (eInf *sessInfra) infraIssue(w wireCmd) (*Command, error) {
	if !eInf.proc.Alive() {
		return nil, fmt.Errorf(
			"issuing %q; %w", abbrev(w.text), ErrShellExited)
	}
	m := eInf.markerFor()
	c := newCommand(w.text, m)
	c.outFrom = eInf.consumedOut
	c.errFrom = eInf.proc.Err.Len()
	if err := eInf.proc.WriteLine(w.build(m)); err != nil {
		return nil, fmt.Errorf(
			"issuing %q; %s; %w", abbrev(w.text), err, ErrShellExited)
	}
	c.state = CmdRunning
	eInf.open = c
	if !w.probe {
		eInf.history = append(eInf.history, c)
	}
	eInf.logger.Debug("infraIssue; command is open", "cmd", abbrev(w.text))
	return c, nil
}

// infraWait scans the stdout stream for the open command's completion
// report, polling as fresh output arrives.
func (eInf *sessInfra) infraWait(d time.Duration) (*Command, error) {
	c := eInf.open
	deadline := time.Now().Add(d)
	for {
		seg := eInf.proc.Out.Since(c.outFrom)
		if res, ok := eInf.dialect.TryExtract(seg, c.marker); ok {
			eInf.settle(c, seg, res)
			return c, nil
		}
		select {
		case <-eInf.proc.Done():
			// The drains finish before the reap, so one more scan
			// sees everything the shell ever wrote.
			seg = eInf.proc.Out.Since(c.outFrom)
			if res, ok := eInf.dialect.TryExtract(seg, c.marker); ok {
				eInf.settle(c, seg, res)
				return c, nil
			}
			eInf.abandon(c)
			return c, fmt.Errorf(
				"running %q; %w", abbrev(c.Text), ErrShellExited)
		default:
		}
		if !time.Now().Before(deadline) {
			return c, fmt.Errorf(
				"running %q; no completion report after %s; %w",
				abbrev(c.Text), d, ErrWaitTimeout)
		}
		time.Sleep(eInf.params.PollInterval)
	}
}

func (eInf *sessInfra) infraSend(text string) error {
	if !eInf.proc.Alive() {
		return fmt.Errorf("sending text; %w", ErrShellExited)
	}
	return eInf.proc.WriteLine(text)
}

func (eInf *sessInfra) infraClose(d time.Duration) error {
	var openErr error
	if c := eInf.open; c != nil {
		eInf.abandon(c)
		openErr = fmt.Errorf(
			"closed while %q was open; %w", abbrev(c.Text), ErrMarkerLost)
	}
	// Readers stop before stdin closes, so that nothing is reading a
	// pipe that the reap is about to close.
	eInf.proc.StopReaders()
	if ec := eInf.params.ExitCommand; ec != "" {
		// Best effort; the shell may already be gone.
		_ = eInf.proc.WriteLine(ec)
	}
	_ = eInf.proc.CloseIn()
	select {
	case <-eInf.proc.Done():
	case <-time.After(d):
		if !eInf.params.KillOnClose {
			return fmt.Errorf("shell not done %s after stdin closed", d)
		}
		eInf.logger.Debug("infraClose; killing the shell", "after", d)
		if err := eInf.proc.Kill(); err != nil {
			return fmt.Errorf("unable to kill the shell; %w", err)
		}
		select {
		case <-eInf.proc.Done():
		case <-time.After(d):
			return fmt.Errorf("shell not reaped %s after kill", d)
		}
	}
	eInf.logger.Debug(
		"infraClose; shell is down", "exitCode", eInf.proc.ExitCode())
	return openErr
}

// settle finalizes c from its completion report.
// Offsets in res are relative to seg, which starts at c.outFrom.
func (eInf *sessInfra) settle(
	c *Command, seg []byte, res dialect.Result) {
	c.stdout = eInf.dialect.Scrub(seg[:res.MarkerAt], c.Text)
	c.stderr = eInf.proc.Err.Since(c.errFrom)
	c.exit = res.ExitCode
	c.state = CmdDone
	eInf.consumedOut = c.outFrom + res.ConsumedTo
	eInf.open = nil
	eInf.logger.Debug(
		"settle; command is done",
		"cmd", abbrev(c.Text), "exitCode", c.exit)
}

// abandon finalizes c without a completion report.  Whatever output
// arrived is attributed to c, and the exit code stays unknown.
func (eInf *sessInfra) abandon(c *Command) {
	c.stdout = eInf.dialect.Scrub(eInf.proc.Out.Since(c.outFrom), c.Text)
	c.stderr = eInf.proc.Err.Since(c.errFrom)
	c.state = CmdFailedToParse
	eInf.consumedOut = eInf.proc.Out.Len()
	eInf.open = nil
	eInf.logger.Debug("abandon; gave up on command", "cmd", abbrev(c.Text))
}

func (eInf *sessInfra) markerFor() dialect.Marker {
	if eInf.params.Marker.V != "" {
		return eInf.params.Marker
	}
	return dialect.NewMarker()
}

func (eInf *sessInfra) lastCommand() *Command {
	if n := len(eInf.history); n > 0 {
		return eInf.history[n-1]
	}
	return nil
}

func (eInf *sessInfra) commandHistory() []*Command {
	out := make([]*Command, len(eInf.history))
	copy(out, eInf.history)
	return out
}

func (eInf *sessInfra) plainCmd(cmd string) wireCmd {
	return wireCmd{
		text: cmd,
		build: func(m dialect.Marker) string {
			return eInf.dialect.Encode(cmd, m)
		},
	}
}

func (eInf *sessInfra) pipeCmd(text, cmd string) wireCmd {
	return wireCmd{
		text: cmd,
		build: func(m dialect.Marker) string {
			return eInf.dialect.EncodePipe(text, cmd, m)
		},
	}
}

func (eInf *sessInfra) interpreterCmd(lines []string) wireCmd {
	return wireCmd{
		text: strings.Join(lines, "; "),
		build: func(m dialect.Marker) string {
			return eInf.dialect.Encode(
				eInf.dialect.Interpreter(
					eInf.params.PythonExe, eInf.params.Venv, lines), m)
		},
	}
}

func (eInf *sessInfra) backgroundCmd(cmds []string) wireCmd {
	return wireCmd{
		text: strings.Join(cmds, " & "),
		build: func(m dialect.Marker) string {
			return eInf.dialect.Encode(eInf.dialect.Background(cmds), m)
		},
	}
}
