package subshell

import (
	"fmt"
	"time"

	"github.com/tkellem/subshell/dialect"
	"github.com/tkellem/subshell/pump"
)

// Params is a bag of parameters for a Session instance.
// See individual fields for their explanation.
type Params struct {
	pump.Params

	// Dialect selects the shell behavior.  When nil it is filled
	// from dialect.ForHost, and when Path is also empty, Path and
	// Args come from the chosen dialect.
	Dialect dialect.Dialect

	// Marker, if set, tags every completion report with this one
	// fixed token.  The default is a fresh random token per
	// command, which keeps a stale report from an abandoned
	// command from being taken for the current one.
	Marker dialect.Marker

	// PollInterval spaces the output scans while Run or Wait blocks.
	PollInterval time.Duration

	// PythonExe names the interpreter run by Session.Python.
	PythonExe string

	// Venv, if set, is a virtual environment root activated before
	// the interpreter runs.
	Venv string

	// ExitCommand, if set, is written to the shell just before its
	// stdin closes during Close.  Closing stdin alone stops all the
	// supported shells; set this for a shell that must be told.
	ExitCommand string

	// KillOnClose permits Close to kill a shell that is still
	// running when the close deadline expires.  Off by default;
	// Close then returns an error and leaves the shell running.
	KillOnClose bool
}

const (
	// DefaultPollInterval spaces completion scans densely enough
	// that a short command settles without a noticeable wait.
	DefaultPollInterval = 20 * time.Millisecond

	// DefaultPythonExe is used when PythonExe is empty.
	DefaultPythonExe = "python"
)

// Validate fills in defaults and returns an error
// if there's a problem in the Params.
func (p *Params) Validate() error {
	p.setDefaults()
	if err := p.Params.Validate(); err != nil {
		return err
	}
	if p.Marker.V != "" {
		if err := p.Marker.Validate(); err != nil {
			return fmt.Errorf("problem in Marker; %w", err)
		}
	}
	return nil
}

func (p *Params) setDefaults() {
	if p.Dialect == nil {
		p.Dialect = dialect.ForHost()
	}
	if p.Path == "" {
		p.Path, p.Args = p.Dialect.Program()
	}
	if p.PollInterval <= 0 {
		p.PollInterval = DefaultPollInterval
	}
	if p.PythonExe == "" {
		p.PythonExe = DefaultPythonExe
	}
}
