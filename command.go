package subshell

import (
	"strings"

	"github.com/tkellem/subshell/dialect"
)

// DefaultExitCode is reported for a command whose true exit status
// was never recovered.
const DefaultExitCode = -1

// CmdState tracks a command through its life.
type CmdState int

const (
	// CmdPending: created, not yet written to the shell.
	CmdPending CmdState = iota

	// CmdRunning: written to the shell,
	// completion report not yet observed.
	CmdRunning

	// CmdDone: completion report observed;
	// output and exit code are settled.
	CmdDone

	// CmdFailedToParse: the session gave up on the completion
	// report, usually because the shell exited or the session
	// closed with the command still open.  The output fields hold
	// whatever had arrived by then.
	CmdFailedToParse
)

func (s CmdState) String() string {
	switch s {
	case CmdPending:
		return "pending"
	case CmdRunning:
		return "running"
	case CmdDone:
		return "done"
	case CmdFailedToParse:
		return "failed-to-parse"
	}
	return "unknown"
}

// Command records one issued command and what became of it.
// Commands are created and mutated only by a Session; once Finished
// reports true the fields are settled and the accessors are safe to
// call from any goroutine.
type Command struct {
	// Text is the command as given by the caller,
	// before any dialect encoding.
	Text string

	marker  dialect.Marker
	state   CmdState
	exit    int
	stdout  []byte
	stderr  []byte
	outFrom int
	errFrom int
}

func newCommand(text string, m dialect.Marker) *Command {
	return &Command{
		Text:   text,
		marker: m,
		state:  CmdPending,
		exit:   DefaultExitCode,
	}
}

// State reports where the command is in its life.
func (c *Command) State() CmdState { return c.state }

// Finished reports whether the command reached a terminal state.
func (c *Command) Finished() bool {
	return c.state == CmdDone || c.state == CmdFailedToParse
}

// ExitCode returns the command's exit status, DefaultExitCode until
// the command is done.  POSIX shells and cmd report the real numeric
// status; PowerShell exposes only success or failure, mapped to 0
// and 1.
func (c *Command) ExitCode() int { return c.exit }

// Stdout returns the command's captured stdout as a string.  Byte
// sequences that are not valid UTF-8 are replaced, not dropped; use
// StdoutBytes for the exact bytes.
func (c *Command) Stdout() string { return lossyString(c.stdout) }

// Stderr is Stdout for the stderr stream.  Stderr is drained
// continuously but attributed by arrival time, so output from a
// background straggler can land on a later command.
func (c *Command) Stderr() string { return lossyString(c.stderr) }

// StdoutBytes returns the raw captured stdout.
// Callers must not modify the returned slice.
func (c *Command) StdoutBytes() []byte { return c.stdout }

// StderrBytes returns the raw captured stderr.
// Callers must not modify the returned slice.
func (c *Command) StderrBytes() []byte { return c.stderr }

func lossyString(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
