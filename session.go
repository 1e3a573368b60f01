// Package subshell runs a shell as a long-lived interactive
// subprocess, issuing commands to it and capturing each command's
// stdout, stderr and exit code separately.
//
// Finding where one command's output ends and the next begins is the
// central trick: after each command the shell is told to echo a marker
// token and the command's exit status on stdout.  Everything before
// the token belongs to the command; the token line itself is consumed.
// The per-shell details live in the dialect package.
package subshell

import (
	"time"
)

// Session manages a shell subprocess, adding value by recovering each
// command's own output and exit code from the shared output stream.
//
// A Session is in one of these states:
//
// off: no shell subprocess running.
//
//   - Session freshly created, Start not yet called.
//   - Close called and finished.
//   - An error encountered meaning that the subprocess had to be
//     abandoned (must call Start again).
//   - Ok to Start or Close, but nothing else.
//
// idle: shell subprocess healthy and awaiting a command.
//
//   - A call to Start finished without error.
//   - The previous command's completion report was observed.
//   - Ok to call anything except Start.
//
// open: a command has been issued and its completion report has not
// yet been observed.
//
//   - A call to Issue finished without error.
//   - A call to Run or Wait gave up waiting, leaving the command open.
//   - Ok to Wait, SendText or Close; a further command is refused
//     with ErrCommandOpen.
//
// All Session calls block until they finish or their deadlines expire.
// A Session is safe for use from multiple goroutines.
type Session interface {
	// Start synchronously starts the shell.
	// It proves that the completion-report protocol round-trips
	// before accepting commands, which also sweeps any startup
	// banner out of the way so that it cannot pollute the first
	// command's output.
	// Errors:
	//   - The shell was already started.
	//   - Something's wrong in the Params, e.g. the shell program
	//     cannot be found.
	//   - No completion report in the time allotted.
	Start(d time.Duration) error

	// Run issues cmd and waits for its completion report.  On
	// success the returned Command is done: its output and exit
	// code are settled.
	// Errors:
	//   - The shell hasn't been started, or has exited.
	//   - A previous command is still open.
	//   - No completion report within d; the command stays open,
	//     and Wait can resume waiting for it.
	Run(d time.Duration, cmd string) (*Command, error)

	// Issue writes cmd to the shell and returns immediately with a
	// running Command.  Call Wait to settle it.
	// Errors: as for Run, less the timeout.
	Issue(cmd string) (*Command, error)

	// Wait blocks until the open command's completion report is
	// observed, or d expires.  With no command open it returns the
	// most recent command, nil if nothing was ever issued.
	// Wait(0) makes a single scan, a non-blocking poll.
	Wait(d time.Duration) (*Command, error)

	// SendText writes text plus a line terminator straight to the
	// shell's stdin, outside the completion-report protocol.
	// Use it to answer an interactive prompt that an open command
	// is stuck on; follow with Wait to settle that command.
	SendText(text string) error

	// Pipe runs cmd with the captured stdout of src delivered to
	// its stdin through a shell-native pipe expression.  The shell
	// may reformat line endings in transit.
	// Errors: as for Run, plus src being nil or unfinished.
	Pipe(d time.Duration, src *Command, cmd string) (*Command, error)

	// Feed is Pipe with literal text in place of a source command.
	Feed(d time.Duration, text, cmd string) (*Command, error)

	// Python runs the given source lines in a single interpreter
	// invocation; see Params.PythonExe and Params.Venv.
	Python(d time.Duration, lines ...string) (*Command, error)

	// Background launches every command without waiting on any of
	// them individually, then settles like an ordinary command.
	// Whether the shell holds the completion report until the
	// stragglers finish is dialect dependent.
	Background(d time.Duration, cmds ...string) (*Command, error)

	// Close stops the output drains, optionally writes
	// Params.ExitCommand, closes the shell's stdin and awaits
	// subprocess exit.  A still-open command becomes
	// failed-to-parse, reported via ErrMarkerLost.
	// Close of an off session is a no-op, so Close is safe to call
	// at any time.  See Params.KillOnClose for shells that outlive
	// the deadline.
	Close(d time.Duration) error

	// Last returns the most recently issued command, nil if none.
	Last() *Command

	// History returns every issued command, oldest first.
	History() []*Command
}
