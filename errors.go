package subshell

import "errors"

// Sentinel errors for the failure classes a Session reports.
// They arrive wrapped with context; test for them with errors.Is.
var (
	// ErrNotStarted: the operation needs a started shell.
	ErrNotStarted = errors.New("shell not started")

	// ErrCommandOpen: a new command was refused because a previous
	// one has not settled.
	ErrCommandOpen = errors.New("a command is already open")

	// ErrShellExited: the shell subprocess is gone; the session
	// needs a fresh Start.
	ErrShellExited = errors.New("shell subprocess exited")

	// ErrMarkerLost: a command's completion report was never
	// observed, so its output boundary and exit code are unknown.
	ErrMarkerLost = errors.New("completion report never observed")

	// ErrWaitTimeout: the wait deadline expired with the command
	// still open.  Waiting again may yet succeed.
	ErrWaitTimeout = errors.New("timed out awaiting completion report")
)
