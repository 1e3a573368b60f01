package subshell

import (
	"time"

	"github.com/tkellem/subshell/dialect"
)

// wireCmd pairs the command text a caller sees with a builder for the
// wire form actually written to the shell.  Building is deferred so
// that each issue can tag its wire form with a fresh marker.
type wireCmd struct {
	text  string
	build func(dialect.Marker) string

	// probe commands belong to the session infrastructure
	// and stay out of the history.
	probe bool
}

// sessState is the internal representation of Session state.
// Every Session state must implement sessState.
type sessState interface {
	subStart(time.Duration) (sessState, error)
	subIssue(wireCmd) (sessState, *Command, error)
	subWait(time.Duration) (sessState, *Command, error)
	subSend(string) (sessState, error)
	subClose(time.Duration) (sessState, error)
}
