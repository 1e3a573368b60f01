package subshell

import (
	"errors"
	"fmt"
	"time"
)

// sessStateOpen implements the "open" state of the Session:
// a command has been issued and its completion report
// has not yet been observed.
type sessStateOpen struct {
	infra *sessInfra
}

func (sOpen *sessStateOpen) subStart(_ time.Duration) (sessState, error) {
	return sOpen, fmt.Errorf("start called, but shell is already started")
}

func (sOpen *sessStateOpen) subIssue(
	w wireCmd) (sessState, *Command, error) {
	return sOpen, nil, fmt.Errorf(
		"issue of %q refused while %q is open; %w",
		abbrev(w.text), abbrev(sOpen.infra.open.Text), ErrCommandOpen)
}

func (sOpen *sessStateOpen) subWait(
	d time.Duration) (sessState, *Command, error) {
	c, err := sOpen.infra.infraWait(d)
	if err == nil {
		return &sessStateIdle{infra: sOpen.infra}, c, nil
	}
	if errors.Is(err, ErrWaitTimeout) {
		// The command is still open; callers may wait again.
		return sOpen, c, err
	}
	return &sessStateOff{infra: sOpen.infra}, c, err
}

func (sOpen *sessStateOpen) subSend(text string) (sessState, error) {
	// Raw text for the open command, e.g. the answer to a prompt
	// the command is stuck on.
	if err := sOpen.infra.infraSend(text); err != nil {
		return &sessStateOff{infra: sOpen.infra}, err
	}
	return sOpen, nil
}

func (sOpen *sessStateOpen) subClose(d time.Duration) (sessState, error) {
	return &sessStateOff{infra: sOpen.infra}, sOpen.infra.infraClose(d)
}
