package subshell

import (
	"fmt"
	"time"
)

// sessStateIdle implements the "idle" state of the Session:
// shell subprocess healthy, no command open.
type sessStateIdle struct {
	infra *sessInfra
}

func (sIdle *sessStateIdle) subStart(_ time.Duration) (sessState, error) {
	return sIdle, fmt.Errorf("start called, but shell is already started")
}

func (sIdle *sessStateIdle) subIssue(
	w wireCmd) (sessState, *Command, error) {
	c, err := sIdle.infra.infraIssue(w)
	if err != nil {
		// Writes fail only when the shell is gone,
		// so the subprocess must be abandoned.
		return &sessStateOff{infra: sIdle.infra}, c, err
	}
	return &sessStateOpen{infra: sIdle.infra}, c, nil
}

func (sIdle *sessStateIdle) subWait(
	_ time.Duration) (sessState, *Command, error) {
	// Nothing is open; report the most recent command.
	return sIdle, sIdle.infra.lastCommand(), nil
}

func (sIdle *sessStateIdle) subSend(text string) (sessState, error) {
	if err := sIdle.infra.infraSend(text); err != nil {
		return &sessStateOff{infra: sIdle.infra}, err
	}
	return sIdle, nil
}

func (sIdle *sessStateIdle) subClose(d time.Duration) (sessState, error) {
	return &sessStateOff{infra: sIdle.infra}, sIdle.infra.infraClose(d)
}
