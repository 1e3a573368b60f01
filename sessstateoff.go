package subshell

import (
	"fmt"
	"time"
)

// sessStateOff implements the "off" state of the Session.
type sessStateOff struct {
	infra *sessInfra
}

func (sOff *sessStateOff) subStart(d time.Duration) (sessState, error) {
	if err := sOff.infra.infraStart(d); err != nil {
		return sOff, err
	}
	return &sessStateIdle{infra: sOff.infra}, nil
}

func (sOff *sessStateOff) subIssue(w wireCmd) (sessState, *Command, error) {
	return sOff, nil, fmt.Errorf(
		"issue of %q refused; %w", abbrev(w.text), ErrNotStarted)
}

func (sOff *sessStateOff) subWait(
	_ time.Duration) (sessState, *Command, error) {
	return sOff, nil, fmt.Errorf("wait called; %w", ErrNotStarted)
}

func (sOff *sessStateOff) subSend(_ string) (sessState, error) {
	return sOff, fmt.Errorf("send called; %w", ErrNotStarted)
}

// subClose treats closing an off session as a no-op,
// so that Close is safe to call at any time.
func (sOff *sessStateOff) subClose(_ time.Duration) (sessState, error) {
	return sOff, nil
}
