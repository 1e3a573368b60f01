package subshell

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// sessMutex implements Session.
// It allows for safe use of a Session in a CSP environment.
// Instead of having a state variable and branching to distinguish
// states, sessMutex allows each state to have a distinct
// implementation.  The states share common code and infrastructure
// via sessInfra.
type sessMutex struct {
	state sessState
	infra *sessInfra
	mutex sync.Mutex
}

func (r *sessMutex) Start(d time.Duration) (err error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.state, err = r.state.subStart(d)
	return
}

func (r *sessMutex) Run(d time.Duration, cmd string) (*Command, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.issueAndWait(d, r.infra.plainCmd(cmd))
}

func (r *sessMutex) Issue(cmd string) (c *Command, err error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.state, c, err = r.state.subIssue(r.infra.plainCmd(cmd))
	return
}

func (r *sessMutex) Wait(d time.Duration) (c *Command, err error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.state, c, err = r.state.subWait(d)
	return
}

func (r *sessMutex) SendText(text string) (err error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.state, err = r.state.subSend(text)
	return
}

func (r *sessMutex) Pipe(
	d time.Duration, src *Command, cmd string) (*Command, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if src == nil {
		return nil, fmt.Errorf("must specify a non-nil pipe source")
	}
	if !src.Finished() {
		return nil, fmt.Errorf(
			"pipe source %q has not finished", abbrev(src.Text))
	}
	text := strings.TrimRight(src.Stdout(), "\r\n")
	return r.issueAndWait(d, r.infra.pipeCmd(text, cmd))
}

func (r *sessMutex) Feed(
	d time.Duration, text, cmd string) (*Command, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.issueAndWait(d, r.infra.pipeCmd(text, cmd))
}

func (r *sessMutex) Python(
	d time.Duration, lines ...string) (*Command, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if len(lines) == 0 {
		return nil, fmt.Errorf("must specify source lines to run")
	}
	return r.issueAndWait(d, r.infra.interpreterCmd(lines))
}

func (r *sessMutex) Background(
	d time.Duration, cmds ...string) (*Command, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if len(cmds) == 0 {
		return nil, fmt.Errorf("must specify commands to launch")
	}
	return r.issueAndWait(d, r.infra.backgroundCmd(cmds))
}

func (r *sessMutex) Close(d time.Duration) (err error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.state, err = r.state.subClose(d)
	return
}

func (r *sessMutex) Last() *Command {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.infra.lastCommand()
}

func (r *sessMutex) History() []*Command {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.infra.commandHistory()
}

// issueAndWait runs the issue and wait legs under the one lock
// acquisition, installing whatever state each leg returns.
func (r *sessMutex) issueAndWait(
	d time.Duration, w wireCmd) (c *Command, err error) {
	r.state, c, err = r.state.subIssue(w)
	if err != nil {
		return c, err
	}
	r.state, c, err = r.state.subWait(d)
	return c, err
}
