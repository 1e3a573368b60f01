package remote

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tkellem/subshell"
)

// ClientParams is a bag of parameters for a Client instance.
type ClientParams struct {
	// Hub is the hub's "host:port"; DefaultHubAddr() when empty.
	Hub string

	// Node names the machine to run on.
	Node string

	// Session names the shell on the node.  Clients naming the same
	// session share its shell, state included.
	Session string

	// Logger accepts debug traffic; nil means silence.
	Logger Logger
}

// Validate fills in defaults and returns an error
// if there's a problem in the ClientParams.
func (p *ClientParams) Validate() error {
	if p.Node == "" {
		return fmt.Errorf("must specify the Node to run on")
	}
	if p.Session == "" {
		return fmt.Errorf("must specify a Session name")
	}
	if p.Hub == "" {
		p.Hub = DefaultHubAddr()
	}
	if p.Logger == nil {
		p.Logger = nopLogger{}
	}
	return nil
}

// Command records one command sent through the hub and what became
// of it.  Once Finished reports true the fields are settled and the
// accessors are safe to call from any goroutine.
type Command struct {
	// Text is the command as given by the caller.
	Text string

	exit   int
	stdout string
	stderr string
	done   chan struct{}
}

// Exit codes a Command can carry without its text ever reaching a
// shell.  They sit in the HTTP range, well clear of the codes shells
// hand out.
const (
	// ExitAuthRequired: the node wants Auth before running commands.
	ExitAuthRequired = 403

	// ExitAuthFailed: the node rejected this client's credentials.
	ExitAuthFailed = 401
)

func newCommand(text string) *Command {
	return &Command{
		Text: text,
		exit: subshell.DefaultExitCode,
		done: make(chan struct{}),
	}
}

func (c *Command) settle(exit int, stdout, stderr string) {
	c.exit = exit
	c.stdout = stdout
	c.stderr = stderr
	close(c.done)
}

// Done returns a channel that is closed when the command settles.
func (c *Command) Done() <-chan struct{} { return c.done }

// Finished reports whether a reply or a failure settled this command.
func (c *Command) Finished() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// ExitCode returns the command's exit status as the node reported it,
// subshell.DefaultExitCode when no node ever ran it.
func (c *Command) ExitCode() int { return c.exit }

// Stdout returns the command's captured stdout.
func (c *Command) Stdout() string { return c.stdout }

// Stderr returns the command's captured stderr.  Failures on the way
// to the node land here too, described in text.
func (c *Command) Stderr() string { return c.stderr }

// Client issues commands to one named session on one node, through a
// hub.  It is shaped like a local Session: Run, Issue and Wait behave
// like their subshell counterparts, except that any number of
// commands may be in flight at once.  Replies settle them strictly in
// issue order, so waiting on the newest also joins its predecessors.
type Client struct {
	params ClientParams
	token  string
	peer   *peer
	done   chan struct{}

	mu       sync.Mutex
	history  []*Command
	pending  []*Command
	authWait chan bool
	fresh    bool
	closed   bool
}

// Dial connects to the hub and opens the conversation for p.Session.
// Errors:
//   - Something's wrong in the ClientParams.
//   - The hub cannot be reached, or refused the session.
func Dial(p ClientParams) (*Client, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	conn, err := net.Dial("tcp", p.Hub)
	if err != nil {
		return nil, fmt.Errorf("cannot reach the hub at %q; %w", p.Hub, err)
	}
	c := &Client{
		params: p,
		token:  uuid.NewString(),
		peer:   newPeer(conn),
		done:   make(chan struct{}),
	}
	if err := c.hello(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	go c.read()
	return c, nil
}

func (c *Client) hello() error {
	if err := c.peer.send(&startSession{Name: c.params.Session}); err != nil {
		return fmt.Errorf("greeting the hub; %w", err)
	}
	m, err := c.peer.recv()
	if err != nil {
		return fmt.Errorf("greeting the hub; %w", err)
	}
	if ack, ok := m.(*ackNack); !ok || !ack.OK {
		return fmt.Errorf("hub refused session %q", c.params.Session)
	}
	return nil
}

// read settles pending commands from hub replies until the connection
// drops, then fails whatever is still in flight.
func (c *Client) read() {
	defer close(c.done)
	for {
		m, err := c.peer.recv()
		if err != nil {
			c.failPending("connection to the hub is gone")
			return
		}
		switch m := m.(type) {
		case *commandReply:
			c.settleNext(m.ExitCode, m.Stdout, m.Stderr)
		case *authRequired:
			c.settleNext(ExitAuthRequired, "", fmt.Sprintf(
				"node %q requires Auth before running commands",
				c.params.Node))
		case *authFailed:
			if !c.answerAuth(false) {
				c.settleNext(ExitAuthFailed, "", fmt.Sprintf(
					"node %q rejected this client", c.params.Node))
			}
		case *authSuccess:
			c.answerAuth(true)
		case *ackNack:
			// A nack is the hub failing to route; an ack is its
			// farewell, with nothing left to settle.
			if !m.OK && !c.answerAuth(false) {
				c.settleNext(subshell.DefaultExitCode, "", fmt.Sprintf(
					"hub could not reach node %q", c.params.Node))
			}
		}
	}
}

// settleNext settles the oldest in-flight command.
func (c *Client) settleNext(exit int, stdout, stderr string) {
	c.mu.Lock()
	var cmd *Command
	if len(c.pending) > 0 {
		cmd = c.pending[0]
		c.pending = c.pending[1:]
	}
	c.mu.Unlock()
	if cmd != nil {
		cmd.settle(exit, stdout, stderr)
	}
}

// failPending settles everything still in flight as failed.
func (c *Client) failPending(why string) {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	authWait := c.authWait
	c.authWait = nil
	c.mu.Unlock()
	for _, cmd := range pending {
		cmd.settle(subshell.DefaultExitCode, "", why)
	}
	if authWait != nil {
		authWait <- false
	}
}

// answerAuth resolves a pending Auth call, reporting whether one was
// pending.
func (c *Client) answerAuth(ok bool) bool {
	c.mu.Lock()
	ch := c.authWait
	c.authWait = nil
	c.mu.Unlock()
	if ch == nil {
		return false
	}
	ch <- ok
	return true
}

// Auth proves this client to the node; authorization then lasts for
// the node's AuthWindow.  Nodes without a password admit everyone,
// Auth included.
// Errors:
//   - The client is closed, or an Auth is already underway.
//   - The node rejected the password (ErrAuthFailed).
//   - No answer within d (subshell.ErrWaitTimeout).
func (c *Client) Auth(d time.Duration, password string) error {
	ch := make(chan bool, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("auth refused; %w", ErrClientClosed)
	}
	if c.authWait != nil {
		c.mu.Unlock()
		return fmt.Errorf("an authentication is already underway")
	}
	c.authWait = ch
	c.mu.Unlock()

	err := c.peer.send(&authenticate{
		Node:     c.params.Node,
		Token:    c.token,
		Password: password,
	})
	if err != nil {
		c.forgetAuth(ch)
		return fmt.Errorf("sending credentials; %w", err)
	}
	select {
	case ok := <-ch:
		if !ok {
			return fmt.Errorf("node %q; %w", c.params.Node, ErrAuthFailed)
		}
		return nil
	case <-time.After(d):
		c.forgetAuth(ch)
		return fmt.Errorf("no authentication answer after %s; %w",
			d, subshell.ErrWaitTimeout)
	}
}

// forgetAuth clears the auth wait if it is still ours.
func (c *Client) forgetAuth(ch chan bool) {
	c.mu.Lock()
	if c.authWait == ch {
		c.authWait = nil
	}
	c.mu.Unlock()
}

// NewShell makes the node discard the session's current shell and
// start a fresh one before the next issued command runs.
func (c *Client) NewShell() {
	c.mu.Lock()
	c.fresh = true
	c.mu.Unlock()
}

// Issue sends cmd to the node and returns immediately with an
// unsettled Command.  Call Wait to settle it.
// Errors:
//   - The client is closed.
//   - The hub connection is gone.
func (c *Client) Issue(cmd string) (*Command, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("issue of %q refused; %w", cmd, ErrClientClosed)
	}
	req := &commandRequest{
		Node:     c.params.Node,
		Session:  c.params.Session,
		Token:    c.token,
		Cmd:      cmd,
		NewShell: c.fresh,
	}
	if err := c.peer.send(req); err != nil {
		return nil, fmt.Errorf("issuing %q; %w", cmd, err)
	}
	c.fresh = false
	rc := newCommand(cmd)
	c.pending = append(c.pending, rc)
	c.history = append(c.history, rc)
	c.params.Logger.Debug("issued",
		"node", c.params.Node, "session", c.params.Session, "cmd", cmd)
	return rc, nil
}

// Wait blocks until every in-flight command has settled, or d
// expires.  With nothing in flight it returns the most recent
// command, nil if nothing was ever issued.
// Errors:
//   - No reply within d (subshell.ErrWaitTimeout); the command stays
//     in flight, and Wait can resume waiting for it.
func (c *Client) Wait(d time.Duration) (*Command, error) {
	c.mu.Lock()
	var rc *Command
	if n := len(c.pending); n > 0 {
		rc = c.pending[n-1]
	} else if n := len(c.history); n > 0 {
		rc = c.history[n-1]
	}
	c.mu.Unlock()
	if rc == nil {
		return nil, nil
	}
	return c.await(d, rc)
}

// Run issues cmd and waits for its reply.
// Errors: as for Issue and Wait.
func (c *Client) Run(d time.Duration, cmd string) (*Command, error) {
	rc, err := c.Issue(cmd)
	if err != nil {
		return nil, err
	}
	return c.await(d, rc)
}

func (c *Client) await(d time.Duration, rc *Command) (*Command, error) {
	select {
	case <-rc.done:
		return rc, nil
	case <-time.After(d):
		return rc, fmt.Errorf("running %q; no reply after %s; %w",
			rc.Text, d, subshell.ErrWaitTimeout)
	}
}

// Last returns the most recently issued command, nil if none.
func (c *Client) Last() *Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := len(c.history); n > 0 {
		return c.history[n-1]
	}
	return nil
}

// History returns every issued command, oldest first.
func (c *Client) History() []*Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Command, len(c.history))
	copy(out, c.history)
	return out
}

// Close bids the hub farewell and drops the connection.  Commands
// still in flight settle as failed.  Close of a closed client is a
// no-op, so Close is safe to call at any time.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	// Best effort; the hub acks the farewell and hangs up.
	_ = c.peer.send(&endSession{Name: c.params.Session})
	err := c.peer.close()
	<-c.done
	return err
}
