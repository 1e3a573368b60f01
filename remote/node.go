package remote

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tkellem/subshell"
	"golang.org/x/crypto/bcrypt"
)

// NodeParams is a bag of parameters for a Node instance.
type NodeParams struct {
	// Name is how clients address this node through the hub.
	Name string

	// Hub is the hub's "host:port"; DefaultHubAddr() when empty.
	Hub string

	// Password, when set, makes every client authenticate before
	// its commands run.  Only a bcrypt hash of it is retained.
	Password string

	// AuthWindow bounds how long one authentication lasts before
	// the node asks for it again.
	AuthWindow time.Duration

	// Session is the template for the sessions this node creates.
	// Its zero value runs the host's default shell.  KillOnClose is
	// forced on, so a wedged shell cannot outlive its session.
	Session subshell.Params

	// RunTimeout bounds each remote command, and the startup of the
	// session that runs it.  A command that outlives it costs the
	// session its shell; the next request gets a fresh one.
	RunTimeout time.Duration

	// Logger accepts debug traffic; nil means silence.
	Logger Logger
}

const (
	// DefaultAuthWindow is used when AuthWindow is zero.
	DefaultAuthWindow = 24 * time.Hour

	// DefaultRunTimeout is used when RunTimeout is zero.
	DefaultRunTimeout = 10 * time.Minute

	// closeGrace bounds each session teardown during drop and Close.
	closeGrace = 5 * time.Second
)

// Validate fills in defaults and returns an error
// if there's a problem in the NodeParams.
func (p *NodeParams) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("must specify a node Name")
	}
	if p.Hub == "" {
		p.Hub = DefaultHubAddr()
	}
	if p.AuthWindow <= 0 {
		p.AuthWindow = DefaultAuthWindow
	}
	if p.RunTimeout <= 0 {
		p.RunTimeout = DefaultRunTimeout
	}
	if p.Logger == nil {
		p.Logger = nopLogger{}
	}
	p.Session.KillOnClose = true
	return nil
}

// Node owns named sessions on its machine and serves them to remote
// clients through a hub.  A session outlives the client connections
// that use it; distinct clients naming the same session share one
// shell.  Requests arrive through the hub one at a time, so commands
// run serially across all of a node's sessions.
type Node struct {
	params NodeParams
	hash   []byte
	peer   *peer
	done   chan struct{}

	mu       sync.Mutex
	sessions map[string]subshell.Session
	authed   map[string]time.Time
	closed   bool
}

// StartNode connects to the hub, registers p.Name and serves command
// requests in the background until Close.
func StartNode(p NodeParams) (*Node, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var hash []byte
	if p.Password != "" {
		var err error
		hash, err = bcrypt.GenerateFromPassword(
			[]byte(p.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hashing the node password; %w", err)
		}
		p.Password = ""
	}
	conn, err := net.Dial("tcp", p.Hub)
	if err != nil {
		return nil, fmt.Errorf(
			"node %q cannot reach the hub at %q; %w", p.Name, p.Hub, err)
	}
	n := &Node{
		params:   p,
		hash:     hash,
		peer:     newPeer(conn),
		done:     make(chan struct{}),
		sessions: map[string]subshell.Session{},
		authed:   map[string]time.Time{},
	}
	if err := n.register(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	go n.serve()
	return n, nil
}

func (n *Node) register() error {
	if err := n.peer.send(&registerNode{Name: n.params.Name}); err != nil {
		return fmt.Errorf("registering node %q; %w", n.params.Name, err)
	}
	m, err := n.peer.recv()
	if err != nil {
		return fmt.Errorf("registering node %q; %w", n.params.Name, err)
	}
	if ack, ok := m.(*ackNack); !ok || !ack.OK {
		return fmt.Errorf("hub refused node %q", n.params.Name)
	}
	return nil
}

// Done is closed when the hub connection is gone, whether by Close or
// by the hub's doing.
func (n *Node) Done() <-chan struct{} {
	return n.done
}

// Close drops the hub connection, waits out a request in flight and
// closes every session.  Close of a closed node is a no-op.
func (n *Node) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	_ = n.peer.close()
	<-n.done

	n.mu.Lock()
	sessions := make([]subshell.Session, 0, len(n.sessions))
	for _, s := range n.sessions {
		sessions = append(sessions, s)
	}
	n.sessions = map[string]subshell.Session{}
	n.mu.Unlock()

	var err error
	for _, s := range sessions {
		if cErr := s.Close(closeGrace); cErr != nil && err == nil {
			err = cErr
		}
	}
	return err
}

// serve answers hub traffic until the connection drops.
func (n *Node) serve() {
	defer close(n.done)
	for {
		m, err := n.peer.recv()
		if err != nil {
			n.params.Logger.Debug(
				"node connection done", "node", n.params.Name, "err", err)
			return
		}
		var reply msg
		switch m := m.(type) {
		case *authenticate:
			reply = n.admit(m)
		case *commandRequest:
			reply = n.execute(m)
		default:
			reply = &ackNack{OK: false}
		}
		if err := n.peer.send(reply); err != nil {
			n.params.Logger.Debug(
				"node reply failed", "node", n.params.Name, "err", err)
			return
		}
	}
}

// admit answers an authenticate message.  A node with no password
// admits everyone.
func (n *Node) admit(m *authenticate) msg {
	if n.hash == nil {
		return &authSuccess{}
	}
	if bcrypt.CompareHashAndPassword(n.hash, []byte(m.Password)) != nil {
		n.params.Logger.Debug("authentication failed", "node", n.params.Name)
		return &authFailed{}
	}
	n.mu.Lock()
	n.authed[m.Token] = time.Now()
	n.mu.Unlock()
	return &authSuccess{}
}

// authorized reports whether the client behind token may run commands.
func (n *Node) authorized(token string) bool {
	if n.hash == nil {
		return true
	}
	n.mu.Lock()
	at, ok := n.authed[token]
	n.mu.Unlock()
	return ok && time.Since(at) <= n.params.AuthWindow
}

// execute runs one remote command in its named session and reports
// the outcome.  When the run fails the session's shell is no longer
// serviceable, so the session is dropped and the error text travels
// back on the reply's stderr.
func (n *Node) execute(m *commandRequest) msg {
	reply := &commandReply{
		Node:     n.params.Name,
		Session:  m.Session,
		Cmd:      m.Cmd,
		ExitCode: subshell.DefaultExitCode,
	}
	if !n.authorized(m.Token) {
		return &authRequired{}
	}
	sess, err := n.session(m.Session, m.NewShell)
	if err != nil {
		reply.Stderr = err.Error()
		return reply
	}
	c, err := sess.Run(n.params.RunTimeout, m.Cmd)
	if err != nil {
		n.drop(m.Session, sess)
	}
	if c != nil {
		reply.Stdout = c.Stdout()
		reply.Stderr = c.Stderr()
		reply.ExitCode = c.ExitCode()
	}
	if err != nil {
		if reply.Stderr != "" {
			reply.Stderr += "\n"
		}
		reply.Stderr += err.Error()
	}
	return reply
}

// session returns the named live session, creating it when absent or
// when the request wants a fresh shell.
func (n *Node) session(name string, fresh bool) (subshell.Session, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	s, ok := n.sessions[name]
	if ok && !fresh {
		return s, nil
	}
	if ok {
		n.closeSession(name, s)
	}
	s = subshell.NewSession(n.params.Session)
	if err := s.Start(n.params.RunTimeout); err != nil {
		return nil, fmt.Errorf("starting session %q; %w", name, err)
	}
	n.sessions[name] = s
	n.params.Logger.Debug("session started", "session", name)
	return s, nil
}

// drop retires a session whose shell is no longer serviceable.
func (n *Node) drop(name string, sess subshell.Session) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sessions[name] == sess {
		delete(n.sessions, name)
	}
	n.closeSession(name, sess)
}

func (n *Node) closeSession(name string, s subshell.Session) {
	err := s.Close(closeGrace)
	if err != nil && !errors.Is(err, subshell.ErrMarkerLost) {
		n.params.Logger.Debug("session close", "session", name, "err", err)
	}
}
