package remote

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
)

// The wire format is newline-delimited JSON, one envelope per
// message.  The first message on a connection declares its role;
// after that a client receives exactly one answer per message it
// sends, in order.

// msg is implemented by everything that crosses a hub connection.
type msg interface {
	// kind returns the wire tag naming the concrete type.
	kind() string
}

// routed is implemented by client messages addressed to a node.
type routed interface {
	msg
	targetNode() string
}

const (
	kindAck            = "ack"
	kindRegisterNode   = "register-node"
	kindStartSession   = "start-session"
	kindEndSession     = "end-session"
	kindAuthenticate   = "authenticate"
	kindAuthSuccess    = "auth-success"
	kindAuthRequired   = "auth-required"
	kindAuthFailed     = "auth-failed"
	kindCommandRequest = "command-request"
	kindCommandReply   = "command-reply"
)

// ackNack answers a message that has no richer answer; OK false is a
// refusal.
type ackNack struct {
	OK bool `json:"ok"`
}

// registerNode declares its connection to be a node's.
type registerNode struct {
	Name string `json:"name"`
}

// startSession declares its connection to be a client's.
type startSession struct {
	Name string `json:"name"`
}

// endSession is a client's farewell; the hub acks it and hangs up.
type endSession struct {
	Name string `json:"name"`
}

// authenticate carries a client's password to a node.  Token
// identifies the same client in later commandRequests.
type authenticate struct {
	Node     string `json:"node"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

// authSuccess, authRequired and authFailed answer authentication
// traffic; authRequired also answers a commandRequest from a client
// the node does not trust yet.
type (
	authSuccess  struct{}
	authRequired struct{}
	authFailed   struct{}
)

// commandRequest asks a node to run one command in a named session.
// NewShell makes the node discard the session's current shell first.
type commandRequest struct {
	Node     string `json:"node"`
	Session  string `json:"session"`
	Token    string `json:"token"`
	Cmd      string `json:"cmd"`
	NewShell bool   `json:"newShell,omitempty"`
}

// commandReply reports what became of a commandRequest.
type commandReply struct {
	Node     string `json:"node"`
	Session  string `json:"session"`
	Cmd      string `json:"cmd"`
	ExitCode int    `json:"exitCode"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
}

func (*ackNack) kind() string        { return kindAck }
func (*registerNode) kind() string   { return kindRegisterNode }
func (*startSession) kind() string   { return kindStartSession }
func (*endSession) kind() string     { return kindEndSession }
func (*authenticate) kind() string   { return kindAuthenticate }
func (*authSuccess) kind() string    { return kindAuthSuccess }
func (*authRequired) kind() string   { return kindAuthRequired }
func (*authFailed) kind() string     { return kindAuthFailed }
func (*commandRequest) kind() string { return kindCommandRequest }
func (*commandReply) kind() string   { return kindCommandReply }

func (m *authenticate) targetNode() string   { return m.Node }
func (m *commandRequest) targetNode() string { return m.Node }

func blankFor(kind string) msg {
	switch kind {
	case kindAck:
		return &ackNack{}
	case kindRegisterNode:
		return &registerNode{}
	case kindStartSession:
		return &startSession{}
	case kindEndSession:
		return &endSession{}
	case kindAuthenticate:
		return &authenticate{}
	case kindAuthSuccess:
		return &authSuccess{}
	case kindAuthRequired:
		return &authRequired{}
	case kindAuthFailed:
		return &authFailed{}
	case kindCommandRequest:
		return &commandRequest{}
	case kindCommandReply:
		return &commandReply{}
	}
	return nil
}

// envelope frames one message on the wire.
type envelope struct {
	Kind string          `json:"kind"`
	Body json.RawMessage `json:"body,omitempty"`
}

func writeMsg(enc *json.Encoder, m msg) error {
	body, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return enc.Encode(envelope{Kind: m.kind(), Body: body})
}

func readMsg(dec *json.Decoder) (msg, error) {
	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, err
	}
	m := blankFor(env.Kind)
	if m == nil {
		return nil, fmt.Errorf("unknown message kind %q", env.Kind)
	}
	if len(env.Body) > 0 {
		if err := json.Unmarshal(env.Body, m); err != nil {
			return nil, fmt.Errorf("bad %q message body; %w", env.Kind, err)
		}
	}
	return m, nil
}

// peer wraps one connection with its codec.  Sends may come from any
// goroutine; receives stay on one goroutine by construction.
type peer struct {
	conn net.Conn
	dec  *json.Decoder
	enc  *json.Encoder
	wmu  sync.Mutex
}

func newPeer(conn net.Conn) *peer {
	return &peer{
		conn: conn,
		dec:  json.NewDecoder(conn),
		enc:  json.NewEncoder(conn),
	}
}

func (p *peer) send(m msg) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	return writeMsg(p.enc, m)
}

func (p *peer) recv() (msg, error) {
	return readMsg(p.dec)
}

func (p *peer) close() error {
	return p.conn.Close()
}
