package remote

import (
	"fmt"
	"net"
	"sync"
)

// HubParams is a bag of parameters for a Hub instance.
type HubParams struct {
	// Addr is the TCP listen address.  Empty means every interface,
	// on the environment port or DefaultPort.
	Addr string

	// Logger accepts debug traffic; nil means silence.
	Logger Logger
}

// Validate fills in defaults and returns an error
// if there's a problem in the HubParams.
func (p *HubParams) Validate() error {
	if p.Addr == "" {
		p.Addr = defaultListenAddr()
	}
	if p.Logger == nil {
		p.Logger = nopLogger{}
	}
	return nil
}

// Hub accepts every connection and routes.  The first message on a
// connection declares its role: a node registration attaches a relay
// for that node, a session start begins a client conversation.
// Messages for a node funnel through its one relay, so a node answers
// one request at a time, in arrival order.
type Hub struct {
	logger Logger
	ln     net.Listener

	mu     sync.Mutex
	nodes  map[string]*nodeLink
	conns  map[net.Conn]struct{}
	closed bool
}

// StartHub listens on p.Addr and serves in the background until Close.
func StartHub(p HubParams) (*Hub, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", p.Addr)
	if err != nil {
		return nil, fmt.Errorf("hub cannot listen on %q; %w", p.Addr, err)
	}
	h := &Hub{
		logger: p.Logger,
		ln:     ln,
		nodes:  map[string]*nodeLink{},
		conns:  map[net.Conn]struct{}{},
	}
	go h.serve()
	return h, nil
}

// Addr returns the hub's listen address, in a form that
// NodeParams.Hub and ClientParams.Hub accept.
func (h *Hub) Addr() string {
	return h.ln.Addr().String()
}

// Close stops the listener and drops every connection.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	links := make([]*nodeLink, 0, len(h.nodes))
	for _, nl := range h.nodes {
		links = append(links, nl)
	}
	conns := make([]net.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	err := h.ln.Close()
	for _, nl := range links {
		nl.retire()
	}
	for _, c := range conns {
		_ = c.Close()
	}
	return err
}

func (h *Hub) serve() {
	for {
		conn, err := h.ln.Accept()
		if err != nil {
			return
		}
		if !h.track(conn) {
			_ = conn.Close()
			return
		}
		go h.greet(conn)
	}
}

// greet reads the role-declaring first message and dispatches.  The
// connection lives exactly as long as this goroutine.
func (h *Hub) greet(conn net.Conn) {
	defer h.untrack(conn)
	defer conn.Close()
	p := newPeer(conn)
	m, err := p.recv()
	if err != nil {
		return
	}
	switch m := m.(type) {
	case *registerNode:
		h.serveNode(m.Name, p)
	case *startSession:
		if p.send(&ackNack{OK: true}) == nil {
			h.serveClient(m.Name, p)
		}
	default:
		_ = p.send(&ackNack{OK: false})
	}
}

func (h *Hub) track(conn net.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[conn] = struct{}{}
	return true
}

func (h *Hub) untrack(conn net.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// relayBacklog bounds how many client messages may queue for one
// node; a client submitting past it blocks.
const relayBacklog = 16

// relayJob pairs a routed client message with the client that awaits
// the node's answer.
type relayJob struct {
	from *peer
	m    msg
}

// nodeLink is a registered node's connection plus the queue feeding
// its relay.
type nodeLink struct {
	name string
	peer *peer
	jobs chan relayJob
	quit chan struct{}
	once sync.Once
}

// retire drops the link's connection and marks it dead for
// submitters.  Safe to call more than once.
func (nl *nodeLink) retire() {
	nl.once.Do(func() {
		close(nl.quit)
		_ = nl.peer.close()
	})
}

// submit queues a job unless the link is retired.
func (nl *nodeLink) submit(j relayJob) bool {
	select {
	case <-nl.quit:
		return false
	default:
	}
	select {
	case nl.jobs <- j:
		return true
	case <-nl.quit:
		return false
	}
}

// serveNode attaches the node before acking its registration, so the
// node is routable the moment it learns it is registered.
func (h *Hub) serveNode(name string, p *peer) {
	if name == "" {
		_ = p.send(&ackNack{OK: false})
		return
	}
	nl := &nodeLink{
		name: name,
		peer: p,
		jobs: make(chan relayJob, relayBacklog),
		quit: make(chan struct{}),
	}
	h.attach(nl)
	h.logger.Debug("node attached", "node", name)
	if err := p.send(&ackNack{OK: true}); err == nil {
		h.relay(nl)
	}
	h.detach(nl)
	h.logger.Debug("node detached", "node", name)
}

// relay forwards jobs to the node and each answer back to the asking
// client.  It quits on the first node failure; jobs still queued are
// answered with a nack so that no client hangs.
func (h *Hub) relay(nl *nodeLink) {
	defer func() {
		for {
			select {
			case j := <-nl.jobs:
				_ = j.from.send(&ackNack{OK: false})
			default:
				return
			}
		}
	}()
	for {
		var j relayJob
		select {
		case <-nl.quit:
			return
		case j = <-nl.jobs:
		}
		reply, err := h.exchange(nl, j.m)
		if err != nil {
			h.logger.Debug("node lost", "node", nl.name, "err", err)
			_ = j.from.send(&ackNack{OK: false})
			return
		}
		if err := j.from.send(reply); err != nil {
			// The asking client is gone; the node is still fine.
			h.logger.Debug("client write failed", "node", nl.name, "err", err)
		}
	}
}

func (h *Hub) exchange(nl *nodeLink, m msg) (msg, error) {
	if err := nl.peer.send(m); err != nil {
		return nil, err
	}
	return nl.peer.recv()
}

func (h *Hub) attach(nl *nodeLink) {
	h.mu.Lock()
	old := h.nodes[nl.name]
	h.nodes[nl.name] = nl
	h.mu.Unlock()
	if old != nil {
		old.retire()
	}
}

func (h *Hub) detach(nl *nodeLink) {
	nl.retire()
	h.mu.Lock()
	if h.nodes[nl.name] == nl {
		delete(h.nodes, nl.name)
	}
	h.mu.Unlock()
}

func (h *Hub) node(name string) *nodeLink {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.nodes[name]
}

// serveClient answers one client connection until its farewell or
// disconnect.  Messages addressed to a node are queued on that node's
// relay; everything else is refused.
func (h *Hub) serveClient(name string, p *peer) {
	h.logger.Debug("client arrived", "session", name)
	defer h.logger.Debug("client left", "session", name)
	for {
		m, err := p.recv()
		if err != nil {
			return
		}
		switch m := m.(type) {
		case *endSession:
			_ = p.send(&ackNack{OK: true})
			return
		case routed:
			nl := h.node(m.targetNode())
			if nl == nil || !nl.submit(relayJob{from: p, m: m}) {
				_ = p.send(&ackNack{OK: false})
			}
		default:
			_ = p.send(&ackNack{OK: false})
		}
	}
}
