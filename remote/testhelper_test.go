package remote_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tkellem/subshell/dialect"
	. "github.com/tkellem/subshell/remote"
)

// Shared tuning.  The long timeout bounds whole remote round trips,
// shell startup included.
const (
	timeOutLong  = 10 * time.Second
	timeOutTiny  = 50 * time.Millisecond
	pollQuickly  = 10 * time.Millisecond
	drainQuickly = 20 * time.Millisecond
)

// rig is one hub and one posix node on the loopback, torn down with
// the test that built it.
type rig struct {
	hub  *Hub
	node *Node
}

// startRig stands the rig up.  Adjustments in np are honored, except
// that Hub always points at the rig's hub, Name defaults to "worker"
// and the sessions poll fast enough for test patience.
func startRig(t *testing.T, np NodeParams) *rig {
	t.Helper()
	hub, err := StartHub(HubParams{Addr: "127.0.0.1:0"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = hub.Close() })

	np.Hub = hub.Addr()
	if np.Name == "" {
		np.Name = "worker"
	}
	np.Session.Dialect = dialect.Posix
	np.Session.PollInterval = pollQuickly
	np.Session.Poll = drainQuickly
	if np.RunTimeout == 0 {
		np.RunTimeout = timeOutLong
	}
	node, err := StartNode(np)
	require.NoError(t, err)
	t.Cleanup(func() { _ = node.Close() })

	return &rig{hub: hub, node: node}
}

// dial opens a client on the rig's hub, torn down with the test.
func (r *rig) dial(t *testing.T, node, session string) *Client {
	t.Helper()
	c, err := Dial(ClientParams{Hub: r.hub.Addr(), Node: node, Session: session})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}
