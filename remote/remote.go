// Package remote runs commands in shell sessions on other machines.
//
// Three roles cooperate over TCP with JSON messages.  A Hub accepts
// every connection and routes by name.  A Node registers itself with
// the hub and owns named sessions, each a live shell on the node's
// machine.  A Client opens one named session through the hub and
// issues commands to it; replies settle the commands in issue order.
//
// Sessions belong to the node, not to the client connection, so a
// session keeps its shell, and the shell its state, across client
// comings and goings.
package remote

import (
	"net"
	"os"
	"strconv"
)

const (
	// DefaultPort is the hub's TCP port when nothing configures one.
	DefaultPort = 54333

	// EnvHubAddr and EnvHubPort name environment variables that
	// override the built-in hub address defaults.
	EnvHubAddr = "SUBSHELL_HUB_ADDR"
	EnvHubPort = "SUBSHELL_HUB_PORT"
)

// DefaultHubAddr returns the "host:port" that nodes and clients dial
// when their params leave Hub empty: the environment when set, the
// local host otherwise.
func DefaultHubAddr() string {
	host := os.Getenv(EnvHubAddr)
	if host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, hubPort())
}

// defaultListenAddr is where a hub listens absent HubParams.Addr:
// every interface, on the environment port or DefaultPort.
func defaultListenAddr() string {
	return ":" + hubPort()
}

func hubPort() string {
	if port := os.Getenv(EnvHubPort); port != "" {
		return port
	}
	return strconv.Itoa(DefaultPort)
}

// Logger accepts debug traffic from the hub, node and client loops.
// A *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
}

// nopLogger is the default Logger; it drops everything.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
