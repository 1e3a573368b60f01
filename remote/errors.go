package remote

import "errors"

// Sentinel errors for the failure classes the remote layer adds.
// They arrive wrapped with context; test for them with errors.Is.
// Expired deadlines reuse subshell.ErrWaitTimeout, so callers test
// for timeouts the same way against local and remote sessions.
var (
	// ErrClientClosed: the Client was closed; no further traffic.
	ErrClientClosed = errors.New("remote client closed")

	// ErrAuthFailed: the node rejected the password.
	ErrAuthFailed = errors.New("authentication failed")
)
