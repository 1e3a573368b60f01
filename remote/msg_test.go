package remote

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessagesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	dec := json.NewDecoder(&buf)

	sent := &commandRequest{
		Node:     "worker",
		Session:  "main",
		Token:    "t-1",
		Cmd:      "echo hi",
		NewShell: true,
	}
	require.NoError(t, writeMsg(enc, sent))
	require.NoError(t, writeMsg(enc, &authSuccess{}))

	got, err := readMsg(dec)
	require.NoError(t, err)
	assert.Equal(t, sent, got)

	got, err = readMsg(dec)
	require.NoError(t, err)
	assert.IsType(t, &authSuccess{}, got)
}

func TestReadMsgRejectsUnknownKind(t *testing.T) {
	dec := json.NewDecoder(strings.NewReader(`{"kind":"mystery"}` + "\n"))
	_, err := readMsg(dec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"mystery"`)
}

func TestReadMsgRejectsMalformedBody(t *testing.T) {
	wire := `{"kind":"command-request","body":{"newShell":"not a bool"}}` + "\n"
	dec := json.NewDecoder(strings.NewReader(wire))
	_, err := readMsg(dec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"command-request"`)
}
