package pump_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/tkellem/subshell/pump"
)

const theShell = "/bin/sh"

func awaitDone(t *testing.T, p *Proc) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(timeOutLong):
		t.Fatal("subprocess never reaped")
	}
}

func TestStartCapturesStdOut(t *testing.T) {
	p, err := Start(&Params{
		Path: theShell,
		Args: []string{"-c", "echo hello there"},
		Poll: pollTiny,
	})
	assert.NoError(t, err)
	awaitDone(t, p)
	assert.Equal(t, 0, p.ExitCode())
	assert.NoError(t, p.WaitErr())
	assert.Equal(t, "hello there\n", string(p.Out.Bytes()))
	assert.Zero(t, p.Err.Len())
}

func TestStartCapturesStdErrSeparately(t *testing.T) {
	p, err := Start(&Params{
		Path: theShell,
		Args: []string{"-c", "echo good; echo bad >&2"},
		Poll: pollTiny,
	})
	assert.NoError(t, err)
	awaitDone(t, p)
	assert.Equal(t, "good\n", string(p.Out.Bytes()))
	assert.Equal(t, "bad\n", string(p.Err.Bytes()))
}

func TestStartReportsExitCode(t *testing.T) {
	p, err := Start(&Params{
		Path: theShell,
		Args: []string{"-c", "exit 77"},
		Poll: pollTiny,
	})
	assert.NoError(t, err)
	assert.Equal(t, ExitCodeUnknown, p.ExitCode())

	awaitDone(t, p)
	assert.Equal(t, 77, p.ExitCode())
	if assert.Error(t, p.WaitErr()) {
		assert.Contains(t, p.WaitErr().Error(), "exit status 77")
	}
}

// Drive an interactive process: write lines in, watch output arrive,
// then shut down in the documented order.
func TestStartInteractiveRoundTrip(t *testing.T) {
	p, err := Start(&Params{Path: "cat", Poll: pollTiny})
	assert.NoError(t, err)
	assert.True(t, p.Alive())

	assert.NoError(t, p.WriteLine("marco"))
	assert.Eventually(t, func() bool {
		return string(p.Out.Bytes()) == "marco\n"
	}, timeOutLong, pollTiny/2)

	assert.NoError(t, p.WriteLine("polo"))
	assert.Eventually(t, func() bool {
		return string(p.Out.Bytes()) == "marco\npolo\n"
	}, timeOutLong, pollTiny/2)

	p.StopReaders()
	assert.NoError(t, p.CloseIn())
	assert.NoError(t, p.CloseIn()) // and again, harmlessly
	awaitDone(t, p)
	assert.Equal(t, 0, p.ExitCode())
	assert.False(t, p.Alive())
}

func TestStartAppliesTerminator(t *testing.T) {
	p, err := Start(&Params{
		Path:       theShell,
		Args:       []string{"-c", "cat"},
		Terminator: ';',
		Poll:       pollTiny,
	})
	assert.NoError(t, err)
	assert.NoError(t, p.WriteLine("select 1"))
	assert.NoError(t, p.CloseIn())
	awaitDone(t, p)
	assert.Equal(t, "select 1;\n", string(p.Out.Bytes()))
}

func TestStartExtraEnv(t *testing.T) {
	p, err := Start(&Params{
		Path: theShell,
		Args: []string{"-c", "echo $PUMP_PROBE"},
		Env:  []string{"PUMP_PROBE=lit"},
		Poll: pollTiny,
	})
	assert.NoError(t, err)
	awaitDone(t, p)
	assert.Equal(t, "lit\n", string(p.Out.Bytes()))
}

func TestStartRejectsBadPath(t *testing.T) {
	_, err := Start(&Params{Path: "/no/such/shell/anywhere"})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "not available")
	}
}
