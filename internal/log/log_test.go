package log

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesJSONToTheFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subshell.log")
	Setup(path, true)
	require.True(t, Initialized())

	slog.Debug("hello from the test", "k", "v")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"hello from the test"`)
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestRecoverPanicWritesCrashFile(t *testing.T) {
	dir := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(old) }()

	cleaned := false
	func() {
		defer RecoverPanic("unit", func() { cleaned = true })
		panic("boom")
	}()

	assert.True(t, cleaned)
	matches, err := filepath.Glob(filepath.Join(dir, "subshell-panic-unit-*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "boom")
}

func TestRecoverPanicDoesNothingWithoutPanic(t *testing.T) {
	cleaned := false
	func() {
		defer RecoverPanic("calm", func() { cleaned = true })
	}()
	assert.False(t, cleaned)
}
