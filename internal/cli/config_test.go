package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "subshell.toml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestLoadConfigReadsEveryTable(t *testing.T) {
	path := writeConfig(t, `
dialect = "posix"
working_dir = "/tmp"
env = ["A=1", "B=2"]
poll_interval = "50ms"
timeout = "2s"
log_file = "subshell.log"
debug = true

[hub]
addr = ":9000"

[node]
name = "worker"
hub = "example.com:54333"
password = "sesame"
auth_window = "1h"
run_timeout = "90s"
`)
	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "posix", c.Dialect)
	assert.Equal(t, "/tmp", c.WorkingDir)
	assert.Equal(t, []string{"A=1", "B=2"}, c.Env)
	assert.Equal(t, 50*time.Millisecond, c.PollInterval.Duration)
	assert.Equal(t, 2*time.Second, c.Timeout.Duration)
	assert.Equal(t, "subshell.log", c.LogFile)
	assert.True(t, c.Debug)
	assert.Equal(t, ":9000", c.Hub.Addr)
	assert.Equal(t, "worker", c.Node.Name)
	assert.Equal(t, "example.com:54333", c.Node.Hub)
	assert.Equal(t, "sesame", c.Node.Password)
	assert.Equal(t, time.Hour, c.Node.AuthWindow.Duration)
	assert.Equal(t, 90*time.Second, c.Node.RunTimeout.Duration)
}

func TestLoadConfigDefaultFileMayBeAbsent(t *testing.T) {
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer func() { _ = os.Chdir(orig) }()

	c, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, Config{}, c)
}

func TestLoadConfigNamedFileMustExist(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.toml")
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "dialec = \"posix\"\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dialec")
}

func TestLoadConfigRejectsBadDurations(t *testing.T) {
	path := writeConfig(t, "timeout = \"fast\"\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fast")
}
