package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkellem/subshell"
)

func TestRunExecutesTasksInOneSession(t *testing.T) {
	out, _, err := execute(t, "", "run", "flavor=peach", "echo $flavor")
	require.NoError(t, err)
	assert.Contains(t, out, "peach\n")
}

func TestRunReadsTasksFromStdin(t *testing.T) {
	out, _, err := execute(t, "echo first\necho second\n", "run")
	require.NoError(t, err)
	assert.Contains(t, out, "first\n")
	assert.Contains(t, out, "second\n")
}

func TestRunAppendsEnvEntries(t *testing.T) {
	out, _, err := execute(t, "",
		"run", "--env", "FRUIT=plum", "echo $FRUIT")
	require.NoError(t, err)
	assert.Contains(t, out, "plum\n")
}

func TestRunKeepsGoingAfterAFailure(t *testing.T) {
	out, errw, err := execute(t, "", "run", "false", "echo survived")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 tasks failed")
	assert.Contains(t, errw, `"false" exited 1`)
	assert.Contains(t, out, "survived\n")
}

func TestRunWithoutTasksFails(t *testing.T) {
	_, _, err := execute(t, "", "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tasks")
}

func TestRunHonorsTimeout(t *testing.T) {
	_, _, err := execute(t, "", "run", "--timeout", "100ms", "sleep 2")
	assert.True(t, errors.Is(err, subshell.ErrWaitTimeout))
}

func TestRunRedirectsCapturedStreamsToFiles(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.txt")
	errPath := filepath.Join(dir, "err.txt")
	_, _, err := execute(t, "",
		"run", "--stdout", outPath, "--stderr", errPath,
		"echo kept", "echo lost >&2 && sleep 0.3")
	require.NoError(t, err)

	got, rerr := os.ReadFile(outPath)
	require.NoError(t, rerr)
	assert.Contains(t, string(got), "kept\n")
	got, rerr = os.ReadFile(errPath)
	require.NoError(t, rerr)
	assert.Contains(t, string(got), "lost\n")
}

func TestReplRunsLinesUntilEOF(t *testing.T) {
	out, _, err := execute(t, "color=teal\necho $color\n", "repl")
	require.NoError(t, err)
	assert.Contains(t, out, "teal\n")
	assert.Contains(t, out, "> ")
}

func TestReplPrimesWithArgumentTasks(t *testing.T) {
	out, _, err := execute(t, "echo $primed\n", "repl", "primed=yes")
	require.NoError(t, err)
	assert.Contains(t, out, "yes\n")
}

func TestReplNotesFailingExitCodes(t *testing.T) {
	_, errw, err := execute(t, "false\n", "repl")
	require.NoError(t, err)
	assert.Contains(t, errw, "[exit 1]")
}

func TestReplEndsWhenTheShellExits(t *testing.T) {
	_, errw, err := execute(t, "exit\nnever reached\n", "repl")
	require.NoError(t, err)
	assert.Contains(t, errw, "shell exited")
}

func TestParallelRunsEveryCommand(t *testing.T) {
	out, errw, err := execute(t, "", "parallel", "echo one", "echo two")
	require.NoError(t, err)
	assert.Contains(t, out, "one\n")
	assert.Contains(t, out, "two\n")
	assert.Contains(t, errw, "EXIT")
}

func TestParallelReportsFailures(t *testing.T) {
	_, errw, err := execute(t, "", "parallel", "true", "false")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 commands failed")
	assert.Contains(t, errw, "COMMAND")
}

func TestParallelNeedsCommands(t *testing.T) {
	_, _, err := execute(t, "", "parallel")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 1")
}

func TestNodeRequiresAName(t *testing.T) {
	_, _, err := execute(t, "", "node")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Name")
}

func TestHubRefusesABadListenAddress(t *testing.T) {
	_, _, err := execute(t, "", "hub", "--addr", "not-an-address")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot listen")
}

func TestConfigFileFeedsTheSession(t *testing.T) {
	path := writeConfig(t, "dialect = \"posix\"\ntimeout = \"30s\"\n")
	out, _, err := execute(t, "", "run", "--config", path, "echo configured")
	require.NoError(t, err)
	assert.Contains(t, out, "configured\n")
}

func TestFlagOverridesConfigDialect(t *testing.T) {
	path := writeConfig(t, "dialect = \"mystery\"\n")
	_, _, err := execute(t, "", "run", "--config", path, "echo hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown shell dialect")

	out, _, err := execute(t, "",
		"run", "--config", path, "--dialect", "posix", "echo hi")
	require.NoError(t, err)
	assert.Contains(t, out, "hi\n")
}

// Keep this test last: log.Setup latches the process-wide default
// logger onto the file it names.
func TestLogFileCollectsSessionTraffic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.log")
	_, _, err := execute(t, "",
		"run", "--log-file", path, "--debug", "echo logged")
	require.NoError(t, err)

	data, rerr := os.ReadFile(path)
	require.NoError(t, rerr)
	assert.Contains(t, string(data), "echo logged")
}
