package dialect

import (
	"strconv"
	"strings"
)

// posixDialect drives bash and other POSIX-ish shells.
//
// The completion report is appended to the command itself,
//
//	cmd ; echo "<token> $?"
//
// so the report cannot run until the command, and any prompt it was
// stuck on, has finished.
type posixDialect struct{}

func (posixDialect) Name() string { return "posix" }

func (posixDialect) Program() (string, []string) {
	return "/bin/bash", nil
}

func (posixDialect) Environ() []string { return nil }

func (posixDialect) OneShot(cmd string) (string, []string) {
	return "/bin/bash", []string{"-c", cmd}
}

func (posixDialect) Encode(cmd string, m Marker) string {
	return cmd + ` ; echo "` + m.V + ` $?"`
}

func (d posixDialect) EncodePipe(text, cmd string, m Marker) string {
	return "echo " + d.Quote(text) + " | " + d.Encode(cmd, m)
}

// Background groups the commands as background jobs and waits for
// the whole flock, so the group's completion report covers every
// command, not just the last one.
func (posixDialect) Background(cmds []string) string {
	return "(\n" + strings.Join(cmds, " & ") + " & wait\n)"
}

func (posixDialect) TryExtract(seg []byte, m Marker) (Result, bool) {
	return scanMarker(seg, m, parseIntStatus)
}

func parseIntStatus(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func (posixDialect) Scrub(out []byte, _ string) []byte { return out }

func (posixDialect) Quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func (d posixDialect) Interpreter(exe, venv string, lines []string) string {
	call := exe + " -c " + d.Quote(strings.Join(lines, "; "))
	if venv != "" {
		return `source "` + venv + `/bin/activate" && ` + call
	}
	return call
}
