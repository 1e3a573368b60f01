package dialect

import (
	"bytes"
	"strconv"
	"strings"
)

// powerShellDialect drives powershell.exe.
//
// PowerShell's $? yields True or False, not a numeric status, so the
// recovered exit code is reduced to 0 or 1 under this dialect. That
// granularity loss is inherent and documented, not an error.
type powerShellDialect struct{}

func (powerShellDialect) Name() string { return "powershell" }

func (powerShellDialect) Program() (string, []string) {
	return "powershell.exe", []string{"-NoLogo", "-NoExit"}
}

func (powerShellDialect) Environ() []string { return nil }

func (powerShellDialect) OneShot(cmd string) (string, []string) {
	return "powershell.exe", []string{"-NoLogo", "-Command", cmd}
}

func (powerShellDialect) Encode(cmd string, m Marker) string {
	return cmd + ` ; echo "` + m.V + ` $?"`
}

// EncodePipe stages the text in a here-string, then pipes it:
//
//	$SUBSHELL_PIPE=@'
//	<text>
//	'@
//
//	echo $SUBSHELL_PIPE | cmd ; echo "<token> $?"
//
// The closing '@ must sit alone at the start of a line.
func (d powerShellDialect) EncodePipe(text, cmd string, m Marker) string {
	text = strings.TrimRight(text, "\n")
	return "$SUBSHELL_PIPE=@'\n" + text + "\n'@\n\n" +
		"echo $SUBSHELL_PIPE | " + d.Encode(cmd, m)
}

// Background launches each command with Start-Process, which does not
// wait. Nothing joins the launched processes; this form is best
// effort under PowerShell.
func (powerShellDialect) Background(cmds []string) string {
	lines := make([]string, 0, len(cmds))
	for _, c := range cmds {
		name, args, hasArgs := strings.Cut(c, " ")
		line := "Start-Process -NoNewWindow -FilePath " + name
		if hasArgs {
			line += " -ArgumentList " + backtickQuote(args)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\r\n")
}

// backtickQuote escapes for an -ArgumentList value, where the usual
// \"" escape does not survive.
func backtickQuote(s string) string {
	s = strings.ReplaceAll(s, `\""`, `"`)
	return `"` + strings.ReplaceAll(s, `"`, "`\"") + `"`
}

func (powerShellDialect) TryExtract(seg []byte, m Marker) (Result, bool) {
	return scanMarker(seg, m, parseBoolStatus)
}

// parseBoolStatus accepts a plain integer, or the True/False text
// that $? renders as.
func parseBoolStatus(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	switch s {
	case "True":
		return 0, true
	case "False":
		return 1, true
	}
	return 0, false
}

// Scrub drops lines that merely echo the wire form of cmd back, which
// some PowerShell hosts do when fed through a pipe.  A line counts as
// an echo when the text before its report suffix ends with cmd, which
// also catches wire forms carrying a pipe prefix.
func (powerShellDialect) Scrub(out []byte, cmd string) []byte {
	if len(out) == 0 {
		return out
	}
	want := strings.TrimSpace(cmd)
	lines := bytes.Split(out, []byte("\n"))
	kept := lines[:0]
	for _, ln := range lines {
		s := strings.TrimSpace(string(ln))
		if i := strings.Index(s, `; echo "`); i >= 0 &&
			strings.HasSuffix(strings.TrimSpace(s[:i]), want) {
			continue
		}
		kept = append(kept, ln)
	}
	return bytes.Join(kept, []byte("\n"))
}

func (powerShellDialect) Quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\""`) + `"`
}

func (d powerShellDialect) Interpreter(exe, venv string, lines []string) string {
	call := exe + " -c " + d.Quote(strings.Join(lines, "; "))
	if venv != "" {
		return `"` + venv + `\Scripts\activate.ps1" && ` + call
	}
	return call
}
