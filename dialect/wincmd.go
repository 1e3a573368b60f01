package dialect

import (
	"bytes"
	"strings"
)

// cmdDialect drives legacy cmd.exe. It is the weakest of the three
// and deliberately stays that way: the completion probe is a second
// command line, so the dialect cannot distinguish "probe not yet run"
// from "command still blocked", and cmd decorates its stdout with
// prompt text that has to be scrubbed back out. Use it only when
// PowerShell is not an option.
type cmdDialect struct{}

func (cmdDialect) Name() string { return "cmd" }

// Program: /q turns command echo off, /K keeps the shell running.
func (cmdDialect) Program() (string, []string) {
	return "cmd.exe", []string{"/q", "/K"}
}

// Environ flattens the prompt to "> " so Scrub can recognize and
// remove it from captured output.
func (cmdDialect) Environ() []string {
	return []string{"PROMPT=> "}
}

func (cmdDialect) OneShot(cmd string) (string, []string) {
	return "cmd.exe", []string{"/q", "/C", cmd}
}

// Encode writes the probe as its own second line. %errorlevel%
// expands when cmd parses that line, which, reading line by line
// from a pipe, happens only after the first line's command has
// finished; an inline "&" join would expand it too early.
func (cmdDialect) Encode(cmd string, m Marker) string {
	return cmd + "\r\necho " + m.V + " %errorlevel%"
}

// EncodePipe feeds text to cmd through a grouped echo:
//
//	(
//	echo "line one"
//	echo "line two"
//	) | cmd
//	echo <token> %errorlevel%
func (d cmdDialect) EncodePipe(text, cmd string, m Marker) string {
	text = strings.TrimRight(text, "\r\n")
	var b strings.Builder
	b.WriteString("(\r\n")
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		b.WriteString("echo " + d.Quote(line) + "\r\n")
	}
	b.WriteString(") | ")
	b.WriteString(d.Encode(cmd, m))
	return b.String()
}

// Background fires each command off with start /b. Nothing joins
// them; this form is best effort under cmd.
func (cmdDialect) Background(cmds []string) string {
	var b strings.Builder
	b.WriteString("(\r\n")
	for _, c := range cmds {
		b.WriteString(`start "subshell" /b ` + c + "\r\n")
	}
	b.WriteString(")")
	return b.String()
}

func (cmdDialect) TryExtract(seg []byte, m Marker) (Result, bool) {
	return scanMarker(seg, m, parseIntStatus)
}

// Scrub strips the prompt fragments cmd sprinkles through captured
// output, then drops lines that are echoes of the command itself or
// of the completion probe.
func (cmdDialect) Scrub(out []byte, cmd string) []byte {
	if len(out) == 0 {
		return out
	}
	own := make(map[string]bool)
	for _, line := range strings.Split(cmd, "\n") {
		own[strings.TrimSpace(line)] = true
	}
	var kept [][]byte
	for _, line := range bytes.Split(out, []byte("\n")) {
		for {
			trimmed := false
			if bytes.HasPrefix(line, []byte("> ")) {
				line = line[2:]
				trimmed = true
			}
			if bytes.HasPrefix(line, []byte("More? ")) {
				line = line[6:]
				trimmed = true
			}
			if !trimmed {
				break
			}
		}
		text := strings.TrimSpace(string(line))
		if text != "" && own[text] {
			continue
		}
		if strings.HasPrefix(text, "echo ") &&
			strings.HasSuffix(text, " %errorlevel%") {
			continue
		}
		kept = append(kept, line)
	}
	return bytes.Join(kept, []byte("\n"))
}

func (cmdDialect) Quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func (d cmdDialect) Interpreter(exe, venv string, lines []string) string {
	call := exe + " -c " + d.Quote(strings.Join(lines, "; "))
	if venv != "" {
		return `"` + venv + `\Scripts\activate.bat" && ` + call
	}
	return call
}
