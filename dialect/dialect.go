// Package dialect captures the parts of shell behavior that differ
// between POSIX shells, PowerShell and legacy cmd: how a command's
// completion and exit status are reported on stdout, how text is
// quoted, how text is piped into a command, and how commands are
// launched in the background.
package dialect

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Result locates a completed command inside a scanned output segment.
// Offsets are relative to the start of the segment handed to
// TryExtract.
type Result struct {
	// ExitCode is the recovered exit status.
	ExitCode int

	// MarkerAt is the offset at which the marker token begins.
	// The command's captured stdout is everything before it,
	// including any unterminated text on the same line.
	MarkerAt int

	// ConsumedTo is the offset just past the marker line's newline.
	// Scanning for the next command resumes here.
	ConsumedTo int
}

// Dialect is the per-shell capability set. A Dialect value is
// stateless and safe to share between sessions.
type Dialect interface {
	// Name identifies the dialect: "posix", "powershell" or "cmd".
	Name() string

	// Program returns the executable and arguments that launch an
	// interactive shell suitable for a long-lived session.
	Program() (string, []string)

	// Environ returns extra environment entries the interactive
	// shell needs, in "KEY=value" form. Usually nil.
	Environ() []string

	// OneShot returns the executable and arguments that run cmd as
	// a single non-interactive execution, for parallel fan-out.
	OneShot(cmd string) (string, []string)

	// Encode returns the literal text to write to the session stdin
	// so that cmd runs and its exit status is then reported on
	// stdout, tagged with m.
	Encode(cmd string, m Marker) string

	// EncodePipe is Encode with text delivered to cmd's stdin via a
	// shell-native pipe expression. The shell may reformat line
	// endings in transit; callers needing the exact bytes should
	// feed the text as raw input instead.
	EncodePipe(text, cmd string, m Marker) string

	// Background returns an expression that launches every command
	// without individually waiting on them. Whether the expression
	// itself waits for stragglers is dialect dependent; see the
	// implementations.
	Background(cmds []string) string

	// TryExtract scans seg for m's completion report. It returns
	// ok == false while no complete report is present, including
	// when the marker has arrived but its status line is still
	// missing its newline. Text that merely echoes the encoded
	// wire form of a command is recognized and skipped.
	TryExtract(seg []byte, m Marker) (res Result, ok bool)

	// Scrub cleans a finalized command's captured stdout, removing
	// dialect noise such as prompt fragments and echoed input.
	// For most dialects it returns out unchanged.
	Scrub(out []byte, cmd string) []byte

	// Quote wraps s so the shell treats it as one word.
	Quote(s string) string

	// Interpreter builds a command line that feeds the given source
	// lines to the interpreter exe, optionally activating the
	// virtual environment rooted at venv first.
	Interpreter(exe, venv string, lines []string) string
}

// The three supported dialects.
var (
	Posix      Dialect = posixDialect{}
	PowerShell Dialect = powerShellDialect{}
	Cmd        Dialect = cmdDialect{}
)

// EnvDialect is the environment variable consulted by ForHost.
const EnvDialect = "SUBSHELL_DIALECT"

// ForHost inspects the host once and returns its natural dialect:
// PowerShell on Windows, Posix everywhere else. Legacy Cmd is never
// chosen implicitly; opt in via configuration or EnvDialect.
// The result is a plain value to thread through construction;
// nothing here is mutable afterwards.
func ForHost() Dialect {
	if d, err := ByName(os.Getenv(EnvDialect)); err == nil {
		return d
	}
	if runtime.GOOS == "windows" {
		return PowerShell
	}
	return Posix
}

// ByName maps a configuration string to a Dialect.
func ByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "posix", "bash", "sh":
		return Posix, nil
	case "powershell", "pwsh":
		return PowerShell, nil
	case "cmd", "wincmd":
		return Cmd, nil
	}
	return nil, fmt.Errorf("unknown shell dialect %q", name)
}

// scanMarker hunts through seg for an occurrence of m's token that is
// followed, on the same line, by a status that parse accepts. Token
// occurrences with an unparsable tail are echoes of the wire text and
// are skipped. A token whose line has no newline yet is not complete;
// the caller should scan again once more output has arrived.
func scanMarker(
	seg []byte, m Marker, parse func(string) (int, bool)) (Result, bool) {
	token := []byte(m.V)
	base := 0
	for {
		i := bytes.Index(seg[base:], token)
		if i < 0 {
			return Result{}, false
		}
		at := base + i
		tail := seg[at+len(token):]
		nl := bytes.IndexByte(tail, '\n')
		if nl < 0 {
			return Result{}, false
		}
		status := strings.TrimSpace(string(tail[:nl]))
		if code, ok := parse(status); ok {
			return Result{
				ExitCode:   code,
				MarkerAt:   at,
				ConsumedTo: at + len(token) + nl + 1,
			}, true
		}
		base = at + len(token)
	}
}
