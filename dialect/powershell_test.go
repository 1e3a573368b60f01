package dialect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/tkellem/subshell/dialect"
)

func TestPowerShellProgram(t *testing.T) {
	path, args := PowerShell.Program()
	assert.Equal(t, "powershell.exe", path)
	assert.Equal(t, []string{"-NoLogo", "-NoExit"}, args)

	path, args = PowerShell.OneShot("Get-Date")
	assert.Equal(t, "powershell.exe", path)
	assert.Equal(t, []string{"-NoLogo", "-Command", "Get-Date"}, args)
}

// $? renders True or False; the recovered code is 0 or 1.
func TestPowerShellStatusMapping(t *testing.T) {
	res, ok := PowerShell.TryExtract([]byte("out\n"+mrk.V+" True\n"), mrk)
	assert.True(t, ok)
	assert.Equal(t, 0, res.ExitCode)

	res, ok = PowerShell.TryExtract([]byte(mrk.V+" False\n"), mrk)
	assert.True(t, ok)
	assert.Equal(t, 1, res.ExitCode)

	// A plain integer passes through untouched.
	res, ok = PowerShell.TryExtract([]byte(mrk.V+" 5\n"), mrk)
	assert.True(t, ok)
	assert.Equal(t, 5, res.ExitCode)

	_, ok = PowerShell.TryExtract([]byte(mrk.V+" Perhaps\n"), mrk)
	assert.False(t, ok)
}

func TestPowerShellEncodePipe(t *testing.T) {
	assert.Equal(t,
		"$SUBSHELL_PIPE=@'\nline one\nline two\n'@\n\n"+
			`echo $SUBSHELL_PIPE | sort ; echo "`+mrk.V+` $?"`,
		PowerShell.EncodePipe("line one\nline two\n", "sort", mrk))
}

func TestPowerShellBackground(t *testing.T) {
	assert.Equal(t,
		"Start-Process -NoNewWindow -FilePath ping"+
			" -ArgumentList \"localhost\"\r\n"+
			"Start-Process -NoNewWindow -FilePath notepad",
		PowerShell.Background([]string{"ping localhost", "notepad"}))
}

func TestPowerShellScrub(t *testing.T) {
	tests := map[string]struct {
		out  string
		cmd  string
		want string
	}{
		"echoOfWireFormDropped": {
			out:  `Get-Date ; echo "` + mrk.V + ` $?"` + "\nMonday\n",
			cmd:  "Get-Date",
			want: "Monday\n",
		},
		"echoWithPipePrefixDropped": {
			out:  `echo $SUBSHELL_PIPE | sort ; echo "` + mrk.V + ` $?"` + "\na\nb\n",
			cmd:  "sort",
			want: "a\nb\n",
		},
		"ordinaryOutputUntouched": {
			out:  "nothing echoed here\n",
			cmd:  "Get-Date",
			want: "nothing echoed here\n",
		},
	}
	for n, tc := range tests {
		t.Run(n, func(t *testing.T) {
			assert.Equal(t, tc.want,
				string(PowerShell.Scrub([]byte(tc.out), tc.cmd)))
		})
	}
}

func TestPowerShellQuote(t *testing.T) {
	assert.Equal(t, `"say \""hi\"""`, PowerShell.Quote(`say "hi"`))
}

func TestPowerShellInterpreter(t *testing.T) {
	assert.Equal(t,
		`"C:\venv\Scripts\activate.ps1" && python -c "print(1)"`,
		PowerShell.Interpreter("python", `C:\venv`, []string{"print(1)"}))
}
