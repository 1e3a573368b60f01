package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tkellem/subshell"
)

var replCmd = &cobra.Command{
	Use:   "repl [task...]",
	Short: "Run shell commands interactively through one session",
	Long: `Repl starts one shell session, runs any tasks given as arguments,
then reads further commands from stdin until end of file.  Each
command's captured stdout and stderr are printed once it settles,
with a note when its exit code is not zero.`,
	Example: `
# An interactive bash under capture
subshell repl

# Prime the session first
subshell repl 'cd /tmp' 'ls'
  `,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		out, errw, done, err := redirects(cmd)
		if err != nil {
			return err
		}
		defer done()

		p := s.sessionParams()
		env, _ := cmd.Flags().GetStringArray("env")
		p.Env = append(p.Env, env...)
		sh := subshell.NewSession(p)
		if err := sh.Start(startGrace); err != nil {
			return err
		}
		defer func() { _ = sh.Close(closeGrace) }()

		limit := s.limit(cmd)
		oneCommand := func(text string) (more bool, err error) {
			c, err := settle(cmd.Context(), sh, text, limit)
			emit(out, errw, c)
			if err != nil {
				if errors.Is(err, subshell.ErrShellExited) {
					fmt.Fprintln(errw, "shell exited")
					return false, nil
				}
				return false, err
			}
			if c.ExitCode() != 0 {
				fmt.Fprintf(errw, "[exit %d]\n", c.ExitCode())
			}
			return true, nil
		}

		for _, task := range args {
			more, err := oneCommand(task)
			if !more {
				return err
			}
		}
		sc := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(cmd.OutOrStdout(), "> ")
			if !sc.Scan() {
				break
			}
			text := strings.TrimSpace(sc.Text())
			if text == "" {
				continue
			}
			more, err := oneCommand(text)
			if !more {
				return err
			}
		}
		// Tidy up after the unanswered prompt.
		fmt.Fprintln(cmd.OutOrStdout())
		return sc.Err()
	},
}

func init() {
	replCmd.Flags().StringArray("env", nil,
		`Extra environment entries, "KEY=value" form`)
	replCmd.Flags().Duration("timeout", 0,
		"Give up on a command after this long; 0 means wait forever")
	replCmd.Flags().String("stdout", "", "Write captured stdout to this file")
	replCmd.Flags().String("stderr", "", "Write captured stderr to this file")
}
