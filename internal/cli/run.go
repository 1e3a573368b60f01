package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tkellem/subshell"
)

var runCmd = &cobra.Command{
	Use:   "run [task...]",
	Short: "Run tasks in one shell session and report every exit code",
	Long: `Run starts one shell session, runs every task in it in order, and
prints each task's captured stdout and stderr once it settles.
Tasks share the session, so state set by one is visible to the next.
A failing task does not stop the ones after it, but makes the whole
run fail.  With no arguments, tasks are read from stdin, one per
line.`,
	Example: `
# Two tasks sharing one bash session
subshell run 'greeting=hello' 'echo $greeting'

# Pipe a task list in
printf 'uname\ndate\n' | subshell run

# Keep the captured streams apart
subshell run --stdout got.txt --stderr oops.txt 'ls /etc /nope'
  `,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		tasks, err := gatherTasks(cmd, args)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			return fmt.Errorf("no tasks given")
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
		failed := 0
		for _, task := range tasks {
			c, err := settle(cmd.Context(), sh, task, limit)
			emit(out, errw, c)
			if err != nil {
				return err
			}
			if c.ExitCode() != 0 {
				failed++
				fmt.Fprintf(errw, "%q exited %d\n", c.Text, c.ExitCode())
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d tasks failed", failed, len(tasks))
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringArray("env", nil,
		`Extra environment entries, "KEY=value" form`)
	runCmd.Flags().Duration("timeout", 0,
		"Give up on a task after this long; 0 means wait forever")
	runCmd.Flags().String("stdout", "", "Write captured stdout to this file")
	runCmd.Flags().String("stderr", "", "Write captured stderr to this file")
}

// gatherTasks returns the command line arguments or, with none given,
// the lines piped in on stdin.  An interactive stdin is not read, so
// a bare "subshell run" at a terminal fails fast instead of hanging.
func gatherTasks(cmd *cobra.Command, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		fi, err := f.Stat()
		if err != nil {
			return nil, err
		}
		if fi.Mode()&os.ModeCharDevice != 0 {
			return nil, nil
		}
	}
	var tasks []string
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			tasks = append(tasks, line)
		}
	}
	return tasks, sc.Err()
}

// redirects resolves where captured output goes: the command's own
// streams, or the files named by --stdout and --stderr.  Call done
// when finished with the writers.
func redirects(cmd *cobra.Command) (
	out, errw io.Writer, done func(), err error) {
	out = cmd.OutOrStdout()
	errw = cmd.ErrOrStderr()
	var files []*os.File
	done = func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	if path, _ := cmd.Flags().GetString("stdout"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return nil, nil, nil, err
		}
		files = append(files, f)
		out = f
	}
	if path, _ := cmd.Flags().GetString("stderr"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			done()
			return nil, nil, nil, err
		}
		files = append(files, f)
		errw = f
	}
	return out, errw, done, nil
}
