package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tkellem/subshell/internal/log"
	"github.com/tkellem/subshell/parallel"
)

var parallelCmd = &cobra.Command{
	Use:   "parallel command...",
	Short: "Run commands at the same time, each in its own shell",
	Long: `Parallel gives every command a private one-shot shell subprocess,
so outputs and exit codes never share a stream.  Once all of them
have finished, each command's stdout and stderr are printed in
launch order, with a summary table on stderr.`,
	Example: `
# Three at once; takes one second, not three
subshell parallel 'sleep 1' 'sleep 1' 'sleep 1'

# Exit codes stay apart
subshell parallel 'true' 'false' 'uname'
  `,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		opts := []parallel.Option{parallel.WithDialect(s.dia)}
		if s.cfg.WorkingDir != "" {
			opts = append(opts, parallel.WithWorkingDir(s.cfg.WorkingDir))
		}
		env := s.cfg.Env
		flagEnv, _ := cmd.Flags().GetStringArray("env")
		if env = append(env, flagEnv...); len(env) > 0 {
			opts = append(opts, parallel.WithEnv(env))
		}
		if log.Initialized() {
			opts = append(opts, parallel.WithLogger(slog.Default()))
		}
		g, err := parallel.Launch(args, opts...)
		if err != nil {
			return err
		}
		joinErr := join(cmd.Context(), g, s.limit(cmd))
		if joinErr != nil {
			g.Kill()
			// Let the drains catch the last of the output.
			_ = g.Wait(closeGrace)
		}

		out, errw := cmd.OutOrStdout(), cmd.ErrOrStderr()
		failed := 0
		for _, ch := range g.Children() {
			_, _ = io.WriteString(out, ch.Stdout())
			_, _ = io.WriteString(errw, ch.Stderr())
			if ch.ExitCode() != 0 {
				failed++
			}
		}
		summarize(errw, g)
		if joinErr != nil {
			return joinErr
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d commands failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	parallelCmd.Flags().StringArray("env", nil,
		`Extra environment entries, "KEY=value" form`)
	parallelCmd.Flags().Duration("timeout", 0,
		"Give up on the group after this long; 0 means wait forever")
}

// join waits for the whole group, patiently, in slices short enough
// to notice a canceled context.  A positive limit turns patience off.
func join(ctx context.Context, g *parallel.Group, limit time.Duration) error {
	slice := waitSlice
	if limit > 0 && limit < slice {
		slice = limit
	}
	var deadline time.Time
	if limit > 0 {
		deadline = time.Now().Add(limit)
	}
	for {
		err := g.Wait(slice)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if limit > 0 && !time.Now().Before(deadline) {
			return err
		}
	}
}

// summarize prints one line per command: exit code, child id, text.
func summarize(w io.Writer, g *parallel.Group) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EXIT\tID\tCOMMAND")
	for _, ch := range g.Children() {
		fmt.Fprintf(tw, "%d\t%.8s\t%s\n", ch.ExitCode(), ch.ID, ch.Cmd)
	}
	_ = tw.Flush()
}
