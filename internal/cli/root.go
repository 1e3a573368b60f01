// Package cli assembles the subshell command line.
package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/tkellem/subshell"
	"github.com/tkellem/subshell/dialect"
	"github.com/tkellem/subshell/internal/log"
)

const (
	// startGrace bounds shell startup; PowerShell in particular can
	// take a while to print its first completion report.
	startGrace = 30 * time.Second

	// closeGrace bounds session teardown on the way out.
	closeGrace = 5 * time.Second

	// waitSlice is how long one patient wait blocks before looking
	// for a canceled context.
	waitSlice = time.Second
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "",
		"Config file (TOML); default "+DefaultConfigFile+" if present")
	pf.String("dialect", "", "Shell dialect: posix, powershell or cmd")
	pf.String("dir", "", "Working directory for the shells")
	pf.BoolP("debug", "d", false, "Log at debug level")
	pf.String("log-file", "", "Write logs to this file")

	rootCmd.AddCommand(runCmd, replCmd, parallelCmd, hubCmd, nodeCmd)
}

var rootCmd = &cobra.Command{
	Use:   "subshell",
	Short: "Drive interactive shells and capture what each command did",
	Long: `Subshell drives a real shell (bash, PowerShell or cmd) as a
long-lived subprocess and recovers each command's own stdout, stderr
and exit code from the shared stream.

run and repl work one session, so state carries from command to
command; parallel gives every command a private shell; hub and node
run commands on other machines.`,
	Example: `
# Two tasks sharing one bash session
subshell run 'greeting=hello' 'echo $greeting'

# An interactive session under capture
subshell repl

# Fan out, join, and see every exit code
subshell parallel 'sleep 1' 'uname' 'false'

# Remote execution
subshell hub &
subshell node --name worker &
  `,
	SilenceUsage: true,
}

// Execute runs the command tree.  The context ends the hub and node
// daemons and cuts waits on running commands short.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// settings is the merge of the config file under the command's flags.
type settings struct {
	cfg Config
	dia dialect.Dialect
}

// loadSettings reads the config file, lets command-line flags win
// over it, resolves the dialect and brings up logging.
func loadSettings(cmd *cobra.Command) (*settings, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if flags.Changed("dialect") {
		cfg.Dialect, _ = flags.GetString("dialect")
	}
	if flags.Changed("dir") {
		cfg.WorkingDir, _ = flags.GetString("dir")
	}
	if flags.Changed("debug") {
		cfg.Debug, _ = flags.GetBool("debug")
	}
	if flags.Changed("log-file") {
		cfg.LogFile, _ = flags.GetString("log-file")
	}

	s := &settings{cfg: cfg, dia: dialect.ForHost()}
	if cfg.Dialect != "" {
		if s.dia, err = dialect.ByName(cfg.Dialect); err != nil {
			return nil, err
		}
	}
	if cfg.LogFile != "" {
		log.Setup(cfg.LogFile, cfg.Debug)
	}
	return s, nil
}

// sessionParams builds the shell parameters the session-running
// commands share.  KillOnClose is on; a command line tool must not
// leave shells behind.
func (s *settings) sessionParams() subshell.Params {
	p := subshell.Params{Dialect: s.dia}
	p.WorkingDir = s.cfg.WorkingDir
	p.Env = s.cfg.Env
	p.PollInterval = s.cfg.PollInterval.Duration
	p.KillOnClose = true
	if log.Initialized() {
		p.Logger = slog.Default()
	}
	return p
}

// limit resolves the command deadline: the --timeout flag when given,
// else the config file's timeout, else no limit.
func (s *settings) limit(cmd *cobra.Command) time.Duration {
	if cmd.Flags().Changed("timeout") {
		d, _ := cmd.Flags().GetDuration("timeout")
		return d
	}
	return s.cfg.Timeout.Duration
}

// settle runs one command to completion, patiently: a wait that times
// out is resumed, in slices short enough to notice a canceled
// context.  A positive limit turns the patience off; past it the
// command is left open and the timeout error comes back.
func settle(ctx context.Context, sh subshell.Session, text string,
	limit time.Duration) (*subshell.Command, error) {
	slice := waitSlice
	if limit > 0 && limit < slice {
		slice = limit
	}
	var deadline time.Time
	if limit > 0 {
		deadline = time.Now().Add(limit)
	}
	c, err := sh.Run(slice, text)
	for errors.Is(err, subshell.ErrWaitTimeout) {
		if ctx.Err() != nil {
			return c, ctx.Err()
		}
		if limit > 0 && !time.Now().Before(deadline) {
			return c, err
		}
		c, err = sh.Wait(slice)
	}
	return c, err
}

// emit writes a settled command's captured streams where they belong.
func emit(out, errw io.Writer, c *subshell.Command) {
	if c == nil {
		return
	}
	_, _ = io.WriteString(out, c.Stdout())
	_, _ = io.WriteString(errw, c.Stderr())
}
