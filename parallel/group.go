// Package parallel fans independent commands out to their own one-shot
// shell subprocesses and joins them under a single wait.
//
// Unlike subshell.Session.Background, which launches background jobs
// inside one interactive shell, every command here gets a private
// subprocess, so outputs and exit codes never share a stream.
package parallel

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tkellem/subshell/dialect"
	"github.com/tkellem/subshell/pump"
)

// Option configures a Launch call.
type Option func(*options)

type options struct {
	dialect    dialect.Dialect
	workingDir string
	env        []string
	mirrorOut  io.Writer
	mirrorErr  io.Writer
	poll       time.Duration
	logger     pump.Logger
}

// WithDialect picks the shell dialect whose one-shot form runs each
// command; default is the host's dialect.
func WithDialect(d dialect.Dialect) Option {
	return func(o *options) { o.dialect = d }
}

// WithWorkingDir sets every child's working directory.
func WithWorkingDir(dir string) Option {
	return func(o *options) { o.workingDir = dir }
}

// WithEnv appends environment entries, "KEY=value" form, to every
// child's environment.
func WithEnv(env []string) Option {
	return func(o *options) { o.env = env }
}

// WithMirrors copies every child's stdout and stderr to the given
// writers as output arrives.  Children share the writers, so lines
// from different children interleave.
func WithMirrors(out, err io.Writer) Option {
	return func(o *options) { o.mirrorOut, o.mirrorErr = out, err }
}

// WithPoll sets the drain poll interval for every child.
func WithPoll(d time.Duration) Option {
	return func(o *options) { o.poll = d }
}

// WithLogger accepts debug traffic from every child's drains.
func WithLogger(l pump.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Group holds the children of one Launch call.  The child set is
// fixed at launch, so a Group is safe to read from any goroutine.
type Group struct {
	children []*Child
}

// Child is one launched command: a private shell subprocess with both
// output pipes under drain.
type Child struct {
	// ID distinguishes children whose command text is identical.
	ID string

	// Cmd is the command this child runs.
	Cmd string

	proc *pump.Proc
}

// Launch starts one one-shot shell subprocess per command and returns
// without waiting on any of them.  If any child fails to start, the
// ones already running are killed and the error names the command
// that failed.
func Launch(cmds []string, opts ...Option) (*Group, error) {
	if len(cmds) == 0 {
		return nil, fmt.Errorf("must specify commands to launch")
	}
	o := options{dialect: dialect.ForHost(), poll: pump.DefaultPoll}
	for _, opt := range opts {
		opt(&o)
	}
	g := &Group{}
	for _, cmd := range cmds {
		path, args := o.dialect.OneShot(cmd)
		proc, err := pump.Start(&pump.Params{
			Path:       path,
			Args:       args,
			WorkingDir: o.workingDir,
			Env:        o.env,
			Poll:       o.poll,
			MirrorOut:  o.mirrorOut,
			MirrorErr:  o.mirrorErr,
			Logger:     o.logger,
		})
		if err != nil {
			g.Kill()
			return nil, fmt.Errorf("launching %q; %w", cmd, err)
		}
		g.children = append(g.children, &Child{
			ID:   uuid.NewString(),
			Cmd:  cmd,
			proc: proc,
		})
	}
	return g, nil
}

// Children returns the group's children in launch order.
func (g *Group) Children() []*Child {
	out := make([]*Child, len(g.children))
	copy(out, g.children)
	return out
}

// Wait blocks until every child has finished, in whatever order they
// happen to finish, or until d expires.  After a nil return, every
// child's output and exit code are settled.
func (g *Group) Wait(d time.Duration) error {
	deadline := time.After(d)
	for _, c := range g.children {
		select {
		case <-c.proc.Done():
		case <-deadline:
			return fmt.Errorf(
				"%d of %d children unfinished after %s",
				g.unfinished(), len(g.children), d)
		}
	}
	return nil
}

// Kill forcibly ends every child still running.
func (g *Group) Kill() {
	for _, c := range g.children {
		if c.proc.Alive() {
			_ = c.proc.Kill()
		}
	}
}

func (g *Group) unfinished() int {
	n := 0
	for _, c := range g.children {
		if !c.Finished() {
			n++
		}
	}
	return n
}

// Finished reports whether the child's subprocess has exited and its
// output has been fully drained.
func (c *Child) Finished() bool { return !c.proc.Alive() }

// Done is closed when the child finishes.
func (c *Child) Done() <-chan struct{} { return c.proc.Done() }

// ExitCode returns the child's exit status, pump.ExitCodeUnknown
// until it finishes and also if it was killed by a signal.
func (c *Child) ExitCode() int { return c.proc.ExitCode() }

// Stdout returns the child's stdout so far as a string, with invalid
// UTF-8 replaced.  Complete once Finished reports true.
func (c *Child) Stdout() string {
	return strings.ToValidUTF8(string(c.proc.Out.Bytes()), "�")
}

// Stderr is Stdout for the stderr stream.
func (c *Child) Stderr() string {
	return strings.ToValidUTF8(string(c.proc.Err.Bytes()), "�")
}

// StdoutBytes returns the child's raw stdout so far.
func (c *Child) StdoutBytes() []byte { return c.proc.Out.Bytes() }

// StderrBytes returns the child's raw stderr so far.
func (c *Child) StderrBytes() []byte { return c.proc.Err.Bytes() }
