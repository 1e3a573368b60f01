package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// execute drives the command tree the way one process invocation
// would, with stdin supplied and both output streams captured.  Flag
// state is restored afterwards, since the tree is package-level.
func execute(t *testing.T, stdin string, args ...string) (
	stdout, stderr string, err error) {
	t.Helper()
	var out, errw bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errw)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	})
	err = rootCmd.ExecuteContext(context.Background())
	return out.String(), errw.String(), err
}

// resetFlags puts every changed flag in the tree back to its default.
func resetFlags(c *cobra.Command) {
	restore := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().Visit(restore)
	c.PersistentFlags().Visit(restore)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}
