package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tkellem/subshell/internal/log"
	"github.com/tkellem/subshell/remote"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Serve this machine's shells to remote clients",
	Long: `Node connects to a hub, registers under --name, and runs the
commands clients send through the hub.  Sessions live here on the
node: clients naming the same session share one shell, and the shell
outlives the clients that use it.  Node serves until interrupted, or
until the hub connection is lost.`,
	Example: `
# Serve under the name "worker", hub on this machine
subshell node --name worker

# A remote hub, commands guarded by a password
subshell node --name builder --hub hub.example.com:54333 \
    --password sesame
  `,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		nc := s.cfg.Node
		flags := cmd.Flags()
		if flags.Changed("name") {
			nc.Name, _ = flags.GetString("name")
		}
		if flags.Changed("hub") {
			nc.Hub, _ = flags.GetString("hub")
		}
		if flags.Changed("password") {
			nc.Password, _ = flags.GetString("password")
		}
		if flags.Changed("auth-window") {
			nc.AuthWindow.Duration, _ = flags.GetDuration("auth-window")
		}
		if flags.Changed("run-timeout") {
			nc.RunTimeout.Duration, _ = flags.GetDuration("run-timeout")
		}
		if nc.Hub == "" {
			nc.Hub = remote.DefaultHubAddr()
		}

		np := remote.NodeParams{
			Name:       nc.Name,
			Hub:        nc.Hub,
			Password:   nc.Password,
			AuthWindow: nc.AuthWindow.Duration,
			RunTimeout: nc.RunTimeout.Duration,
			Session:    s.sessionParams(),
		}
		if log.Initialized() {
			np.Logger = slog.Default()
		}
		n, err := remote.StartNode(np)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(),
			"node %q serving via %s\n", np.Name, np.Hub)
		select {
		case <-cmd.Context().Done():
			return n.Close()
		case <-n.Done():
			return fmt.Errorf("node %q lost the hub", np.Name)
		}
	},
}

func init() {
	nodeCmd.Flags().String("name", "", "Name clients use to reach this node")
	nodeCmd.Flags().String("hub", "", "The hub's host:port")
	nodeCmd.Flags().String("password", "",
		"Make clients authenticate with this password")
	nodeCmd.Flags().Duration("auth-window", 0,
		"How long one authentication lasts")
	nodeCmd.Flags().Duration("run-timeout", 0,
		"Give up on a remote command after this long")
}
