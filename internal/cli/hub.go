package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tkellem/subshell/internal/log"
	"github.com/tkellem/subshell/remote"
)

var hubCmd = &cobra.Command{
	Use:   "hub",
	Short: "Relay commands between clients and nodes",
	Long: `Hub listens for nodes and clients and relays each client's command
requests to the node it names, one request at a time per node.  The
hub holds no shell state of its own; sessions live on the nodes.
It serves until interrupted.`,
	Example: `
# The default port, every interface
subshell hub

# A chosen port
subshell hub --addr :9000
  `,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		addr := s.cfg.Hub.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}
		hp := remote.HubParams{Addr: addr}
		if log.Initialized() {
			hp.Logger = slog.Default()
		}
		h, err := remote.StartHub(hp)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "hub listening on %s\n", h.Addr())
		<-cmd.Context().Done()
		return h.Close()
	},
}

func init() {
	hubCmd.Flags().String("addr", "", "TCP listen address, host:port")
}
