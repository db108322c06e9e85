// Package cmd implements the capydeploy-agent CLI: the serve daemon plus
// operator subcommands for inspecting and steering it.
package cmd

import (
	"github.com/spf13/cobra"
)

var version = "dev"

// NewRootCmd builds the root cobra command for capydeploy-agent.
func NewRootCmd(v string) *cobra.Command {
	version = v

	root := &cobra.Command{
		Use:           "capydeploy-agent",
		Short:         "CapyDeploy agent — LAN deployment agent for handheld devices",
		Long:          "capydeploy-agent advertises itself on the LAN, pairs with a Hub, and receives game installs over a WebSocket connection.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newStartCmd())
	root.AddCommand(newStopCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newPairCmd())
	root.AddCommand(newGamesCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}
