package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lobinuxsoft/capydeploy/internal/pairing"
	"github.com/lobinuxsoft/capydeploy/internal/platform"
	"github.com/lobinuxsoft/capydeploy/internal/settings"
)

func newPairCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pair",
		Short: "Inspect and manage paired Hubs",
	}
	root.AddCommand(newPairListCmd())
	root.AddCommand(newPairRevokeCmd())
	return root
}

func openPairingManager(cmd *cobra.Command) (*pairing.Manager, *settings.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	store, err := settings.Open(platform.ExpandHome(cfg.Agent.SettingsDBPath))
	if err != nil {
		return nil, nil, fmt.Errorf("open settings store: %w", err)
	}
	return pairing.New(store), store, nil
}

func newPairListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List authorized Hubs",
		RunE: func(cmd *cobra.Command, args []string) error {
			pm, store, err := openPairingManager(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			hubs, err := pm.AuthorizedHubs()
			if err != nil {
				return fmt.Errorf("list authorized hubs: %w", err)
			}
			if len(hubs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no paired hubs")
				return nil
			}
			for hubID, hub := range hubs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", hubID, hub.Name)
			}
			return nil
		},
	}
}

func newPairRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <hubId>",
		Short: "Revoke a Hub's pairing token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pm, store, err := openPairingManager(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			revoked, err := pm.RevokeHub(args[0])
			if err != nil {
				return fmt.Errorf("revoke hub: %w", err)
			}
			if !revoked {
				fmt.Fprintf(cmd.OutOrStdout(), "no such hub: %s\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
			return nil
		},
	}
}
