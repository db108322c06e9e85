package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lobinuxsoft/capydeploy/internal/platform"
	"github.com/lobinuxsoft/capydeploy/internal/settings"
)

// newConfigCmd exposes the runtime settings store, not the bootstrap JSON
// file loaded by loadConfig: agent_name, install_path, and friends are
// meant to change without a restart (spec.md's hub-driven settings), while
// capydeploy.json only supplies first-boot defaults.
func newConfigCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "config",
		Short: "Get or set a runtime setting",
	}
	root.AddCommand(newConfigGetCmd())
	root.AddCommand(newConfigSetCmd())
	return root
}

func openSettingsStore(cmd *cobra.Command) (*settings.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return settings.Open(platform.ExpandHome(cfg.Agent.SettingsDBPath))
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a runtime setting's value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSettingsStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var v any
			ok, err := store.Get(args[0], &v)
			if err != nil {
				return fmt.Errorf("get %s: %w", args[0], err)
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is unset\n", args[0])
				return nil
			}
			out, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("encode value: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a runtime setting to a JSON value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSettingsStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var v any
			if err := json.Unmarshal([]byte(args[1]), &v); err != nil {
				v = args[1]
			}
			if err := store.Set(args[0], v); err != nil {
				return fmt.Errorf("set %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s set\n", args[0])
			return nil
		},
	}
}
