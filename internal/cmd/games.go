package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lobinuxsoft/capydeploy/internal/agent"
	"github.com/lobinuxsoft/capydeploy/internal/platform"
	"github.com/lobinuxsoft/capydeploy/internal/settings"
)

func newGamesCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "games",
		Short: "Inspect and manage installed games",
	}
	root.AddCommand(newGamesListCmd())
	root.AddCommand(newGamesUninstallCmd())
	return root
}

func openSupervisor(cmd *cobra.Command) (*agent.Supervisor, *settings.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	store, err := settings.Open(platform.ExpandHome(cfg.Agent.SettingsDBPath))
	if err != nil {
		return nil, nil, fmt.Errorf("open settings store: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return agent.New(store, logger, cfg.Listen.Addr, 0), store, nil
}

func newGamesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked, installed games",
		RunE: func(cmd *cobra.Command, args []string) error {
			sup, store, err := openSupervisor(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			games, err := sup.GetInstalledGames()
			if err != nil {
				return fmt.Errorf("list installed games: %w", err)
			}
			if len(games) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no installed games")
				return nil
			}
			for _, g := range games {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d bytes\t%s\n", g.Name, g.Size, g.Path)
			}
			return nil
		},
	}
}

func newGamesUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <name>",
		Short: "Remove a tracked game's entry and install directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sup, store, err := openSupervisor(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := sup.UninstallGame(args[0]); err != nil {
				return fmt.Errorf("uninstall %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uninstalled %s\n", args[0])
			return nil
		},
	}
}
