package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lobinuxsoft/capydeploy/internal/agent"
	"github.com/lobinuxsoft/capydeploy/internal/daemon"
	"github.com/lobinuxsoft/capydeploy/internal/platform"
	"github.com/lobinuxsoft/capydeploy/internal/settings"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the agent's current status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			pid, _ := daemon.ReadPID()
			running := pid != 0 && daemon.IsRunning(pid)

			store, err := settings.Open(platform.ExpandHome(cfg.Agent.SettingsDBPath))
			if err != nil {
				return fmt.Errorf("open settings store: %w", err)
			}
			defer func() { _ = store.Close() }()

			port := 9999
			if _, portStr, err := net.SplitHostPort(cfg.Listen.Addr); err == nil {
				if p, err := strconv.Atoi(portStr); err == nil {
					port = p
				}
			}

			supervisor := agent.New(store, slog.New(slog.NewTextHandler(io.Discard, nil)), cfg.Listen.Addr, port)
			status := supervisor.GetStatus()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "process:      %s\n", processLabel(running, pid))
			fmt.Fprintf(out, "enabled:      %t\n", status.Enabled)
			fmt.Fprintf(out, "connected:    %t\n", status.Connected)
			if status.HubName != "" {
				fmt.Fprintf(out, "hub:          %s\n", status.HubName)
			}
			fmt.Fprintf(out, "agent name:   %s\n", status.AgentName)
			fmt.Fprintf(out, "install path: %s\n", status.InstallPath)
			fmt.Fprintf(out, "platform:     %s\n", status.Platform)
			fmt.Fprintf(out, "version:      %s\n", status.Version)
			fmt.Fprintf(out, "listen:       %s:%d\n", status.IP, status.Port)
			return nil
		},
	}
}

func processLabel(running bool, pid int) string {
	if !running {
		return "stopped"
	}
	return fmt.Sprintf("running (pid %d)", pid)
}
