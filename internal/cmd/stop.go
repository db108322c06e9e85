package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lobinuxsoft/capydeploy/internal/daemon"
)

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop a running agent process",
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := daemon.ReadPID()
			if err != nil {
				return fmt.Errorf("read pid file: %w", err)
			}
			if pid == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "agent is not running")
				return nil
			}
			if !daemon.IsRunning(pid) {
				fmt.Fprintln(cmd.OutOrStdout(), "agent is not running (stale pid file)")
				return daemon.RemovePID()
			}
			if err := daemon.StopProcess(pid, shutdownTimeout); err != nil {
				return fmt.Errorf("stop agent: %w", err)
			}
			_ = daemon.RemovePID()
			fmt.Fprintln(cmd.OutOrStdout(), "agent stopped")
			return nil
		},
	}
}
