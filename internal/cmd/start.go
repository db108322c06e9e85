package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/lobinuxsoft/capydeploy/internal/daemon"
)

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Launch the agent as a detached background process",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pid, _ := daemon.ReadPID(); pid != 0 && daemon.IsRunning(pid) {
				fmt.Fprintf(cmd.OutOrStdout(), "agent already running (pid %d)\n", pid)
				return nil
			}

			self, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}

			logFile, err := daemon.OpenLogFile()
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer func() { _ = logFile.Close() }()

			child := exec.Command(self, "serve", "--config", resolveConfigPath(cmd))
			child.Stdout = logFile
			child.Stderr = logFile
			child.SysProcAttr = daemon.DetachSysProcAttr()

			if err := child.Start(); err != nil {
				return fmt.Errorf("start agent: %w", err)
			}

			// The child writes its own PID file once serve's supervisor is
			// up; give it a moment before reporting back to the operator.
			time.Sleep(200 * time.Millisecond)
			fmt.Fprintf(cmd.OutOrStdout(), "agent started (pid %d), logging to %s\n", child.Process.Pid, daemon.LogPath())
			return nil
		},
	}
}
