// Package procmgr spawns the handful of host-level subprocess actions the
// agent needs (restarting the Steam client) without waiting on them.
package procmgr

import (
	"context"
	"os/exec"
)

// RestartSteam spawns "systemctl restart steam" and returns immediately
// without waiting for it to finish; Steam tearing itself down takes the
// calling connection down with it if we block. Returns an error only if
// the subprocess failed to start at all.
func RestartSteam(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "systemctl", "restart", "steam")
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
