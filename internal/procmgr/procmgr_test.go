package procmgr

import (
	"context"
	"os/exec"
	"testing"
)

func TestRestartSteam_ErrorWhenBinaryMissing(t *testing.T) {
	if _, err := exec.LookPath("systemctl"); err == nil {
		t.Skip("systemctl present in test environment, spawning it for real is undesirable")
	}
	if err := RestartSteam(context.Background()); err == nil {
		t.Error("expected an error when systemctl is unavailable")
	}
}
