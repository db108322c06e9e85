package agent

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/lobinuxsoft/capydeploy/internal/settings"
)

func newSupervisor(t *testing.T) *Supervisor {
	t.Helper()
	store, err := settings.Open(":memory:")
	if err != nil {
		t.Fatalf("open settings: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return New(store, slog.Default(), "127.0.0.1:0", 9999)
}

func TestAgentID_StableAcrossCalls(t *testing.T) {
	s := newSupervisor(t)
	first := s.agentID()
	second := s.agentID()
	if first != second {
		t.Errorf("agentID changed across calls: %q != %q", first, second)
	}
	if len(first) != 8 {
		t.Errorf("expected 8-char agent id, got %q", first)
	}
}

func TestGetStatus_DefaultsBeforeEnable(t *testing.T) {
	s := newSupervisor(t)
	status := s.GetStatus()
	if status.Enabled {
		t.Error("expected not enabled before Enable()")
	}
	if status.Connected {
		t.Error("expected not connected before any handshake")
	}
	if status.AgentName != "capydeploy" {
		t.Errorf("agentName = %q, want default", status.AgentName)
	}
}

func TestSetAgentName_Persists(t *testing.T) {
	s := newSupervisor(t)
	if err := s.SetAgentName("My Deck"); err != nil {
		t.Fatalf("set agent name: %v", err)
	}
	if got := s.agentName(); got != "My Deck" {
		t.Errorf("agentName = %q, want %q", got, "My Deck")
	}
}

func TestSetInstallPath_ExpandsHome(t *testing.T) {
	s := newSupervisor(t)
	if err := s.SetInstallPath("~/Games"); err != nil {
		t.Fatalf("set install path: %v", err)
	}
	got := s.installPath()
	if got == "~/Games" {
		t.Error("expected ~/ to be expanded before storage")
	}
}

// newSupervisorWithInstallDir returns a Supervisor whose install root is a
// fresh temp directory, for tests that touch the filesystem.
func newSupervisorWithInstallDir(t *testing.T) (*Supervisor, string) {
	t.Helper()
	s := newSupervisor(t)
	dir := t.TempDir()
	if err := s.SetInstallPath(dir); err != nil {
		t.Fatalf("set install path: %v", err)
	}
	return s, dir
}

func TestGetInstalledGames_ScansDirectoryWithSizes(t *testing.T) {
	s, dir := newSupervisorWithInstallDir(t)

	gameDir := filepath.Join(dir, "Hades")
	if err := os.MkdirAll(gameDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(gameDir, "hades.bin"), []byte("12345"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	// A stray file directly under the install root is not a game.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	games, err := s.GetInstalledGames()
	if err != nil {
		t.Fatalf("get installed games: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("expected 1 game, got %d: %+v", len(games), games)
	}
	if games[0].Name != "Hades" || games[0].Size != 5 {
		t.Errorf("unexpected game entry: %+v", games[0])
	}
}

func TestGetInstalledGames_EmptyWhenInstallRootAbsent(t *testing.T) {
	s := newSupervisor(t)
	if err := s.SetInstallPath("/nonexistent/path/for/test"); err != nil {
		t.Fatalf("set install path: %v", err)
	}
	games, err := s.GetInstalledGames()
	if err != nil {
		t.Fatalf("expected no error for missing install root, got: %v", err)
	}
	if len(games) != 0 {
		t.Errorf("expected 0 games, got %d", len(games))
	}
}

func TestUninstallGame_RemovesDirectoryAndTrackedEntry(t *testing.T) {
	s, dir := newSupervisorWithInstallDir(t)

	gameDir := filepath.Join(dir, "Hades")
	if err := os.MkdirAll(gameDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := s.SetSetting("tracked_shortcuts", []TrackedShortcut{
		{Name: "Hades", AppID: 42},
	}); err != nil {
		t.Fatalf("seed tracked shortcuts: %v", err)
	}

	if err := s.UninstallGame("hades"); err != nil {
		t.Fatalf("uninstall: %v", err)
	}

	if _, err := os.Stat(gameDir); !os.IsNotExist(err) {
		t.Errorf("expected install directory to be removed, stat err: %v", err)
	}

	var tracked []TrackedShortcut
	if _, err := s.store.Get("tracked_shortcuts", &tracked); err != nil {
		t.Fatalf("get tracked shortcuts: %v", err)
	}
	if len(tracked) != 0 {
		t.Errorf("expected tracked shortcut to be removed, got %+v", tracked)
	}
}

func TestUninstallGame_UnknownReturnsError(t *testing.T) {
	s := newSupervisor(t)
	if err := s.UninstallGame("nope"); err == nil {
		t.Error("expected error for unknown game")
	}
}

func TestRegisterShortcut_SetsAppID(t *testing.T) {
	s := newSupervisor(t)
	if err := s.SetSetting("tracked_shortcuts", []TrackedShortcut{
		{Name: "Hades"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := s.RegisterShortcut("Hades", 99); err != nil {
		t.Fatalf("register shortcut: %v", err)
	}

	var tracked []TrackedShortcut
	if _, err := s.store.Get("tracked_shortcuts", &tracked); err != nil {
		t.Fatalf("get tracked shortcuts: %v", err)
	}
	if len(tracked) != 1 || tracked[0].AppID != 99 {
		t.Errorf("unexpected tracked shortcuts: %+v", tracked)
	}
}

func TestRevokeHub_UnknownIsIdempotent(t *testing.T) {
	s := newSupervisor(t)
	revoked, err := s.RevokeHub("nonexistent")
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked {
		t.Error("expected revoked=false for unknown hub")
	}
}

func TestEnableDisable_TogglesStatus(t *testing.T) {
	s := newSupervisor(t)
	ctx := context.Background()

	if err := s.Enable(ctx); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if !s.GetStatus().Enabled {
		t.Error("expected enabled after Enable()")
	}

	if err := s.Disable(ctx); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if s.GetStatus().Enabled {
		t.Error("expected not enabled after Disable()")
	}
}
