package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDuration_UnmarshalJSON_String(t *testing.T) {
	var d Duration
	err := json.Unmarshal([]byte(`"30s"`), &d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Duration != 30*time.Second {
		t.Errorf("expected 30s, got %v", d.Duration)
	}
}

func TestDuration_UnmarshalJSON_Minutes(t *testing.T) {
	var d Duration
	err := json.Unmarshal([]byte(`"5m"`), &d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Duration != 5*time.Minute {
		t.Errorf("expected 5m, got %v", d.Duration)
	}
}

func TestDuration_UnmarshalJSON_Number(t *testing.T) {
	var d Duration
	err := json.Unmarshal([]byte(`10`), &d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Duration != 10*time.Second {
		t.Errorf("expected 10s, got %v", d.Duration)
	}
}

func TestDuration_UnmarshalJSON_Invalid(t *testing.T) {
	var d Duration
	err := json.Unmarshal([]byte(`"not-a-duration"`), &d)
	if err == nil {
		t.Fatal("expected error for invalid duration string")
	}
}

func TestDuration_UnmarshalJSON_InvalidType(t *testing.T) {
	var d Duration
	err := json.Unmarshal([]byte(`true`), &d)
	if err == nil {
		t.Fatal("expected error for boolean duration")
	}
}

func TestDuration_MarshalJSON(t *testing.T) {
	d := Duration{Duration: 2 * time.Minute}
	data, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `"2m0s"` {
		t.Errorf("expected \"2m0s\", got %s", string(data))
	}
}

func TestDuration_RoundTrip(t *testing.T) {
	original := Duration{Duration: 45 * time.Second}
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	var decoded Duration
	err = json.Unmarshal(data, &decoded)
	if err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}

	if decoded.Duration != original.Duration {
		t.Errorf("round-trip mismatch: expected %v, got %v", original.Duration, decoded.Duration)
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	cfgJSON := `{
		"listen": {"addr": "127.0.0.1:9999"},
		"logging": {"level": "debug", "format": "json"},
		"agent": {
			"name": "my-deck",
			"install_path": "/home/deck/Games",
			"pairing_ttl": "30s"
		}
	}`

	path := writeTemp(t, cfgJSON)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Listen.Addr != "127.0.0.1:9999" {
		t.Errorf("wrong listen addr: %s", cfg.Listen.Addr)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("wrong log level: %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("wrong log format: %s", cfg.Logging.Format)
	}
	if cfg.Agent.Name != "my-deck" {
		t.Errorf("wrong agent name: %s", cfg.Agent.Name)
	}
	if cfg.Agent.InstallPath != "/home/deck/Games" {
		t.Errorf("wrong install path: %s", cfg.Agent.InstallPath)
	}
	if cfg.Agent.PairingTTL.Duration != 30*time.Second {
		t.Errorf("wrong pairing ttl: %v", cfg.Agent.PairingTTL.Duration)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeTemp(t, `{}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Listen.Addr != "0.0.0.0:9999" {
		t.Errorf("expected default listen addr, got %s", cfg.Listen.Addr)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected default log format text, got %s", cfg.Logging.Format)
	}
	if cfg.Agent.Name != "capydeploy" {
		t.Errorf("expected default agent name capydeploy, got %s", cfg.Agent.Name)
	}
	if cfg.Agent.InstallPath != "~/Games" {
		t.Errorf("expected default install path, got %s", cfg.Agent.InstallPath)
	}
	if cfg.Agent.SettingsDBPath != "~/.capydeploy/settings.db" {
		t.Errorf("expected default settings db path, got %s", cfg.Agent.SettingsDBPath)
	}
	if cfg.Agent.PairingTTL.Duration != 60*time.Second {
		t.Errorf("expected default pairing ttl 60s, got %v", cfg.Agent.PairingTTL.Duration)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("expected no error for missing config file, got: %v", err)
	}
	if cfg.Listen.Addr != "0.0.0.0:9999" {
		t.Errorf("expected defaults to be applied, got %s", cfg.Listen.Addr)
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	path := writeTemp(t, `{"logging": {"level": "verbose"}}`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error for invalid logging.level")
	}
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	path := writeTemp(t, `{"logging": {"format": "xml"}}`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error for invalid logging.format")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := writeTemp(t, "not json at all")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeTemp(t, `{"logging": {"level": "info"}}`)

	reloaded := make(chan *Config, 1)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := Watch(path, logger, func(cfg *Config) { reloaded <- cfg }); err != nil {
		t.Fatalf("watch: %v", err)
	}

	if err := os.WriteFile(path, []byte(`{"logging": {"level": "debug"}}`), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Logging.Level != "debug" {
			t.Errorf("expected reloaded level debug, got %s", cfg.Logging.Level)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}

func TestWatch_MissingFileIsNotAnError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	err := Watch(filepath.Join(t.TempDir(), "absent.json"), logger, func(*Config) {})
	if err != nil {
		t.Fatalf("expected no error watching a missing file, got: %v", err)
	}
}

// writeTemp creates a temporary file with the given content and returns its path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
