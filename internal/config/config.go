// Package config handles agent bootstrap configuration loading, validation,
// and hot-reload.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Config is the top-level agent bootstrap configuration. It covers only
// process-level concerns (where to listen, how to log, where the SQLite
// settings store lives); per-hub and per-install settings live in the
// settings store itself, not in this file.
type Config struct {
	Listen  ListenConfig  `json:"listen"`
	Logging LoggingConfig `json:"logging"`
	Agent   AgentConfig   `json:"agent"`
}

// ListenConfig controls the WebSocket/HTTP listener.
type ListenConfig struct {
	Addr string `json:"addr,omitempty"` // default "0.0.0.0:9999"
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `json:"level,omitempty"`  // "debug", "info", "warn", "error"; default "info"
	Format string `json:"format,omitempty"` // "json" or "text"; default "text"
}

// AgentConfig is the agent's own bootstrap identity and storage paths.
// AgentName, InstallPath, and Enabled are also mirrored into the settings
// store at runtime and may be changed there without a restart; the values
// here are only the first-boot defaults.
type AgentConfig struct {
	Name           string   `json:"name,omitempty"`             // default "capydeploy"
	InstallPath    string   `json:"install_path,omitempty"`     // default "~/Games"
	SettingsDBPath string   `json:"settings_db_path,omitempty"` // default "~/.capydeploy/settings.db"
	Enabled        bool     `json:"enabled,omitempty"`
	PairingTTL     Duration `json:"pairing_ttl,omitempty"` // default 60s
}

// Duration is a JSON-friendly time.Duration (accepts strings like "30s", "5m",
// or a bare number of seconds).
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		dur, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		d.Duration = dur
	case float64:
		d.Duration = time.Duration(val) * time.Second
	default:
		return fmt.Errorf("invalid duration: %v", v)
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Load reads and validates a config file. A missing file is not an error:
// the agent can run entirely on defaults, with everything else configured
// through the settings store after pairing.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error")
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Listen.Addr == "" {
		c.Listen.Addr = "0.0.0.0:9999"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Agent.Name == "" {
		c.Agent.Name = "capydeploy"
	}
	if c.Agent.InstallPath == "" {
		c.Agent.InstallPath = "~/Games"
	}
	if c.Agent.SettingsDBPath == "" {
		c.Agent.SettingsDBPath = "~/.capydeploy/settings.db"
	}
	if c.Agent.PairingTTL.Duration == 0 {
		c.Agent.PairingTTL.Duration = 60 * time.Second
	}
}

// Watch reloads the config file on every write event and invokes onChange
// with the newly parsed Config. It runs until ctx is done or the watcher
// fails to start; reload errors are logged and the prior config keeps
// running rather than crashing the agent over a bad edit.
func Watch(path string, logger *slog.Logger, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}

	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("watch %s: %w", path, err)
	}

	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					logger.Error("reload config", "path", path, "error", err)
					continue
				}
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error("config watcher error", "error", err)
			}
		}
	}()

	return nil
}
