package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lobinuxsoft/capydeploy/internal/agent"
	"github.com/lobinuxsoft/capydeploy/internal/config"
	"github.com/lobinuxsoft/capydeploy/internal/daemon"
	"github.com/lobinuxsoft/capydeploy/internal/platform"
	"github.com/lobinuxsoft/capydeploy/internal/settings"
)

func newServeCmd() *cobra.Command {
	var foreground bool

	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the agent in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
	c.Flags().BoolVar(&foreground, "foreground", true, "stay attached to the terminal (always true; kept for script compatibility)")
	return c
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := buildLogger(cfg.Logging.Level, cfg.Logging.Format)

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

	supervisor := agent.New(store, logger, cfg.Listen.Addr, port)

	if pid := os.Getpid(); pid > 0 {
		if err := daemon.WritePID(pid); err != nil {
			logger.Warn("write pid file", "error", err)
		}
		defer func() { _ = daemon.RemovePID() }()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	configPath := resolveConfigPath(cmd)
	if fileExists(configPath) {
		err := config.Watch(configPath, logger, func(next *config.Config) {
			newLogger := buildLogger(next.Logging.Level, next.Logging.Format)
			supervisor.SetLogger(newLogger)
			if err := supervisor.SetAgentName(next.Agent.Name); err != nil {
				newLogger.Warn("apply reloaded agent name", "error", err)
			}
			if err := supervisor.SetInstallPath(next.Agent.InstallPath); err != nil {
				newLogger.Warn("apply reloaded install path", "error", err)
			}
			newLogger.Info("config reloaded", "path", configPath)
		})
		if err != nil {
			logger.Warn("start config watcher", "error", err)
		}
	}

	if err := supervisor.Enable(ctx); err != nil {
		return fmt.Errorf("enable agent: %w", err)
	}

	logger.Info("capydeploy-agent listening", "addr", cfg.Listen.Addr, "version", version)

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := supervisor.Disable(shutdownCtx); err != nil {
		logger.Error("disable agent", "error", err)
	}

	return nil
}

func buildLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
