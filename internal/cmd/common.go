package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lobinuxsoft/capydeploy/internal/config"
)

// shutdownTimeout bounds how long serve/stop wait for a graceful HTTP
// shutdown or SIGTERM before giving up.
const shutdownTimeout = 5 * time.Second

// resolveConfigPath returns the config file path from the --config/-c flag,
// or the default capydeploy.json next to the working directory.
func resolveConfigPath(cmd *cobra.Command) string {
	if f := cmd.Flag("config"); f != nil && f.Changed {
		return f.Value.String()
	}
	if f := cmd.Root().PersistentFlags().Lookup("config"); f != nil && f.Changed {
		return f.Value.String()
	}
	return "capydeploy.json"
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(resolveConfigPath(cmd))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
