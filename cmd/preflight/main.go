// Command preflight brings an application's external resources online in
// dependency order and reports the outcome. It is meant to run before the
// main workload starts, failing the deployment early when a dependency is
// misconfigured or unreachable.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"preflight/internal/config"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "preflight",
		Short: "Bring external resources online in dependency order",
		Long: `preflight validates, probes, and initializes the external resources an
application depends on (database, cache, message bus, external APIs,
filesystem trees, network endpoints), honoring the dependency order declared
in configuration.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config",
		"directory containing the configuration files")

	root.AddCommand(newRunCmd(), newGraphCmd(), newValidateCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the layered configuration rooted at the --config path.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}
