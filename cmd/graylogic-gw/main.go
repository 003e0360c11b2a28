// Gray Logic Gateway - Zigbee resource gateway
//
// This is the main entry point of the gateway binary. It serves the typed
// resource registry (lights, sensors, groups and the gateway config) over
// REST, WebSocket and MQTT, and records item history to InfluxDB.
//
// Subcommands:
//
//	serve        run the gateway until SIGINT/SIGTERM
//	descriptors  print the attribute descriptor table
//	migrate      show migration status or roll back the latest one
//	version      print build information
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

var configPath string

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:           "graylogic-gw",
	Short:         "Gray Logic Zigbee resource gateway",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Config file (default: $GRAYLOGIC_CONFIG or "+defaultConfigPath+")")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// getConfigPath returns the configuration file path: the --config flag,
// then GRAYLOGIC_CONFIG, then the default.
func getConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
