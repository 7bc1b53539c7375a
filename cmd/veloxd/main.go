// Package main is the entry point for the velox daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:     "veloxd",
	Short:   "HTTP request dispatcher with policy-validated uploads",
	Version: version,
	Long: `veloxd serves an HTTP API that routes requests through the velox
dispatcher: pattern-matched routes, middleware chains, and a worker
pool running upload validation, metadata extraction, image resizing,
and data aggregation off the request path.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config",
		getEnvOrDefault("VELOX_CONFIG_PATH", "configs/velox.yaml"),
		"path to configuration file")
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
