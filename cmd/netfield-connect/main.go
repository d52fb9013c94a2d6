// netfield-connect - data service bootstrap client
//
// This is the main entry point for netfield-connect. One run:
//   - Trades an API key for short-lived broker credentials
//   - Resolves the configured device to its base topic
//   - Connects to the broker over TLS, publishes one retained message to the
//     device and listens to its uplink topics for a fixed duration
//
// Configuration comes from a YAML file (NETFIELD_CONFIG) and NETFIELD_*
// environment variables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/netfield-connect/internal/bootstrap"
	"github.com/nerrad567/netfield-connect/internal/infrastructure/config"
	"github.com/nerrad567/netfield-connect/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path, used only if it exists.
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Ctrl+C or SIGTERM ends the listen phase early; the run still disconnects.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil when the run completed or was stopped by a signal
func run(ctx context.Context, opts ...bootstrap.Option) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting netfield-connect",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if configPath == "" {
		log.Info("configuration loaded from environment")
	} else {
		log.Info("configuration loaded", "path", configPath)
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	if err := bootstrap.New(cfg, log, opts...).Run(ctx); err != nil {
		return err
	}

	log.Info("netfield-connect finished")
	return nil
}

// getConfigPath returns NETFIELD_CONFIG, the default path if that file
// exists, or "" to run from defaults and environment only.
func getConfigPath() string {
	if path := os.Getenv("NETFIELD_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}
