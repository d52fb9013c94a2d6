// dataservice-stub - local stand-in for the data service API
//
// Serves the info and devices routes from a YAML fixture file so that
// netfield-connect can be exercised against a local broker without the
// hosted service. Configuration uses the stub and logging sections of the
// netfield-connect config file (NETFIELD_CONFIG).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/netfield-connect/internal/api"
	"github.com/nerrad567/netfield-connect/internal/infrastructure/config"
	"github.com/nerrad567/netfield-connect/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
var version = "dev"

// Default configuration file path
const defaultConfigPath = "configs/stub.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run starts the stub and blocks until ctx is cancelled.
func run(ctx context.Context) error {
	configPath := getConfigPath()
	cfg, err := config.LoadStub(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version).With("component", "dataservice-stub")

	fixtures, err := api.LoadFixtures(cfg.Stub.Fixtures)
	if err != nil {
		return fmt.Errorf("loading fixtures: %w", err)
	}

	server, err := api.New(api.Deps{
		Config:   cfg.Stub,
		Logger:   log,
		Fixtures: fixtures,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating stub server: %w", err)
	}

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting stub server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing stub server", "error", closeErr)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}

func getConfigPath() string {
	if path := os.Getenv("NETFIELD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
