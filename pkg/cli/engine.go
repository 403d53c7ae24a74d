package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/secretmask/pkg/database"
	"github.com/codeready-toolchain/secretmask/pkg/masking"
)

// newDispatcher builds the masking engine from the loaded configuration.
// The gitleaks detector is added when enabled in the config or by flag.
func (a *app) newDispatcher(gitleaks bool) (*masking.Dispatcher, error) {
	registry, err := masking.NewRegistryFromConfig(a.cfg)
	if err != nil {
		return nil, err
	}

	var detectors []masking.Detector
	if gitleaks || a.cfg.Masking.Gitleaks {
		detector, err := masking.NewGitleaksDetector()
		if err != nil {
			return nil, err
		}
		detectors = append(detectors, detector)
		slog.Debug("Detector enabled", "detector", detector.Name())
	}

	return masking.NewDispatcher(masking.NewRedactor(registry, detectors...)), nil
}

// openHistory connects to the run history database when it is enabled.
// Returns a nil client otherwise.
func (a *app) openHistory(ctx context.Context) (*database.Client, error) {
	if !a.cfg.History.Enabled {
		return nil, nil
	}

	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}
	client, err := database.NewClient(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("Connected to PostgreSQL database", "host", dbCfg.Host, "database", dbCfg.Database)
	return client, nil
}

func closeHistory(client *database.Client) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		slog.Error("Error closing database client", "error", err)
	}
}
