package cmd

import (
	"context"
	"errors"

	"github.com/jmgilman/drover/internal/config"
	"github.com/jmgilman/drover/internal/logging"
	"github.com/jmgilman/drover/internal/secrets"
)

// requireConfig returns the loaded application configuration.
func requireConfig(ctx context.Context) (*config.Config, error) {
	cfg := ConfigFromContext(ctx)
	if cfg == nil {
		return nil, errors.New("configuration not initialized")
	}
	return cfg, nil
}

// openSecrets opens the credential store configured for this installation.
func openSecrets(ctx context.Context) (secrets.Store, error) {
	cfg, err := requireConfig(ctx)
	if err != nil {
		return nil, err
	}
	return secrets.NewStore(secrets.Config{FileDir: cfg.Storage.Secrets})
}

// logsDirForRun returns the transcript directory of a run.
func logsDirForRun(logsDir, runID string) string {
	return logging.NewPathManager(logsDir).RunDir(runID)
}
