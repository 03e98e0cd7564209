package migrate

import (
	"context"
	"fmt"

	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/config"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/db"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/logger"
)

// autorunEnabled keeps startup migrations to dev. Other environments run
// cmd/migrate as a release step.
func autorunEnabled(cfg *config.Config) bool {
	return cfg != nil && cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate
}

// MaybeRunDev brings the schema up to the embedded migrations before a
// binary starts serving, when PETSHOP_AUTO_MIGRATE is set in dev.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !autorunEnabled(cfg) {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("autorun: sql handle: %w", err)
	}

	steps, err := Run(ctx, sqlDB, "", CommandUp, 0)
	for _, step := range steps {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"version":     step.Version,
			"path":        step.Path,
			"duration_ms": step.Duration.Milliseconds(),
		}), "migrate.autorun.applied")
	}
	if err != nil {
		return fmt.Errorf("autorun: %w", err)
	}
	logg.Info(logg.WithField(ctx, "applied", len(steps)), "migrate.autorun.done")
	return nil
}
