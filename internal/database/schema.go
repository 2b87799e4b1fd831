package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arvi1709/AI-library/internal/config"
	"github.com/arvi1709/AI-library/internal/middleware"

	"gorm.io/gorm"
)

// DB_SCHEMA_MODE values.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// schemaPlan is what ApplySchema will do for a configuration.
type schemaPlan struct {
	Mode string
	SQL  bool
	Auto bool
}

// planSchema maps DB_SCHEMA_MODE and the environment to a plan. Hybrid, the
// default, runs SQL everywhere and AutoMigrate only outside production. Auto
// in production must be opted into with DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE.
func planSchema(cfg *config.Config) (schemaPlan, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		mode = SchemaModeHybrid
	}
	prod := cfg.IsProduction() || strings.HasPrefix(strings.ToLower(cfg.Env), "stag")

	switch mode {
	case SchemaModeSQL:
		return schemaPlan{Mode: mode, SQL: true}, nil
	case SchemaModeHybrid:
		return schemaPlan{Mode: mode, SQL: true, Auto: !prod}, nil
	case SchemaModeAuto:
		if prod && !cfg.DBAutoMigrateAllowDrop {
			return schemaPlan{}, fmt.Errorf("DB_SCHEMA_MODE=auto in %q needs DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		return schemaPlan{Mode: mode, Auto: true}, nil
	}
	return schemaPlan{}, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
}

// ApplySchema brings the schema up to date according to the plan.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}
	if plan.SQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
	}
	if plan.Auto {
		middleware.Logger.Info("Running GORM AutoMigrate", slog.String("mode", plan.Mode), slog.String("env", cfg.Env))
		if err := AutoMigrate(db); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

// SchemaStatus reports the plan and the migration ledger without changing anything.
type SchemaStatus struct {
	Mode        string
	Environment string
	RunSQL      bool
	RunAuto     bool
	Applied     []AppliedMigration
	Pending     []Migration
}

func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{
		Mode:        plan.Mode,
		Environment: cfg.Env,
		RunSQL:      plan.SQL,
		RunAuto:     plan.Auto,
	}

	migs, err := Migrations()
	if err != nil {
		return nil, err
	}
	migrator := NewMigrator(db, migs)
	if status.Applied, err = migrator.Applied(ctx); err != nil {
		return nil, err
	}
	if status.Pending, err = migrator.pending(status.Applied); err != nil {
		return nil, err
	}
	return status, nil
}
