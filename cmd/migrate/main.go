// Command migrate runs schema operations for the backend.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/arvi1709/AI-library/internal/config"
	"github.com/arvi1709/AI-library/internal/database"
	"github.com/arvi1709/AI-library/internal/middleware"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func connect() (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	middleware.SetupLogger(cfg.Env)
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, db, nil
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply, inspect and roll back the database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending SQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := connect()
			if err != nil {
				return err
			}
			if err := database.RunMigrations(cmd.Context(), db); err != nil {
				return fmt.Errorf("sql migrations failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sql migrations applied")
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "auto",
		Short: "Run GORM AutoMigrate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := connect()
			if err != nil {
				return err
			}
			cfg.DBSchemaMode = database.SchemaModeAuto
			if err := database.ApplySchema(cmd.Context(), db, cfg); err != nil {
				return fmt.Errorf("auto schema apply failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "automigrations applied")
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the schema policy and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := connect()
			if err != nil {
				return err
			}
			status, err := database.GetSchemaStatus(cmd.Context(), db, cfg)
			if err != nil {
				return fmt.Errorf("schema status failed: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d\n",
				status.Mode, status.Environment, status.RunSQL, status.RunAuto,
				len(status.Applied), len(status.Pending))
			for _, m := range status.Pending {
				fmt.Fprintf(out, "pending: %s\n", m.ID())
			}
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "down <version>",
		Short: "Roll back one migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			_, db, err := connect()
			if err != nil {
				return err
			}
			if err := database.RollbackMigration(cmd.Context(), db, version); err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back migration %d\n", version)
			return nil
		},
	})

	return root
}
