package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/arvi1709/AI-library/internal/auth"
	"github.com/arvi1709/AI-library/internal/bootstrap"
	"github.com/arvi1709/AI-library/internal/cache"
	"github.com/arvi1709/AI-library/internal/config"
	"github.com/arvi1709/AI-library/internal/mailer"
	"github.com/arvi1709/AI-library/internal/middleware"
	"github.com/arvi1709/AI-library/internal/repository"
	"github.com/arvi1709/AI-library/internal/service"
	"github.com/arvi1709/AI-library/internal/storage"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	LockFile string
}

// env is the runtime shared by the subcommands, opened lazily.
type env struct {
	cfg   *config.Config
	db    *gorm.DB
	redis *redis.Client
}

func openEnv() (*env, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	middleware.SetupLogger(cfg.Env)
	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, db: db, redis: rdb}, nil
}

func (e *env) close() {
	if e.redis != nil {
		_ = e.redis.Close()
	}
	if sqlDB, err := e.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// deletionService builds the same deletion pipeline the API uses. Live
// sockets belong to the API process, so there are none to close here.
func (e *env) deletionService() (*service.AccountDeletionService, error) {
	store, err := storage.NewLocalStore(e.cfg.StorageDir, e.cfg.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	deps := service.AccountDeletionDeps{
		Repo:              repository.NewAccountDeletionRepository(e.db),
		Images:            service.NewImageService(store, e.cfg),
		Revocations:       auth.NewRedisRevocations(e.redis),
		Cache:             cache.NewStore(e.redis),
		RecentLoginWindow: e.cfg.RecentLoginWindow(),
	}
	if m := mailer.New(e.cfg); m != nil {
		deps.Mail = m
	}
	return service.NewAccountDeletionService(deps), nil
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "storyhouse-admin",
		Short:         "Operator utilities for Storyhouse",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.LockFile, "lock-file",
		filepath.Join(os.TempDir(), "storyhouse-admin.lock"),
		"lock held while a command mutates data")

	cmd.AddCommand(newDeletionsCommand(opts))
	cmd.AddCommand(newUsersCommand())
	return cmd
}
