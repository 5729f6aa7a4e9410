// Package command implements socialctl, the operator CLI for the social
// backend's stores.
package command

import (
	"context"
	"fmt"

	"github.com/anonto42/goalsocial/backend/pkg/config"
	"github.com/anonto42/goalsocial/backend/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:          "socialctl",
	Short:        "socialctl - maintenance tasks for the goal social backend",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (defaults to LOG_LEVEL)")
	rootCmd.AddCommand(indexesCmd, cleanupCmd)
}

// env is what every subcommand works against.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *config.DB
}

func open(ctx context.Context) (*env, func(), error) {
	cfg := config.Load()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	db, err := config.InitDB(ctx, cfg, zlog)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		db.CloseDB()
		_ = zlog.Sync()
	}
	return &env{cfg: cfg, logger: zlog, db: db}, closeFn, nil
}
