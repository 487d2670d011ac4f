// Command portal-admin runs maintenance tasks against the portal database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/freesideatlanta/member-portal/internal/bootstrap"
	"github.com/freesideatlanta/member-portal/pkg/config"
	"github.com/freesideatlanta/member-portal/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:           "portal-admin",
	Short:         "Maintenance commands for the member portal",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// env is what every subcommand needs: configuration, a logger and open storage.
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	storage *bootstrap.Storage
}

func (e *env) Close() {
	if e.storage != nil {
		_ = e.storage.Close()
	}
	_ = e.logger.Sync()
}

func openEnv(ctx context.Context, migrate bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	storage, err := bootstrap.OpenStorage(ctx, cfg, migrate, logr)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logr, storage: storage}, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
