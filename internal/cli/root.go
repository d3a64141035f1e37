// Package cli implements the ecogarden command tree.
package cli

import (
	"context"
	"fmt"
	"time"

	"ecogarden-sync-go/internal/common"
	"ecogarden-sync-go/internal/config"
	"ecogarden-sync-go/internal/database"
	"ecogarden-sync-go/internal/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type app struct {
	timeout       time.Duration
	loggerCleanup func()
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "ecogarden",
		Short: "Eco credit ledger and garden client",
		Long: `ecogarden keeps a local, cross-process view of your eco credits and
garden in sync with the credits backend.

Run 'ecogarden sync' to keep the cache fresh in the background; every other
command reads and writes through the same cache.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.loggerCleanup == nil {
				_, a.loggerCleanup = common.InitializeLogger()
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.loggerCleanup != nil {
				a.loggerCleanup()
			}
		},
	}
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", time.Minute, "Timeout for one-shot commands")

	root.AddCommand(
		a.syncCmd(),
		a.balanceCmd(),
		a.historyCmd(),
		a.gardenCmd(),
		a.earnCmd(),
		a.spendCmd(),
		a.challengeCmd(),
		a.completeCmd(),
		a.setTotalCmd(),
		a.waterCmd(),
		a.verifyCmd(),
		a.shopCmd(),
		a.sandboxCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.onboardingCmd(),
	)
	return root
}

// Execute runs the command tree
func Execute() error {
	return NewRootCommand().Execute()
}

func (a *app) loadConfig() (*models.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// withServices runs fn with the full service stack and a bounded context
func (a *app) withServices(cmd *cobra.Command, fn func(ctx context.Context, services *common.Services) error) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
	defer cancel()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Close()

	return fn(ctx, services)
}

// withCache runs fn with only the cache open
func (a *app) withCache(cmd *cobra.Command, fn func(ctx context.Context, cfg *models.Config, cache *database.Service) error) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
	defer cancel()

	cache, err := common.InitializeCacheOnly(ctx, cfg)
	if err != nil {
		return err
	}
	defer cache.Close()

	zap.L().Debug("Opened cache", zap.String("path", cache.Path()))
	return fn(ctx, cfg, cache)
}

func report(cmd *cobra.Command) *common.Report {
	return common.NewReport(cmd.OutOrStdout(), common.DefaultWidth)
}
