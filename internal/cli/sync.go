package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecogarden-sync-go/internal/api"
	"ecogarden-sync-go/internal/common"
	"ecogarden-sync-go/internal/jobs"
	"ecogarden-sync-go/internal/listener"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) syncCmd() *cobra.Command {
	var serveStatus bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Keep the local cache in sync until interrupted",
		Long: `Runs the periodic poll, watches the cache for writes from other
processes, verifies the ledger history on a schedule and serves the local
status API.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			zap.L().Info("Starting ecogarden sync")

			services, err := common.InitializeServices(ctx, cfg)
			if err != nil {
				return err
			}
			defer services.Close()

			syncer := services.Syncer
			if err := syncer.Start(ctx); err != nil {
				return err
			}

			cacheListener := listener.NewCacheListener(listener.CacheListenerConfig{
				Cache:            services.Cache,
				WriterId:         syncer.WriterId(),
				FallbackInterval: cfg.Sync.WatchFallbackInterval,
				Handler:          syncer.HandleCacheChange,
			})
			if err := cacheListener.Watch(ctx, syncer.UserId()); err != nil {
				return err
			}
			if err := cacheListener.Start(ctx); err != nil {
				return err
			}
			defer cacheListener.Stop()

			scheduler := jobs.NewScheduler(syncer, cfg.Sync.VerifySchedule, cfg.Sync.HistoryLimit)
			if err := scheduler.Start(ctx); err != nil {
				return err
			}
			defer scheduler.Stop()

			var server *api.Server
			if serveStatus {
				server = api.NewServer(cfg.Status.Addr, api.NewStatusService(syncer, services.Cache))
				go func() {
					if err := server.ListenAndServe(); err != nil {
						zap.L().Error("Status API stopped", zap.Error(err))
					}
				}()
			}

			zap.L().Info("Sync running, press Ctrl+C to stop",
				zap.Int64("user_id", syncer.UserId()),
				zap.String("cache", services.Cache.Path()))

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			select {
			case <-sigChan:
				zap.L().Info("Shutdown signal received, stopping sync...")
			case <-ctx.Done():
			}

			if server != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					zap.L().Warn("Status API shutdown failed", zap.Error(err))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&serveStatus, "status", true, "Serve the local status API")
	return cmd
}
