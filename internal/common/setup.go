package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"ecogarden-sync-go/internal/credits"
	"ecogarden-sync-go/internal/database"
	"ecogarden-sync-go/internal/ledger"
	"ecogarden-sync-go/internal/models"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// A missing .env is fine; variables can come from the shell
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

var ErrNoUser = errors.New("no user configured: set ECO_USER_ID or sign in first")

type Services struct {
	Config  *models.Config
	Cache   *database.Service
	Session *Session
	Ledger  *ledger.Service
	Syncer  *credits.Syncer
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the cache, builds the ledger client and selects
// the configured user on a new syncer. A failed first fetch is logged and
// leaves the syncer showing the cached snapshot.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	cache, err := database.NewService(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}

	session := NewSession(cache, cfg.Backend.AccessToken)

	ledgerService, err := ledger.NewService(cfg.Backend, session)
	if err != nil {
		cache.Close()
		return nil, err
	}

	userId, err := resolveUserId(ctx, cfg, session)
	if err != nil {
		cache.Close()
		return nil, err
	}

	syncer := credits.NewSyncer(credits.SyncerConfig{
		Ledger:           ledgerService,
		Cache:            cache,
		PollInterval:     cfg.Sync.PollInterval,
		FreshnessWindow:  cfg.Sync.FreshnessWindow,
		WaterSettleDelay: cfg.Sync.WaterSettleDelay,
		HistoryLimit:     cfg.Sync.HistoryLimit,
	})

	zap.L().Info("Selecting user",
		zap.Int64("user_id", userId),
		zap.String("backend", ledgerService.BaseURL()),
		zap.String("writer_id", syncer.WriterId()))
	if err := syncer.SetUser(ctx, userId); err != nil {
		zap.L().Warn("Initial fetch failed, showing cached values", zap.Error(err))
	}

	return &Services{
		Config:  cfg,
		Cache:   cache,
		Session: session,
		Ledger:  ledgerService,
		Syncer:  syncer,
	}, nil
}

// InitializeCacheOnly opens just the cache, for commands that never reach
// the backend
func InitializeCacheOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	cache, err := database.NewService(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return cache, nil
}

func (cs *Services) Close() {
	if cs.Syncer != nil {
		cs.Syncer.Stop()
	}
	if cs.Cache != nil {
		cs.Cache.Close()
	}
}

// resolveUserId prefers the configured id over the cached profile
func resolveUserId(ctx context.Context, cfg *models.Config, session *Session) (int64, error) {
	if cfg.Backend.UserId > 0 {
		return cfg.Backend.UserId, nil
	}
	profile, err := session.Profile(ctx)
	if err != nil || profile.Id == 0 {
		return 0, ErrNoUser
	}
	return profile.Id, nil
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
