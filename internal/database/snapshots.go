package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ecogarden-sync-go/internal/models"
	"ecogarden-sync-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LoadSnapshot returns the cached aggregate for a user or store.ErrNotFound
func (s *Service) LoadSnapshot(ctx context.Context, userId int64) (*models.CachedSnapshot, error) {
	var snap models.CachedSnapshot
	var carbonStr string
	err := s.db.QueryRowContext(ctx, queryGetSnapshot, userId).Scan(
		&snap.UserId, &snap.TotalCredits, &carbonStr, &snap.RecentEarned,
		&snap.Revision, &snap.WriterId, &snap.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		zap.L().Error("Failed to load snapshot", zap.Int64("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	snap.TotalCarbonReducedKg, err = decimal.NewFromString(carbonStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse carbon total '%s': %w", carbonStr, err)
	}

	return &snap, nil
}

// SaveSnapshot writes a new revision. With ExpectedRevision set the write only
// succeeds if the stored revision still matches.
func (s *Service) SaveSnapshot(ctx context.Context, params store.SaveSnapshotParams) (*models.CachedSnapshot, error) {
	updatedAt := params.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	updatedAt = updatedAt.UTC()

	var revision int64
	var err error
	if params.ExpectedRevision > 0 {
		err = s.db.QueryRowContext(ctx, queryCompareAndSwapSnapshot,
			params.TotalCredits, params.TotalCarbonReducedKg.String(), params.RecentEarned,
			params.WriterId, updatedAt, params.UserId, params.ExpectedRevision).Scan(&revision)
		if errors.Is(err, sql.ErrNoRows) {
			zap.L().Warn("Snapshot revision moved underneath writer",
				zap.Int64("user_id", params.UserId),
				zap.Int64("expected_revision", params.ExpectedRevision),
				zap.String("writer_id", params.WriterId))
			return nil, fmt.Errorf("snapshot for user %d: %w", params.UserId, store.ErrConcurrentModification)
		}
	} else {
		err = s.db.QueryRowContext(ctx, queryUpsertSnapshot,
			params.UserId, params.TotalCredits, params.TotalCarbonReducedKg.String(),
			params.RecentEarned, params.WriterId, updatedAt).Scan(&revision)
	}
	if err != nil {
		zap.L().Error("Failed to save snapshot", zap.Int64("user_id", params.UserId), zap.Error(err))
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}

	zap.L().Debug("Saved snapshot",
		zap.Int64("user_id", params.UserId),
		zap.Int64("total_credits", params.TotalCredits),
		zap.Int64("revision", revision))

	return &models.CachedSnapshot{
		UserId:               params.UserId,
		TotalCredits:         params.TotalCredits,
		TotalCarbonReducedKg: params.TotalCarbonReducedKg,
		RecentEarned:         params.RecentEarned,
		Revision:             revision,
		WriterId:             params.WriterId,
		UpdatedAt:            updatedAt,
	}, nil
}

// LatestRevision returns 0 when nothing has been cached for the user yet
func (s *Service) LatestRevision(ctx context.Context, userId int64) (int64, error) {
	var revision int64
	err := s.db.QueryRowContext(ctx, queryGetRevision, userId).Scan(&revision)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read revision: %w", err)
	}
	return revision, nil
}
