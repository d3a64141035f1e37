package credits

import (
	"context"

	"ecogarden-sync-go/internal/ledger"
	"ecogarden-sync-go/internal/models"

	"go.uber.org/zap"
)

// History fetches the most recent ledger entries and mirrors them into the
// cache. When the backend is unreachable the cached copy is returned instead.
func (s *Syncer) History(ctx context.Context, limit int) ([]models.CreditLedgerEntry, error) {
	userId := s.UserId()
	if userId == 0 {
		return nil, ErrNoUser
	}
	if limit <= 0 {
		limit = s.historyLimit
	}

	entries, err := s.ledger.FetchHistory(ctx, userId, limit)
	if err != nil {
		cached, cacheErr := s.cache.LoadHistory(ctx, userId, limit)
		if cacheErr != nil || len(cached) == 0 {
			return nil, err
		}
		zap.L().Warn("Serving cached history",
			zap.Int64("user_id", userId),
			zap.String("reason", ledger.Message(err)),
			zap.Int("count", len(cached)))
		return cached, nil
	}

	if err := s.cache.ReplaceHistory(ctx, userId, entries, len(entries) < limit); err != nil {
		zap.L().Warn("Failed to cache history", zap.Int64("user_id", userId), zap.Error(err))
	}
	return entries, nil
}

// VerifyLedger refreshes the snapshot, pulls up to limit entries and checks
// that a complete history sums to the confirmed total. It returns false
// without error when the history is longer than limit.
func (s *Syncer) VerifyLedger(ctx context.Context, limit int) (bool, error) {
	if err := s.Refresh(ctx); err != nil {
		return false, err
	}
	if _, err := s.History(ctx, limit); err != nil {
		return false, err
	}
	return s.cache.VerifyHistory(ctx, s.UserId())
}
