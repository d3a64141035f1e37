package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ecogarden-sync-go/internal/models"
	"ecogarden-sync-go/internal/store"

	"go.uber.org/zap"
)

// ReplaceHistory swaps the cached history of a user for entries in one transaction.
// complete records whether entries is the full ledger or only its most recent page.
func (s *Service) ReplaceHistory(ctx context.Context, userId int64, entries []models.CreditLedgerEntry, complete bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			zap.L().Warn("Failed to rollback history transaction", zap.Error(rbErr))
		}
	}()

	if _, err := tx.ExecContext(ctx, queryDeleteHistory, userId); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, queryInsertHistoryEntry)
	if err != nil {
		return fmt.Errorf("failed to prepare history insert: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		if err := stmt.Close(); err != nil {
			zap.L().Warn("Failed to close statement", zap.Error(err))
		}
	}(stmt)

	now := time.Now().UTC()
	for _, entry := range entries {
		if _, err := stmt.ExecContext(ctx, userId, entry.Id, entry.Type, entry.Points,
			entry.Reason, entry.CreatedAt.UTC(), now); err != nil {
			return fmt.Errorf("failed to insert history entry %d: %w", entry.Id, err)
		}
	}

	if _, err := tx.ExecContext(ctx, queryUpsertHistoryState, userId, complete, len(entries), now); err != nil {
		return fmt.Errorf("failed to update history state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history: %w", err)
	}

	zap.L().Debug("Replaced cached history",
		zap.Int64("user_id", userId),
		zap.Int("count", len(entries)),
		zap.Bool("complete", complete))
	return nil
}

// LoadHistory returns cached entries newest first
func (s *Service) LoadHistory(ctx context.Context, userId int64, limit int) ([]models.CreditLedgerEntry, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, queryGetHistory, userId, limit)
	if err != nil {
		zap.L().Error("Failed to load history", zap.Int64("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var entries []models.CreditLedgerEntry
	for rows.Next() {
		var entry models.CreditLedgerEntry
		if err := rows.Scan(&entry.Id, &entry.Type, &entry.Points, &entry.Reason, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during history row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}

	return entries, nil
}

// VerifyHistory checks that a complete cached history sums to the cached total.
// It returns false without error when the cached history is only a partial page
// and therefore cannot be checked.
func (s *Service) VerifyHistory(ctx context.Context, userId int64) (bool, error) {
	zap.L().Info("Verifying cached history", zap.Int64("user_id", userId))

	snap, err := s.LoadSnapshot(ctx, userId)
	if err != nil {
		return false, err
	}

	var complete bool
	err = s.db.QueryRowContext(ctx, queryGetHistoryState, userId).Scan(&complete)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read history state: %w", err)
	}
	if !complete {
		zap.L().Debug("Cached history is partial, skipping verification", zap.Int64("user_id", userId))
		return false, nil
	}

	var sum int64
	if err := s.db.QueryRowContext(ctx, querySumHistory, userId).Scan(&sum); err != nil {
		return false, fmt.Errorf("failed to sum history: %w", err)
	}

	if sum != snap.TotalCredits {
		zap.L().Error("History verification failed",
			zap.Int64("user_id", userId),
			zap.Int64("cached_total", snap.TotalCredits),
			zap.Int64("history_sum", sum),
			zap.Int64("difference", snap.TotalCredits-sum))
		return false, fmt.Errorf("cached=%d, summed=%d: %w", snap.TotalCredits, sum, store.ErrHistoryMismatch)
	}

	zap.L().Info("History verification successful",
		zap.Int64("user_id", userId),
		zap.Int64("total_credits", sum))
	return true, nil
}
