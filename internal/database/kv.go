package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ecogarden-sync-go/internal/store"
)

func (s *Service) GetValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, queryGetValue, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

func (s *Service) SetValue(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, queryUpsertValue, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *Service) DeleteValue(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, queryDeleteValue, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
