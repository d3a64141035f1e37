/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"

	"ecogarden-sync-go/internal/models"
	"ecogarden-sync-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.CacheStore.
var _ store.CacheStore = (*Service)(nil)

type Service struct {
	db   *sql.DB
	path string
}

func NewService(ctx context.Context, cfg models.CacheConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("cache path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite cache", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("unable to open cache: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping cache: %w", err)
	}

	service := &Service{db: db, path: cfg.Path}
	if err := service.initSchema(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Cache service initialized successfully")
	return service, nil
}

// newServiceFromDB wraps an already-open handle. Used by tests running on :memory:.
func newServiceFromDB(ctx context.Context, db *sql.DB, path string) (*Service, error) {
	service := &Service{db: db, path: path}
	if err := service.initSchema(ctx); err != nil {
		return nil, err
	}
	return service, nil
}

func (s *Service) Path() string {
	return s.path
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close cache connection", zap.Error(err))
	}
}

func (s *Service) initSchema(ctx context.Context) error {
	schema := `
	-- Snapshot Table (one versioned record per user)
	CREATE TABLE IF NOT EXISTS credit_snapshots (
		user_id INTEGER PRIMARY KEY,
		total_credits INTEGER NOT NULL DEFAULT 0,
		total_carbon_kg TEXT NOT NULL DEFAULT '0',
		recent_earned INTEGER NOT NULL DEFAULT 0,
		revision INTEGER NOT NULL DEFAULT 1,
		writer_id TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP NOT NULL
	);

	-- Cached ledger history (mirror of the server's append-only ledger)
	CREATE TABLE IF NOT EXISTS credit_history (
		user_id INTEGER NOT NULL,
		entry_id INTEGER NOT NULL,
		entry_type TEXT NOT NULL DEFAULT '',
		points INTEGER NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		cached_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, entry_id)
	);

	CREATE INDEX IF NOT EXISTS idx_credit_history_user_created ON credit_history(user_id, created_at);

	-- Whether the cached history holds every entry of the user
	CREATE TABLE IF NOT EXISTS credit_history_state (
		user_id INTEGER PRIMARY KEY,
		complete BOOLEAN NOT NULL DEFAULT 0,
		entry_count INTEGER NOT NULL DEFAULT 0,
		cached_at TIMESTAMP NOT NULL
	);

	-- Small string values: access token, cached profile, onboarding marker
	CREATE TABLE IF NOT EXISTS kv_store (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}
