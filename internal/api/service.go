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

package api

import (
	"context"
	"errors"
	"fmt"

	"ecogarden-sync-go/internal/credits"
	"ecogarden-sync-go/internal/models"
	"ecogarden-sync-go/internal/store"

	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// Syncer is the part of the credits syncer the status API reads
type Syncer interface {
	UserId() int64
	Snapshot() models.CreditsSnapshot
	Garden() models.GardenStatus
	LastError() string
	Phase() credits.Phase
	Refresh(ctx context.Context) error
	History(ctx context.Context, limit int) ([]models.CreditLedgerEntry, error)
}

// StatusService provides the read side of the local status API
type StatusService struct {
	syncer Syncer
	cache  store.CacheStore
}

func NewStatusService(syncer Syncer, cache store.CacheStore) *StatusService {
	return &StatusService{
		syncer: syncer,
		cache:  cache,
	}
}

// SnapshotView is the snapshot plus the syncer's activity
type SnapshotView struct {
	models.CreditsSnapshot
	Phase     credits.Phase `json:"phase"`
	LastError string        `json:"last_error,omitempty"`
}

func (s *StatusService) HealthCheck(ctx context.Context) error {
	if _, err := s.cache.LatestRevision(ctx, s.syncer.UserId()); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("cache health check failed: %w", err)
	}
	return nil
}

func (s *StatusService) GetSnapshot() SnapshotView {
	return SnapshotView{
		CreditsSnapshot: s.syncer.Snapshot(),
		Phase:           s.syncer.Phase(),
		LastError:       s.syncer.LastError(),
	}
}

func (s *StatusService) GetGarden() models.GardenStatus {
	return s.syncer.Garden()
}

// GetHistory returns the most recent ledger entries
func (s *StatusService) GetHistory(ctx context.Context, limit int) ([]models.CreditLedgerEntry, error) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	entries, err := s.syncer.History(ctx, limit)
	if err != nil {
		zap.L().Error("Failed to get credit history", zap.Int64("user_id", s.syncer.UserId()), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve history")
	}
	return entries, nil
}

// Refresh forces a fetch and returns the resulting snapshot
func (s *StatusService) Refresh(ctx context.Context) (SnapshotView, error) {
	if err := s.syncer.Refresh(ctx); err != nil {
		return s.GetSnapshot(), err
	}
	return s.GetSnapshot(), nil
}
