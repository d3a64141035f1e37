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

package credits

import (
	"context"
	"errors"
	"sync"
	"time"

	"ecogarden-sync-go/internal/models"
	"ecogarden-sync-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrNoUser              = errors.New("no user selected")
	ErrUserChanged         = errors.New("user changed while the request was in flight")
)

// Phase is the coarse activity state of the syncer
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseFetching Phase = "fetching"
	PhaseMutating Phase = "mutating"
)

// Refresh triggers, used for logging and metrics labels
const (
	TriggerUserChange   = "user_change"
	TriggerManual       = "manual"
	TriggerPoll         = "poll"
	TriggerCrossProcess = "cross_process"
	TriggerWater        = "water"
	TriggerStaleRead    = "stale_read"
)

// SourceWriteConflict labels adoptions caused by a lost conditional write
const SourceWriteConflict = "write_conflict"

// Ledger is the backend surface the syncer drives
type Ledger interface {
	FetchBalance(ctx context.Context) (*models.Balance, error)
	AddCredits(ctx context.Context, userId, points int64, reason string) (*models.AddCreditsResult, error)
	UpdateCredits(ctx context.Context, userId, totalPoints int64) error
	CompleteChallenge(ctx context.Context, userId int64, c models.ChallengeCompletion) (*models.CompletionResult, error)
	CompleteActivity(ctx context.Context, userId int64, a models.ActivityCompletion) (*models.CompletionResult, error)
	FetchHistory(ctx context.Context, userId int64, limit int) ([]models.CreditLedgerEntry, error)
	FetchGardenStatus(ctx context.Context, userId int64) (*models.GardenStatus, error)
	WaterGarden(ctx context.Context, userId, pointsSpent int64) (*models.WaterResult, error)
	FetchMobility(ctx context.Context, userId int64, limit int) ([]models.MobilityLog, error)
}

// SyncerConfig contains configuration for Syncer
type SyncerConfig struct {
	Ledger           Ledger
	Cache            store.CacheStore
	WriterId         string
	PollInterval     time.Duration
	FreshnessWindow  time.Duration
	WaterSettleDelay time.Duration
	HistoryLimit     int
}

// Syncer is the single owner of a user's credit and garden aggregates in this
// process. It mirrors them to the shared cache and reconciles with the backend.
type Syncer struct {
	ledger   Ledger
	cache    store.CacheStore
	writerId string

	pollInterval     time.Duration
	freshnessWindow  time.Duration
	waterSettleDelay time.Duration
	historyLimit     int

	mu        sync.Mutex
	userId    int64
	epoch     uint64
	gen       uint64
	confirmed models.CreditsSnapshot
	pending   map[string]int64
	stale     bool
	asOf      time.Time
	garden    models.GardenStatus
	fetching  int
	mutating  int
	lastErr   string

	group singleflight.Group
	now   func() time.Time

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
	running  bool
}

func NewSyncer(cfg SyncerConfig) *Syncer {
	writerId := cfg.WriterId
	if writerId == "" {
		writerId = uuid.NewString()
	}
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 50
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Minute
	}

	return &Syncer{
		ledger:           cfg.Ledger,
		cache:            cfg.Cache,
		writerId:         writerId,
		pollInterval:     pollInterval,
		freshnessWindow:  cfg.FreshnessWindow,
		waterSettleDelay: cfg.WaterSettleDelay,
		historyLimit:     historyLimit,
		pending:          make(map[string]int64),
		stale:            true,
		now:              time.Now,
		stopChan:         make(chan struct{}),
		doneChan:         make(chan struct{}),
	}
}

// WriterId identifies this process's writes in the shared cache
func (s *Syncer) WriterId() string {
	return s.writerId
}

func (s *Syncer) UserId() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userId
}

// SetUser switches the syncer to userId and fetches its aggregates. Responses
// to requests issued for the previous user are discarded when they land.
func (s *Syncer) SetUser(ctx context.Context, userId int64) error {
	s.mu.Lock()
	s.userId = userId
	s.epoch++
	s.gen++
	s.pending = make(map[string]int64)
	s.stale = true
	s.asOf = time.Time{}
	s.garden = models.GardenStatus{}
	s.lastErr = ""
	s.confirmed = models.CreditsSnapshot{UserId: userId}
	s.mu.Unlock()

	zap.L().Info("Switching synced user", zap.Int64("user_id", userId))
	if userId == 0 {
		return nil
	}

	s.seedFromCache(ctx, userId)
	return s.refresh(ctx, TriggerUserChange)
}

// seedFromCache shows the last cached total until the first fetch lands
func (s *Syncer) seedFromCache(ctx context.Context, userId int64) {
	cached, err := s.cache.LoadSnapshot(ctx, userId)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			zap.L().Warn("Ignoring unreadable cached snapshot", zap.Int64("user_id", userId), zap.Error(err))
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userId != userId {
		return
	}
	s.confirmed.TotalCredits = cached.TotalCredits
	s.confirmed.TotalCarbonReducedKg = cached.TotalCarbonReducedKg
	s.confirmed.RecentEarned = cached.RecentEarned
	s.confirmed.LastUpdated = cached.UpdatedAt
	s.confirmed.Revision = cached.Revision
}

// Snapshot returns the current aggregate without touching the network
func (s *Syncer) Snapshot() models.CreditsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

// Garden returns the last fetched garden status
func (s *Syncer) Garden() models.GardenStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.garden
}

// LastError is the message of the most recent failure, empty after a success
func (s *Syncer) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Syncer) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.mutating > 0:
		return PhaseMutating
	case s.fetching > 0:
		return PhaseFetching
	default:
		return PhaseIdle
	}
}

// view materializes the snapshot: confirmed values plus in-flight patches.
// Callers hold s.mu.
func (s *Syncer) view() models.CreditsSnapshot {
	snap := s.confirmed
	for _, delta := range s.pending {
		snap.TotalCredits += delta
	}
	snap.AsOf = s.asOf
	switch {
	case len(s.pending) > 0:
		snap.State = models.SyncPending
	case s.stale:
		snap.State = models.SyncStale
	default:
		snap.State = models.SyncCommitted
	}
	return snap
}

// Start fetches if nothing has been confirmed yet and runs the periodic poll
// until Stop. A failed initial fetch is recorded but does not prevent polling.
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	if s.userId == 0 {
		s.mu.Unlock()
		return ErrNoUser
	}
	s.running = true
	userId := s.userId
	needsFetch := s.stale
	s.mu.Unlock()

	zap.L().Info("Starting credits syncer",
		zap.Int64("user_id", userId),
		zap.Duration("poll_interval", s.pollInterval),
		zap.Duration("freshness_window", s.freshnessWindow))

	if needsFetch {
		if err := s.refresh(ctx, TriggerManual); err != nil {
			zap.L().Warn("Initial refresh failed", zap.Error(err))
		}
	}

	go s.pollLoop(ctx)
	return nil
}

// Stop halts the poll loop and waits for it to exit
func (s *Syncer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	zap.L().Info("Stopping credits syncer")
	close(s.stopChan)
	<-s.doneChan
	zap.L().Info("Credits syncer stopped")
}

func (s *Syncer) pollLoop(ctx context.Context) {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.MaybeRefresh(ctx); err != nil {
				zap.L().Warn("Periodic refresh failed", zap.Error(err))
			}
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// sleep waits for d unless the syncer stops or ctx ends first
func (s *Syncer) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-s.stopChan:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}
