package credits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecogarden-sync-go/internal/ledger"
	"ecogarden-sync-go/internal/metrics"
	"ecogarden-sync-go/internal/models"
	"ecogarden-sync-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type fetchResult struct {
	balance    *models.Balance
	garden     *models.GardenStatus
	latestTrip *models.MobilityLog
}

// Refresh re-fetches balance, garden and the latest trip and replaces the
// snapshot wholesale. Concurrent calls share one round trip.
func (s *Syncer) Refresh(ctx context.Context) error {
	return s.refresh(ctx, TriggerManual)
}

// MaybeRefresh is the periodic poll. It is skipped while the shared cache was
// written within the freshness window, unless this process holds stale data.
func (s *Syncer) MaybeRefresh(ctx context.Context) error {
	s.mu.Lock()
	userId, stale := s.userId, s.stale
	s.mu.Unlock()

	if userId == 0 {
		return ErrNoUser
	}

	if !stale && s.freshnessWindow > 0 {
		cached, err := s.cache.LoadSnapshot(ctx, userId)
		switch {
		case err == nil && s.now().Sub(cached.UpdatedAt) < s.freshnessWindow:
			zap.L().Debug("Skipping poll, cache is fresh",
				zap.Int64("user_id", userId),
				zap.Time("cache_updated_at", cached.UpdatedAt))
			metrics.ObserveRefresh(TriggerPoll, metrics.OutcomeSkipped, 0)
			return nil
		case err != nil && !errors.Is(err, store.ErrNotFound):
			zap.L().Warn("Unreadable cached snapshot, polling anyway", zap.Error(err))
		}
	}

	return s.refresh(ctx, TriggerPoll)
}

// Current returns the snapshot, re-fetching first when it is stale
func (s *Syncer) Current(ctx context.Context) (models.CreditsSnapshot, error) {
	if err := s.ensureFresh(ctx); err != nil {
		return s.Snapshot(), err
	}
	return s.Snapshot(), nil
}

func (s *Syncer) ensureFresh(ctx context.Context) error {
	s.mu.Lock()
	userId := s.userId
	stale := s.stale && len(s.pending) == 0
	s.mu.Unlock()

	if userId == 0 {
		return ErrNoUser
	}
	if !stale {
		return nil
	}
	return s.refresh(ctx, TriggerStaleRead)
}

func (s *Syncer) refresh(ctx context.Context, trigger string) error {
	s.mu.Lock()
	userId, epoch, gen := s.userId, s.epoch, s.gen
	s.mu.Unlock()

	if userId == 0 {
		return ErrNoUser
	}

	key := fmt.Sprintf("%d/%d/%d", userId, epoch, gen)
	_, err, shared := s.group.Do(key, func() (any, error) {
		return nil, s.fetch(ctx, userId, epoch, trigger)
	})
	if shared {
		zap.L().Debug("Joined in-flight refresh", zap.String("trigger", trigger), zap.String("key", key))
	}
	return err
}

func (s *Syncer) fetch(ctx context.Context, userId int64, epoch uint64, trigger string) error {
	startedAt := s.now()
	req := &models.SyncRequest{
		RequestId: uuid.NewString(),
		Epoch:     epoch,
		Trigger:   trigger,
		StartedAt: startedAt,
	}
	ctx = models.WithSyncRequest(ctx, req)

	s.mu.Lock()
	s.fetching++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.fetching--
		s.mu.Unlock()
	}()

	zap.L().Debug("Refreshing credits",
		zap.String("request_id", req.RequestId),
		zap.Int64("user_id", userId),
		zap.String("trigger", trigger))

	var result fetchResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		balance, err := s.ledger.FetchBalance(gctx)
		if err != nil {
			return err
		}
		result.balance = balance
		return nil
	})
	g.Go(func() error {
		garden, err := s.ledger.FetchGardenStatus(gctx, userId)
		if err != nil {
			zap.L().Warn("Garden status unavailable", zap.Int64("user_id", userId), zap.Error(err))
			return nil
		}
		result.garden = garden
		return nil
	})
	g.Go(func() error {
		trips, err := s.ledger.FetchMobility(gctx, userId, 1)
		if err != nil {
			zap.L().Warn("Mobility log unavailable", zap.Int64("user_id", userId), zap.Error(err))
			return nil
		}
		if len(trips) > 0 {
			result.latestTrip = &trips[0]
		}
		return nil
	})

	err := g.Wait()
	elapsed := s.now().Sub(startedAt)
	if err != nil {
		s.mu.Lock()
		if s.epoch == epoch {
			s.lastErr = ledger.Message(err)
		}
		s.mu.Unlock()

		metrics.ObserveRefresh(trigger, metrics.OutcomeFailure, elapsed)
		zap.L().Error("Failed to refresh credits",
			zap.String("request_id", req.RequestId),
			zap.Int64("user_id", userId),
			zap.String("trigger", trigger),
			zap.Error(err))
		return err
	}

	s.mu.Lock()
	if reason := s.discardReason(epoch, startedAt); reason != "" {
		s.mu.Unlock()
		metrics.ObserveRefresh(trigger, metrics.OutcomeDiscarded, elapsed)
		zap.L().Debug("Discarding stale refresh",
			zap.String("request_id", req.RequestId),
			zap.Int64("user_id", userId),
			zap.String("reason", reason))
		return nil
	}

	recentEarned := result.balance.RecentEarned
	if result.latestTrip != nil {
		recentEarned = result.latestTrip.PointsEarned
	}
	lastUpdated := result.balance.LastUpdated
	if lastUpdated.IsZero() {
		lastUpdated = startedAt
	}

	s.confirmed = models.CreditsSnapshot{
		UserId:               userId,
		TotalCredits:         result.balance.TotalPoints,
		TotalCarbonReducedKg: result.balance.TotalCarbonReducedKg,
		RecentEarned:         recentEarned,
		LastUpdated:          lastUpdated,
		Revision:             s.confirmed.Revision,
	}
	s.stale = false
	s.asOf = startedAt
	s.lastErr = ""
	if result.garden != nil {
		s.garden = *result.garden
	}
	confirmed := s.confirmed
	level := s.garden.LevelNumber
	s.mu.Unlock()

	s.persist(ctx, confirmed)

	metrics.ObserveRefresh(trigger, metrics.OutcomeSuccess, elapsed)
	metrics.TotalCredits.Set(float64(confirmed.TotalCredits))
	metrics.GardenLevel.Set(float64(level))

	zap.L().Info("Credits refreshed",
		zap.String("request_id", req.RequestId),
		zap.Int64("user_id", userId),
		zap.String("trigger", trigger),
		zap.Int64("total_credits", confirmed.TotalCredits),
		zap.String("total_carbon_kg", confirmed.TotalCarbonReducedKg.String()),
		zap.Duration("elapsed", elapsed))
	return nil
}

// discardReason explains why a fetch result must not replace the snapshot, or
// returns "" when it may. Callers hold s.mu.
func (s *Syncer) discardReason(epoch uint64, startedAt time.Time) string {
	switch {
	case epoch != s.epoch:
		return "user changed"
	case len(s.pending) > 0:
		return "mutation in flight"
	case startedAt.Before(s.asOf):
		return "older than snapshot"
	default:
		return ""
	}
}

// persist mirrors the confirmed aggregate into the shared cache. Unchanged
// values are not rewritten so that processes adopting each other's writes
// settle instead of echoing. The write is conditional on the revision this
// process last saw; losing that race hands over to resolveConflict.
func (s *Syncer) persist(ctx context.Context, snap models.CreditsSnapshot) {
	cached, err := s.cache.LoadSnapshot(ctx, snap.UserId)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		zap.L().Warn("Unreadable cached snapshot, overwriting", zap.Int64("user_id", snap.UserId), zap.Error(err))
	}
	if err == nil &&
		cached.TotalCredits == snap.TotalCredits &&
		cached.RecentEarned == snap.RecentEarned &&
		cached.TotalCarbonReducedKg.Equal(snap.TotalCarbonReducedKg) {
		s.noteRevision(snap.UserId, cached.Revision)
		return
	}

	saved, err := s.cache.SaveSnapshot(ctx, store.SaveSnapshotParams{
		UserId:               snap.UserId,
		TotalCredits:         snap.TotalCredits,
		TotalCarbonReducedKg: snap.TotalCarbonReducedKg,
		RecentEarned:         snap.RecentEarned,
		WriterId:             s.writerId,
		UpdatedAt:            s.now(),
		ExpectedRevision:     snap.Revision,
	})
	if errors.Is(err, store.ErrConcurrentModification) {
		s.resolveConflict(ctx, snap.UserId, snap.Revision)
		return
	}
	if err != nil {
		zap.L().Warn("Failed to persist snapshot", zap.Int64("user_id", snap.UserId), zap.Error(err))
		return
	}

	s.noteRevision(saved.UserId, saved.Revision)
	metrics.SnapshotRevision.Set(float64(saved.Revision))
}

// resolveConflict runs when another process wrote the snapshot after the
// revision this one last saw. The stored revision is adopted and the backend
// re-fetched; that fetch writes on top of the adopted revision.
func (s *Syncer) resolveConflict(ctx context.Context, userId, expected int64) {
	latest, err := s.cache.LoadSnapshot(ctx, userId)
	if err != nil {
		zap.L().Warn("Unable to read snapshot after write conflict", zap.Int64("user_id", userId), zap.Error(err))
		return
	}

	zap.L().Info("Snapshot written by another process, reconciling",
		zap.Int64("user_id", userId),
		zap.Int64("expected_revision", expected),
		zap.Int64("revision", latest.Revision),
		zap.String("writer_id", latest.WriterId))

	s.mu.Lock()
	if s.userId == userId {
		s.stale = true
	}
	s.mu.Unlock()

	s.HandleCacheChange(ctx, models.CacheChange{
		UserId:       latest.UserId,
		Revision:     latest.Revision,
		TotalCredits: latest.TotalCredits,
		WriterId:     latest.WriterId,
		UpdatedAt:    latest.UpdatedAt,
		DetectedAt:   s.now(),
		Source:       SourceWriteConflict,
	})
}

func (s *Syncer) noteRevision(userId, revision int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userId == userId && revision > s.confirmed.Revision {
		s.confirmed.Revision = revision
	}
}

// HandleCacheChange adopts a total written by another process, then
// re-fetches to pull the matching carbon and garden figures.
func (s *Syncer) HandleCacheChange(ctx context.Context, change models.CacheChange) {
	s.mu.Lock()
	if change.UserId != s.userId || change.WriterId == s.writerId || change.Revision <= s.confirmed.Revision {
		s.mu.Unlock()
		return
	}

	previous := s.confirmed.TotalCredits
	s.confirmed.TotalCredits = change.TotalCredits
	s.confirmed.Revision = change.Revision
	s.confirmed.LastUpdated = change.UpdatedAt
	if s.confirmed.LastUpdated.IsZero() {
		s.confirmed.LastUpdated = s.now()
	}
	s.asOf = s.now()
	s.gen++
	s.mu.Unlock()

	metrics.Adoptions.WithLabelValues(change.Source).Inc()
	metrics.SnapshotRevision.Set(float64(change.Revision))
	zap.L().Info("Adopted total from another process",
		zap.Int64("user_id", change.UserId),
		zap.Int64("previous_total", previous),
		zap.Int64("total_credits", change.TotalCredits),
		zap.Int64("revision", change.Revision),
		zap.String("writer_id", change.WriterId))

	if err := s.refresh(ctx, TriggerCrossProcess); err != nil {
		zap.L().Warn("Reconciling fetch after adoption failed", zap.Error(err))
	}
}
