package credits

import (
	"context"
	"errors"
	"fmt"

	"ecogarden-sync-go/internal/ledger"
	"ecogarden-sync-go/internal/metrics"
	"ecogarden-sync-go/internal/models"

	"go.uber.org/zap"
)

// CompleteChallenge credits a finished challenge through the backend's
// completion endpoint. The points are patched in optimistically like Earn.
func (s *Syncer) CompleteChallenge(ctx context.Context, c models.ChallengeCompletion) (models.CompletionResult, error) {
	if c.ChallengeId == "" {
		return models.CompletionResult{}, errors.New("challenge id is required")
	}
	if c.Points <= 0 {
		return models.CompletionResult{}, fmt.Errorf("challenge points must be positive, got %d", c.Points)
	}
	if c.ChallengeType == "" {
		c.ChallengeType = "daily"
	}

	var result *models.CompletionResult
	_, err := s.mutate(ctx, opChallenge, c.Points, func(ctx context.Context, userId int64) error {
		var err error
		result, err = s.ledger.CompleteChallenge(ctx, userId, c)
		return err
	})
	if err != nil {
		return models.CompletionResult{}, err
	}

	zap.L().Info("Challenge completed",
		zap.String("challenge_id", c.ChallengeId),
		zap.Int64("points", c.Points))
	return *result, nil
}

// CompleteActivity credits a finished low-carbon activity. The carbon figure
// is left to the next fetch, which reads it from the mobility log.
func (s *Syncer) CompleteActivity(ctx context.Context, a models.ActivityCompletion) (models.CompletionResult, error) {
	if a.ActivityType == "" {
		return models.CompletionResult{}, errors.New("activity type is required")
	}
	if a.Points <= 0 {
		return models.CompletionResult{}, fmt.Errorf("activity points must be positive, got %d", a.Points)
	}
	if a.DistanceKm.IsNegative() || a.CarbonSavedKg.IsNegative() {
		return models.CompletionResult{}, errors.New("distance and carbon saved cannot be negative")
	}

	var result *models.CompletionResult
	_, err := s.mutate(ctx, opActivity, a.Points, func(ctx context.Context, userId int64) error {
		var err error
		result, err = s.ledger.CompleteActivity(ctx, userId, a)
		return err
	})
	if err != nil {
		return models.CompletionResult{}, err
	}

	zap.L().Info("Activity completed",
		zap.String("activity_type", a.ActivityType),
		zap.Int64("points", a.Points))
	return *result, nil
}

// UpdateCredits sets the total to an absolute value. It is not patched in
// optimistically; the new total is confirmed once the backend accepts it.
func (s *Syncer) UpdateCredits(ctx context.Context, total int64) error {
	if total < 0 {
		return fmt.Errorf("credit total cannot be negative, got %d", total)
	}

	s.mu.Lock()
	userId := s.userId
	if userId == 0 {
		s.mu.Unlock()
		return ErrNoUser
	}
	s.mutating++
	s.lastErr = ""
	epoch := s.epoch
	s.mu.Unlock()

	err := s.ledger.UpdateCredits(ctx, userId, total)

	s.mu.Lock()
	s.mutating--
	if epoch != s.epoch {
		s.mu.Unlock()
		return err
	}
	if err != nil {
		s.stale = true
		s.lastErr = ledger.Message(err)
		s.mu.Unlock()

		metrics.Mutations.WithLabelValues(opUpdate, metrics.OutcomeFailure).Inc()
		zap.L().Error("Credit total update failed", zap.Int64("user_id", userId), zap.Int64("total", total), zap.Error(err))
		return err
	}

	previous := s.confirmed.TotalCredits
	s.confirmed.TotalCredits = total
	s.confirmed.LastUpdated = s.now()
	s.asOf = s.now()
	s.gen++
	// patches still in flight were counted against the old total
	s.stale = len(s.pending) > 0
	confirmed := s.confirmed
	s.mu.Unlock()

	s.persist(ctx, confirmed)
	metrics.Mutations.WithLabelValues(opUpdate, metrics.OutcomeSuccess).Inc()
	metrics.TotalCredits.Set(float64(total))
	zap.L().Info("Credit total updated",
		zap.Int64("user_id", userId),
		zap.Int64("previous_total", previous),
		zap.Int64("total_credits", total))
	return nil
}
