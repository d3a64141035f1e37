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
	"fmt"

	"ecogarden-sync-go/internal/ledger"
	"ecogarden-sync-go/internal/metrics"
	"ecogarden-sync-go/internal/models"
	"ecogarden-sync-go/internal/progression"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultWaterCost is the points spent per watering when none is given
const DefaultWaterCost = 10

const (
	opAdd       = "add"
	opWater     = "water"
	opUpdate    = "update"
	opChallenge = "challenge"
	opActivity  = "activity"
)

var activityReasons = map[string]string{
	progression.ActivityTransit:     "Public transit",
	progression.ActivityBike:        "Cycling",
	progression.ActivityWalk:        "Walking",
	progression.ActivityEnergySave:  "Energy saving",
	progression.ActivityEcoActivity: "Eco-friendly activity",
}

// ActivityReason is the ledger reason recorded for an activity
func ActivityReason(activity string) string {
	if reason, ok := activityReasons[activity]; ok {
		return reason
	}
	return "Environment-friendly activity"
}

// available is the spendable total: confirmed credits minus spends still in
// flight. Pending earns are not counted. Callers hold s.mu.
func (s *Syncer) available() int64 {
	total := s.confirmed.TotalCredits
	for _, delta := range s.pending {
		if delta < 0 {
			total += delta
		}
	}
	return total
}

// applyPatch records an optimistic delta and returns its id. Callers hold s.mu.
func (s *Syncer) applyPatch(delta int64) string {
	id := uuid.NewString()
	s.pending[id] = delta
	s.mutating++
	s.asOf = s.now()
	s.gen++
	s.lastErr = ""
	return id
}

// settlePatch drops a patch once its server call returned. Callers hold s.mu.
func (s *Syncer) settlePatch(id string) {
	s.mutating--
	delete(s.pending, id)
}

func (s *Syncer) reject(op string, balance, delta int64) error {
	s.lastErr = ErrInsufficientCredits.Error()
	metrics.Rejections.WithLabelValues(op).Inc()
	zap.L().Warn("Rejected mutation before sending",
		zap.String("operation", op),
		zap.Int64("user_id", s.userId),
		zap.Int64("balance", balance),
		zap.Int64("delta", delta))
	return fmt.Errorf("%w: balance %d, change %d", ErrInsufficientCredits, balance, delta)
}

// precheck rejects a spend the last server-confirmed total already cannot
// cover, before any network call. A user whose total was never confirmed
// (only seeded from the cache) is not prechecked.
func (s *Syncer) precheck(op string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userId == 0 || s.asOf.IsZero() {
		return nil
	}
	if balance := s.available(); balance+delta < 0 {
		return s.reject(op, balance, delta)
	}
	return nil
}

// AddCredits appends a signed delta to the ledger. A delta that would take
// the balance below zero is rejected without any network call or state change.
// A stale snapshot is re-fetched before a spend, but only once the spend
// passes the check against the last confirmed total.
// On success the patch is kept and mirrored to the cache; on failure it is
// reverted and the snapshot is marked stale until the next fetch.
func (s *Syncer) AddCredits(ctx context.Context, delta int64, reason string) (*models.AddCreditsResult, error) {
	result, _, err := s.addCredits(ctx, delta, reason)
	return result, err
}

// addCredits also returns the user epoch the mutation was issued under
func (s *Syncer) addCredits(ctx context.Context, delta int64, reason string) (*models.AddCreditsResult, uint64, error) {
	var result *models.AddCreditsResult
	epoch, err := s.mutate(ctx, opAdd, delta, func(ctx context.Context, userId int64) error {
		var err error
		result, err = s.ledger.AddCredits(ctx, userId, delta, reason)
		return err
	})
	return result, epoch, err
}

// mutate applies delta as an optimistic patch, runs send, and then either
// commits the delta to the confirmed total or reverts it and marks the
// snapshot stale. It returns the user epoch the mutation was issued under;
// when the user changed meanwhile, nothing is committed or reverted.
func (s *Syncer) mutate(ctx context.Context, op string, delta int64, send func(ctx context.Context, userId int64) error) (uint64, error) {
	if delta < 0 {
		if err := s.precheck(op, delta); err != nil {
			return 0, err
		}
		if err := s.ensureFresh(ctx); err != nil {
			return 0, err
		}
	}

	s.mu.Lock()
	userId := s.userId
	if userId == 0 {
		s.mu.Unlock()
		return 0, ErrNoUser
	}
	if balance := s.available(); balance+delta < 0 {
		err := s.reject(op, balance, delta)
		s.mu.Unlock()
		return 0, err
	}
	mutationId := s.applyPatch(delta)
	epoch := s.epoch
	s.mu.Unlock()

	err := send(ctx, userId)

	s.mu.Lock()
	s.settlePatch(mutationId)
	if epoch != s.epoch {
		s.mu.Unlock()
		return epoch, err
	}
	if err != nil {
		s.stale = true
		s.lastErr = ledger.Message(err)
		s.mu.Unlock()

		metrics.Mutations.WithLabelValues(op, metrics.OutcomeFailure).Inc()
		zap.L().Error("Credit mutation failed, reverted to last confirmed total",
			zap.String("operation", op),
			zap.Int64("user_id", userId),
			zap.Int64("delta", delta),
			zap.Error(err))
		return epoch, err
	}

	s.confirmed.TotalCredits += delta
	if delta > 0 {
		s.confirmed.RecentEarned = delta
	}
	s.confirmed.LastUpdated = s.now()
	confirmed := s.confirmed
	s.mu.Unlock()

	s.persist(ctx, confirmed)
	metrics.Mutations.WithLabelValues(op, metrics.OutcomeSuccess).Inc()
	metrics.TotalCredits.Set(float64(confirmed.TotalCredits))
	return epoch, nil
}

// Earn adds a positive amount of credits
func (s *Syncer) Earn(ctx context.Context, points int64, reason string) (*models.AddCreditsResult, error) {
	if points <= 0 {
		return nil, fmt.Errorf("earned points must be positive, got %d", points)
	}
	return s.AddCredits(ctx, points, reason)
}

// Spend removes a positive amount of credits
func (s *Syncer) Spend(ctx context.Context, points int64, reason string) (*models.AddCreditsResult, error) {
	if points <= 0 {
		return nil, fmt.Errorf("spent points must be positive, got %d", points)
	}
	return s.AddCredits(ctx, -points, reason)
}

// SpendCredits satisfies the shop's Spender
func (s *Syncer) SpendCredits(ctx context.Context, points int64, reason string) error {
	_, err := s.Spend(ctx, points, reason)
	return err
}

// UpdateChallengeProgress credits an eco activity: floor(kg*100) credits for
// the activity's carbon saving, which is also added to the carbon total until
// the next fetch replaces it.
func (s *Syncer) UpdateChallengeProgress(ctx context.Context, activity string) (int64, error) {
	kg := progression.ActivityCarbon(activity)
	earned := progression.CreditsForCarbonKg(kg)

	_, epoch, err := s.addCredits(ctx, earned, ActivityReason(activity))
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		zap.L().Info("User changed during challenge update, carbon left to the next fetch",
			zap.String("activity", activity),
			zap.Int64("credits", earned))
		return earned, nil
	}
	s.confirmed.TotalCarbonReducedKg = s.confirmed.TotalCarbonReducedKg.Add(kg)
	s.confirmed.LastUpdated = s.now()
	confirmed := s.confirmed
	s.mu.Unlock()

	s.persist(ctx, confirmed)

	zap.L().Info("Challenge progress updated",
		zap.String("activity", activity),
		zap.Int64("credits", earned),
		zap.String("carbon_kg", kg.String()))
	return earned, nil
}

// WaterGarden spends points on the garden. The reply carries no balance, so
// a successful watering is always followed by a full re-fetch; until that
// lands the snapshot is stale.
func (s *Syncer) WaterGarden(ctx context.Context, pointsSpent int64) (models.WaterResult, error) {
	if pointsSpent <= 0 {
		pointsSpent = DefaultWaterCost
	}
	if err := s.precheck(opWater, -pointsSpent); err != nil {
		return models.WaterResult{Success: false, Message: ErrInsufficientCredits.Error()}, err
	}
	if err := s.ensureFresh(ctx); err != nil {
		return models.WaterResult{Success: false, Message: ledger.Message(err)}, err
	}

	s.mu.Lock()
	userId := s.userId
	if userId == 0 {
		s.mu.Unlock()
		return models.WaterResult{Success: false, Message: ErrNoUser.Error()}, ErrNoUser
	}
	if balance := s.available(); balance < pointsSpent {
		err := s.reject(opWater, balance, -pointsSpent)
		s.mu.Unlock()
		return models.WaterResult{Success: false, Message: ErrInsufficientCredits.Error()}, err
	}
	before := s.garden
	mutationId := s.applyPatch(-pointsSpent)
	epoch := s.epoch
	s.mu.Unlock()

	result, err := s.ledger.WaterGarden(ctx, userId, pointsSpent)

	s.mu.Lock()
	s.settlePatch(mutationId)
	if epoch != s.epoch {
		s.mu.Unlock()
		return models.WaterResult{Success: false, Message: ErrUserChanged.Error()}, ErrUserChanged
	}
	if err != nil {
		msg := ledger.Message(err)
		s.stale = true
		s.lastErr = msg
		s.mu.Unlock()

		metrics.Mutations.WithLabelValues(opWater, metrics.OutcomeFailure).Inc()
		zap.L().Error("Watering failed", zap.Int64("user_id", userId), zap.Error(err))
		return models.WaterResult{Success: false, Message: msg}, err
	}
	s.stale = true
	s.gen++
	s.mu.Unlock()

	metrics.Mutations.WithLabelValues(opWater, metrics.OutcomeSuccess).Inc()

	if err := s.sleep(ctx, s.waterSettleDelay); err != nil {
		zap.L().Warn("Post-water refresh abandoned", zap.Error(err))
	} else if err := s.refresh(ctx, TriggerWater); err != nil {
		zap.L().Warn("Post-water refresh failed, snapshot left stale", zap.Error(err))
	} else if after := s.Garden(); before.LevelNumber > 0 && !progression.ConsistentAfterWater(before, after) {
		zap.L().Warn("Garden state after watering does not follow the previous state",
			zap.Int("level_before", before.LevelNumber),
			zap.Int("waters_before", before.WatersCount),
			zap.Int("level_after", after.LevelNumber),
			zap.Int("waters_after", after.WatersCount))
	}

	out := *result
	if out.Message == "" {
		out.Message = "The garden has been watered!"
	}
	return out, nil
}
