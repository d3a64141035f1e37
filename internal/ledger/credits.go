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

package ledger

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"ecogarden-sync-go/internal/models"
	"ecogarden-sync-go/internal/progression"

	"go.uber.org/zap"
)

// FetchBalance returns the balance of the user the access token belongs to
func (s *Service) FetchBalance(ctx context.Context) (*models.Balance, error) {
	var response models.BalanceResponse
	if err := s.do(ctx, http.MethodGet, "/api/credits/balance", nil, &response); err != nil {
		return nil, fmt.Errorf("unable to fetch balance: %w", err)
	}

	return &models.Balance{
		UserId:               response.UserId,
		TotalPoints:          response.TotalPoints,
		RecentEarned:         response.RecentEarned,
		TotalCarbonReducedKg: progression.GramsToKg(response.TotalCarbonReducedG),
		LastUpdated:          response.LastUpdated.Time,
	}, nil
}

// AddCredits appends a signed entry to the user's ledger. A reply of
// success=false is a rejection even when the status code is 200.
func (s *Service) AddCredits(ctx context.Context, userId, points int64, reason string) (*models.AddCreditsResult, error) {
	zap.L().Info("Adding credits",
		zap.Int64("user_id", userId),
		zap.Int64("points", points),
		zap.String("reason", reason))

	request := models.AddCreditsRequest{
		UserId: userId,
		Points: points,
		Reason: reason,
	}

	var response models.ErrorResponse
	if err := s.do(ctx, http.MethodPost, "/api/credits/add", request, &response); err != nil {
		return nil, fmt.Errorf("unable to add credits: %w", err)
	}

	if response.Success != nil && !*response.Success {
		return nil, fmt.Errorf("unable to add credits: %w", rejection(response.Message, "credit update rejected"))
	}

	return &models.AddCreditsResult{Success: true, Message: response.Message}, nil
}

// FetchHistory returns up to limit ledger entries, most recent first
func (s *Service) FetchHistory(ctx context.Context, userId int64, limit int) ([]models.CreditLedgerEntry, error) {
	path := fmt.Sprintf("/api/credits/history/%d", userId)
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}

	var response []models.HistoryEntryResponse
	if err := s.do(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, fmt.Errorf("unable to fetch history: %w", err)
	}

	entries := make([]models.CreditLedgerEntry, len(response))
	for i, e := range response {
		entries[i] = models.CreditLedgerEntry{
			Id:        e.EntryId,
			Type:      e.Type,
			Points:    e.Points,
			Reason:    e.Reason,
			CreatedAt: e.CreatedAt.Time,
		}
	}

	zap.L().Debug("Fetched credit history", zap.Int64("user_id", userId), zap.Int("count", len(entries)))
	return entries, nil
}

// UpdateCredits sets the user's total to totalPoints. The backend books the
// difference as a single MANUAL_UPDATE entry.
func (s *Service) UpdateCredits(ctx context.Context, userId, totalPoints int64) error {
	zap.L().Info("Updating credit total",
		zap.Int64("user_id", userId),
		zap.Int64("total_points", totalPoints))

	path := "/api/credits/update?" + url.Values{"total_points": {strconv.FormatInt(totalPoints, 10)}}.Encode()
	request := models.UpdateCreditsRequest{TotalPoints: totalPoints}

	var response models.ErrorResponse
	if err := s.do(ctx, http.MethodPost, path, request, &response); err != nil {
		return fmt.Errorf("unable to update credits: %w", err)
	}
	if response.Success != nil && !*response.Success {
		return fmt.Errorf("unable to update credits: %w", rejection(response.Message, "credit total update rejected"))
	}
	return nil
}

// CompleteChallenge credits a finished challenge
func (s *Service) CompleteChallenge(ctx context.Context, userId int64, c models.ChallengeCompletion) (*models.CompletionResult, error) {
	zap.L().Info("Completing challenge",
		zap.Int64("user_id", userId),
		zap.String("challenge_id", c.ChallengeId),
		zap.Int64("points", c.Points))

	request := models.CompleteChallengeRequest{
		UserId:        userId,
		ChallengeId:   c.ChallengeId,
		ChallengeType: c.ChallengeType,
		Points:        c.Points,
		ChallengeName: c.Name,
	}

	var response models.CompletionResponse
	if err := s.do(ctx, http.MethodPost, "/api/credits/challenge/complete", request, &response); err != nil {
		return nil, fmt.Errorf("unable to complete challenge: %w", err)
	}
	if response.Success != nil && !*response.Success {
		return nil, fmt.Errorf("unable to complete challenge: %w", rejection(response.Message, "challenge completion rejected"))
	}

	return &models.CompletionResult{Message: response.Message, PointsEarned: response.PointsEarned}, nil
}

// CompleteActivity credits a finished low-carbon activity
func (s *Service) CompleteActivity(ctx context.Context, userId int64, a models.ActivityCompletion) (*models.CompletionResult, error) {
	zap.L().Info("Completing activity",
		zap.Int64("user_id", userId),
		zap.String("activity_type", a.ActivityType),
		zap.Int64("points", a.Points))

	request := models.CompleteActivityRequest{
		UserId:       userId,
		ActivityType: a.ActivityType,
		Distance:     a.DistanceKm.InexactFloat64(),
		CarbonSaved:  a.CarbonSavedKg.InexactFloat64(),
		Points:       a.Points,
		Route:        a.Route,
	}

	var response models.CompletionResponse
	if err := s.do(ctx, http.MethodPost, "/api/credits/activity/complete", request, &response); err != nil {
		return nil, fmt.Errorf("unable to complete activity: %w", err)
	}
	if response.Success != nil && !*response.Success {
		return nil, fmt.Errorf("unable to complete activity: %w", rejection(response.Message, "activity completion rejected"))
	}

	return &models.CompletionResult{Message: response.Message, PointsEarned: response.PointsEarned}, nil
}

// rejection is the error for a 200 reply carrying success=false
func rejection(message, fallback string) *APIError {
	if message == "" {
		message = fallback
	}
	zap.L().Warn("Backend rejected request", zap.String("message", message))
	return &APIError{StatusCode: http.StatusOK, Message: message}
}
