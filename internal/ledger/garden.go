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

func (s *Service) FetchGardenStatus(ctx context.Context, userId int64) (*models.GardenStatus, error) {
	var response models.GardenStatusResponse
	if err := s.do(ctx, http.MethodGet, fmt.Sprintf("/api/credits/garden/%d", userId), nil, &response); err != nil {
		return nil, fmt.Errorf("unable to fetch garden status: %w", err)
	}

	status := &models.GardenStatus{
		LevelNumber:    response.LevelNumber,
		LevelName:      response.LevelName,
		ImagePath:      response.ImagePath,
		WatersCount:    response.WatersCount,
		TotalWaters:    response.TotalWaters,
		RequiredWaters: response.RequiredWaters,
		Status:         response.Status,
	}
	if status.LevelNumber < 1 {
		status.LevelNumber = 1
	}
	if status.LevelName == "" {
		status.LevelName = progression.StageName(status.LevelNumber)
	}
	if status.Status == "" {
		status.Status = progression.StatusInProgress
		if progression.IsCompleted(*status) {
			status.Status = progression.StatusCompleted
		}
	}

	return status, nil
}

// WaterGarden spends points to advance the garden. The reply carries no
// authoritative balance; callers must re-fetch balance and garden afterwards.
func (s *Service) WaterGarden(ctx context.Context, userId, pointsSpent int64) (*models.WaterResult, error) {
	zap.L().Info("Watering garden", zap.Int64("user_id", userId), zap.Int64("points_spent", pointsSpent))

	request := models.WaterRequest{
		UserId:      userId,
		PointsSpent: pointsSpent,
	}

	var response models.WaterResponse
	if err := s.do(ctx, http.MethodPost, "/api/credits/garden/water", request, &response); err != nil {
		return nil, fmt.Errorf("unable to water garden: %w", err)
	}

	if response.Success != nil && !*response.Success {
		msg := response.Message
		if msg == "" {
			msg = "watering rejected"
		}
		return nil, fmt.Errorf("unable to water garden: %w", &APIError{StatusCode: http.StatusOK, Message: msg})
	}

	zap.L().Info("Garden watered",
		zap.Int64("user_id", userId),
		zap.Int("waters_count", response.WatersCount),
		zap.Bool("level_up", response.LevelUp))

	return &models.WaterResult{
		Success:         true,
		Message:         response.Message,
		LevelUp:         response.LevelUp,
		NewLevel:        response.NewLevel,
		WatersCount:     response.WatersCount,
		RemainingPoints: response.RemainingPoints,
	}, nil
}

// FetchMobility returns up to limit logged trips, most recent first
func (s *Service) FetchMobility(ctx context.Context, userId int64, limit int) ([]models.MobilityLog, error) {
	path := fmt.Sprintf("/api/credits/mobility/%d", userId)
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}

	var response []models.MobilityLogResponse
	if err := s.do(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, fmt.Errorf("unable to fetch mobility logs: %w", err)
	}

	logs := make([]models.MobilityLog, len(response))
	for i, m := range response {
		logs[i] = models.MobilityLog{
			LogId:        m.LogId,
			Mode:         m.Mode,
			DistanceKm:   m.DistanceKm,
			CO2SavedG:    m.CO2SavedG,
			PointsEarned: m.PointsEarned,
			Description:  m.Description,
			StartedAt:    m.StartedAt.Time,
		}
	}
	return logs, nil
}
