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

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Wire types for the REST backend. Field names follow the backend's JSON.

// BalanceResponse is returned by GET /api/credits/balance
type BalanceResponse struct {
	UserId              int64           `json:"user_id"`
	TotalPoints         int64           `json:"total_points"`
	RecentEarned        int64           `json:"recent_earned"`
	LastUpdated         APITime         `json:"last_updated"`
	TotalCarbonReducedG decimal.Decimal `json:"total_carbon_reduced_g"`
}

// AddCreditsRequest is the body of POST /api/credits/add
type AddCreditsRequest struct {
	UserId int64  `json:"user_id"`
	Points int64  `json:"points"`
	Reason string `json:"reason"`
}

// UpdateCreditsRequest is the body of POST /api/credits/update. The backend
// also accepts total_points as a query parameter.
type UpdateCreditsRequest struct {
	TotalPoints int64 `json:"total_points"`
}

// CompleteChallengeRequest is the body of POST /api/credits/challenge/complete
type CompleteChallengeRequest struct {
	UserId        int64  `json:"user_id"`
	ChallengeId   string `json:"challenge_id"`
	ChallengeType string `json:"challenge_type"`
	Points        int64  `json:"points"`
	ChallengeName string `json:"challenge_name"`
}

// CompleteActivityRequest is the body of POST /api/credits/activity/complete
type CompleteActivityRequest struct {
	UserId       int64   `json:"user_id"`
	ActivityType string  `json:"activity_type"`
	Distance     float64 `json:"distance"`
	CarbonSaved  float64 `json:"carbon_saved"`
	Points       int64   `json:"points"`
	Route        string  `json:"route"`
}

// CompletionResponse is returned by both completion endpoints
type CompletionResponse struct {
	Success      *bool  `json:"success"`
	Message      string `json:"message"`
	PointsEarned int64  `json:"points_earned"`
}

// HistoryEntryResponse is one element of GET /api/credits/history/{userId}
type HistoryEntryResponse struct {
	EntryId   int64   `json:"entry_id"`
	Type      string  `json:"type"`
	Points    int64   `json:"points"`
	Reason    string  `json:"reason"`
	CreatedAt APITime `json:"created_at"`
}

// GardenStatusResponse is returned by GET /api/credits/garden/{userId}
type GardenStatusResponse struct {
	UserId             int64           `json:"user_id"`
	LevelNumber        int             `json:"level_number"`
	LevelName          string          `json:"level_name"`
	ImagePath          string          `json:"image_path"`
	WatersCount        int             `json:"waters_count"`
	TotalWaters        int             `json:"total_waters"`
	RequiredWaters     int             `json:"required_waters"`
	Status             string          `json:"status"`
	TotalCarbonReduced decimal.Decimal `json:"total_carbon_reduced"`
}

// WaterRequest is the body of POST /api/credits/garden/water
type WaterRequest struct {
	UserId      int64 `json:"user_id"`
	PointsSpent int64 `json:"points_spent"`
}

// WaterResponse is returned by POST /api/credits/garden/water
type WaterResponse struct {
	Success         *bool  `json:"success"`
	Message         string `json:"message"`
	WatersCount     int    `json:"waters_count"`
	TotalWaters     int    `json:"total_waters"`
	LevelUp         bool   `json:"level_up"`
	NewLevel        string `json:"new_level"`
	PointsSpent     int64  `json:"points_spent"`
	RemainingPoints int64  `json:"remaining_points"`
}

// MobilityLogResponse is one element of GET /api/credits/mobility/{userId}
type MobilityLogResponse struct {
	LogId        int64           `json:"log_id"`
	Mode         string          `json:"mode"`
	DistanceKm   decimal.Decimal `json:"distance_km"`
	CO2SavedG    decimal.Decimal `json:"co2_saved_g"`
	PointsEarned int64           `json:"points_earned"`
	Description  string          `json:"description"`
	StartedAt    APITime         `json:"started_at"`
}

// ErrorResponse covers both error body shapes the backend produces
type ErrorResponse struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Detail  any    `json:"detail"`
}

// APITime accepts RFC 3339 timestamps as well as the zone-less ISO form the
// backend emits for naive UTC datetimes.
type APITime struct {
	time.Time
}

var apiTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *APITime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", string(data), err)
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}

	for _, layout := range apiTimeLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp format: %q", raw)
}

func (t APITime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
