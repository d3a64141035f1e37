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

package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ecogarden-sync-go/internal/models"
	"ecogarden-sync-go/internal/store"

	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// Session holds the signed-in user's credentials and local preferences in the
// cache key/value table
type Session struct {
	cache         store.CacheStore
	tokenOverride string
}

// NewSession returns a session. A non-empty tokenOverride (from the
// environment) takes precedence over the stored token.
func NewSession(cache store.CacheStore, tokenOverride string) *Session {
	return &Session{
		cache:         cache,
		tokenOverride: tokenOverride,
	}
}

// Token returns the bearer token, or "" when signed out
func (s *Session) Token(ctx context.Context) (string, error) {
	if s.tokenOverride != "" {
		return s.tokenOverride, nil
	}
	token, err := s.cache.GetValue(ctx, store.KeyAccessToken)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read access token: %w", err)
	}
	return token, nil
}

// SignIn stores the token and profile returned by the auth backend
func (s *Session) SignIn(ctx context.Context, token string, profile models.UserProfile) error {
	if token == "" {
		return fmt.Errorf("access token is required")
	}
	if profile.Id <= 0 {
		return fmt.Errorf("profile id must be positive, got %d", profile.Id)
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := s.cache.SetValue(ctx, store.KeyAccessToken, token); err != nil {
		return err
	}
	if err := s.cache.SetValue(ctx, store.KeyUserProfile, string(data)); err != nil {
		return err
	}

	zap.L().Info("Signed in", zap.Int64("user_id", profile.Id), zap.String("username", profile.Username))
	return nil
}

// SignOut forgets the stored token and profile
func (s *Session) SignOut(ctx context.Context) error {
	if err := s.cache.DeleteValue(ctx, store.KeyAccessToken); err != nil {
		return err
	}
	return s.cache.DeleteValue(ctx, store.KeyUserProfile)
}

// Profile returns the cached profile. An unreadable entry is logged and
// reported as store.ErrNotFound.
func (s *Session) Profile(ctx context.Context) (*models.UserProfile, error) {
	raw, err := s.cache.GetValue(ctx, store.KeyUserProfile)
	if err != nil {
		return nil, err
	}

	var profile models.UserProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		zap.L().Warn("Ignoring unreadable cached profile", zap.Error(err))
		return nil, store.ErrNotFound
	}
	return &profile, nil
}

// ShowOnboarding reports whether the how-to guide should be shown on day
func (s *Session) ShowOnboarding(ctx context.Context, day time.Time) (bool, error) {
	dismissed, err := s.cache.GetValue(ctx, store.KeyOnboardingDismissed)
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return dismissed != day.Format(dateLayout), nil
}

// DismissOnboarding hides the how-to guide for the rest of day
func (s *Session) DismissOnboarding(ctx context.Context, day time.Time) error {
	return s.cache.SetValue(ctx, store.KeyOnboardingDismissed, day.Format(dateLayout))
}
