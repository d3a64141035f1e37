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

package config

import (
	"fmt"
	"strings"

	"ecogarden-sync-go/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every configuration variable, e.g. ECO_API_URL.
const EnvPrefix = "ECO"

var validate = validator.New()

// Load reads the configuration from the environment. Each section is
// processed on its own so variable names stay flat (ECO_POLL_INTERVAL rather
// than ECO_SYNC_POLL_INTERVAL).
func Load() (*models.Config, error) {
	cfg := &models.Config{}

	sections := []struct {
		name string
		spec any
	}{
		{"backend", &cfg.Backend},
		{"cache", &cfg.Cache},
		{"sync", &cfg.Sync},
		{"sandbox", &cfg.Sandbox},
		{"status", &cfg.Status},
	}

	for _, section := range sections {
		if err := envconfig.Process(EnvPrefix, section.spec); err != nil {
			return nil, fmt.Errorf("invalid %s configuration: %w", section.name, err)
		}
	}

	cfg.Backend.BaseURL = strings.TrimRight(cfg.Backend.BaseURL, "/")

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct-level constraints of a configuration.
func Validate(cfg *models.Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Cache.MaxIdleConns > cfg.Cache.MaxOpenConns {
		return fmt.Errorf("invalid configuration: max idle connections (%d) exceed max open connections (%d)",
			cfg.Cache.MaxIdleConns, cfg.Cache.MaxOpenConns)
	}
	return nil
}
