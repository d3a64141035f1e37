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

import "time"

// CacheChange is emitted by the cache listener when another process wrote a
// newer revision of a user's cached snapshot.
type CacheChange struct {
	UserId       int64
	Revision     int64
	TotalCredits int64
	WriterId     string
	UpdatedAt    time.Time
	DetectedAt   time.Time
	Source       string // "fsnotify" or "poll"
}
