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

package listener

import (
	"context"
	"sync"
	"time"

	"ecogarden-sync-go/internal/models"
	"ecogarden-sync-go/internal/store"
)

const (
	SourceFsnotify = "fsnotify"
	SourcePoll     = "poll"

	defaultDebounce = 100 * time.Millisecond
)

// ChangeHandler receives each foreign revision of the watched snapshot once
type ChangeHandler func(ctx context.Context, change models.CacheChange)

// CacheListenerConfig contains configuration for CacheListener
type CacheListenerConfig struct {
	Cache            store.CacheStore
	WriterId         string
	FallbackInterval time.Duration
	DebounceInterval time.Duration
	Handler          ChangeHandler
}

// CacheListener detects snapshot writes made by other processes sharing the
// cache file. File-system events trigger an early check; a fallback poll of
// the revision counter catches anything the watch misses.
type CacheListener struct {
	cache    store.CacheStore
	writerId string
	handler  ChangeHandler

	fallbackInterval time.Duration
	debounceInterval time.Duration

	// State management for seen revisions
	mutex        sync.Mutex
	userId       int64
	lastRevision int64
	dirtyAt      time.Time

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
	running  bool
}

// NewCacheListener creates a new cache listener
func NewCacheListener(cfg CacheListenerConfig) *CacheListener {
	debounce := cfg.DebounceInterval
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	fallback := cfg.FallbackInterval
	if fallback <= 0 {
		fallback = 2 * time.Second
	}

	return &CacheListener{
		cache:            cfg.Cache,
		writerId:         cfg.WriterId,
		handler:          cfg.Handler,
		fallbackInterval: fallback,
		debounceInterval: debounce,
		stopChan:         make(chan struct{}),
		doneChan:         make(chan struct{}),
	}
}

// Watch switches the listener to userId. Revisions already in the cache at
// the time of the call are treated as seen.
func (l *CacheListener) Watch(ctx context.Context, userId int64) error {
	revision, err := l.cache.LatestRevision(ctx, userId)
	if err != nil {
		return err
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.userId = userId
	l.lastRevision = revision
	return nil
}

// MarkSeen records a revision this process produced or already adopted
func (l *CacheListener) MarkSeen(revision int64) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if revision > l.lastRevision {
		l.lastRevision = revision
	}
}

func (l *CacheListener) watched() (int64, int64) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.userId, l.lastRevision
}

// advance moves the seen revision forward and reports whether revision was new
func (l *CacheListener) advance(userId, revision int64) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if userId != l.userId || revision <= l.lastRevision {
		return false
	}
	l.lastRevision = revision
	return true
}

func (l *CacheListener) markDirty() {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.dirtyAt.IsZero() {
		l.dirtyAt = time.Now()
	}
}

// takeDirty reports whether a file event is pending and older than the debounce interval
func (l *CacheListener) takeDirty() bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.dirtyAt.IsZero() || time.Since(l.dirtyAt) < l.debounceInterval {
		return false
	}
	l.dirtyAt = time.Time{}
	return true
}
