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
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"ecogarden-sync-go/internal/models"
	"ecogarden-sync-go/internal/store"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Start begins monitoring the cache. It is non-blocking.
func (l *CacheListener) Start(ctx context.Context) error {
	l.mutex.Lock()
	if l.running {
		l.mutex.Unlock()
		return nil
	}
	l.running = true
	l.mutex.Unlock()

	zap.L().Info("Starting cache listener", zap.String("cache_path", l.cache.Path()))

	watcher, err := l.newWatcher()
	if err != nil {
		zap.L().Warn("File watch unavailable, relying on revision poll",
			zap.String("cache_path", l.cache.Path()),
			zap.Error(err))
		watcher = nil
	}

	go l.pollLoop(ctx, watcher)

	zap.L().Info("Cache listener started successfully",
		zap.Duration("fallback_interval", l.fallbackInterval),
		zap.Bool("fsnotify", watcher != nil))
	return nil
}

// Stop gracefully stops the listener and waits for its loop to exit
func (l *CacheListener) Stop() {
	l.mutex.Lock()
	if !l.running {
		l.mutex.Unlock()
		return
	}
	l.running = false
	l.mutex.Unlock()

	zap.L().Info("Stopping cache listener")
	close(l.stopChan)
	<-l.doneChan
	zap.L().Info("Cache listener stopped")
}

func (l *CacheListener) newWatcher() (*fsnotify.Watcher, error) {
	path := l.cache.Path()
	if path == "" || strings.HasPrefix(path, ":memory:") || strings.HasPrefix(path, "file::memory:") {
		return nil, errors.New("in-memory cache has no file to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// SQLite replaces and appends to sibling -wal/-shm files, so the
	// directory is watched rather than the database file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			zap.L().Warn("Failed to close watcher", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to watch %s: %w", filepath.Dir(path), err)
	}
	return watcher, nil
}

// pollLoop runs the main event loop
func (l *CacheListener) pollLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer close(l.doneChan)

	var events <-chan fsnotify.Event
	var watchErrors <-chan error
	if watcher != nil {
		defer func() {
			if err := watcher.Close(); err != nil {
				zap.L().Warn("Failed to close watcher", zap.Error(err))
			}
		}()
		events = watcher.Events
		watchErrors = watcher.Errors
	}

	ticker := time.NewTicker(l.fallbackInterval)
	defer ticker.Stop()

	debounceTicker := time.NewTicker(l.debounceInterval)
	defer debounceTicker.Stop()

	base := filepath.Base(l.cache.Path())

	for {
		select {
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if strings.HasPrefix(filepath.Base(event.Name), base) &&
				event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				l.markDirty()
			}
		case err, ok := <-watchErrors:
			if !ok {
				watchErrors = nil
				continue
			}
			zap.L().Warn("Cache watcher error", zap.Error(err))
		case <-debounceTicker.C:
			if l.takeDirty() {
				l.checkRevision(ctx, SourceFsnotify)
			}
		case <-ticker.C:
			l.checkRevision(ctx, SourcePoll)
		case <-l.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// checkRevision emits a change when the cached revision moved past the last
// one seen and the write came from another process
func (l *CacheListener) checkRevision(ctx context.Context, source string) {
	userId, seen := l.watched()
	if userId == 0 {
		return
	}

	revision, err := l.cache.LatestRevision(ctx, userId)
	if err != nil {
		zap.L().Error("Failed to read cache revision", zap.Int64("user_id", userId), zap.Error(err))
		return
	}
	if revision <= seen {
		return
	}

	snap, err := l.cache.LoadSnapshot(ctx, userId)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			zap.L().Error("Failed to load changed snapshot", zap.Int64("user_id", userId), zap.Error(err))
		}
		return
	}
	if !l.advance(userId, snap.Revision) {
		return
	}

	if snap.WriterId == l.writerId {
		zap.L().Debug("Ignoring own cache write", zap.Int64("revision", snap.Revision))
		return
	}

	zap.L().Info("Detected external cache write",
		zap.Int64("user_id", userId),
		zap.Int64("revision", snap.Revision),
		zap.String("writer_id", snap.WriterId),
		zap.String("source", source))

	if l.handler != nil {
		l.handler(ctx, models.CacheChange{
			UserId:       userId,
			Revision:     snap.Revision,
			TotalCredits: snap.TotalCredits,
			WriterId:     snap.WriterId,
			UpdatedAt:    snap.UpdatedAt,
			DetectedAt:   time.Now(),
			Source:       source,
		})
	}
}
