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

package database

const (
	// Snapshot queries
	queryGetSnapshot = `
		SELECT user_id, total_credits, total_carbon_kg, recent_earned, revision, writer_id, updated_at
		FROM credit_snapshots
		WHERE user_id = ?`

	queryUpsertSnapshot = `
		INSERT INTO credit_snapshots (user_id, total_credits, total_carbon_kg, recent_earned, revision, writer_id, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			total_credits = excluded.total_credits,
			total_carbon_kg = excluded.total_carbon_kg,
			recent_earned = excluded.recent_earned,
			revision = credit_snapshots.revision + 1,
			writer_id = excluded.writer_id,
			updated_at = excluded.updated_at
		RETURNING revision`

	queryCompareAndSwapSnapshot = `
		UPDATE credit_snapshots
		SET total_credits = ?, total_carbon_kg = ?, recent_earned = ?,
		    revision = revision + 1, writer_id = ?, updated_at = ?
		WHERE user_id = ? AND revision = ?
		RETURNING revision`

	queryGetRevision = `
		SELECT revision FROM credit_snapshots WHERE user_id = ?`

	// History queries
	queryDeleteHistory = `
		DELETE FROM credit_history WHERE user_id = ?`

	queryInsertHistoryEntry = `
		INSERT OR IGNORE INTO credit_history (user_id, entry_id, entry_type, points, reason, created_at, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryUpsertHistoryState = `
		INSERT INTO credit_history_state (user_id, complete, entry_count, cached_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			complete = excluded.complete,
			entry_count = excluded.entry_count,
			cached_at = excluded.cached_at`

	queryGetHistory = `
		SELECT entry_id, entry_type, points, reason, created_at
		FROM credit_history
		WHERE user_id = ?
		ORDER BY created_at DESC, entry_id DESC
		LIMIT ?`

	queryGetHistoryState = `
		SELECT complete FROM credit_history_state WHERE user_id = ?`

	querySumHistory = `
		SELECT COALESCE(SUM(points), 0) FROM credit_history WHERE user_id = ?`

	// Key/value queries
	queryGetValue = `
		SELECT value FROM kv_store WHERE key = ?`

	queryUpsertValue = `
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	queryDeleteValue = `
		DELETE FROM kv_store WHERE key = ?`
)
