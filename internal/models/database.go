package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CachedSnapshot is the durable, cross-process copy of a user's credit aggregate.
// Revision increases by one on every write regardless of the writer.
type CachedSnapshot struct {
	UserId               int64           `db:"user_id"`
	TotalCredits         int64           `db:"total_credits"`
	TotalCarbonReducedKg decimal.Decimal `db:"total_carbon_kg"`
	RecentEarned         int64           `db:"recent_earned"`
	Revision             int64           `db:"revision"`
	WriterId             string          `db:"writer_id"`
	UpdatedAt            time.Time       `db:"updated_at"`
}

// CachedHistoryEntry is a ledger entry mirrored into the local cache
type CachedHistoryEntry struct {
	EntryId   int64     `db:"entry_id"`
	UserId    int64     `db:"user_id"`
	Type      string    `db:"entry_type"`
	Points    int64     `db:"points"`
	Reason    string    `db:"reason"`
	CreatedAt time.Time `db:"created_at"`
	CachedAt  time.Time `db:"cached_at"`
}
