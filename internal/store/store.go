package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecogarden-sync-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all cache implementations.
var (
	ErrNotFound               = errors.New("cache entry not found")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrHistoryMismatch        = errors.New("cached history does not sum to the cached total")
)

// Well-known key/value names in the durable cache.
const (
	KeyAccessToken         = "access_token"
	KeyUserProfile         = "user_profile"
	KeyOnboardingDismissed = "howto_dont_show_today"
)

// InventoryKey names the saved garden inventory of one user
func InventoryKey(userId int64) string {
	return fmt.Sprintf("garden_inventory_%d", userId)
}

// SaveSnapshotParams contains the values written for one snapshot revision.
type SaveSnapshotParams struct {
	UserId               int64
	TotalCredits         int64
	TotalCarbonReducedKg decimal.Decimal
	RecentEarned         int64
	WriterId             string
	UpdatedAt            time.Time

	// ExpectedRevision, when non-zero, turns the write into a compare-and-swap
	// that fails with ErrConcurrentModification if another writer got there first.
	ExpectedRevision int64
}

// CacheStore is the durable local cache shared by every process of the same
// user on this machine. The revision counter lets readers detect that
// something changed without comparing wall clocks, and lets writers make a
// write conditional on the revision they last saw.
type CacheStore interface {
	// --- Snapshot ---
	LoadSnapshot(ctx context.Context, userId int64) (*models.CachedSnapshot, error)
	SaveSnapshot(ctx context.Context, params SaveSnapshotParams) (*models.CachedSnapshot, error)
	LatestRevision(ctx context.Context, userId int64) (int64, error)

	// --- History ---
	ReplaceHistory(ctx context.Context, userId int64, entries []models.CreditLedgerEntry, complete bool) error
	LoadHistory(ctx context.Context, userId int64, limit int) ([]models.CreditLedgerEntry, error)
	VerifyHistory(ctx context.Context, userId int64) (bool, error)

	// --- Key/value ---
	GetValue(ctx context.Context, key string) (string, error)
	SetValue(ctx context.Context, key, value string) error
	DeleteValue(ctx context.Context, key string) error

	// --- Lifecycle ---
	Path() string
	Close()
}
