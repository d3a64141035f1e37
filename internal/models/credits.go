package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SyncState describes how far a snapshot can be trusted
type SyncState string

const (
	// SyncCommitted means the snapshot matches a successful server exchange.
	SyncCommitted SyncState = "committed"
	// SyncPending means an optimistic patch is applied and its server call is in flight.
	SyncPending SyncState = "pending"
	// SyncStale means a mutation failed; the snapshot was reverted and must be re-fetched before it is trusted.
	SyncStale SyncState = "stale"
)

// CreditLedgerEntry is a single signed point delta. Entries are append-only.
type CreditLedgerEntry struct {
	Id        int64     `json:"id"`
	Type      string    `json:"type,omitempty"` // EARN, SPEND
	Points    int64     `json:"points"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// CreditsSnapshot is the client-side credit aggregate for one user
type CreditsSnapshot struct {
	UserId               int64           `json:"user_id"`
	TotalCredits         int64           `json:"total_credits"`
	TotalCarbonReducedKg decimal.Decimal `json:"total_carbon_reduced_kg"`
	RecentEarned         int64           `json:"recent_earned"`
	LastUpdated          time.Time       `json:"last_updated"`
	State                SyncState       `json:"state"`
	Revision             int64           `json:"revision"`

	// AsOf is the point in time the values are authoritative for: the start
	// of the fetch that produced them or the moment a local patch was applied.
	AsOf time.Time `json:"as_of"`
}

// GardenStatus is the server-backed garden progression
type GardenStatus struct {
	LevelNumber    int    `json:"level_number"`
	LevelName      string `json:"level_name"`
	ImagePath      string `json:"image_path,omitempty"`
	WatersCount    int    `json:"waters_count"`
	TotalWaters    int    `json:"total_waters"`
	RequiredWaters int    `json:"required_waters"`
	Status         string `json:"status"`
}

// Balance is the result of a balance fetch
type Balance struct {
	UserId               int64
	TotalPoints          int64
	RecentEarned         int64
	TotalCarbonReducedKg decimal.Decimal
	LastUpdated          time.Time
}

// AddCreditsResult is the outcome of a ledger add/spend call
type AddCreditsResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// WaterResult is the outcome of a garden watering call
type WaterResult struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	LevelUp         bool   `json:"level_up,omitempty"`
	NewLevel        string `json:"new_level,omitempty"`
	WatersCount     int    `json:"waters_count,omitempty"`
	RemainingPoints int64  `json:"remaining_points,omitempty"`
}

// MobilityLog is one logged low-carbon trip
type MobilityLog struct {
	LogId        int64
	Mode         string
	DistanceKm   decimal.Decimal
	CO2SavedG    decimal.Decimal
	PointsEarned int64
	Description  string
	StartedAt    time.Time
}

// UserProfile is the cached profile of the signed-in user
type UserProfile struct {
	Id       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// ChallengeCompletion is a finished challenge to be credited
type ChallengeCompletion struct {
	ChallengeId   string
	ChallengeType string
	Name          string
	Points        int64
}

// ActivityCompletion is a finished low-carbon activity to be credited
type ActivityCompletion struct {
	ActivityType  string
	DistanceKm    decimal.Decimal
	CarbonSavedKg decimal.Decimal
	Points        int64
	Route         string
}

// CompletionResult is the outcome of a challenge or activity completion
type CompletionResult struct {
	Message      string `json:"message"`
	PointsEarned int64  `json:"points_earned"`
}
