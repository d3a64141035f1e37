package progression

import (
	"ecogarden-sync-go/internal/models"

	"github.com/shopspring/decimal"
)

// Garden status values reported by the backend.
const (
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// stageNames are the display labels of the seeded server levels. The server
// is the source of truth; these only fill in a missing level_name.
var stageNames = map[int]string{
	1:  "Seed",
	2:  "Sprouting",
	3:  "Seedling",
	4:  "Young stem",
	5:  "Leaf unfolding",
	6:  "Flower bud",
	7:  "Blossom",
	8:  "Sapling",
	9:  "Growing tree",
	10: "Lush tree",
	11: "Garden complete",
}

// StageName returns the display label for a server garden level.
func StageName(levelNumber int) string {
	if name, ok := stageNames[levelNumber]; ok {
		return name
	}
	if levelNumber > len(stageNames) {
		return stageNames[len(stageNames)]
	}
	return stageNames[1]
}

// IsCompleted reports whether the current server level has no further
// waterings to collect.
func IsCompleted(status models.GardenStatus) bool {
	return status.RequiredWaters <= 0 || status.WatersCount >= status.RequiredWaters
}

// WateringProgress returns the progress toward the next level in [0, 1].
// Thresholds are server data; nothing here derives them.
func WateringProgress(status models.GardenStatus) float64 {
	if status.RequiredWaters <= 0 {
		return 1
	}
	p := float64(status.WatersCount) / float64(status.RequiredWaters)
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}

// ExpectAfterWater returns the state a successful watering should produce:
// either the count increments or a level-up resets it to zero.
func ExpectAfterWater(status models.GardenStatus) (level int, waters int, levelUp bool) {
	next := status.WatersCount + 1
	if status.RequiredWaters > 0 && next >= status.RequiredWaters {
		return status.LevelNumber + 1, 0, true
	}
	return status.LevelNumber, next, false
}

// ConsistentAfterWater checks a re-fetched status against the pre-water
// status. The final level has no successor, so a capped garden may keep its
// level and count.
func ConsistentAfterWater(before, after models.GardenStatus) bool {
	level, waters, _ := ExpectAfterWater(before)
	if after.LevelNumber == level && after.WatersCount == waters {
		return true
	}
	return after.LevelNumber == before.LevelNumber && after.WatersCount >= before.WatersCount
}

// Activity names accepted by ActivityCarbon.
const (
	ActivityTransit     = "transit"
	ActivityBike        = "bike"
	ActivityWalk        = "walk"
	ActivityEnergySave  = "energy_saving"
	ActivityEcoActivity = "eco_activity"
)

var activityCarbonKg = map[string]decimal.Decimal{
	ActivityTransit:     decimal.RequireFromString("0.5"),
	ActivityBike:        decimal.RequireFromString("0.3"),
	ActivityWalk:        decimal.RequireFromString("0.1"),
	ActivityEnergySave:  decimal.RequireFromString("0.2"),
	ActivityEcoActivity: decimal.RequireFromString("0.4"),
}

var defaultActivityCarbonKg = decimal.RequireFromString("0.05")

// ActivityCarbon returns the CO₂ in kg credited for a self-reported activity.
func ActivityCarbon(activity string) decimal.Decimal {
	if kg, ok := activityCarbonKg[activity]; ok {
		return kg
	}
	return defaultActivityCarbonKg
}

// CreditsForCarbonKg is one credit per 10 g: floor(kg * 100).
func CreditsForCarbonKg(kg decimal.Decimal) int64 {
	if kg.IsNegative() {
		return 0
	}
	return kg.Mul(decimal.NewFromInt(100)).Floor().IntPart()
}

// GramsToKg converts a gram figure to kilograms.
func GramsToKg(grams decimal.Decimal) decimal.Decimal {
	return grams.Div(decimal.NewFromInt(1000))
}
