// Package progression holds the pure garden progression rules. Nothing here
// keeps state; every function is total and deterministic.
package progression

import (
	"math"

	"github.com/shopspring/decimal"
)

// XpPerLevel is the xp width of one sandbox level.
const XpPerLevel = 1000

// Sandbox amounts.
const (
	DefaultWaterAmount = 20
	UIWaterAmount      = 25
	TransitWaterAmount = 15
	MaxWaterGauge      = 100
	PraiseXp           = 50
	TransitCO2Grams    = 1200
)

// Unlockable identifies a garden decoration or effect.
type Unlockable string

const (
	WateringCan   Unlockable = "watering_can"
	SparkleEffect Unlockable = "sparkle_effect"
	FlowerPot     Unlockable = "flower_pot"
	Butterfly     Unlockable = "butterfly"
)

// Level thresholds for automatic unlocks.
const (
	FlowerPotLevel = 3
	ButterflyLevel = 5
)

// XpToLevel is the canonical sandbox level law: max(1, floor(xp/1000)+1).
func XpToLevel(xp int64) int {
	if xp < 0 {
		return 1
	}
	return int(xp/XpPerLevel) + 1
}

// XpFromCO2 converts grams of CO₂ saved into xp: one point per gram,
// rounded half away from zero, floored at 0 and capped at math.MaxInt64.
// Non-finite input yields 0.
func XpFromCO2(grams float64) int64 {
	if math.IsNaN(grams) || math.IsInf(grams, 0) {
		return 0
	}
	xp := decimal.NewFromFloat(grams).Round(0)
	if xp.IsNegative() {
		return 0
	}
	if xp.GreaterThanOrEqual(decimal.NewFromInt(math.MaxInt64)) {
		return math.MaxInt64
	}
	return xp.IntPart()
}

// AddXp returns xp + gained, saturating at math.MaxInt64. Negative gains count as 0.
func AddXp(xp, gained int64) int64 {
	if gained <= 0 {
		return xp
	}
	if xp > math.MaxInt64-gained {
		return math.MaxInt64
	}
	return xp + gained
}

// InitialUnlocks is the set every fresh sandbox garden starts with.
func InitialUnlocks() []Unlockable {
	return []Unlockable{WateringCan}
}

// UnlocksForLevel returns the level-driven unlocks earned at or below level.
// Praise-only unlocks (SparkleEffect) are not level driven and never appear here.
func UnlocksForLevel(level int) []Unlockable {
	var unlocks []Unlockable
	if level >= FlowerPotLevel {
		unlocks = append(unlocks, FlowerPot)
	}
	if level >= ButterflyLevel {
		unlocks = append(unlocks, Butterfly)
	}
	return unlocks
}

// ApplyWater adds amount to the gauge and clamps the result to [0, MaxWaterGauge].
func ApplyWater(gauge, amount int) int {
	if amount >= MaxWaterGauge-gauge {
		return MaxWaterGauge
	}
	if amount <= -gauge {
		return 0
	}
	return gauge + amount
}
