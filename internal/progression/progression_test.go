package progression

import (
	"math"
	"testing"

	"ecogarden-sync-go/internal/models"

	"github.com/shopspring/decimal"
)

func TestXpToLevel(t *testing.T) {
	tests := []struct {
		xp   int64
		want int
	}{
		{0, 1},
		{999, 1},
		{1000, 2},
		{2500, 3},
		{4999, 5},
		{-10, 1},
	}
	for _, tt := range tests {
		if got := XpToLevel(tt.xp); got != tt.want {
			t.Errorf("XpToLevel(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func TestXpToLevel_Monotonic(t *testing.T) {
	prev := XpToLevel(0)
	for xp := int64(0); xp <= 20_000; xp += 37 {
		level := XpToLevel(xp)
		if level < prev {
			t.Fatalf("level decreased at xp=%d: %d -> %d", xp, prev, level)
		}
		if level != XpToLevel(xp) {
			t.Fatalf("XpToLevel(%d) not deterministic", xp)
		}
		prev = level
	}
}

func TestXpFromCO2(t *testing.T) {
	tests := []struct {
		grams float64
		want  int64
	}{
		{1200.6, 1201},
		{1200.4, 1200},
		{0.5, 1},
		{0, 0},
		{-5, 0},
		{-0.4, 0},
		{1e30, math.MaxInt64},
		{math.Inf(1), 0},
		{math.Inf(-1), 0},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := XpFromCO2(tt.grams); got != tt.want {
			t.Errorf("XpFromCO2(%v) = %d, want %d", tt.grams, got, tt.want)
		}
	}
}

func TestAddXp_Saturates(t *testing.T) {
	tests := []struct {
		xp, gained, want int64
	}{
		{100, 50, 150},
		{100, -50, 100},
		{math.MaxInt64 - 10, 50, math.MaxInt64},
		{math.MaxInt64, math.MaxInt64, math.MaxInt64},
	}
	for _, tt := range tests {
		if got := AddXp(tt.xp, tt.gained); got != tt.want {
			t.Errorf("AddXp(%d, %d) = %d, want %d", tt.xp, tt.gained, got, tt.want)
		}
	}
}

func TestUnlocksForLevel(t *testing.T) {
	if got := UnlocksForLevel(2); len(got) != 0 {
		t.Errorf("expected no unlocks at level 2, got %v", got)
	}
	if got := UnlocksForLevel(3); len(got) != 1 || got[0] != FlowerPot {
		t.Errorf("expected [flower_pot] at level 3, got %v", got)
	}
	if got := UnlocksForLevel(7); len(got) != 2 || got[1] != Butterfly {
		t.Errorf("expected flower_pot and butterfly at level 7, got %v", got)
	}
}

func TestApplyWater_Clamp(t *testing.T) {
	tests := []struct {
		gauge, amount, want int
	}{
		{0, 20, 20},
		{90, 25, 100},
		{100, 1, 100},
		{10, -30, 0},
		{50, math.MaxInt, 100},
		{50, math.MinInt, 0},
	}
	for _, tt := range tests {
		if got := ApplyWater(tt.gauge, tt.amount); got != tt.want {
			t.Errorf("ApplyWater(%d, %d) = %d, want %d", tt.gauge, tt.amount, got, tt.want)
		}
	}
}

func TestExpectAfterWater(t *testing.T) {
	status := models.GardenStatus{LevelNumber: 2, WatersCount: 3, RequiredWaters: 10}
	level, waters, levelUp := ExpectAfterWater(status)
	if level != 2 || waters != 4 || levelUp {
		t.Errorf("expected (2, 4, false), got (%d, %d, %v)", level, waters, levelUp)
	}

	status.WatersCount = 9
	level, waters, levelUp = ExpectAfterWater(status)
	if level != 3 || waters != 0 || !levelUp {
		t.Errorf("expected (3, 0, true), got (%d, %d, %v)", level, waters, levelUp)
	}
}

func TestConsistentAfterWater(t *testing.T) {
	before := models.GardenStatus{LevelNumber: 1, WatersCount: 9, RequiredWaters: 10}
	if !ConsistentAfterWater(before, models.GardenStatus{LevelNumber: 2, WatersCount: 0, RequiredWaters: 10}) {
		t.Error("level-up should be consistent")
	}
	if ConsistentAfterWater(before, models.GardenStatus{LevelNumber: 1, WatersCount: 3, RequiredWaters: 10}) {
		t.Error("count going backwards on the same level should be inconsistent")
	}
}

func TestWateringProgress(t *testing.T) {
	if p := WateringProgress(models.GardenStatus{WatersCount: 5, RequiredWaters: 10}); p != 0.5 {
		t.Errorf("expected 0.5, got %v", p)
	}
	if p := WateringProgress(models.GardenStatus{WatersCount: 0, RequiredWaters: 0}); p != 1 {
		t.Errorf("expected final level to report 1, got %v", p)
	}
	if !IsCompleted(models.GardenStatus{LevelNumber: 11, RequiredWaters: 0}) {
		t.Error("final level should be completed")
	}
}

func TestStageName(t *testing.T) {
	if StageName(1) != "Seed" {
		t.Errorf("unexpected stage name %q", StageName(1))
	}
	if StageName(99) != "Garden complete" {
		t.Errorf("levels past the table should clamp to the final stage, got %q", StageName(99))
	}
}

func TestCreditsForCarbonKg(t *testing.T) {
	tests := []struct {
		activity string
		want     int64
	}{
		{ActivityTransit, 50},
		{ActivityBike, 30},
		{ActivityWalk, 10},
		{ActivityEnergySave, 20},
		{ActivityEcoActivity, 40},
		{"gardening", 5},
	}
	for _, tt := range tests {
		if got := CreditsForCarbonKg(ActivityCarbon(tt.activity)); got != tt.want {
			t.Errorf("credits for %q = %d, want %d", tt.activity, got, tt.want)
		}
	}
}

func TestGramsToKg(t *testing.T) {
	got := GramsToKg(decimal.NewFromInt(12400))
	if !got.Equal(decimal.RequireFromString("12.4")) {
		t.Errorf("expected 12.4, got %s", got.String())
	}
}
