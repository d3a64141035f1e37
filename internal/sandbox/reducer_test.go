package sandbox

import (
	"math"
	"math/rand"
	"testing"

	"ecogarden-sync-go/internal/progression"

	"github.com/google/go-cmp/cmp"
)

func TestReduce_EarnXpFromCO2(t *testing.T) {
	tests := []struct {
		name      string
		grams     float64
		wantXp    int64
		wantEvent string
	}{
		{name: "rounds half up", grams: 1200.6, wantXp: 1201, wantEvent: "+1201xp (CO₂)"},
		{name: "rounds down", grams: 10.4, wantXp: 10, wantEvent: "+10xp (CO₂)"},
		{name: "negative floors at zero", grams: -5, wantXp: 0, wantEvent: "+0xp (CO₂)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reduce(NewState(), EarnXpFromCO2{Grams: tt.grams})
			if got.Xp != tt.wantXp {
				t.Errorf("Xp = %d, want %d", got.Xp, tt.wantXp)
			}
			if got.LastEvent != tt.wantEvent {
				t.Errorf("LastEvent = %q, want %q", got.LastEvent, tt.wantEvent)
			}
		})
	}
}

func TestReduce_DoesNotModifyInput(t *testing.T) {
	before := NewState()
	snapshot := NewState()

	actions := []Action{
		EarnXpFromCO2{Grams: 5000},
		Water(30),
		PositiveFeedback{},
		Unlock{Item: progression.Butterfly},
		ToggleSparkles{On: true},
		ResetEvent{},
	}
	for _, action := range actions {
		_ = Reduce(before, action)
	}

	if diff := cmp.Diff(snapshot, before); diff != "" {
		t.Errorf("input state changed (-want +got):\n%s", diff)
	}
}

func TestReduce_WaterPlant(t *testing.T) {
	state := Reduce(NewState(), WaterPlant{})
	if state.WaterGauge != progression.DefaultWaterAmount {
		t.Errorf("default water = %d, want %d", state.WaterGauge, progression.DefaultWaterAmount)
	}
	if state.Xp != 0 {
		t.Errorf("watering granted xp: %d", state.Xp)
	}

	for i := 0; i < 10; i++ {
		state = Reduce(state, Water(25))
	}
	if state.WaterGauge != 100 {
		t.Errorf("gauge = %d, want clamp at 100", state.WaterGauge)
	}
	if state.LastEvent != "Watered +25" {
		t.Errorf("LastEvent = %q", state.LastEvent)
	}
}

func TestReduce_GaugeStaysClamped(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	state := NewState()
	for i := 0; i < 500; i++ {
		state = Reduce(state, Water(rng.Intn(250)+1))
		if state.WaterGauge < 0 || state.WaterGauge > progression.MaxWaterGauge {
			t.Fatalf("step %d: gauge %d out of range", i, state.WaterGauge)
		}
	}

	state = Reduce(Reduce(NewState(), Water(50)), Water(math.MaxInt))
	if state.WaterGauge != progression.MaxWaterGauge {
		t.Errorf("huge amount gave gauge %d, want %d", state.WaterGauge, progression.MaxWaterGauge)
	}
}

func TestReduce_XpSaturates(t *testing.T) {
	state := Reduce(NewState(), EarnXpFromCO2{Grams: 1e30})
	if state.Xp != math.MaxInt64 {
		t.Fatalf("Xp = %d, want %d", state.Xp, int64(math.MaxInt64))
	}
	level := state.Level()

	state = Reduce(state, EarnXpFromCO2{Grams: 1e30})
	state = Reduce(state, PositiveFeedback{})
	if state.Xp != math.MaxInt64 || state.Level() != level {
		t.Errorf("xp or level moved after saturation: %s", state)
	}
	if !state.Has(progression.Butterfly) {
		t.Error("butterfly missing at max level")
	}

	state = Reduce(NewState(), EarnXpFromCO2{Grams: math.NaN()})
	if state.Xp != 0 {
		t.Errorf("NaN grams gave %d xp", state.Xp)
	}
}

func TestReduce_PositiveFeedback(t *testing.T) {
	got := Reduce(NewState(), PositiveFeedback{})

	want := State{
		Xp:        progression.PraiseXp,
		Sparkles:  true,
		LastEvent: "Praise bonus!",
		Unlocked: map[progression.Unlockable]bool{
			progression.WateringCan:   true,
			progression.SparkleEffect: true,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected state (-want +got):\n%s", diff)
	}

	got = Reduce(got, ToggleSparkles{On: false})
	if got.Sparkles {
		t.Error("sparkles still on after toggle")
	}
	if !got.Has(progression.SparkleEffect) {
		t.Error("toggling sparkles removed the unlock")
	}
}

func TestReduce_LevelUnlocks(t *testing.T) {
	state := Reduce(NewState(), EarnXpFromCO2{Grams: 1960})
	if state.Level() != 2 || state.Has(progression.FlowerPot) {
		t.Fatalf("level 2 state wrong: %s", state)
	}

	// the praise bonus crosses into level 3
	state = Reduce(state, PositiveFeedback{})
	if state.Xp != 2010 {
		t.Fatalf("Xp = %d, want 2010", state.Xp)
	}
	if state.Level() != 3 {
		t.Fatalf("Level() = %d, want 3", state.Level())
	}
	if !state.Has(progression.FlowerPot) {
		t.Error("flower_pot not unlocked at level 3")
	}

	state = Reduce(state, EarnXpFromCO2{Grams: 2000})
	if state.Xp != 4010 || state.Level() != 5 || !state.Has(progression.Butterfly) {
		t.Errorf("butterfly not unlocked at level 5: %s", state)
	}
}

func TestReduce_UnlocksNeverShrink(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	randomAction := func() Action {
		switch rng.Intn(6) {
		case 0:
			return EarnXpFromCO2{Grams: rng.Float64()*3000 - 500}
		case 1:
			return Water(rng.Intn(60))
		case 2:
			return PositiveFeedback{}
		case 3:
			items := []progression.Unlockable{progression.FlowerPot, progression.Butterfly, progression.SparkleEffect}
			return Unlock{Item: items[rng.Intn(len(items))]}
		case 4:
			return ToggleSparkles{On: rng.Intn(2) == 0}
		default:
			return ResetEvent{}
		}
	}

	state := NewState()
	reachedLevel := state.Level()
	for i := 0; i < 1000; i++ {
		prev := state
		state = Reduce(state, randomAction())

		for item := range prev.Unlocked {
			if !state.Has(item) {
				t.Fatalf("step %d: %s was removed", i, item)
			}
		}
		if state.Xp < prev.Xp {
			t.Fatalf("step %d: xp went down from %d to %d", i, prev.Xp, state.Xp)
		}
		if state.Level() > reachedLevel {
			reachedLevel = state.Level()
		}
		if reachedLevel >= progression.FlowerPotLevel && !state.Has(progression.FlowerPot) {
			t.Fatalf("step %d: reached level %d without flower_pot", i, reachedLevel)
		}
		if reachedLevel >= progression.ButterflyLevel && !state.Has(progression.Butterfly) {
			t.Fatalf("step %d: reached level %d without butterfly", i, reachedLevel)
		}
	}
}

func TestState_LevelIsDerived(t *testing.T) {
	a := Reduce(NewState(), EarnXpFromCO2{Grams: 2500})
	b := State{Xp: 2500}

	if a.Level() != 3 || b.Level() != 3 {
		t.Errorf("Level() = %d and %d, want 3", a.Level(), b.Level())
	}
	if a.Level() != a.Level() {
		t.Error("Level() not stable")
	}
}

func TestReduce_ResetEvent(t *testing.T) {
	state := Reduce(NewState(), Unlock{Item: progression.Butterfly})
	if state.LastEvent != "Unlocked: butterfly" {
		t.Fatalf("LastEvent = %q", state.LastEvent)
	}
	state = Reduce(state, ResetEvent{})
	if state.LastEvent != "" {
		t.Errorf("LastEvent = %q after reset", state.LastEvent)
	}
}
