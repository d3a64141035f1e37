package sandbox

import (
	"fmt"

	"ecogarden-sync-go/internal/progression"
)

// Action is one of the sandbox transitions below
type Action interface {
	action()
}

// EarnXpFromCO2 grants one xp per gram of CO₂ saved
type EarnXpFromCO2 struct {
	Grams float64
}

// WaterPlant fills the gauge; a nil Amount uses the default
type WaterPlant struct {
	Amount *int
}

// PositiveFeedback grants the praise bonus and switches sparkles on
type PositiveFeedback struct{}

type Unlock struct {
	Item progression.Unlockable
}

type ToggleSparkles struct {
	On bool
}

type ResetEvent struct{}

func (EarnXpFromCO2) action()    {}
func (WaterPlant) action()       {}
func (PositiveFeedback) action() {}
func (Unlock) action()           {}
func (ToggleSparkles) action()   {}
func (ResetEvent) action()       {}

// Water is a WaterPlant of amount
func Water(amount int) WaterPlant {
	return WaterPlant{Amount: &amount}
}

// Reduce returns the state after action. It never modifies state.
func Reduce(state State, action Action) State {
	switch a := action.(type) {
	case EarnXpFromCO2:
		gained := progression.XpFromCO2(a.Grams)
		next := gainXp(state, gained)
		next.LastEvent = fmt.Sprintf("+%dxp (CO₂)", gained)
		return next

	case WaterPlant:
		amount := progression.DefaultWaterAmount
		if a.Amount != nil {
			amount = *a.Amount
		}
		next := state.withUnlocks()
		next.WaterGauge = progression.ApplyWater(state.WaterGauge, amount)
		next.LastEvent = fmt.Sprintf("Watered +%d", amount)
		return next

	case PositiveFeedback:
		next := gainXp(state, progression.PraiseXp).withUnlocks(progression.SparkleEffect)
		next.Sparkles = true
		next.LastEvent = "Praise bonus!"
		return next

	case Unlock:
		next := state.withUnlocks(a.Item)
		next.LastEvent = fmt.Sprintf("Unlocked: %s", a.Item)
		return next

	case ToggleSparkles:
		next := state.withUnlocks()
		next.Sparkles = a.On
		return next

	case ResetEvent:
		next := state.withUnlocks()
		next.LastEvent = ""
		return next
	}
	return state
}

// gainXp adds xp and grants every level unlock reached
func gainXp(state State, xp int64) State {
	state.Xp = progression.AddXp(state.Xp, xp)
	return state.withUnlocks(progression.UnlocksForLevel(state.Level())...)
}
