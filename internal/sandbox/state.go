// Package sandbox is the server-less garden: a pure reducer over a fixed
// action vocabulary, a keyword intent classifier and a session that owns the
// transient timers. Levels here follow the xp law and are a demo variant; the
// server garden's requiredWaters path is authoritative for real accounts.
package sandbox

import (
	"fmt"
	"sort"

	"ecogarden-sync-go/internal/progression"
)

// State is the sandbox garden. Level is derived from Xp and never stored.
type State struct {
	Xp         int64
	WaterGauge int
	Sparkles   bool
	Unlocked   map[progression.Unlockable]bool
	LastEvent  string
}

// NewState returns a fresh garden holding the initial unlocks
func NewState() State {
	unlocked := make(map[progression.Unlockable]bool)
	for _, item := range progression.InitialUnlocks() {
		unlocked[item] = true
	}
	return State{Unlocked: unlocked}
}

func (s State) Level() int {
	return progression.XpToLevel(s.Xp)
}

func (s State) Has(item progression.Unlockable) bool {
	return s.Unlocked[item]
}

// UnlockedItems lists the unlocks in a stable order
func (s State) UnlockedItems() []progression.Unlockable {
	items := make([]progression.Unlockable, 0, len(s.Unlocked))
	for item := range s.Unlocked {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i] < items[j] })
	return items
}

func (s State) String() string {
	return fmt.Sprintf("Lv.%d | %d xp | water %d%% | sparkles %t | unlocked %v",
		s.Level(), s.Xp, s.WaterGauge, s.Sparkles, s.UnlockedItems())
}

func (s State) withUnlocks(items ...progression.Unlockable) State {
	unlocked := make(map[progression.Unlockable]bool, len(s.Unlocked)+len(items))
	for item := range s.Unlocked {
		unlocked[item] = true
	}
	for _, item := range items {
		unlocked[item] = true
	}
	s.Unlocked = unlocked
	return s
}
