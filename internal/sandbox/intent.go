package sandbox

import (
	"strings"

	"ecogarden-sync-go/internal/progression"
)

type IntentKind string

const (
	IntentLogTransit IntentKind = "log_transit"
	IntentPraise     IntentKind = "praise"
	IntentWater      IntentKind = "water"
	IntentUnknown    IntentKind = "unknown"
)

// Intent is the classified meaning of a chat message. CO2Grams is set for
// IntentLogTransit and Amount for IntentLogTransit and IntentWater.
type Intent struct {
	Kind     IntentKind
	CO2Grams float64
	Amount   int
}

// Classifier turns free text into an Intent
type Classifier interface {
	Classify(text string) Intent
}

// KeywordClassifier matches substrings, checked in order transit, praise, water.
type KeywordClassifier struct {
	Transit []string
	Praise  []string
	Water   []string
}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		Transit: []string{"버스", "지하철", "대중교통", "bus", "subway", "metro", "transit"},
		Praise:  []string{"칭찬", "잘했", "praise", "well done", "good job"},
		Water:   []string{"물", "water"},
	}
}

func (c *KeywordClassifier) Classify(text string) Intent {
	text = strings.ToLower(strings.TrimSpace(text))
	switch {
	case text == "":
		return Intent{Kind: IntentUnknown}
	case containsAny(text, c.Transit):
		return Intent{Kind: IntentLogTransit, CO2Grams: progression.TransitCO2Grams, Amount: progression.TransitWaterAmount}
	case containsAny(text, c.Praise):
		return Intent{Kind: IntentPraise}
	case containsAny(text, c.Water):
		return Intent{Kind: IntentWater, Amount: progression.UIWaterAmount}
	}
	return Intent{Kind: IntentUnknown}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Actions maps an intent onto the reducer vocabulary
func Actions(intent Intent) []Action {
	switch intent.Kind {
	case IntentLogTransit:
		return []Action{EarnXpFromCO2{Grams: intent.CO2Grams}, Water(intent.Amount)}
	case IntentPraise:
		return []Action{PositiveFeedback{}}
	case IntentWater:
		return []Action{Water(intent.Amount)}
	}
	return nil
}
