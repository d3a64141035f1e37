package sandbox

import (
	"fmt"
	"sync"
	"time"

	"ecogarden-sync-go/internal/models"

	"go.uber.org/zap"
)

// Greeting is the assistant's opening line
const Greeting = "Hi! Did you take public transport today?"

// Session hosts one sandbox garden. It owns the sparkle auto-off timer and the
// periodic event reset; Close cancels both.
type Session struct {
	mu         sync.Mutex
	state      State
	classifier Classifier

	sparkleDuration time.Duration
	resetInterval   time.Duration
	sparkleTimer    *time.Timer
	closed          bool

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewSession starts a session. A nil classifier uses the keyword matcher.
func NewSession(cfg models.SandboxConfig, classifier Classifier) *Session {
	if classifier == nil {
		classifier = NewKeywordClassifier()
	}
	s := &Session{
		state:           NewState(),
		classifier:      classifier,
		sparkleDuration: cfg.SparkleDuration,
		resetInterval:   cfg.EventResetInterval,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
	if s.sparkleDuration <= 0 {
		s.sparkleDuration = 2 * time.Second
	}
	if s.resetInterval <= 0 {
		s.resetInterval = 2500 * time.Millisecond
	}

	go s.resetLoop()
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies action and returns the new state. Actions after Close are
// ignored.
func (s *Session) Dispatch(action Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.state
	}

	s.state = Reduce(s.state, action)
	if _, ok := action.(PositiveFeedback); ok {
		s.scheduleSparklesOff()
	}
	return s.state
}

// scheduleSparklesOff restarts the auto-off timer. Callers hold s.mu.
func (s *Session) scheduleSparklesOff() {
	if s.sparkleTimer != nil {
		s.sparkleTimer.Stop()
	}
	s.sparkleTimer = time.AfterFunc(s.sparkleDuration, func() {
		s.Dispatch(ToggleSparkles{On: false})
	})
}

// Interpret classifies text, applies the matching actions and returns the
// assistant's reply.
func (s *Session) Interpret(text string) (string, State) {
	intent := s.classifier.Classify(text)
	zap.L().Debug("Sandbox intent", zap.String("kind", string(intent.Kind)))

	state := s.State()
	for _, action := range Actions(intent) {
		state = s.Dispatch(action)
	}
	return Reply(intent), state
}

// Reply is the assistant text for an intent
func Reply(intent Intent) string {
	switch intent.Kind {
	case IntentLogTransit:
		return fmt.Sprintf("You saved %.0fg of CO₂ today! Updating your garden 🌱", intent.CO2Grams)
	case IntentPraise:
		return "That's wonderful! Sparkle effect added ✨"
	case IntentWater:
		return "Watered the plant 💧"
	}
	return "Try something like 'I took the bus', 'praise' or 'water'."
}

func (s *Session) resetLoop() {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.resetInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Dispatch(ResetEvent{})
		case <-s.stopChan:
			return
		}
	}
}

// Close stops the timers and waits for the reset loop to exit
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.sparkleTimer != nil {
		s.sparkleTimer.Stop()
	}
	s.mu.Unlock()

	close(s.stopChan)
	<-s.doneChan
}
