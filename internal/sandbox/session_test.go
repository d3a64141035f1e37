package sandbox

import (
	"testing"
	"time"

	"ecogarden-sync-go/internal/models"
	"ecogarden-sync-go/internal/progression"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestKeywordClassifier(t *testing.T) {
	c := NewKeywordClassifier()

	tests := []struct {
		text string
		want Intent
	}{
		{"오늘 버스 탔어", Intent{Kind: IntentLogTransit, CO2Grams: 1200, Amount: 15}},
		{"지하철로 출근", Intent{Kind: IntentLogTransit, CO2Grams: 1200, Amount: 15}},
		{"I took the BUS", Intent{Kind: IntentLogTransit, CO2Grams: 1200, Amount: 15}},
		{"칭찬해줘", Intent{Kind: IntentPraise}},
		{"나 잘했지?", Intent{Kind: IntentPraise}},
		{"물줘", Intent{Kind: IntentWater, Amount: 25}},
		{"버스 타고 물 마셨어", Intent{Kind: IntentLogTransit, CO2Grams: 1200, Amount: 15}},
		{"안녕", Intent{Kind: IntentUnknown}},
		{"   ", Intent{Kind: IntentUnknown}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.text))
		})
	}
}

func testSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession(models.SandboxConfig{
		SparkleDuration:    30 * time.Millisecond,
		EventResetInterval: time.Hour,
	}, nil)
	t.Cleanup(s.Close)
	return s
}

func TestSession_InterpretTransit(t *testing.T) {
	s := testSession(t)

	reply, state := s.Interpret("버스 탔어")
	assert.Contains(t, reply, "1200g")
	assert.Equal(t, int64(1200), state.Xp)
	assert.Equal(t, 15, state.WaterGauge)
	assert.Equal(t, 2, state.Level())
	assert.Equal(t, "Watered +15", state.LastEvent)
}

func TestSession_InterpretUnknownLeavesState(t *testing.T) {
	s := testSession(t)

	reply, state := s.Interpret("hello")
	assert.Equal(t, Reply(Intent{Kind: IntentUnknown}), reply)
	assert.Equal(t, NewState(), state)
}

func TestSession_SparklesTurnOff(t *testing.T) {
	s := testSession(t)

	_, state := s.Interpret("칭찬")
	require.True(t, state.Sparkles)
	require.True(t, state.Has(progression.SparkleEffect))

	require.Eventually(t, func() bool { return !s.State().Sparkles }, time.Second, 5*time.Millisecond)
	assert.True(t, s.State().Has(progression.SparkleEffect))
}

func TestSession_EventResetTicker(t *testing.T) {
	s := NewSession(models.SandboxConfig{SparkleDuration: time.Hour, EventResetInterval: 10 * time.Millisecond}, nil)
	defer s.Close()

	state := s.Dispatch(Water(10))
	require.NotEmpty(t, state.LastEvent)

	require.Eventually(t, func() bool { return s.State().LastEvent == "" }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 10, s.State().WaterGauge)
}

func TestSession_CloseCancelsTimers(t *testing.T) {
	s := NewSession(models.SandboxConfig{SparkleDuration: 20 * time.Millisecond, EventResetInterval: 10 * time.Millisecond}, nil)
	s.Dispatch(PositiveFeedback{})
	s.Close()
	s.Close()

	frozen := s.State()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, frozen, s.State())
	assert.True(t, frozen.Sparkles, "sparkle timer fired after close")

	after := s.Dispatch(Water(10))
	assert.Equal(t, frozen, after)
}
