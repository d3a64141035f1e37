package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ecogarden-sync-go/internal/credits"
	"ecogarden-sync-go/internal/database"
	"ecogarden-sync-go/internal/models"
)

type fakeSyncer struct {
	snapshot   models.CreditsSnapshot
	garden     models.GardenStatus
	history    []models.CreditLedgerEntry
	refreshErr error
	historyErr error
	refreshes  int
	lastLimit  int
}

func (f *fakeSyncer) UserId() int64                    { return f.snapshot.UserId }
func (f *fakeSyncer) Snapshot() models.CreditsSnapshot { return f.snapshot }
func (f *fakeSyncer) Garden() models.GardenStatus      { return f.garden }
func (f *fakeSyncer) Phase() credits.Phase             { return credits.PhaseIdle }

func (f *fakeSyncer) LastError() string {
	if f.refreshErr != nil {
		return f.refreshErr.Error()
	}
	return ""
}

func (f *fakeSyncer) Refresh(context.Context) error {
	f.refreshes++
	if f.refreshErr == nil {
		f.snapshot.TotalCredits += 10
	}
	return f.refreshErr
}

func (f *fakeSyncer) History(_ context.Context, limit int) ([]models.CreditLedgerEntry, error) {
	f.lastLimit = limit
	return f.history, f.historyErr
}

func setupServer(t *testing.T) (*fakeSyncer, http.Handler) {
	t.Helper()
	cache, err := database.NewService(context.Background(), models.CacheConfig{
		Path:         filepath.Join(t.TempDir(), "status.db"),
		MaxOpenConns: 1,
		PingTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(cache.Close)

	syncer := &fakeSyncer{
		snapshot: models.CreditsSnapshot{UserId: 1, TotalCredits: 120, State: models.SyncCommitted},
		garden:   models.GardenStatus{LevelNumber: 2, LevelName: "Sprouting", WatersCount: 3, RequiredWaters: 10},
		history: []models.CreditLedgerEntry{
			{Id: 2, Points: -10, Reason: "GARDEN_WATERING"},
			{Id: 1, Points: 130, Reason: "SEED"},
		},
	}
	return syncer, NewServer("127.0.0.1:0", NewStatusService(syncer, cache)).Handler()
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	_, h := setupServer(t)

	w := do(t, h, http.MethodGet, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestServer_Snapshot(t *testing.T) {
	_, h := setupServer(t)

	w := do(t, h, http.MethodGet, "/api/snapshot")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["total_credits"] != float64(120) {
		t.Errorf("expected total_credits=120, got %v", resp["total_credits"])
	}
	if resp["state"] != "committed" {
		t.Errorf("expected state=committed, got %v", resp["state"])
	}
	if resp["phase"] != "idle" {
		t.Errorf("expected phase=idle, got %v", resp["phase"])
	}
}

func TestServer_Garden(t *testing.T) {
	_, h := setupServer(t)

	w := do(t, h, http.MethodGet, "/api/garden")
	var resp models.GardenStatus
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.LevelNumber != 2 || resp.WatersCount != 3 {
		t.Errorf("unexpected garden: %+v", resp)
	}
}

func TestServer_History(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		wantCode  int
		wantLimit int
	}{
		{"default limit", "/api/history", http.StatusOK, defaultHistoryLimit},
		{"explicit limit", "/api/history?limit=5", http.StatusOK, 5},
		{"limit too large", "/api/history?limit=100000", http.StatusOK, defaultHistoryLimit},
		{"bad limit", "/api/history?limit=abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syncer, h := setupServer(t)
			w := do(t, h, http.MethodGet, tt.target)
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, w.Code)
			}
			if syncer.lastLimit != tt.wantLimit {
				t.Errorf("expected limit %d, got %d", tt.wantLimit, syncer.lastLimit)
			}
		})
	}
}

func TestServer_HistoryFailure(t *testing.T) {
	syncer, h := setupServer(t)
	syncer.historyErr = errors.New("backend down")

	w := do(t, h, http.MethodGet, "/api/history")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
}

func TestServer_Refresh(t *testing.T) {
	syncer, h := setupServer(t)

	w := do(t, h, http.MethodPost, "/api/refresh")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if syncer.refreshes != 1 {
		t.Errorf("expected 1 refresh, got %d", syncer.refreshes)
	}
	if !strings.Contains(w.Body.String(), `"total_credits":130`) {
		t.Errorf("refreshed total missing: %s", w.Body.String())
	}

	syncer.refreshErr = errors.New("connection refused")
	w = do(t, h, http.MethodPost, "/api/refresh")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "connection refused") {
		t.Errorf("error message missing: %s", w.Body.String())
	}
}

func TestServer_Metrics(t *testing.T) {
	_, h := setupServer(t)

	w := do(t, h, http.MethodGet, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("expected default Go collectors in /metrics output")
	}
}
