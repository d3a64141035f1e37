package credits

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ecogarden-sync-go/internal/database"
	"ecogarden-sync-go/internal/ledger"
	"ecogarden-sync-go/internal/ledger/ledgertest"
	"ecogarden-sync-go/internal/models"
	"ecogarden-sync-go/internal/store"

	"github.com/stretchr/testify/require"
)

const testUser int64 = 1

type fixture struct {
	syncer    *Syncer
	backend   *ledgertest.Backend
	cache     *database.Service
	cachePath string
}

func setupSyncer(t *testing.T, points int64) *fixture {
	t.Helper()
	ctx := context.Background()

	backend := ledgertest.NewBackend()
	t.Cleanup(backend.Close)
	backend.AddUser(testUser, "tok-1", points)

	client, err := ledger.NewService(models.BackendConfig{BaseURL: backend.URL(), Timeout: 5 * time.Second}, ledger.StaticToken("tok-1"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ecogarden.db")
	cache := openCache(t, path)

	s := NewSyncer(SyncerConfig{
		Ledger:           client,
		Cache:            cache,
		WriterId:         "proc-a",
		FreshnessWindow:  5 * time.Minute,
		WaterSettleDelay: time.Millisecond,
	})
	require.NoError(t, s.SetUser(ctx, testUser))

	return &fixture{syncer: s, backend: backend, cache: cache, cachePath: path}
}

func openCache(t *testing.T, path string) *database.Service {
	t.Helper()
	cache, err := database.NewService(context.Background(), models.CacheConfig{
		Path:         path,
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		PingTimeout:  time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(cache.Close)
	return cache
}

// stubLedger answers from memory; hooks let tests hold a call mid-flight
type stubLedger struct {
	mu           sync.Mutex
	total        int64
	balanceCalls int
	addCalls     int
	onBalance    func(call int) int64
	onAdd        func(call int) error
}

func (l *stubLedger) FetchBalance(ctx context.Context) (*models.Balance, error) {
	l.mu.Lock()
	l.balanceCalls++
	call, total, hook := l.balanceCalls, l.total, l.onBalance
	l.mu.Unlock()

	if hook != nil {
		total = hook(call)
	}
	return &models.Balance{UserId: testUser, TotalPoints: total, LastUpdated: time.Now()}, nil
}

func (l *stubLedger) AddCredits(ctx context.Context, userId, points int64, reason string) (*models.AddCreditsResult, error) {
	l.mu.Lock()
	l.addCalls++
	call, hook := l.addCalls, l.onAdd
	l.mu.Unlock()

	if hook != nil {
		if err := hook(call); err != nil {
			return nil, err
		}
	}

	l.mu.Lock()
	l.total += points
	l.mu.Unlock()
	return &models.AddCreditsResult{Success: true}, nil
}

func (l *stubLedger) UpdateCredits(_ context.Context, _, total int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.total = total
	return nil
}

func (l *stubLedger) CompleteChallenge(ctx context.Context, userId int64, c models.ChallengeCompletion) (*models.CompletionResult, error) {
	if _, err := l.AddCredits(ctx, userId, c.Points, c.Name); err != nil {
		return nil, err
	}
	return &models.CompletionResult{PointsEarned: c.Points}, nil
}

func (l *stubLedger) CompleteActivity(ctx context.Context, userId int64, a models.ActivityCompletion) (*models.CompletionResult, error) {
	if _, err := l.AddCredits(ctx, userId, a.Points, a.ActivityType); err != nil {
		return nil, err
	}
	return &models.CompletionResult{PointsEarned: a.Points}, nil
}

func (l *stubLedger) FetchHistory(context.Context, int64, int) ([]models.CreditLedgerEntry, error) {
	return nil, nil
}

func (l *stubLedger) FetchGardenStatus(context.Context, int64) (*models.GardenStatus, error) {
	return &models.GardenStatus{LevelNumber: 1, RequiredWaters: 10, Status: "IN_PROGRESS"}, nil
}

func (l *stubLedger) WaterGarden(context.Context, int64, int64) (*models.WaterResult, error) {
	return &models.WaterResult{Success: true}, nil
}

func (l *stubLedger) FetchMobility(context.Context, int64, int) ([]models.MobilityLog, error) {
	return nil, nil
}

func (l *stubLedger) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceCalls
}

// memCache is a map-backed store.CacheStore
type memCache struct {
	mu        sync.Mutex
	snapshots map[int64]models.CachedSnapshot
	history   map[int64][]models.CreditLedgerEntry
	values    map[string]string
}

func newMemCache() *memCache {
	return &memCache{
		snapshots: make(map[int64]models.CachedSnapshot),
		history:   make(map[int64][]models.CreditLedgerEntry),
		values:    make(map[string]string),
	}
}

func (c *memCache) LoadSnapshot(_ context.Context, userId int64) (*models.CachedSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.snapshots[userId]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &snap, nil
}

func (c *memCache) SaveSnapshot(_ context.Context, p store.SaveSnapshotParams) (*models.CachedSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.snapshots[p.UserId]
	if p.ExpectedRevision > 0 && prev.Revision != p.ExpectedRevision {
		return nil, store.ErrConcurrentModification
	}
	snap := models.CachedSnapshot{
		UserId:               p.UserId,
		TotalCredits:         p.TotalCredits,
		TotalCarbonReducedKg: p.TotalCarbonReducedKg,
		RecentEarned:         p.RecentEarned,
		Revision:             prev.Revision + 1,
		WriterId:             p.WriterId,
		UpdatedAt:            p.UpdatedAt,
	}
	c.snapshots[p.UserId] = snap
	return &snap, nil
}

func (c *memCache) LatestRevision(_ context.Context, userId int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshots[userId].Revision, nil
}

func (c *memCache) ReplaceHistory(_ context.Context, userId int64, entries []models.CreditLedgerEntry, _ bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history[userId] = entries
	return nil
}

func (c *memCache) LoadHistory(_ context.Context, userId int64, _ int) ([]models.CreditLedgerEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history[userId], nil
}

func (c *memCache) VerifyHistory(context.Context, int64) (bool, error) { return false, nil }

func (c *memCache) GetValue(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (c *memCache) SetValue(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *memCache) DeleteValue(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

func (c *memCache) Path() string { return ":memory:" }

func (c *memCache) Close() {}
