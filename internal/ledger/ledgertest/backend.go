// Package ledgertest provides an in-memory credits backend for tests.
package ledgertest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
)

type level struct {
	number         int
	name           string
	image          string
	requiredWaters int
}

// seeded garden levels of the production backend
var levels = []level{
	{1, "Seed", "/images/0.png", 10},
	{2, "Sprouting", "/images/1.png", 10},
	{3, "Seedling", "/images/2.png", 10},
	{4, "Young stem", "/images/3.png", 10},
	{5, "Leaf unfolding", "/images/4.png", 10},
	{6, "Flower bud", "/images/5.png", 10},
	{7, "Blossom", "/images/6.png", 10},
	{8, "Sapling", "/images/7.png", 10},
	{9, "Growing tree", "/images/8.png", 10},
	{10, "Lush tree", "/images/9.png", 10},
	{11, "Garden complete", "/images/10.png", 0},
}

type entry struct {
	id        int64
	kind      string
	points    int64
	reason    string
	createdAt time.Time
}

type trip struct {
	id         int64
	mode       string
	distanceKm decimal.Decimal
	co2SavedG  decimal.Decimal
	points     int64
	startedAt  time.Time
}

type account struct {
	userId      int64
	entries     []entry
	trips       []trip
	levelIdx    int
	watersCount int
	totalWaters int
}

func (a *account) total() int64 {
	var sum int64
	for _, e := range a.entries {
		sum += e.points
	}
	return sum
}

// Backend implements the /api/credits contract in memory. Users are resolved
// from the bearer token the way the production backend resolves them from a JWT.
type Backend struct {
	mu       sync.Mutex
	accounts map[int64]*account
	tokens   map[string]int64
	nextId   int64
	calls    map[string]int
	failures map[string]int
	delays   map[string]time.Duration
	now      func() time.Time

	server *httptest.Server
}

func NewBackend() *Backend {
	b := &Backend{
		accounts: make(map[int64]*account),
		tokens:   make(map[string]int64),
		calls:    make(map[string]int),
		failures: make(map[string]int),
		delays:   make(map[string]time.Duration),
		now:      time.Now,
	}
	b.server = httptest.NewServer(b.Router())
	return b
}

func (b *Backend) URL() string { return b.server.URL }

func (b *Backend) Close() { b.server.Close() }

// AddUser registers a user reachable with token and seeds their ledger with
// a single EARN entry of points.
func (b *Backend) AddUser(userId int64, token string, points int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens[token] = userId
	acct := &account{userId: userId}
	if points != 0 {
		b.nextId++
		acct.entries = append(acct.entries, entry{b.nextId, "EARN", points, "SEED", b.now()})
	}
	b.accounts[userId] = acct
}

// AddTrip logs a mobility trip that saved co2Grams and earned points
func (b *Backend) AddTrip(userId int64, mode string, co2Grams, points int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	acct := b.accounts[userId]
	b.nextId++
	acct.trips = append(acct.trips, trip{
		id:         b.nextId,
		mode:       mode,
		distanceKm: decimal.NewFromInt(co2Grams).Div(decimal.NewFromInt(100)),
		co2SavedG:  decimal.NewFromInt(co2Grams),
		points:     points,
		startedAt:  b.now(),
	})
	if points != 0 {
		b.nextId++
		acct.entries = append(acct.entries, entry{b.nextId, "EARN", points, "MOBILITY", b.now()})
	}
}

// SetTotal appends whatever entry is needed to move the user's total to points.
// It stands in for a write made by another client.
func (b *Backend) SetTotal(userId int64, points int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	acct := b.accounts[userId]
	diff := points - acct.total()
	if diff == 0 {
		return
	}
	b.nextId++
	acct.entries = append(acct.entries, entry{b.nextId, "EARN", diff, "EXTERNAL", b.now()})
}

func (b *Backend) Total(userId int64) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accounts[userId].total()
}

// Calls returns how many requests hit route, e.g. "GET /api/credits/balance"
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// FailNext makes the next request to route answer with status
func (b *Backend) FailNext(route string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = status
}

// Delay holds every request to route for d before it is served
func (b *Backend) Delay(route string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delays[route] = d
}

func (b *Backend) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api/credits", func(r chi.Router) {
		r.Get("/balance", b.handle("GET /api/credits/balance", b.balance))
		r.Post("/add", b.handle("POST /api/credits/add", b.add))
		r.Post("/update", b.handle("POST /api/credits/update", b.update))
		r.Post("/challenge/complete", b.handle("POST /api/credits/challenge/complete", b.completeChallenge))
		r.Post("/activity/complete", b.handle("POST /api/credits/activity/complete", b.completeActivity))
		r.Get("/history/{userId}", b.handle("GET /api/credits/history", b.history))
		r.Get("/garden/{userId}", b.handle("GET /api/credits/garden", b.garden))
		r.Post("/garden/water", b.handle("POST /api/credits/garden/water", b.water))
		r.Get("/mobility/{userId}", b.handle("GET /api/credits/mobility", b.mobility))
	})

	return r
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, acct *account)

func (b *Backend) handle(route string, next handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[route]++
		delay := b.delays[route]
		status, fail := b.failures[route]
		delete(b.failures, route)
		b.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		if fail {
			writeJSON(w, status, map[string]any{"detail": fmt.Sprintf("injected failure %d", status)})
			return
		}

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		b.mu.Lock()
		defer b.mu.Unlock()

		userId, ok := b.tokens[token]
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Not authenticated"})
			return
		}
		acct, ok := b.accounts[userId]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"detail": "User not found"})
			return
		}
		next(w, r, acct)
	}
}

func (b *Backend) balance(w http.ResponseWriter, _ *http.Request, acct *account) {
	var recent int64
	cutoff := b.now().AddDate(0, 0, -30)
	for _, e := range acct.entries {
		if e.kind == "EARN" && !e.createdAt.Before(cutoff) {
			recent += e.points
		}
	}
	carbon := decimal.Zero
	for _, t := range acct.trips {
		carbon = carbon.Add(t.co2SavedG)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":                acct.userId,
		"total_points":           acct.total(),
		"recent_earned":          recent,
		"last_updated":           b.now().UTC().Format("2006-01-02T15:04:05.000000"),
		"total_carbon_reduced_g": carbon,
	})
}

func (b *Backend) add(w http.ResponseWriter, r *http.Request, acct *account) {
	var req struct {
		UserId int64  `json:"user_id"`
		Points int64  `json:"points"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []string{"body"}, "msg": "invalid body"}},
		})
		return
	}

	if req.Points < 0 && acct.total()+req.Points < 0 {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Insufficient credits"})
		return
	}

	kind, action := "EARN", "Added"
	if req.Points <= 0 {
		kind, action = "SPEND", "Deducted"
	}
	b.nextId++
	acct.entries = append(acct.entries, entry{b.nextId, kind, req.Points, req.Reason, b.now()})

	abs := req.Points
	if abs < 0 {
		abs = -abs
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("%s %d points successfully", action, abs),
	})
}

// update books the difference to total_points, taken from the query string
// or the JSON body, as one MANUAL_UPDATE entry.
func (b *Backend) update(w http.ResponseWriter, r *http.Request, acct *account) {
	var req struct {
		TotalPoints *int64 `json:"total_points"`
	}
	if raw := r.URL.Query().Get("total_points"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": "invalid total_points"})
			return
		}
		req.TotalPoints = &n
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TotalPoints == nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": "total_points is required"})
		return
	}
	if *req.TotalPoints < 0 {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Points update failed"})
		return
	}

	if diff := *req.TotalPoints - acct.total(); diff != 0 {
		kind := "EARN"
		if diff < 0 {
			kind = "SPEND"
		}
		b.nextId++
		acct.entries = append(acct.entries, entry{b.nextId, kind, diff, "MANUAL_UPDATE", b.now()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Points updated successfully"})
}

func (b *Backend) completeChallenge(w http.ResponseWriter, r *http.Request, acct *account) {
	req := struct {
		ChallengeId   string `json:"challenge_id"`
		ChallengeType string `json:"challenge_type"`
		Points        int64  `json:"points"`
		ChallengeName string `json:"challenge_name"`
	}{ChallengeType: "daily", Points: 100}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": "invalid body"})
		return
	}
	if req.ChallengeName == "" {
		req.ChallengeName = "Challenge"
	}

	b.nextId++
	acct.entries = append(acct.entries, entry{b.nextId, "EARN", req.Points, req.ChallengeName + " completed", b.now()})
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       fmt.Sprintf("%s completed! Earned %d credits", req.ChallengeName, req.Points),
		"points_earned": req.Points,
	})
}

func (b *Backend) completeActivity(w http.ResponseWriter, r *http.Request, acct *account) {
	req := struct {
		ActivityType string  `json:"activity_type"`
		Distance     float64 `json:"distance"`
		CarbonSaved  float64 `json:"carbon_saved"`
		Points       int64   `json:"points"`
		Route        string  `json:"route"`
	}{ActivityType: "subway", Points: 50}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": "invalid body"})
		return
	}

	b.nextId++
	acct.entries = append(acct.entries, entry{b.nextId, "EARN", req.Points, req.ActivityType + " trip", b.now()})
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       fmt.Sprintf("Earned %d credits for %s", req.Points, req.ActivityType),
		"points_earned": req.Points,
		"carbon_saved":  req.CarbonSaved,
	})
}

func (b *Backend) history(w http.ResponseWriter, r *http.Request, acct *account) {
	limit := queryLimit(r)
	sorted := make([]entry, len(acct.entries))
	copy(sorted, acct.entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].id > sorted[j].id })
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]map[string]any, 0, len(sorted))
	for _, e := range sorted {
		out = append(out, map[string]any{
			"entry_id":   e.id,
			"type":       e.kind,
			"points":     e.points,
			"reason":     e.reason,
			"created_at": e.createdAt.UTC().Format("2006-01-02T15:04:05.000000"),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) garden(w http.ResponseWriter, _ *http.Request, acct *account) {
	lvl := levels[acct.levelIdx]
	status := "IN_PROGRESS"
	if acct.watersCount >= lvl.requiredWaters {
		status = "COMPLETED"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":         acct.userId,
		"level_number":    lvl.number,
		"level_name":      lvl.name,
		"image_path":      lvl.image,
		"waters_count":    acct.watersCount,
		"total_waters":    acct.totalWaters,
		"required_waters": lvl.requiredWaters,
		"status":          status,
	})
}

func (b *Backend) water(w http.ResponseWriter, r *http.Request, acct *account) {
	var req struct {
		UserId      int64 `json:"user_id"`
		PointsSpent int64 `json:"points_spent"`
	}
	req.PointsSpent = 10
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": "invalid body"})
		return
	}

	before := acct.total()
	if before < req.PointsSpent {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Insufficient points"})
		return
	}

	b.nextId++
	acct.entries = append(acct.entries, entry{b.nextId, "SPEND", -req.PointsSpent, "GARDEN_WATERING", b.now()})
	acct.watersCount++
	acct.totalWaters++

	levelUp := false
	var newLevel any
	if acct.watersCount >= levels[acct.levelIdx].requiredWaters && acct.levelIdx+1 < len(levels) {
		acct.levelIdx++
		acct.watersCount = 0
		levelUp = true
		newLevel = levels[acct.levelIdx].name
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"waters_count":     acct.watersCount,
		"total_waters":     acct.totalWaters,
		"level_up":         levelUp,
		"new_level":        newLevel,
		"points_spent":     req.PointsSpent,
		"remaining_points": before - req.PointsSpent,
	})
}

func (b *Backend) mobility(w http.ResponseWriter, r *http.Request, acct *account) {
	limit := queryLimit(r)
	out := make([]map[string]any, 0, len(acct.trips))
	for i := len(acct.trips) - 1; i >= 0 && len(out) < limit; i-- {
		t := acct.trips[i]
		out = append(out, map[string]any{
			"log_id":        t.id,
			"mode":          t.mode,
			"distance_km":   t.distanceKm,
			"co2_saved_g":   t.co2SavedG,
			"points_earned": t.points,
			"description":   nil,
			"started_at":    t.startedAt.UTC().Format("2006-01-02T15:04:05.000000"),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func queryLimit(r *http.Request) int {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
