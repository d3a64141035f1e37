package ledger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ecogarden-sync-go/internal/ledger/ledgertest"
	"ecogarden-sync-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "token-1"

func setupLedger(t *testing.T) (*Service, *ledgertest.Backend) {
	t.Helper()

	backend := ledgertest.NewBackend()
	t.Cleanup(backend.Close)
	backend.AddUser(1, testToken, 100)

	svc, err := NewService(models.BackendConfig{BaseURL: backend.URL() + "/", Timeout: 5 * time.Second}, StaticToken(testToken))
	require.NoError(t, err)
	return svc, backend
}

func TestNewService_RequiresBaseURL(t *testing.T) {
	_, err := NewService(models.BackendConfig{}, nil)
	require.Error(t, err)
}

func TestFetchBalance(t *testing.T) {
	svc, backend := setupLedger(t)
	backend.AddTrip(1, "BUS", 1500, 15)

	balance, err := svc.FetchBalance(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), balance.UserId)
	assert.Equal(t, int64(115), balance.TotalPoints)
	assert.True(t, balance.TotalCarbonReducedKg.Equal(decimal.RequireFromString("1.5")),
		"carbon kg = %s", balance.TotalCarbonReducedKg)
	assert.False(t, balance.LastUpdated.IsZero())
}

func TestFetchBalance_Unauthorized(t *testing.T) {
	backend := ledgertest.NewBackend()
	defer backend.Close()

	svc, err := NewService(models.BackendConfig{BaseURL: backend.URL()}, StaticToken("nope"))
	require.NoError(t, err)

	_, err = svc.FetchBalance(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Not authenticated", apiErr.Message)
}

func TestAddCredits(t *testing.T) {
	svc, backend := setupLedger(t)

	result, err := svc.AddCredits(context.Background(), 1, 25, "CHALLENGE")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Added 25 points successfully", result.Message)
	assert.Equal(t, int64(125), backend.Total(1))
}

func TestAddCredits_RejectedWithSuccessFalse(t *testing.T) {
	svc, backend := setupLedger(t)

	_, err := svc.AddCredits(context.Background(), 1, -500, "SHOP")
	require.Error(t, err)
	assert.True(t, IsAPIError(err))
	assert.Equal(t, "Insufficient credits", Message(err))
	assert.Equal(t, int64(100), backend.Total(1))
}

func TestAddCredits_ServerError(t *testing.T) {
	svc, backend := setupLedger(t)
	backend.FailNext("POST /api/credits/add", http.StatusInternalServerError)

	_, err := svc.AddCredits(context.Background(), 1, 5, "CHALLENGE")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "injected failure 500", apiErr.Message)
	assert.Equal(t, 1, backend.Calls("POST /api/credits/add"), "no retries")
}

func TestUpdateCredits_BooksDifference(t *testing.T) {
	svc, backend := setupLedger(t)
	ctx := context.Background()

	require.NoError(t, svc.UpdateCredits(ctx, 1, 40))
	assert.Equal(t, int64(40), backend.Total(1))

	entries, err := svc.FetchHistory(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "SPEND", entries[0].Type)
	assert.Equal(t, int64(-60), entries[0].Points)
	assert.Equal(t, "MANUAL_UPDATE", entries[0].Reason)

	require.NoError(t, svc.UpdateCredits(ctx, 1, 40))
	assert.Len(t, mustHistory(t, svc, 10), 2, "unchanged total books nothing")
}

func TestUpdateCredits_RejectedWithSuccessFalse(t *testing.T) {
	svc, backend := setupLedger(t)

	err := svc.UpdateCredits(context.Background(), 1, -5)
	require.Error(t, err)
	assert.True(t, IsAPIError(err))
	assert.Equal(t, "Points update failed", Message(err))
	assert.Equal(t, int64(100), backend.Total(1))
}

func TestCompleteChallenge(t *testing.T) {
	svc, backend := setupLedger(t)
	ctx := context.Background()

	result, err := svc.CompleteChallenge(ctx, 1, models.ChallengeCompletion{
		ChallengeId:   "c-7",
		ChallengeType: "daily",
		Name:          "Meatless Monday",
		Points:        30,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(30), result.PointsEarned)
	assert.Equal(t, "Meatless Monday completed! Earned 30 credits", result.Message)
	assert.Equal(t, int64(130), backend.Total(1))

	entries := mustHistory(t, svc, 1)
	assert.Equal(t, "Meatless Monday completed", entries[0].Reason)
}

func TestCompleteActivity(t *testing.T) {
	svc, backend := setupLedger(t)

	result, err := svc.CompleteActivity(context.Background(), 1, models.ActivityCompletion{
		ActivityType:  "subway",
		DistanceKm:    decimal.RequireFromString("12.5"),
		CarbonSavedKg: decimal.RequireFromString("1.1"),
		Points:        50,
		Route:         "Home → Office",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50), result.PointsEarned)
	assert.Equal(t, int64(150), backend.Total(1))
	assert.Equal(t, "subway trip", mustHistory(t, svc, 1)[0].Reason)
}

func TestCompleteChallenge_ServerError(t *testing.T) {
	svc, backend := setupLedger(t)
	backend.FailNext("POST /api/credits/challenge/complete", http.StatusInternalServerError)

	_, err := svc.CompleteChallenge(context.Background(), 1, models.ChallengeCompletion{ChallengeId: "c-1", Points: 10})
	require.Error(t, err)
	assert.Equal(t, "injected failure 500", Message(err))
	assert.Equal(t, int64(100), backend.Total(1))
}

func mustHistory(t *testing.T, svc *Service, limit int) []models.CreditLedgerEntry {
	t.Helper()
	entries, err := svc.FetchHistory(context.Background(), 1, limit)
	require.NoError(t, err)
	return entries
}

func TestFetchHistory_MostRecentFirst(t *testing.T) {
	svc, _ := setupLedger(t)
	ctx := context.Background()

	_, err := svc.AddCredits(ctx, 1, 10, "A")
	require.NoError(t, err)
	_, err = svc.AddCredits(ctx, 1, -20, "B")
	require.NoError(t, err)

	entries, err := svc.FetchHistory(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "B", entries[0].Reason)
	assert.Equal(t, int64(-20), entries[0].Points)
	assert.Equal(t, "SPEND", entries[0].Type)
	assert.Equal(t, "A", entries[1].Reason)
}

func TestGardenStatusAndWater(t *testing.T) {
	svc, backend := setupLedger(t)
	ctx := context.Background()

	status, err := svc.FetchGardenStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.GardenStatus{
		LevelNumber:    1,
		LevelName:      "Seed",
		ImagePath:      "/images/0.png",
		RequiredWaters: 10,
		Status:         "IN_PROGRESS",
	}, *status)

	result, err := svc.WaterGarden(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.WatersCount)
	assert.Equal(t, int64(90), result.RemainingPoints)
	assert.Equal(t, int64(90), backend.Total(1))
}

func TestWaterGarden_InsufficientPoints(t *testing.T) {
	svc, _ := setupLedger(t)

	_, err := svc.WaterGarden(context.Background(), 1, 1000)
	require.Error(t, err)
	assert.Equal(t, "Insufficient points", Message(err))
}

func TestFetchMobility(t *testing.T) {
	svc, backend := setupLedger(t)
	backend.AddTrip(1, "BUS", 1200, 12)
	backend.AddTrip(1, "BIKE", 300, 3)

	logs, err := svc.FetchMobility(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "BIKE", logs[0].Mode)
	assert.True(t, logs[0].CO2SavedG.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, int64(3), logs[0].PointsEarned)
}

func TestBearerTokenOmittedWhenEmpty(t *testing.T) {
	var header string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user_id":1,"total_points":0,"total_carbon_reduced_g":0}`))
	}))
	defer server.Close()

	svc, err := NewService(models.BackendConfig{BaseURL: server.URL}, StaticToken(""))
	require.NoError(t, err)

	_, err = svc.FetchBalance(context.Background())
	require.NoError(t, err)
	assert.Empty(t, header)
}

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"success":false,"message":"User not found"}`, "User not found"},
		{"detail string", `{"detail":"Insufficient points"}`, "Insufficient points"},
		{"detail list", `{"detail":[{"msg":"field required"},{"msg":"value is not a valid integer"}]}`, "field required; value is not a valid integer"},
		{"plain text", `Bad Gateway`, "Bad Gateway"},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractMessage([]byte(tt.body)))
		})
	}
}

func TestNewAPIError_FallsBackToStatusText(t *testing.T) {
	err := newAPIError(http.StatusBadGateway, nil)
	assert.Equal(t, "Bad Gateway", err.Message)
	assert.Equal(t, "backend returned 502: Bad Gateway", err.Error())
}
