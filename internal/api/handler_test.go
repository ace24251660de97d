package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/github-ma-intel/internal/cache"
	apperrors "github.com/Kamar-Folarin/github-ma-intel/internal/errors"
	"github.com/Kamar-Folarin/github-ma-intel/internal/github"
	"github.com/Kamar-Folarin/github-ma-intel/internal/models"
	"github.com/Kamar-Folarin/github-ma-intel/internal/refresh"
)

// MockService is a mock implementation of Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	args := m.Called(ctx)
	snap, _ := args.Get(0).(*models.Snapshot)
	return snap, args.Error(1)
}

func (m *MockService) Analysis(ctx context.Context) (*models.AnalysisResult, error) {
	args := m.Called(ctx)
	result, _ := args.Get(0).(*models.AnalysisResult)
	return result, args.Error(1)
}

func (m *MockService) ForceRefresh(ctx context.Context) (*models.AnalysisResult, error) {
	args := m.Called(ctx)
	result, _ := args.Get(0).(*models.AnalysisResult)
	return result, args.Error(1)
}

func (m *MockService) Trigger(reason string) bool {
	return m.Called(reason).Bool(0)
}

func (m *MockService) CachedSnapshot() (*models.Snapshot, bool) {
	args := m.Called()
	snap, _ := args.Get(0).(*models.Snapshot)
	return snap, args.Bool(1)
}

func (m *MockService) CachedAnalysis() (*models.AnalysisResult, bool) {
	args := m.Called()
	result, _ := args.Get(0).(*models.AnalysisResult)
	return result, args.Bool(1)
}

func (m *MockService) CacheInfo() []cache.EntryInfo {
	infos, _ := m.Called().Get(0).([]cache.EntryInfo)
	return infos
}

func (m *MockService) Status() refresh.Status {
	status, _ := m.Called().Get(0).(refresh.Status)
	return status
}

type staticQuota github.RateLimitInfo

func (q staticQuota) RateLimit() github.RateLimitInfo { return github.RateLimitInfo(q) }

var testTime = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

func testSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Timestamp: testTime,
		Repositories: []models.RepositoryRecord{
			{ID: 1, FullName: "golang/go", Language: "Go", Stars: 120000},
			{ID: 2, FullName: "facebook/react", Language: "JavaScript", Stars: 220000},
			{ID: 3, FullName: "gin-gonic/gin", Language: "Go", Stars: 75000},
		},
		TransferEvents: []models.TransferEvent{
			{RepoID: 2, RepoName: "facebook/react", OldOwner: "facebook", NewOwner: "facebook", Confidence: 0.95},
			{RepoID: 9, RepoName: "x/y", OldOwner: "google", NewOwner: "x", Confidence: 0.4},
		},
		OrgActivity: map[string][]models.OrgEvent{
			"google": {{ID: "1", Type: "PushEvent"}},
		},
		Metadata: models.SnapshotMetadata{TotalRepositories: 3, TotalContributorsAnalyzed: 42},
	}
}

func testAnalysis() *models.AnalysisResult {
	return &models.AnalysisResult{
		Timestamp:         testTime.Add(time.Minute),
		SnapshotTimestamp: testTime,
		Anomalies: []models.AnomalyResult{
			{RepoID: 1, RiskTier: models.RiskHigh},
			{RepoID: 2, RiskTier: models.RiskLow},
			{RepoID: 3, RiskTier: models.RiskHigh},
		},
		AcquisitionPredictions: []models.PredictionResult{
			{Entity: "golang/go", Probability: 0.9},
			{Entity: "gin-gonic/gin", Probability: 0.2},
		},
		RiskAssessment: models.RiskAssessment{TotalAnomalies: 3, HighRiskCount: 2, OverallRiskLevel: models.RiskMedium},
		PredictionMode: "trained",
	}
}

func setupTestHandler(opts ...HandlerOption) (*gin.Engine, *MockService) {
	gin.SetMode(gin.TestMode)
	svc := new(MockService)
	logger := logrus.New()
	logger.SetOutput(bytes.NewBuffer(nil)) // Discard logs during tests
	return SetupRouter(NewHandler(svc, logger, opts...)), svc
}

func doRequest(router *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	router, _ := setupTestHandler()
	w := doRequest(router, "GET", "/api/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode[HealthResponse](t, w)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, Version, body.Version)
}

func TestGetCurrentData(t *testing.T) {
	t.Run("fresh", func(t *testing.T) {
		router, svc := setupTestHandler()
		svc.On("Snapshot", mock.Anything).Return(testSnapshot(), nil)

		w := doRequest(router, "GET", "/api/data/current", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-Cache-Status"))
		body := decode[models.Snapshot](t, w)
		assert.Len(t, body.Repositories, 3)
	})

	t.Run("stale on failure", func(t *testing.T) {
		router, svc := setupTestHandler()
		svc.On("Snapshot", mock.Anything).Return(testSnapshot(), apperrors.NewCacheComputeError("snapshot", errors.New("down")))

		w := doRequest(router, "GET", "/api/data/current", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "STALE", w.Header().Get("X-Cache-Status"))
	})

	t.Run("nothing cached", func(t *testing.T) {
		router, svc := setupTestHandler()
		svc.On("Snapshot", mock.Anything).Return(nil,
			apperrors.NewCacheComputeError("snapshot", apperrors.NewEmptySnapshotError("no repositories", nil)))

		w := doRequest(router, "GET", "/api/data/current", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, ErrorResponse{Error: "Failed to retrieve current data"}, decode[ErrorResponse](t, w))
	})

	t.Run("bad credentials", func(t *testing.T) {
		router, svc := setupTestHandler()
		svc.On("Snapshot", mock.Anything).Return(nil, github.NewAuthError(401, "Bad credentials"))

		w := doRequest(router, "GET", "/api/data/current", nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestListRepositories(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedNames  []string
	}{
		{name: "no filters", query: "", expectedStatus: http.StatusOK, expectedNames: []string{"golang/go", "facebook/react", "gin-gonic/gin"}},
		{name: "language", query: "?language=Go", expectedStatus: http.StatusOK, expectedNames: []string{"golang/go", "gin-gonic/gin"}},
		{name: "min stars", query: "?min_stars=100000", expectedStatus: http.StatusOK, expectedNames: []string{"golang/go", "facebook/react"}},
		{name: "limit", query: "?language=Go&limit=1", expectedStatus: http.StatusOK, expectedNames: []string{"golang/go"}},
		{name: "zero limit", query: "?limit=0", expectedStatus: http.StatusOK, expectedNames: []string{}},
		{name: "invalid limit", query: "?limit=abc", expectedStatus: http.StatusBadRequest},
		{name: "negative stars", query: "?min_stars=-5", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, svc := setupTestHandler()
			svc.On("Snapshot", mock.Anything).Return(testSnapshot(), nil)

			w := doRequest(router, "GET", "/api/repositories"+tt.query, nil)
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusOK {
				svc.AssertNotCalled(t, "Snapshot", mock.Anything)
				return
			}
			body := decode[RepositoriesResponse](t, w)
			names := []string{}
			for _, r := range body.Repositories {
				names = append(names, r.FullName)
			}
			assert.Equal(t, tt.expectedNames, names)
			assert.Equal(t, len(tt.expectedNames), body.Count)
		})
	}
}

func TestListAnomalies(t *testing.T) {
	router, svc := setupTestHandler()
	svc.On("Analysis", mock.Anything).Return(testAnalysis(), nil)

	w := doRequest(router, "GET", "/api/anomalies?risk_level=high", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode[AnomaliesResponse](t, w)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, []models.RiskTier{models.RiskHigh}, body.RiskLevels)

	w = doRequest(router, "GET", "/api/anomalies", nil)
	body = decode[AnomaliesResponse](t, w)
	assert.Equal(t, 3, body.Count)
	assert.ElementsMatch(t, []models.RiskTier{models.RiskHigh, models.RiskLow}, body.RiskLevels)

	w = doRequest(router, "GET", "/api/anomalies?risk_level=severe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPredictions(t *testing.T) {
	router, svc := setupTestHandler()
	svc.On("Analysis", mock.Anything).Return(testAnalysis(), nil)

	w := doRequest(router, "GET", "/api/predictions?min_probability=0.5", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode[PredictionsResponse](t, w)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "golang/go", body.Predictions[0].Entity)
	assert.Equal(t, "trained", body.PredictionMode)

	for _, q := range []string{"abc", "1.5", "-0.1"} {
		w = doRequest(router, "GET", "/api/predictions?min_probability="+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestListTransfers(t *testing.T) {
	router, svc := setupTestHandler()
	svc.On("Snapshot", mock.Anything).Return(testSnapshot(), nil)

	w := doRequest(router, "GET", "/api/transfers?confidence_min=0.9", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode[TransfersResponse](t, w)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "facebook/react", body.Transfers[0].RepoName)

	w = doRequest(router, "GET", "/api/transfers", nil)
	assert.Equal(t, 2, decode[TransfersResponse](t, w).Count)

	// facebook/react is a restructuring reference with an unchanged owner
	w = doRequest(router, "GET", "/api/transfers?ownership_only=true", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body = decode[TransfersResponse](t, w)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "x/y", body.Transfers[0].RepoName)
	assert.True(t, body.OwnershipOnly)

	w = doRequest(router, "GET", "/api/transfers?ownership_only=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrganizationActivity(t *testing.T) {
	router, svc := setupTestHandler()
	svc.On("Snapshot", mock.Anything).Return(testSnapshot(), nil)

	w := doRequest(router, "GET", "/api/organizations/google/activity", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode[OrganizationActivityResponse](t, w)
	assert.Equal(t, "google", body.Organization)
	assert.Equal(t, 1, body.Count)

	w = doRequest(router, "GET", "/api/organizations/unknown/activity", nil)
	body = decode[OrganizationActivityResponse](t, w)
	assert.Equal(t, 0, body.Count)
	assert.NotNil(t, body.Activities)
}

func TestRefresh(t *testing.T) {
	auth := http.Header{"Authorization": []string{"Bearer s3cret"}}

	t.Run("requires token", func(t *testing.T) {
		router, svc := setupTestHandler(WithAdminToken("s3cret"))
		w := doRequest(router, "POST", "/api/refresh", http.Header{"Authorization": []string{"Bearer wrong"}})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		svc.AssertNotCalled(t, "ForceRefresh", mock.Anything)
	})

	t.Run("synchronous", func(t *testing.T) {
		router, svc := setupTestHandler(WithAdminToken("s3cret"))
		svc.On("ForceRefresh", mock.Anything).Return(testAnalysis(), nil)
		svc.On("CachedSnapshot").Return(testSnapshot(), true)

		w := doRequest(router, "POST", "/api/refresh", auth)
		assert.Equal(t, http.StatusOK, w.Code)
		body := decode[RefreshResponse](t, w)
		assert.Equal(t, "success", body.Status)
		assert.Equal(t, 3, body.RepositoriesCollected)
		assert.Equal(t, 3, body.AnomaliesDetected)
		assert.Equal(t, 2, body.PredictionsGenerated)
		assert.NotEmpty(t, body.RequestID)
		svc.AssertExpectations(t)
	})

	t.Run("asynchronous", func(t *testing.T) {
		router, svc := setupTestHandler()
		svc.On("Trigger", refresh.ReasonManual).Return(true).Once()
		svc.On("Trigger", refresh.ReasonManual).Return(false).Once()

		w := doRequest(router, "POST", "/api/refresh?async=true", nil)
		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, "queued", decode[RefreshResponse](t, w).Status)

		w = doRequest(router, "POST", "/api/refresh?async=true", nil)
		assert.Equal(t, "coalesced", decode[RefreshResponse](t, w).Status)
		svc.AssertNotCalled(t, "ForceRefresh", mock.Anything)
	})

	t.Run("failure", func(t *testing.T) {
		router, svc := setupTestHandler()
		svc.On("ForceRefresh", mock.Anything).Return(nil, github.NewRateLimitError(testTime, 5000, 0))

		w := doRequest(router, "POST", "/api/refresh", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestGetStats(t *testing.T) {
	t.Run("empty cache", func(t *testing.T) {
		router, svc := setupTestHandler()
		svc.On("CacheInfo").Return([]cache.EntryInfo{{Key: "snapshot", Status: cache.StatusEmpty}})
		svc.On("Status").Return(refresh.Status{})
		svc.On("CachedSnapshot").Return(nil, false)
		svc.On("CachedAnalysis").Return(nil, false)

		w := doRequest(router, "GET", "/api/stats", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		body := decode[StatsResponse](t, w)
		assert.Zero(t, body.RepositoriesMonitored)
		assert.Nil(t, body.LastUpdate)
		assert.Nil(t, body.RateLimit)
		svc.AssertNotCalled(t, "Snapshot", mock.Anything)
	})

	t.Run("populated", func(t *testing.T) {
		quota := staticQuota{Limit: 5000, Remaining: 4200, ResetTime: testTime, Known: true}
		router, svc := setupTestHandler(WithQuotaReporter(quota))
		svc.On("CacheInfo").Return([]cache.EntryInfo{})
		svc.On("Status").Return(refresh.Status{Completed: 4})
		svc.On("CachedSnapshot").Return(testSnapshot(), true)
		svc.On("CachedAnalysis").Return(testAnalysis(), true)

		w := doRequest(router, "GET", "/api/stats", nil)
		body := decode[StatsResponse](t, w)
		assert.Equal(t, 3, body.RepositoriesMonitored)
		assert.Equal(t, 42, body.ContributorsAnalyzed)
		assert.Equal(t, 3, body.AnomaliesDetected)
		assert.Equal(t, 2, body.HighRiskAnomalies)
		assert.Equal(t, 2, body.AcquisitionPredictions)
		assert.Equal(t, 2, body.TransferEvents)
		assert.Equal(t, 4, body.Refresh.Completed)
		require.NotNil(t, body.LastUpdate)
		assert.True(t, body.LastUpdate.Equal(testTime))
		require.NotNil(t, body.RateLimit)
		assert.Equal(t, 4200, body.RateLimit.Remaining)
	})
}
