package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/github-ma-intel/internal/cache"
	apperrors "github.com/Kamar-Folarin/github-ma-intel/internal/errors"
	"github.com/Kamar-Folarin/github-ma-intel/internal/github"
	"github.com/Kamar-Folarin/github-ma-intel/internal/models"
	"github.com/Kamar-Folarin/github-ma-intel/internal/refresh"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

const defaultRepositoryLimit = 50

// Service is the read and refresh surface the handlers depend on
type Service interface {
	Snapshot(ctx context.Context) (*models.Snapshot, error)
	Analysis(ctx context.Context) (*models.AnalysisResult, error)
	ForceRefresh(ctx context.Context) (*models.AnalysisResult, error)
	Trigger(reason string) bool
	CachedSnapshot() (*models.Snapshot, bool)
	CachedAnalysis() (*models.AnalysisResult, bool)
	CacheInfo() []cache.EntryInfo
	Status() refresh.Status
}

// QuotaReporter exposes the last observed GitHub quota
type QuotaReporter interface {
	RateLimit() github.RateLimitInfo
}

var _ Service = (*refresh.Service)(nil)

type Handler struct {
	service    Service
	quota      QuotaReporter
	adminToken string
	auth       *Authenticator
	logger     *logrus.Logger
}

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithAdminToken protects the refresh endpoint with a bearer token
func WithAdminToken(token string) HandlerOption {
	return func(h *Handler) {
		h.adminToken = token
	}
}

// WithAuthenticator enables admin login and accepts its tokens on the
// refresh endpoint. A nil authenticator leaves login disabled.
func WithAuthenticator(a *Authenticator) HandlerOption {
	return func(h *Handler) {
		h.auth = a
	}
}

// WithQuotaReporter adds the GitHub quota to the stats endpoint
func WithQuotaReporter(q QuotaReporter) HandlerOption {
	return func(h *Handler) {
		h.quota = q
	}
}

func NewHandler(service Service, logger *logrus.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		service: service,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// statusFor maps a pipeline error to the HTTP status returned when no
// cached value can be served
func statusFor(err error) int {
	switch {
	case apperrors.IsInvalidInput(err):
		return http.StatusBadRequest
	case apperrors.IsNotFound(err):
		return http.StatusNotFound
	case apperrors.IsAuth(err):
		return http.StatusBadGateway
	case apperrors.IsRateLimit(err), apperrors.IsTransient(err), apperrors.IsEmptySnapshot(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// snapshot returns the current snapshot. When recomputing fails but a
// previous snapshot exists, the stale value is served.
func (h *Handler) snapshot(c *gin.Context) (*models.Snapshot, bool) {
	snap, err := h.service.Snapshot(c.Request.Context())
	if err != nil {
		if snap != nil {
			h.logger.WithError(err).Warn("Serving stale snapshot")
			c.Header("X-Cache-Status", string(cache.StatusStale))
			return snap, true
		}
		h.logger.WithError(err).Error("Failed to get current data")
		c.JSON(statusFor(err), ErrorResponse{Error: "Failed to retrieve current data"})
		return nil, false
	}
	return snap, true
}

func (h *Handler) analysis(c *gin.Context) (*models.AnalysisResult, bool) {
	result, err := h.service.Analysis(c.Request.Context())
	if err != nil {
		if result != nil {
			h.logger.WithError(err).Warn("Serving stale analysis")
			c.Header("X-Cache-Status", string(cache.StatusStale))
			return result, true
		}
		h.logger.WithError(err).Error("Failed to get analysis")
		c.JSON(statusFor(err), ErrorResponse{Error: "Failed to retrieve analysis results"})
		return nil, false
	}
	return result, true
}

// Health godoc
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   Version,
	})
}

// GetCurrentData godoc
// @Summary Current snapshot
// @Description Returns the cached snapshot, collecting a new one when it is missing or stale
// @Tags data
// @Produce json
// @Success 200 {object} models.Snapshot
// @Failure 503 {object} ErrorResponse
// @Router /data/current [get]
func (h *Handler) GetCurrentData(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetLatestAnalysis godoc
// @Summary Latest analysis
// @Tags analysis
// @Produce json
// @Success 200 {object} models.AnalysisResult
// @Failure 503 {object} ErrorResponse
// @Router /analysis/latest [get]
func (h *Handler) GetLatestAnalysis(c *gin.Context) {
	result, ok := h.analysis(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListRepositories godoc
// @Summary Repositories of the current snapshot
// @Tags data
// @Produce json
// @Param language query string false "Exact primary language"
// @Param min_stars query int false "Minimum stars"
// @Param limit query int false "Maximum results" default(50)
// @Success 200 {object} RepositoriesResponse
// @Failure 400 {object} ErrorResponse
// @Router /repositories [get]
func (h *Handler) ListRepositories(c *gin.Context) {
	minStars, err := intQuery(c, "min_stars", 0)
	if err != nil || minStars < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid min_stars parameter"})
		return
	}
	limit, err := intQuery(c, "limit", defaultRepositoryLimit)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit parameter"})
		return
	}
	language := c.Query("language")

	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	repos := make([]models.RepositoryRecord, 0, len(snap.Repositories))
	for _, r := range snap.Repositories {
		if len(repos) >= limit {
			break
		}
		if language != "" && r.Language != language {
			continue
		}
		if r.Stars < minStars {
			continue
		}
		repos = append(repos, r)
	}

	c.JSON(http.StatusOK, RepositoriesResponse{
		Repositories: repos,
		Count:        len(repos),
		Filters:      RepositoryFilters{Language: language, MinStars: minStars, Limit: limit},
	})
}

// ListAnomalies godoc
// @Summary Anomalies of the latest analysis
// @Tags analysis
// @Produce json
// @Param risk_level query string false "LOW, MEDIUM or HIGH"
// @Success 200 {object} AnomaliesResponse
// @Failure 400 {object} ErrorResponse
// @Router /anomalies [get]
func (h *Handler) ListAnomalies(c *gin.Context) {
	level := models.RiskTier(strings.ToUpper(c.Query("risk_level")))
	switch level {
	case "", models.RiskLow, models.RiskMedium, models.RiskHigh:
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid risk_level parameter"})
		return
	}

	result, ok := h.analysis(c)
	if !ok {
		return
	}

	anomalies := make([]models.AnomalyResult, 0, len(result.Anomalies))
	seen := make(map[models.RiskTier]bool)
	levels := []models.RiskTier{}
	for _, a := range result.Anomalies {
		if level != "" && a.RiskTier != level {
			continue
		}
		anomalies = append(anomalies, a)
		if !seen[a.RiskTier] {
			seen[a.RiskTier] = true
			levels = append(levels, a.RiskTier)
		}
	}

	c.JSON(http.StatusOK, AnomaliesResponse{
		Anomalies:  anomalies,
		Count:      len(anomalies),
		RiskLevels: levels,
	})
}

// ListPredictions godoc
// @Summary Acquisition predictions of the latest analysis
// @Tags analysis
// @Produce json
// @Param min_probability query number false "Minimum probability in [0,1]"
// @Success 200 {object} PredictionsResponse
// @Failure 400 {object} ErrorResponse
// @Router /predictions [get]
func (h *Handler) ListPredictions(c *gin.Context) {
	minProb, err := floatQuery(c, "min_probability")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid min_probability parameter"})
		return
	}

	result, ok := h.analysis(c)
	if !ok {
		return
	}

	predictions := make([]models.PredictionResult, 0, len(result.AcquisitionPredictions))
	for _, p := range result.AcquisitionPredictions {
		if p.Probability >= minProb {
			predictions = append(predictions, p)
		}
	}

	c.JSON(http.StatusOK, PredictionsResponse{
		Predictions:    predictions,
		Count:          len(predictions),
		MinProbability: minProb,
		PredictionMode: result.PredictionMode,
	})
}

// ListTransfers godoc
// @Summary Transfer events of the current snapshot
// @Tags data
// @Produce json
// @Param confidence_min query number false "Minimum confidence in [0,1]"
// @Param ownership_only query bool false "Drop reference entries that keep the same owner"
// @Success 200 {object} TransfersResponse
// @Failure 400 {object} ErrorResponse
// @Router /transfers [get]
func (h *Handler) ListTransfers(c *gin.Context) {
	minConf, err := floatQuery(c, "confidence_min")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid confidence_min parameter"})
		return
	}
	ownershipOnly := false
	if value := c.Query("ownership_only"); value != "" {
		if ownershipOnly, err = strconv.ParseBool(value); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid ownership_only parameter"})
			return
		}
	}

	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	transfers := make([]models.TransferEvent, 0, len(snap.TransferEvents))
	for _, t := range snap.TransferEvents {
		if t.Confidence < minConf {
			continue
		}
		if ownershipOnly && !t.IsOwnershipTransfer() {
			continue
		}
		transfers = append(transfers, t)
	}

	c.JSON(http.StatusOK, TransfersResponse{
		Transfers:     transfers,
		Count:         len(transfers),
		ConfidenceMin: minConf,
		OwnershipOnly: ownershipOnly,
	})
}

// GetOrganizationActivity godoc
// @Summary Public events of a watched organization
// @Tags data
// @Produce json
// @Param org path string true "Organization login"
// @Success 200 {object} OrganizationActivityResponse
// @Router /organizations/{org}/activity [get]
func (h *Handler) GetOrganizationActivity(c *gin.Context) {
	org := c.Param("org")

	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	activities := snap.OrgActivity[org]
	if activities == nil {
		activities = []models.OrgEvent{}
	}
	c.JSON(http.StatusOK, OrganizationActivityResponse{
		Organization: org,
		Activities:   activities,
		Count:        len(activities),
	})
}

// Refresh godoc
// @Summary Force a refresh
// @Description Recomputes snapshot and analysis. With async=true the refresh is queued and 202 is returned.
// @Tags system
// @Produce json
// @Param async query bool false "Queue instead of waiting"
// @Security ApiKeyAuth
// @Success 200 {object} RefreshResponse
// @Success 202 {object} RefreshResponse
// @Failure 401 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	if c.Query("async") == "true" {
		status := "queued"
		if !h.service.Trigger(refresh.ReasonManual) {
			status = "coalesced"
		}
		c.JSON(http.StatusAccepted, RefreshResponse{
			Status:    status,
			Message:   "Refresh scheduled",
			Timestamp: time.Now().UTC(),
		})
		return
	}

	requestID := uuid.NewString()
	logger := h.logger.WithField("request_id", requestID)
	logger.Info("Manual data refresh requested")

	result, err := h.service.ForceRefresh(c.Request.Context())
	if err != nil {
		logger.WithError(err).Error("Manual refresh failed")
		c.JSON(statusFor(err), ErrorResponse{Error: "Failed to refresh data"})
		return
	}

	repos := 0
	if snap, ok := h.service.CachedSnapshot(); ok {
		repos = len(snap.Repositories)
	}
	c.JSON(http.StatusOK, RefreshResponse{
		Status:                "success",
		Message:               "Data refreshed successfully",
		RequestID:             requestID,
		RepositoriesCollected: repos,
		AnomaliesDetected:     len(result.Anomalies),
		PredictionsGenerated:  len(result.AcquisitionPredictions),
		Timestamp:             result.Timestamp,
	})
}

// GetStats godoc
// @Summary System statistics
// @Description Summarizes cached values only and never triggers collection
// @Tags system
// @Produce json
// @Success 200 {object} StatsResponse
// @Router /stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	stats := StatsResponse{
		Cache:   h.service.CacheInfo(),
		Refresh: h.service.Status(),
	}

	if snap, ok := h.service.CachedSnapshot(); ok && snap != nil {
		stats.RepositoriesMonitored = len(snap.Repositories)
		stats.ContributorsAnalyzed = snap.Metadata.TotalContributorsAnalyzed
		stats.TransferEvents = len(snap.TransferEvents)
		ts := snap.Timestamp
		stats.LastUpdate = &ts
	}
	if result, ok := h.service.CachedAnalysis(); ok && result != nil {
		stats.AnomaliesDetected = len(result.Anomalies)
		stats.HighRiskAnomalies = result.RiskAssessment.HighRiskCount
		stats.AcquisitionPredictions = len(result.AcquisitionPredictions)
	}
	if h.quota != nil {
		if info := h.quota.RateLimit(); info.Known {
			stats.RateLimit = &RateLimitStatus{Limit: info.Limit, Remaining: info.Remaining, Reset: info.ResetTime}
		}
	}

	c.JSON(http.StatusOK, stats)
}

func intQuery(c *gin.Context, name string, def int) (int, error) {
	value := c.Query(name)
	if value == "" {
		return def, nil
	}
	return strconv.Atoi(value)
}

func floatQuery(c *gin.Context, name string) (float64, error) {
	value := c.Query(name)
	if value == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f > 1 {
		return 0, apperrors.NewValidationError(name+" must be within [0,1]", nil)
	}
	return f, nil
}
