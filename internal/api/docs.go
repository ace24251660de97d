package api

import (
	"time"

	"github.com/Kamar-Folarin/github-ma-intel/internal/cache"
	"github.com/Kamar-Folarin/github-ma-intel/internal/models"
	"github.com/Kamar-Folarin/github-ma-intel/internal/refresh"
)

// ErrorResponse represents an API error
// @Description Error response from the API
// @swagger:model ErrorResponse
type ErrorResponse struct {
	// Error message
	Error string `json:"error" example:"Failed to retrieve current data"`
}

// HealthResponse is returned by the health endpoint
// @Description Service liveness
type HealthResponse struct {
	Status    string    `json:"status" example:"healthy"`
	Timestamp time.Time `json:"timestamp" example:"2024-03-20T00:00:00Z"`
	Version   string    `json:"version" example:"1.0.0"`
}

// RepositoryFilters echoes the filters applied to a repository listing
type RepositoryFilters struct {
	Language string `json:"language,omitempty" example:"Go"`
	MinStars int    `json:"min_stars,omitempty" example:"20000"`
	Limit    int    `json:"limit" example:"50"`
}

// RepositoriesResponse is a filtered list of repositories
// @Description Repositories of the current snapshot
type RepositoriesResponse struct {
	Repositories []models.RepositoryRecord `json:"repositories"`
	Count        int                       `json:"count" example:"50"`
	Filters      RepositoryFilters         `json:"filters"`
}

// AnomaliesResponse is a filtered list of anomalies
// @Description Anomalies of the latest analysis
type AnomaliesResponse struct {
	Anomalies  []models.AnomalyResult `json:"anomalies"`
	Count      int                    `json:"count" example:"3"`
	RiskLevels []models.RiskTier      `json:"risk_levels"`
}

// PredictionsResponse is a filtered list of acquisition predictions
// @Description Acquisition predictions of the latest analysis
type PredictionsResponse struct {
	Predictions    []models.PredictionResult `json:"predictions"`
	Count          int                       `json:"count" example:"10"`
	MinProbability float64                   `json:"min_probability" example:"0.5"`
	PredictionMode string                    `json:"prediction_mode" example:"no_label_source"`
}

// TransfersResponse is a filtered list of transfer events
// @Description Transfer events of the current snapshot
type TransfersResponse struct {
	Transfers     []models.TransferEvent `json:"transfers"`
	Count         int                    `json:"count" example:"1"`
	ConfidenceMin float64                `json:"confidence_min" example:"0.9"`
	OwnershipOnly bool                   `json:"ownership_only" example:"false"`
}

// OrganizationActivityResponse lists the public events of one organization
// @Description Public events of a watched organization
type OrganizationActivityResponse struct {
	Organization string            `json:"organization" example:"google"`
	Activities   []models.OrgEvent `json:"activities"`
	Count        int               `json:"count" example:"30"`
}

// RefreshResponse reports the outcome of a forced refresh
// @Description Result of a manual refresh
type RefreshResponse struct {
	Status                string    `json:"status" example:"success"`
	Message               string    `json:"message" example:"Data refreshed successfully"`
	RequestID             string    `json:"request_id,omitempty"`
	RepositoriesCollected int       `json:"repositories_collected" example:"50"`
	AnomaliesDetected     int       `json:"anomalies_detected" example:"20"`
	PredictionsGenerated  int       `json:"predictions_generated" example:"10"`
	Timestamp             time.Time `json:"timestamp" example:"2024-03-20T00:00:00Z"`
}

// StatsResponse summarizes the cached state without triggering collection
// @Description System statistics
type StatsResponse struct {
	RepositoriesMonitored  int               `json:"repositories_monitored" example:"50"`
	ContributorsAnalyzed   int               `json:"contributors_analyzed" example:"1800"`
	AnomaliesDetected      int               `json:"anomalies_detected" example:"20"`
	HighRiskAnomalies      int               `json:"high_risk_anomalies" example:"2"`
	AcquisitionPredictions int               `json:"acquisition_predictions" example:"10"`
	TransferEvents         int               `json:"transfer_events" example:"1"`
	LastUpdate             *time.Time        `json:"last_update,omitempty"`
	Cache                  []cache.EntryInfo `json:"cache"`
	Refresh                refresh.Status    `json:"refresh"`
	RateLimit              *RateLimitStatus  `json:"rate_limit,omitempty"`
}

// RateLimitStatus is the last observed GitHub quota
type RateLimitStatus struct {
	Limit     int       `json:"limit" example:"5000"`
	Remaining int       `json:"remaining" example:"4500"`
	Reset     time.Time `json:"reset" example:"2024-03-21T01:00:00Z"`
}

// LoginRequest carries the admin credentials
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"admin"`
	Password string `json:"password" binding:"required" example:"secret"`
}

// LoginResponse carries an access token for the refresh endpoint
// @Description Bearer token issued to the admin user
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type" example:"Bearer"`
	ExpiresAt   time.Time `json:"expires_at" example:"2024-03-20T01:00:00Z"`
}
