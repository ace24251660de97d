package models

import "time"

// RiskTier is a coarse bucket derived from an anomaly score
type RiskTier string

const (
	RiskLow    RiskTier = "LOW"
	RiskMedium RiskTier = "MEDIUM"
	RiskHigh   RiskTier = "HIGH"
)

// AnomalyResult is the output of anomaly scoring for one repository
type AnomalyResult struct {
	RepoID      int64    `json:"repo_id"`
	RepoName    string   `json:"repo_name"`
	Score       float64  `json:"score"`
	Confidence  float64  `json:"confidence"`
	AnomalyType string   `json:"anomaly_type"`
	RiskTier    RiskTier `json:"risk_tier"`
	Indicators  []string `json:"indicators"`
}

// PredictionResult is the output of acquisition scoring for one entity
type PredictionResult struct {
	Entity            string   `json:"entity"`
	Probability       float64  `json:"probability"`
	Confidence        float64  `json:"confidence"`
	PredictedAcquirer string   `json:"predicted_acquirer"`
	Timeline          string   `json:"timeline"`
	Signals           []string `json:"signals"`
}

// RiskAssessment aggregates the anomalies of one analysis
type RiskAssessment struct {
	TotalAnomalies   int      `json:"total_anomalies"`
	HighRiskCount    int      `json:"high_risk_count"`
	OverallRiskLevel RiskTier `json:"overall_risk_level"`
}

// AnalysisResult is the complete output of one analysis cycle
type AnalysisResult struct {
	Timestamp              time.Time          `json:"timestamp"`
	SnapshotTimestamp      time.Time          `json:"snapshot_timestamp"`
	Features               []FeatureVector    `json:"features"`
	Anomalies              []AnomalyResult    `json:"anomalies"`
	AcquisitionPredictions []PredictionResult `json:"acquisition_predictions"`
	RiskAssessment         RiskAssessment     `json:"risk_assessment"`
	PredictionMode         string             `json:"prediction_mode"`
}
