// Package analysis turns a snapshot into an AnalysisResult: features,
// anomaly scores, acquisition predictions and a risk assessment.
package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/github-ma-intel/internal/anomaly"
	"github.com/Kamar-Folarin/github-ma-intel/internal/config"
	"github.com/Kamar-Folarin/github-ma-intel/internal/features"
	"github.com/Kamar-Folarin/github-ma-intel/internal/history"
	"github.com/Kamar-Folarin/github-ma-intel/internal/models"
	"github.com/Kamar-Folarin/github-ma-intel/internal/prediction"
)

const hoursPerYear = 24 * 365.25

// Analyzer runs the analysis stage. It keeps a rolling baseline of past
// feature vectors across cycles.
type Analyzer struct {
	engineer  *features.Engineer
	detector  *anomaly.Detector
	predictor *prediction.Predictor
	history   history.Store
	cfg       *config.AnalysisConfig
	logger    *logrus.Logger
	now       func() time.Time

	mu       sync.Mutex
	baseline []models.FeatureVector
	mode     string
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithClock overrides the clock used for result timestamps
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

// WithEngineer replaces the default feature engineer
func WithEngineer(e *features.Engineer) Option {
	return func(a *Analyzer) {
		a.engineer = e
	}
}

// New creates an Analyzer. store may be nil, in which case no history is used.
func New(store history.Store, cfg *config.AnalysisConfig, logger *logrus.Logger, opts ...Option) *Analyzer {
	if cfg == nil {
		cfg = config.DefaultAnalysisConfig()
	}
	a := &Analyzer{
		engineer:  features.NewEngineer(),
		detector:  anomaly.NewDetector(anomaly.DefaultContamination),
		predictor: prediction.NewPredictor(prediction.DefaultConfig()),
		history:   store,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		mode:      prediction.ModeNoLabelSource,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TrainPredictor trains the acquisition predictor from src and records the
// resulting prediction mode.
func (a *Analyzer) TrainPredictor(ctx context.Context, src prediction.LabelSource) error {
	mode, err := prediction.TrainFrom(ctx, a.predictor, src)
	a.mu.Lock()
	a.mode = mode
	a.mu.Unlock()
	if err != nil {
		return fmt.Errorf("train predictor: %w", err)
	}
	if src != nil {
		a.logger.WithFields(logrus.Fields{
			"source": src.Name(),
			"mode":   mode,
		}).Info("Acquisition predictor trained")
	}
	return nil
}

// PredictionMode reports how predictions are currently produced
func (a *Analyzer) PredictionMode() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// SeedBaseline pre-loads the rolling baseline, dropping non-finite vectors
func (a *Analyzer) SeedBaseline(vectors []models.FeatureVector) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	added := 0
	for _, v := range vectors {
		if v.Validate() != nil {
			continue
		}
		a.baseline = append(a.baseline, v)
		added++
	}
	a.trimBaseline()
	return added
}

// BaselineSize returns the number of vectors in the rolling baseline
func (a *Analyzer) BaselineSize() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.baseline)
}

func (a *Analyzer) trimBaseline() {
	if max := a.cfg.BaselineSize; max > 0 && len(a.baseline) > max {
		a.baseline = append([]models.FeatureVector(nil), a.baseline[len(a.baseline)-max:]...)
	}
}

// Analyze computes the analysis of snap
func (a *Analyzer) Analyze(ctx context.Context, snap *models.Snapshot) (*models.AnalysisResult, error) {
	if snap == nil {
		return nil, fmt.Errorf("analyze: nil snapshot")
	}

	repos := snap.Repositories
	if n := a.cfg.MaxAnalyzed; n > 0 && len(repos) > n {
		repos = repos[:n]
	}

	vectors := make([]models.FeatureVector, 0, len(repos))
	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors = append(vectors, a.engineer.Extract(repo, snap.ContributorsFor(repo.FullName), a.pastPoints(ctx, repo.ID, snap.Timestamp)))
	}

	anomalies, err := a.detect(vectors)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(repos))
	for _, repo := range repos {
		names[repo.ID] = repo.FullName
	}
	for i := range anomalies {
		anomalies[i].RepoName = names[anomalies[i].RepoID]
	}

	predicted := snap.Repositories
	if n := a.cfg.MaxPredicted; n > 0 && len(predicted) > n {
		predicted = predicted[:n]
	}
	predictions := make([]models.PredictionResult, 0, len(predicted))
	for i, repo := range predicted {
		var commitFrequency float64
		if i < len(vectors) {
			commitFrequency = vectors[i].CommitFrequency
		}
		predictions = append(predictions, a.predictor.Predict(a.entityOf(repo, snap, commitFrequency)))
	}

	ts := a.now().UTC()
	if ts.Before(snap.Timestamp) {
		ts = snap.Timestamp
	}

	result := &models.AnalysisResult{
		Timestamp:              ts,
		SnapshotTimestamp:      snap.Timestamp,
		Features:               vectors,
		Anomalies:              anomalies,
		AcquisitionPredictions: predictions,
		RiskAssessment:         Assess(anomalies),
		PredictionMode:         a.PredictionMode(),
	}

	a.logger.WithFields(logrus.Fields{
		"repositories": len(vectors),
		"anomalies":    len(anomalies),
		"high_risk":    result.RiskAssessment.HighRiskCount,
		"risk_level":   result.RiskAssessment.OverallRiskLevel,
	}).Info("Analysis completed")
	return result, nil
}

// detect trains on the rolling baseline, scores vectors and extends the
// baseline. With an empty baseline the current population is the baseline.
func (a *Analyzer) detect(vectors []models.FeatureVector) ([]models.AnomalyResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	baseline := a.baseline
	if len(baseline) == 0 {
		baseline = vectors
	}
	if err := a.detector.Train(baseline); err != nil {
		return nil, fmt.Errorf("train detector: %w", err)
	}
	anomalies, err := a.detector.Detect(vectors)
	if err != nil {
		return nil, fmt.Errorf("detect anomalies: %w", err)
	}

	a.baseline = append(a.baseline, vectors...)
	a.trimBaseline()
	return anomalies, nil
}

// pastPoints returns up to HistoryLimit points of repoID observed strictly
// before ts. One extra point is requested since the store usually already
// holds the point of the snapshot being analyzed.
func (a *Analyzer) pastPoints(ctx context.Context, repoID int64, ts time.Time) []models.HistoryPoint {
	if a.history == nil {
		return nil
	}
	limit := a.cfg.HistoryLimit
	if limit > 0 {
		limit++
	}
	points, err := a.history.History(ctx, repoID, limit)
	if err != nil {
		a.logger.WithError(err).WithField("repo_id", repoID).Warn("Failed to load repository history")
		return nil
	}
	past := points[:0:0]
	for _, p := range points {
		if p.ObservedAt.Before(ts) {
			past = append(past, p)
		}
	}
	if a.cfg.HistoryLimit > 0 && len(past) > a.cfg.HistoryLimit {
		past = past[len(past)-a.cfg.HistoryLimit:]
	}
	return past
}

func (a *Analyzer) entityOf(repo models.RepositoryRecord, snap *models.Snapshot, commitFrequency float64) prediction.EntityFeatures {
	contributors := snap.ContributorsFor(repo.FullName)
	large := 0
	for _, c := range contributors {
		if a.engineer.IsLargeEmployer(c.Employer) {
			large++
		}
	}

	var age float64
	if !repo.CreatedAt.IsZero() && snap.Timestamp.After(repo.CreatedAt) {
		age = snap.Timestamp.Sub(repo.CreatedAt).Hours() / hoursPerYear
	}

	var stack []string
	if repo.Language != "" {
		stack = append(stack, repo.Language)
	}
	stack = append(stack, repo.Topics...)

	return prediction.EntityFeatures{
		Name:                      repo.FullName,
		Stars:                     repo.Stars,
		Forks:                     repo.Forks,
		Contributors:              len(contributors),
		CommitFrequency:           commitFrequency,
		AgeYears:                  age,
		LargeEmployerContributors: large,
		TechStack:                 stack,
	}
}

// Assess aggregates anomalies into a risk assessment
func Assess(anomalies []models.AnomalyResult) models.RiskAssessment {
	high := 0
	for _, a := range anomalies {
		if a.RiskTier == models.RiskHigh {
			high++
		}
	}
	level := models.RiskLow
	switch {
	case high > 3:
		level = models.RiskHigh
	case high > 1:
		level = models.RiskMedium
	}
	return models.RiskAssessment{
		TotalAnomalies:   len(anomalies),
		HighRiskCount:    high,
		OverallRiskLevel: level,
	}
}
