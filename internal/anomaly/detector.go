// Package anomaly scores feature vectors by their distance from a baseline
// population.
package anomaly

import (
	"fmt"
	"math"
	"sort"
	"sync"

	apperrors "github.com/Kamar-Folarin/github-ma-intel/internal/errors"
	"github.com/Kamar-Folarin/github-ma-intel/internal/models"
)

const (
	// DefaultContamination is the expected share of outliers in a baseline
	DefaultContamination = 0.1

	highThreshold   = 0.7
	mediumThreshold = 0.5

	// maxZ bounds a single feature's z-score so huge inputs saturate
	// instead of overflowing
	maxZ = 1e6
)

// Indicator strings
const (
	IndicatorStarsGrowth     = "unusual stars growth"
	IndicatorCrossCompany    = "high cross-company contributions"
	IndicatorCommitFrequency = "abnormal commit frequency"
	IndicatorActivitySpike   = "activity spike"
	IndicatorGeneral         = "general pattern deviation"
)

// Anomaly types, in priority order
const (
	TypeCrossCompany = "cross-company collaboration"
	TypeRapidGrowth  = "rapid growth anomaly"
	TypeActivity     = "activity spike"
	TypeGeneral      = "general pattern deviation"
)

// Detector fits a per-feature standardization plus a reference distance
// over a baseline and scores vectors against it. It is safe for concurrent
// use; Train replaces the model atomically.
type Detector struct {
	mu            sync.RWMutex
	contamination float64
	model         *model
}

type model struct {
	mean        []float64
	std         []float64
	refDistance float64
	size        int
}

// NewDetector creates an untrained detector. contamination outside (0, 1)
// falls back to DefaultContamination.
func NewDetector(contamination float64) *Detector {
	if contamination <= 0 || contamination >= 1 {
		contamination = DefaultContamination
	}
	return &Detector{contamination: contamination}
}

// Trained reports whether a baseline has been fitted
func (d *Detector) Trained() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.model != nil
}

// BaselineSize returns the number of vectors of the fitted baseline
func (d *Detector) BaselineSize() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.model == nil {
		return 0
	}
	return d.model.size
}

// Train fits the detector on a baseline. An empty baseline leaves the
// detector untrained; a vector with a non-finite feature is rejected and the
// previous model is kept.
func (d *Detector) Train(baseline []models.FeatureVector) error {
	if err := validate(baseline); err != nil {
		return err
	}
	if len(baseline) == 0 {
		d.mu.Lock()
		d.model = nil
		d.mu.Unlock()
		return nil
	}

	width := len(models.FeatureNames)
	m := &model{
		mean: make([]float64, width),
		std:  make([]float64, width),
		size: len(baseline),
	}
	n := float64(len(baseline))
	for _, v := range baseline {
		for i, x := range v.Values() {
			m.mean[i] += x
		}
	}
	for i := range m.mean {
		m.mean[i] /= n
	}
	for _, v := range baseline {
		for i, x := range v.Values() {
			diff := x - m.mean[i]
			m.std[i] += diff * diff
		}
	}
	for i := range m.std {
		m.std[i] = math.Sqrt(m.std[i] / n)
		if m.std[i] <= 1e-9*math.Max(1, math.Abs(m.mean[i])) {
			m.std[i] = 1
		}
	}

	distances := make([]float64, len(baseline))
	for i, v := range baseline {
		distances[i] = m.distance(v)
	}
	m.refDistance = quantile(distances, 1-d.contamination)
	if m.refDistance == 0 {
		m.refDistance = 1
	}

	d.mu.Lock()
	d.model = m
	d.mu.Unlock()
	return nil
}

// Detect scores each vector. An untrained detector yields an empty result.
func (d *Detector) Detect(vectors []models.FeatureVector) ([]models.AnomalyResult, error) {
	if err := validate(vectors); err != nil {
		return nil, err
	}

	d.mu.RLock()
	m := d.model
	d.mu.RUnlock()

	results := make([]models.AnomalyResult, 0, len(vectors))
	if m == nil {
		return results, nil
	}

	for _, v := range vectors {
		score := m.score(v)
		anomalyType, indicators := Classify(v)
		results = append(results, models.AnomalyResult{
			RepoID:      v.RepoID,
			Score:       score,
			Confidence:  math.Abs(2*score - 1),
			AnomalyType: anomalyType,
			RiskTier:    Tier(score),
			Indicators:  indicators,
		})
	}
	return results, nil
}

// Tier maps a score to its risk tier. Thresholds are exclusive.
func Tier(score float64) models.RiskTier {
	switch {
	case score > highThreshold:
		return models.RiskHigh
	case score > mediumThreshold:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// Classify derives the anomaly type and indicators from the raw vector
func Classify(v models.FeatureVector) (string, []string) {
	var indicators []string
	if v.StarsGrowthRate > 2.0 {
		indicators = append(indicators, IndicatorStarsGrowth)
	}
	if v.CrossCompanyContributions > 0.3 {
		indicators = append(indicators, IndicatorCrossCompany)
	}
	if v.CommitFrequency > 10.0 {
		indicators = append(indicators, IndicatorCommitFrequency)
	}
	if v.RecentActivityScore > 0.8 {
		indicators = append(indicators, IndicatorActivitySpike)
	}
	if len(indicators) == 0 {
		indicators = append(indicators, IndicatorGeneral)
	}

	switch {
	case v.CrossCompanyContributions > 0.3:
		return TypeCrossCompany, indicators
	case v.StarsGrowthRate > 2.0:
		return TypeRapidGrowth, indicators
	case v.CommitFrequency > 10.0:
		return TypeActivity, indicators
	default:
		return TypeGeneral, indicators
	}
}

// distance is the root-mean-square z-score of v, each z clamped to maxZ
func (m *model) distance(v models.FeatureVector) float64 {
	var sum float64
	values := v.Values()
	for i, x := range values {
		z := math.Abs((x - m.mean[i]) / m.std[i])
		if math.IsNaN(z) || z > maxZ {
			z = maxZ
		}
		sum += z * z
	}
	return math.Sqrt(sum / float64(len(values)))
}

// score maps the distance of v into [0,1]
func (m *model) score(v models.FeatureVector) float64 {
	dist := m.distance(v)
	s := dist / (dist + m.refDistance)
	if math.IsNaN(s) || s > 1 {
		return 1
	}
	return s
}

// quantile uses linear interpolation between closest ranks
func quantile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	frac := pos - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*frac
}

func validate(vectors []models.FeatureVector) error {
	for _, v := range vectors {
		if err := v.Validate(); err != nil {
			return apperrors.NewValidationError(fmt.Sprintf("invalid feature vector for repo %d", v.RepoID), err)
		}
	}
	return nil
}
