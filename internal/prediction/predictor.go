// Package prediction scores entities for acquisition likelihood with a
// classifier trained on historical outcomes.
package prediction

import (
	"fmt"
	"math"
	"strings"
	"sync"

	apperrors "github.com/Kamar-Folarin/github-ma-intel/internal/errors"
	"github.com/Kamar-Folarin/github-ma-intel/internal/models"
)

// Operating modes reported alongside predictions
const (
	ModeTrained       = "trained"
	ModeUntrained     = "untrained"
	ModeNoLabelSource = "no_label_source"
)

const unknown = "Unknown"

// EntityFeatures describes one entity that may be acquired
type EntityFeatures struct {
	Name                      string   `json:"name"`
	Stars                     int      `json:"stars"`
	Forks                     int      `json:"forks"`
	Contributors              int      `json:"contributors_count"`
	CommitFrequency           float64  `json:"commit_frequency"`
	AgeYears                  float64  `json:"company_age_years"`
	LargeEmployerContributors int      `json:"big_tech_contributors"`
	FundingRounds             int      `json:"funding_rounds"`
	Industry                  string   `json:"industry,omitempty"`
	TechStack                 []string `json:"tech_stack,omitempty"`
}

func (f EntityFeatures) vector() []float64 {
	return []float64{
		float64(f.Stars),
		float64(f.Forks),
		float64(f.Contributors),
		f.CommitFrequency,
		f.AgeYears,
		float64(f.LargeEmployerContributors),
		float64(f.FundingRounds),
	}
}

// LabeledExample is an entity with its known acquisition outcome
type LabeledExample struct {
	EntityFeatures
	Acquired bool `json:"acquired"`
}

// Config tunes the training loop
type Config struct {
	Epochs       int
	LearningRate float64
	L2           float64
}

// DefaultConfig returns the default training configuration
func DefaultConfig() Config {
	return Config{
		Epochs:       500,
		LearningRate: 0.1,
		L2:           0.001,
	}
}

// Predictor is a class-balanced logistic regression over standardized
// entity features. Training is deterministic. It is safe for concurrent use.
type Predictor struct {
	mu    sync.RWMutex
	cfg   Config
	model *logit
}

type logit struct {
	mean    []float64
	std     []float64
	weights []float64
	bias    float64
	samples int
}

// NewPredictor creates an untrained predictor
func NewPredictor(cfg Config) *Predictor {
	def := DefaultConfig()
	if cfg.Epochs <= 0 {
		cfg.Epochs = def.Epochs
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = def.LearningRate
	}
	if cfg.L2 < 0 {
		cfg.L2 = def.L2
	}
	return &Predictor{cfg: cfg}
}

// Trained reports whether the predictor has a fitted model
func (p *Predictor) Trained() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model != nil
}

// Mode reports ModeTrained or ModeUntrained
func (p *Predictor) Mode() string {
	if p.Trained() {
		return ModeTrained
	}
	return ModeUntrained
}

// Train fits the model. No examples leaves the predictor untrained.
func (p *Predictor) Train(examples []LabeledExample) error {
	for _, ex := range examples {
		for _, x := range ex.vector() {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return apperrors.NewValidationError(fmt.Sprintf("non-finite feature for %q", ex.Name), nil)
			}
		}
	}
	if len(examples) == 0 {
		p.mu.Lock()
		p.model = nil
		p.mu.Unlock()
		return nil
	}

	m := fit(examples, p.cfg)

	p.mu.Lock()
	p.model = m
	p.mu.Unlock()
	return nil
}

func fit(examples []LabeledExample, cfg Config) *logit {
	width := len(examples[0].vector())
	n := float64(len(examples))

	m := &logit{
		mean:    make([]float64, width),
		std:     make([]float64, width),
		weights: make([]float64, width),
		samples: len(examples),
	}

	rows := make([][]float64, len(examples))
	labels := make([]float64, len(examples))
	positives := 0
	for i, ex := range examples {
		rows[i] = ex.vector()
		if ex.Acquired {
			labels[i] = 1
			positives++
		}
		for j, x := range rows[i] {
			m.mean[j] += x
		}
	}
	for j := range m.mean {
		m.mean[j] /= n
	}
	for _, row := range rows {
		for j, x := range row {
			d := x - m.mean[j]
			m.std[j] += d * d
		}
	}
	for j := range m.std {
		m.std[j] = math.Sqrt(m.std[j] / n)
		if negligibleSpread(m.std[j], m.mean[j]) {
			m.std[j] = 1
		}
	}
	for _, row := range rows {
		for j := range row {
			row[j] = (row[j] - m.mean[j]) / m.std[j]
		}
	}

	// balanced weights: n / (classes * count(class))
	weightPos, weightNeg := 1.0, 1.0
	if positives > 0 && positives < len(examples) {
		weightPos = n / (2 * float64(positives))
		weightNeg = n / (2 * float64(len(examples)-positives))
	}

	grad := make([]float64, width)
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		var gradBias, totalWeight float64
		for i, row := range rows {
			w := weightNeg
			if labels[i] == 1 {
				w = weightPos
			}
			residual := w * (sigmoid(m.linear(row)) - labels[i])
			for j, x := range row {
				grad[j] += residual * x
			}
			gradBias += residual
			totalWeight += w
		}
		for j := range m.weights {
			m.weights[j] -= cfg.LearningRate * (grad[j]/totalWeight + cfg.L2*m.weights[j])
		}
		m.bias -= cfg.LearningRate * gradBias / totalWeight
	}
	return m
}

func (m *logit) linear(standardized []float64) float64 {
	z := m.bias
	for j, x := range standardized {
		z += m.weights[j] * x
	}
	return z
}

func (m *logit) probability(f EntityFeatures) float64 {
	raw := f.vector()
	for j := range raw {
		raw[j] = (raw[j] - m.mean[j]) / m.std[j]
	}
	return sigmoid(m.linear(raw))
}

// negligibleSpread reports a spread indistinguishable from rounding noise
// around mean, as left by a feature that is constant across the examples.
func negligibleSpread(std, mean float64) bool {
	return std <= 1e-9*math.Max(1, math.Abs(mean))
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// Predict scores one entity. An untrained predictor returns a zero result.
func (p *Predictor) Predict(f EntityFeatures) models.PredictionResult {
	p.mu.RLock()
	m := p.model
	p.mu.RUnlock()

	if m == nil {
		return models.PredictionResult{
			Entity:            f.Name,
			PredictedAcquirer: unknown,
			Timeline:          unknown,
			Signals:           []string{},
		}
	}

	prob := m.probability(f)
	if math.IsNaN(prob) {
		prob = 0
	}
	return models.PredictionResult{
		Entity:            f.Name,
		Probability:       prob,
		Confidence:        math.Max(prob, 1-prob),
		PredictedAcquirer: PredictAcquirer(f),
		Timeline:          Timeline(prob),
		Signals:           Signals(f, prob),
	}
}

var acquirerTable = []struct {
	keywords []string
	acquirer string
}{
	{[]string{"AI", "Machine Learning"}, "Google or Microsoft"},
	{[]string{"JavaScript", "TypeScript", "Frontend"}, "Meta or Vercel"},
	{[]string{"Cloud", "Infrastructure", "Go"}, "Amazon or Microsoft"},
}

// PredictAcquirer guesses the likely acquirer from industry and tech stack.
// The first matching table row wins.
func PredictAcquirer(f EntityFeatures) string {
	for _, row := range acquirerTable {
		for _, keyword := range row.keywords {
			if strings.EqualFold(f.Industry, keyword) {
				return row.acquirer
			}
			for _, tech := range f.TechStack {
				if strings.EqualFold(tech, keyword) {
					return row.acquirer
				}
			}
		}
	}
	return "Big Tech (Various)"
}

// Timeline buckets a probability into an expected time to acquisition
func Timeline(prob float64) string {
	switch {
	case prob > 0.8:
		return "0-6 months"
	case prob > 0.6:
		return "6-12 months"
	case prob > 0.4:
		return "1-2 years"
	default:
		return "2+ years"
	}
}

// Signals lists the rules an entity triggers
func Signals(f EntityFeatures, prob float64) []string {
	var signals []string
	if prob > 0.7 {
		signals = append(signals, "high acquisition probability")
	}
	if f.LargeEmployerContributors > 5 {
		signals = append(signals, "large-employer contributor involvement")
	}
	if f.FundingRounds > 3 {
		signals = append(signals, "multiple funding rounds")
	}
	if f.Stars > 50000 {
		signals = append(signals, "high repository popularity")
	}
	if len(signals) == 0 {
		return []string{"monitoring for acquisition signals"}
	}
	return signals
}
