package prediction

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// LabelSource supplies historical acquisition outcomes for training
type LabelSource interface {
	Name() string
	Load(ctx context.Context) ([]LabeledExample, error)
}

// FileLabelSource reads a JSON array of labeled examples from disk
type FileLabelSource struct {
	Path string
}

// NewFileLabelSource returns a label source reading path. An empty path
// yields nil, meaning no label source is configured.
func NewFileLabelSource(path string) LabelSource {
	if path == "" {
		return nil
	}
	return &FileLabelSource{Path: path}
}

func (s *FileLabelSource) Name() string {
	return "file:" + s.Path
}

// Load reads and decodes the label file
func (s *FileLabelSource) Load(ctx context.Context) ([]LabeledExample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels %s: %w", s.Path, err)
	}
	var examples []LabeledExample
	if err := json.Unmarshal(data, &examples); err != nil {
		return nil, fmt.Errorf("failed to decode labels %s: %w", s.Path, err)
	}
	return examples, nil
}

// TrainFrom loads examples from src and trains p. It returns the resulting
// mode: ModeNoLabelSource when src is nil.
func TrainFrom(ctx context.Context, p *Predictor, src LabelSource) (string, error) {
	if src == nil {
		return ModeNoLabelSource, nil
	}
	examples, err := src.Load(ctx)
	if err != nil {
		return p.Mode(), err
	}
	if err := p.Train(examples); err != nil {
		return p.Mode(), err
	}
	return p.Mode(), nil
}
