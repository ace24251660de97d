// Package archive writes one JSON file per cycle for snapshots and analyses
// and reads them back on startup.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Kamar-Folarin/github-ma-intel/internal/models"
)

const (
	// millisecond resolution, matching the collector's timestamp step
	layout         = "20060102_150405.000"
	snapshotSuffix = "_snapshot.json"
	analysisSuffix = "_analysis.json"
)

// Archive manages the cycle files under a directory
type Archive struct {
	dir string
}

// New creates dir when missing
func New(dir string) (*Archive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &Archive{dir: dir}, nil
}

// Dir returns the archive directory
func (a *Archive) Dir() string {
	return a.dir
}

// FileName returns the base name used for a cycle at ts with the given suffix
func FileName(ts time.Time, suffix string) string {
	return ts.UTC().Format(layout) + suffix
}

// WriteSnapshot stores snap and returns the written path
func (a *Archive) WriteSnapshot(snap *models.Snapshot) (string, error) {
	return a.write(FileName(snap.Timestamp, snapshotSuffix), snap)
}

// WriteAnalysis stores result and returns the written path
func (a *Archive) WriteAnalysis(result *models.AnalysisResult) (string, error) {
	return a.write(FileName(result.Timestamp, analysisSuffix), result)
}

func (a *Archive) write(name string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(a.dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}

	path := filepath.Join(a.dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return path, nil
}

// list returns the files carrying suffix, newest first
func (a *Archive) list(suffix string) ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	// the timestamp prefix sorts lexically
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// LatestAnalyses loads up to n analysis files, newest first. Unreadable files
// are skipped and reported in the returned error list.
func (a *Archive) LatestAnalyses(n int) ([]*models.AnalysisResult, []error) {
	names, err := a.list(analysisSuffix)
	if err != nil {
		return nil, []error{err}
	}

	var results []*models.AnalysisResult
	var errs []error
	for _, name := range names {
		if len(results) >= n {
			break
		}
		var result models.AnalysisResult
		if err := a.read(name, &result); err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, &result)
	}
	return results, errs
}

// LatestSnapshot loads the newest snapshot file, nil when none exists
func (a *Archive) LatestSnapshot() (*models.Snapshot, error) {
	names, err := a.list(snapshotSuffix)
	if err != nil || len(names) == 0 {
		return nil, err
	}
	var snap models.Snapshot
	if err := a.read(names[0], &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (a *Archive) read(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(a.dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
