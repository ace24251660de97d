package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/github-ma-intel/internal/models"
)

func TestArchive_WriteSnapshot(t *testing.T) {
	a, err := New(filepath.Join(t.TempDir(), "cycles"))
	require.NoError(t, err)

	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	path, err := a.WriteSnapshot(&models.Snapshot{Timestamp: ts, Repositories: []models.RepositoryRecord{{ID: 1, FullName: "a/b"}}})
	require.NoError(t, err)
	assert.Equal(t, "20240309_140507.000_snapshot.json", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"timestamp\"")

	latest, err := a.LatestSnapshot()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Timestamp.Equal(ts))

	entries, err := os.ReadDir(a.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not remain")
}

func TestArchive_CyclesWithinOneSecond(t *testing.T) {
	a, err := New(t.TempDir())
	require.NoError(t, err)

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	first, err := a.WriteSnapshot(&models.Snapshot{Timestamp: ts})
	require.NoError(t, err)
	second, err := a.WriteSnapshot(&models.Snapshot{Timestamp: ts.Add(time.Millisecond)})
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, "20240301_120000.001_snapshot.json", filepath.Base(second))

	entries, err := os.ReadDir(a.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	latest, err := a.LatestSnapshot()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Timestamp.Equal(ts.Add(time.Millisecond)))
}

func TestArchive_LatestAnalyses(t *testing.T) {
	a, err := New(t.TempDir())
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		_, err := a.WriteAnalysis(&models.AnalysisResult{
			Timestamp:      base.Add(time.Duration(i) * time.Minute),
			PredictionMode: "untrained",
		})
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(a.Dir(), "20250101_000000.000_analysis.json"), []byte("{broken"), 0o644))

	results, errs := a.LatestAnalyses(2)
	require.Len(t, results, 2)
	assert.Len(t, errs, 1)
	assert.True(t, results[0].Timestamp.Equal(base.Add(3*time.Minute)))
	assert.True(t, results[1].Timestamp.Equal(base.Add(2*time.Minute)))
}

func TestArchive_Empty(t *testing.T) {
	a, err := New(t.TempDir())
	require.NoError(t, err)

	snap, err := a.LatestSnapshot()
	require.NoError(t, err)
	assert.Nil(t, snap)

	results, errs := a.LatestAnalyses(5)
	assert.Empty(t, results)
	assert.Empty(t, errs)
}
