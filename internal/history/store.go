// Package history persists a bounded per-repository sequence of past
// observations that feeds the history-based features.
package history

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/github-ma-intel/internal/models"
)

// DefaultMaxPoints is the number of points kept per repository
const DefaultMaxPoints = 90

// Store records snapshots and serves per-repository history
type Store interface {
	// Record appends one point per repository of snap. Recording the same
	// snapshot twice leaves a single point.
	Record(ctx context.Context, snap *models.Snapshot) error
	// History returns at most limit points of repoID, oldest first
	History(ctx context.Context, repoID int64, limit int) ([]models.HistoryPoint, error)
	Close() error
}

// Open returns the Postgres store when dsn is set and the bbolt store under
// dataDir otherwise.
func Open(ctx context.Context, dsn, boltPath string, logger *logrus.Logger) (Store, error) {
	if dsn != "" {
		logger.Info("Using Postgres history store")
		return NewPostgresStore(ctx, dsn, DefaultMaxPoints)
	}
	if err := os.MkdirAll(filepath.Dir(boltPath), 0o755); err != nil {
		return nil, err
	}
	logger.WithField("path", boltPath).Info("Using bbolt history store")
	return NewBoltStore(boltPath, DefaultMaxPoints)
}

// pointsOf derives the history point of each repository of snap
func pointsOf(snap *models.Snapshot) map[int64]models.HistoryPoint {
	points := make(map[int64]models.HistoryPoint, len(snap.Repositories))
	for _, repo := range snap.Repositories {
		topics := append([]string(nil), repo.Topics...)
		sort.Strings(topics)
		points[repo.ID] = models.HistoryPoint{
			ObservedAt: snap.Timestamp,
			Stars:      repo.Stars,
			Forks:      repo.Forks,
			Language:   repo.Language,
			License:    repo.License,
			Topics:     topics,
			Commits:    snap.CommitsFor(repo.FullName),
		}
	}
	return points
}
