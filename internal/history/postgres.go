package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/Kamar-Folarin/github-ma-intel/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore keeps history in the repository_history table
type PostgresStore struct {
	db        *sql.DB
	maxPoints int
}

// NewPostgresStore connects to dsn and applies the embedded migrations
func NewPostgresStore(ctx context.Context, dsn string, maxPoints int) (*PostgresStore, error) {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{db: db, maxPoints: maxPoints}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies pending migrations
func (s *PostgresStore) Migrate() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Record upserts one point per repository and trims each to maxPoints
func (s *PostgresStore) Record(ctx context.Context, snap *models.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO repository_history (repo_id, observed_at, point)
		VALUES ($1, $2, $3)
		ON CONFLICT (repo_id, observed_at) DO UPDATE SET
			point = EXCLUDED.point`)
	if err != nil {
		return err
	}
	defer insert.Close()

	prune, err := tx.PrepareContext(ctx, `
		DELETE FROM repository_history
		WHERE repo_id = $1 AND observed_at NOT IN (
			SELECT observed_at FROM repository_history
			WHERE repo_id = $1
			ORDER BY observed_at DESC
			LIMIT $2
		)`)
	if err != nil {
		return err
	}
	defer prune.Close()

	for id, point := range pointsOf(snap) {
		data, err := json.Marshal(point)
		if err != nil {
			return fmt.Errorf("marshal history point: %w", err)
		}
		if _, err := insert.ExecContext(ctx, id, point.ObservedAt, data); err != nil {
			return fmt.Errorf("failed to save history of repository %d: %w", id, err)
		}
		if _, err := prune.ExecContext(ctx, id, s.maxPoints); err != nil {
			return fmt.Errorf("failed to prune history of repository %d: %w", id, err)
		}
	}

	return tx.Commit()
}

// History returns the newest limit points of repoID, oldest first
func (s *PostgresStore) History(ctx context.Context, repoID int64, limit int) ([]models.HistoryPoint, error) {
	if limit <= 0 || limit > s.maxPoints {
		limit = s.maxPoints
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT point FROM (
			SELECT point, observed_at FROM repository_history
			WHERE repo_id = $1
			ORDER BY observed_at DESC
			LIMIT $2
		) recent
		ORDER BY observed_at ASC`, repoID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []models.HistoryPoint
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var p models.HistoryPoint
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode history point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Close closes the database
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
