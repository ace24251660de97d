package history

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Kamar-Folarin/github-ma-intel/internal/models"
)

var bucketHistory = []byte("history")

// BoltStore keeps history in a single bbolt file. Each repository has a
// nested bucket keyed by big-endian observation time, so cursor order is
// chronological.
type BoltStore struct {
	db        *bolt.DB
	maxPoints int
}

// NewBoltStore opens (or creates) the bbolt file at path
func NewBoltStore(path string, maxPoints int) (*BoltStore, error) {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open boltdb: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketHistory)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &BoltStore{db: db, maxPoints: maxPoints}, nil
}

func repoKey(id int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

func timeKey(t time.Time) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(t.UnixNano()))
	return key
}

// Record stores one point per repository and trims each repository to maxPoints
func (s *BoltStore) Record(ctx context.Context, snap *models.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	points := pointsOf(snap)
	return s.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketHistory)
		for id, point := range points {
			bucket, err := root.CreateBucketIfNotExists(repoKey(id))
			if err != nil {
				return err
			}
			data, err := json.Marshal(point)
			if err != nil {
				return fmt.Errorf("marshal history point: %w", err)
			}
			if err := bucket.Put(timeKey(point.ObservedAt), data); err != nil {
				return err
			}
			if err := trim(bucket, s.maxPoints); err != nil {
				return err
			}
		}
		return nil
	})
}

// trim deletes the oldest keys beyond max
func trim(bucket *bolt.Bucket, max int) error {
	c := bucket.Cursor()
	count := 0
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		count++
	}
	excess := count - max
	for k, _ := c.First(); k != nil && excess > 0; k, _ = c.First() {
		if err := bucket.Delete(k); err != nil {
			return err
		}
		excess--
	}
	return nil
}

// History returns the newest limit points of repoID, oldest first
func (s *BoltStore) History(ctx context.Context, repoID int64, limit int) ([]models.HistoryPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.maxPoints {
		limit = s.maxPoints
	}

	var points []models.HistoryPoint
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketHistory).Bucket(repoKey(repoID))
		if bucket == nil {
			return nil
		}
		c := bucket.Cursor()
		for k, v := c.Last(); k != nil && len(points) < limit; k, v = c.Prev() {
			var p models.HistoryPoint
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("decode history point: %w", err)
			}
			points = append(points, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

// Close closes the bbolt file
func (s *BoltStore) Close() error {
	return s.db.Close()
}
