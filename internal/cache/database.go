package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/teamsync/teamsync/internal/database"
	"github.com/teamsync/teamsync/internal/models"
)

// DatabaseStore implements Store on the primary SQL database so several
// server instances share counters without extra infrastructure.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDatabaseStore constructs a database-backed Store.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db, now: time.Now}
}

// WithClock swaps the store's clock, for tests.
func (s *DatabaseStore) WithClock(clock func() time.Time) *DatabaseStore {
	if clock != nil {
		s.now = clock
	}
	return s
}

// IncrementWithTTL counts one hit in the bucket's current window, opening a
// new window when the previous one has closed. Two replicas racing to open
// the same bucket both land on the update path.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil {
		return 0, 0, errors.New("cache: database store not initialised")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	window = windowOrDefault(window)

	now := s.now().UTC()
	var counter models.RateCounter

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		opened := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.RateCounter{
			Bucket:     key,
			Count:      1,
			WindowEnds: now.Add(window),
			UpdatedAt:  now,
		})
		if opened.Error != nil {
			return opened.Error
		}
		if opened.RowsAffected == 1 {
			counter = models.RateCounter{Bucket: key, Count: 1, WindowEnds: now.Add(window)}
			return nil
		}

		query := tx
		if database.SupportsRowLocks(tx) {
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := query.Take(&counter, "bucket = ?", key).Error; err != nil {
			return err
		}

		if now.Before(counter.WindowEnds) {
			counter.Count++
		} else {
			counter.Count = 1
			counter.WindowEnds = now.Add(window)
		}
		return tx.Model(&models.RateCounter{}).
			Where("bucket = ?", key).
			Updates(map[string]any{
				"count":       counter.Count,
				"window_ends": counter.WindowEnds,
				"updated_at":  now,
			}).Error
	})
	if err != nil {
		return 0, 0, fmt.Errorf("cache: increment %q: %w", key, err)
	}

	return counter.Count, counter.WindowEnds.Sub(now), nil
}

// Delete removes buckets from the store.
func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	if s == nil {
		return errors.New("cache: database store not initialised")
	}
	if len(keys) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	return s.db.WithContext(ctx).Where("bucket IN ?", keys).Delete(&models.RateCounter{}).Error
}

// PurgeExpired drops every bucket whose window has closed.
func (s *DatabaseStore) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, errors.New("cache: database store not initialised")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := s.db.WithContext(ctx).Where("window_ends <= ?", s.now().UTC()).Delete(&models.RateCounter{})
	if result.Error != nil {
		return 0, fmt.Errorf("cache: purge expired: %w", result.Error)
	}
	return result.RowsAffected, nil
}
