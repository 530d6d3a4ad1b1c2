package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/teamsync/teamsync/internal/database"
)

var opened atomic.Int64

// TestDBOption customises MustOpenTestDB.
type TestDBOption func(*testDB)

type testDB struct {
	cfg     database.Config
	migrate bool
}

// WithAutoMigrate creates the full schema after opening.
func WithAutoMigrate() TestDBOption {
	return func(o *testDB) { o.migrate = true }
}

// MustOpenTestDB opens an in-memory SQLite database private to t. The
// database is named after the test so a leaked handle is easy to trace,
// and it is closed when the test ends.
func MustOpenTestDB(t *testing.T, opts ...TestDBOption) *gorm.DB {
	t.Helper()

	name := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, t.Name())
	o := testDB{cfg: database.Config{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, opened.Add(1)),
	}}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := database.Open(o.cfg)
	require.NoError(t, err, "open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if o.migrate {
		require.NoError(t, database.AutoMigrate(db), "migrate test database")
	}
	return db
}
