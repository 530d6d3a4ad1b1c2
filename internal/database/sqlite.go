package database

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const defaultBusyTimeout = 5 * time.Second

// sqliteTarget is a resolved SQLite connection string.
type sqliteTarget struct {
	dsn    string
	memory bool
	// file is the on-disk path, empty for memory databases and explicit DSNs.
	file string
}

func openSQLite(cfg Config) (*gorm.DB, error) {
	target, err := buildSQLiteDSN(cfg)
	if err != nil {
		return nil, err
	}
	if target.file != "" {
		if dir := filepath.Dir(target.file); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(target.dsn), gormConfig(cfg))
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if target.memory {
		// one connection, or each new one would see an empty database and
		// concurrent joins would fail with SQLITE_LOCKED instead of queueing
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// buildSQLiteDSN turns Path or DSN into a go-sqlite3 URI. File databases
// get WAL and immediate transactions so that two joins on the same team
// serialise at BEGIN instead of deadlocking on upgrade. Foreign keys are
// always on.
func buildSQLiteDSN(cfg Config) (sqliteTarget, error) {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		return sqliteTarget{dsn: withSQLiteParam(dsn, "_foreign_keys", "1"), memory: isMemoryDSN(dsn)}, nil
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}

	params := url.Values{}
	params.Set("_foreign_keys", "1")
	for k, v := range cfg.Options {
		params.Set(k, v)
	}

	path := strings.TrimSpace(cfg.Path)
	if path == "" || strings.EqualFold(path, ":memory:") {
		params.Set("cache", "shared")
		return sqliteTarget{dsn: "file::memory:?" + params.Encode(), memory: true}, nil
	}

	if params.Get("_journal_mode") == "" {
		params.Set("_journal_mode", "WAL")
	}
	if params.Get("_txlock") == "" {
		params.Set("_txlock", "immediate")
	}
	params.Set("_busy_timeout", strconv.FormatInt(busy.Milliseconds(), 10))

	file := filepath.ToSlash(filepath.Clean(path))
	return sqliteTarget{dsn: "file:" + file + "?" + params.Encode(), file: file}, nil
}

// withSQLiteParam adds key to dsn unless the caller already set it.
func withSQLiteParam(dsn, key, value string) string {
	base, query, _ := strings.Cut(dsn, "?")
	params, err := url.ParseQuery(query)
	if err != nil || params.Has(key) {
		return dsn
	}
	if query == "" {
		return base + "?" + key + "=" + url.QueryEscape(value)
	}
	return dsn + "&" + key + "=" + url.QueryEscape(value)
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
