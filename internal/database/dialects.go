package database

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Server databases store every timestamp in UTC so invite expiry compares
// the same way regardless of where replicas run.

func openPostgres(cfg Config) (*gorm.DB, error) {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(postgres.Open(dsn), gormConfig(cfg))
}

func openMySQL(cfg Config) (*gorm.DB, error) {
	dsn, err := buildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(mysql.Open(dsn), gormConfig(cfg))
}

// buildPostgresDSN renders a keyword/value connection string and checks it
// with pgx's own parser so a malformed setting fails at startup.
func buildPostgresDSN(cfg Config) (string, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		if cfg.User == "" || cfg.Name == "" {
			return "", errors.New("postgres configuration requires user and database name")
		}

		settings := map[string]string{
			"host":     valueOr(cfg.Host, "localhost"),
			"port":     strconv.Itoa(portOr(cfg.Port, 5432)),
			"user":     cfg.User,
			"dbname":   cfg.Name,
			"sslmode":  "disable",
			"TimeZone": "UTC",
		}
		if cfg.Password != "" {
			settings["password"] = cfg.Password
		}
		for key, value := range cfg.Options {
			settings[key] = value
		}

		pairs := make([]string, 0, len(settings))
		for _, key := range sortedKeys(settings) {
			pairs = append(pairs, key+"="+quotePostgresValue(settings[key]))
		}
		dsn = strings.Join(pairs, " ")
	}

	if _, err := pgconn.ParseConfig(dsn); err != nil {
		return "", fmt.Errorf("postgres dsn: %w", err)
	}
	return dsn, nil
}

// buildMySQLDSN always enables parseTime; the models scan DATETIME columns
// into time.Time. Options are appended to the DSN and re-parsed so the driver
// routes known keys like tls onto their typed fields.
func buildMySQLDSN(cfg Config) (string, error) {
	raw := strings.TrimSpace(cfg.DSN)
	if raw == "" {
		if cfg.User == "" || cfg.Name == "" {
			return "", errors.New("mysql configuration requires user and database name")
		}
		base := gomysql.NewConfig()
		base.User = cfg.User
		base.Passwd = cfg.Password
		base.Net = "tcp"
		base.Addr = net.JoinHostPort(valueOr(cfg.Host, "127.0.0.1"), strconv.Itoa(portOr(cfg.Port, 3306)))
		base.DBName = cfg.Name
		base.Loc = time.UTC
		raw = base.FormatDSN()
	}

	extra := url.Values{}
	if !strings.Contains(raw, "charset=") {
		extra.Set("charset", "utf8mb4")
	}
	for key, value := range cfg.Options {
		extra.Set(key, value)
	}
	extra.Set("parseTime", "true")

	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	parsed, err := gomysql.ParseDSN(raw + sep + extra.Encode())
	if err != nil {
		return "", fmt.Errorf("mysql dsn: %w", err)
	}
	return parsed.FormatDSN(), nil
}

func quotePostgresValue(value string) string {
	if value != "" && !strings.ContainsAny(value, " '\\") {
		return value
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
	return "'" + escaped + "'"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func portOr(port, fallback int) int {
	if port <= 0 {
		return fallback
	}
	return port
}
