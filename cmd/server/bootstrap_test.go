package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teamsync/teamsync/internal/app"
	"github.com/teamsync/teamsync/internal/cache"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()
	return &app.Config{
		Database: app.DatabaseConfig{
			Driver: "sqlite",
			DSN:    "file:" + t.Name() + "?mode=memory&cache=shared&_foreign_keys=1",
		},
		Auth: app.AuthConfig{JWT: app.JWTSettings{Secret: "bootstrap-test-secret", Issuer: "test", TTL: time.Hour}},
		Invites: app.InviteConfig{
			BaseURL:       "https://teamsync.test",
			DefaultExpiry: 24 * time.Hour,
			CodeAttempts:  5,
			Retention:     time.Hour,
		},
		RateLimit: app.RateLimitConfig{
			Enabled:  true,
			Store:    "database",
			Requests: 100,
			Window:   time.Minute,
			Join:     app.LimitRule{Requests: 10, Window: time.Minute},
		},
		Maintenance: app.MaintenanceConfig{
			Enabled:            true,
			InviteSchedule:     "@hourly",
			AuditSchedule:      "@daily",
			CacheSchedule:      "*/10 * * * *",
			AuditRetentionDays: 30,
		},
		Monitoring: app.MonitoringConfig{Health: app.HealthConfig{Enabled: true}},
	}
}

func TestBootstrapRuntime(t *testing.T) {
	cfg := testConfig(t)

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.NotNil(t, stack.Services)
	require.NotNil(t, stack.Cleaner)
	require.IsType(t, &cache.DatabaseStore{}, stack.Counters)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	stack.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "100", w.Header().Get("X-RateLimit-Limit"))
	require.Contains(t, w.Body.String(), `"component":"maintenance"`)
}

func TestBootstrapRuntimeMemoryRateStoreAndNoMaintenance(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.Store = "memory"
	cfg.Maintenance.Enabled = false

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.Nil(t, stack.Cleaner)
	require.IsType(t, &cache.MemoryStore{}, stack.Counters)
}

func TestBootstrapRuntimeRejectsBadDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"

	_, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, loadEnvFile(""))
	require.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TEAMSYNC_TEST_ENV_FILE=loaded\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("TEAMSYNC_TEST_ENV_FILE") })

	require.NoError(t, loadEnvFile(path))
	require.Equal(t, "loaded", os.Getenv("TEAMSYNC_TEST_ENV_FILE"))
}

func TestLoadApplicationConfigMissingPath(t *testing.T) {
	_, err := loadApplicationConfig(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}
