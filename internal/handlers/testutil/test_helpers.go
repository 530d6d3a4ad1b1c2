package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/teamsync/teamsync/internal/api"
	"github.com/teamsync/teamsync/internal/app"
	iauth "github.com/teamsync/teamsync/internal/auth"
	"github.com/teamsync/teamsync/internal/cache"
	sharedtestutil "github.com/teamsync/teamsync/internal/database/testutil"
	"github.com/teamsync/teamsync/internal/membership"
	"github.com/teamsync/teamsync/internal/models"
	"github.com/teamsync/teamsync/pkg/response"
)

// DefaultPassword is used for every member the helpers create.
const DefaultPassword = "whistle-2024"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	JWT      *iauth.JWTService
	Config   *app.Config
	Services *api.Services
}

// EnvOption adjusts the configuration before the router is built.
type EnvOption func(*app.Config)

// WithRateLimit enables throttling with the given join ceiling.
func WithRateLimit(joinRequests int) EnvOption {
	return func(cfg *app.Config) {
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.Join.Requests = joinRequests
	}
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
		},
		Invites: app.InviteConfig{
			BaseURL:       "https://teamsync.test",
			DefaultExpiry: 7 * 24 * time.Hour,
			CodeAttempts:  5,
		},
		RateLimit: app.RateLimitConfig{
			Store:    "memory",
			Requests: 1000,
			Window:   time.Minute,
			Join:     app.LimitRule{Requests: 1000, Window: time.Minute},
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	svc, err := api.NewServices(db, cfg)
	require.NoError(t, err)

	router, err := api.NewRouter(db, jwtSvc, cfg, svc, cache.NewMemoryStore())
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		JWT:      jwtSvc,
		Config:   cfg,
		Services: svc,
	}
}

// Session mirrors the payload returned when a member is created.
type Session struct {
	Team        *models.Team   `json:"team"`
	Member      *models.Member `json:"member"`
	AccessToken string         `json:"access_token"`
	ExpiresIn   int            `json:"expires_in"`
}

// CreateTeam registers a team on tier through the API and returns the coach's session.
func (e *Env) CreateTeam(tier membership.Tier) Session {
	e.T.Helper()

	owner := uuid.NewString()[:8]
	w := e.Request(http.MethodPost, "/api/teams", map[string]string{
		"name":           "Hawks " + owner,
		"sport":          "basketball",
		"tier":           string(tier),
		"owner_name":     "Coach " + owner,
		"owner_email":    "coach-" + owner + "@hawks.test",
		"owner_password": DefaultPassword,
	}, "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	var session Session
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &session)
	require.NotEmpty(e.T, session.AccessToken)
	require.NotNil(e.T, session.Team)
	return session
}

// IssueInvite creates an invite for role as the holder of token.
func (e *Env) IssueInvite(token, teamID string, role membership.Role) string {
	e.T.Helper()

	w := e.Request(http.MethodPost, fmt.Sprintf("/api/teams/%s/invites", teamID), map[string]any{"role": string(role)}, token)
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	var issued struct {
		Invite models.Invite `json:"invite"`
		Link   string        `json:"link"`
	}
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &issued)
	return issued.Invite.Code
}

// Join redeems code for a new member and returns the raw response.
func (e *Env) Join(code, name, email string) *httptest.ResponseRecorder {
	e.T.Helper()
	return e.Request(http.MethodPost, "/api/join/"+code, map[string]string{
		"name":     name,
		"email":    email,
		"password": DefaultPassword,
	}, "")
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	buf := bytes.NewBuffer(nil)
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
