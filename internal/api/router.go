package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/teamsync/teamsync/internal/app"
	iauth "github.com/teamsync/teamsync/internal/auth"
	"github.com/teamsync/teamsync/internal/cache"
	"github.com/teamsync/teamsync/internal/handlers"
	"github.com/teamsync/teamsync/internal/middleware"
	"github.com/teamsync/teamsync/internal/monitoring"
	"github.com/teamsync/teamsync/internal/monitoring/checks"
)

// RouterOption customises NewRouter.
type RouterOption func(*routerOptions)

type routerOptions struct {
	healthChecks []monitoring.Check
}

// WithHealthChecks adds probes to /health beyond the database and realtime hub.
func WithHealthChecks(extra ...monitoring.Check) RouterOption {
	return func(o *routerOptions) {
		o.healthChecks = append(o.healthChecks, extra...)
	}
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
// rateStore may be nil, which disables throttling.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, svc *Services, rateStore cache.Store, opts ...RouterOption) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if svc == nil {
		return nil, fmt.Errorf("services must be provided")
	}
	if !cfg.RateLimit.Enabled {
		rateStore = nil
	}

	var options routerOptions
	for _, opt := range opts {
		opt(&options)
	}

	r := gin.New()
	if len(cfg.Server.TrustedProxies) > 0 {
		if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
			return nil, fmt.Errorf("trusted proxies: %w", err)
		}
	}

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.AuditContext())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RateLimit(rateStore, cfg.RateLimit.Requests, windowOr(cfg.RateLimit.Window)))

	prober := monitoring.NewProber(checks.Database(db, cfg.Monitoring.Health.Timeout))
	if svc.Hub != nil {
		prober.Register(checks.Realtime(svc.Hub))
	}
	for _, check := range options.healthChecks {
		prober.Register(check)
	}
	registerHealthRoutes(r, prober, cfg)

	joinLimit := middleware.ScopedRateLimit("join", rateStore, cfg.RateLimit.Join.Requests, windowOr(cfg.RateLimit.Join.Window))

	teamHandler, err := handlers.NewTeamHandler(svc.Teams, svc.Roster, jwt)
	if err != nil {
		return nil, err
	}
	inviteHandler, err := handlers.NewInviteHandler(svc.Admission, svc.Registry)
	if err != nil {
		return nil, err
	}
	joinHandler, err := handlers.NewJoinHandler(svc.Admission, jwt)
	if err != nil {
		return nil, err
	}
	chatHandler, err := handlers.NewChatHandler(svc.Chat, svc.Roster, svc.Hub)
	if err != nil {
		return nil, err
	}
	scoutingHandler, err := handlers.NewScoutingHandler(svc.Scouting, svc.Roster)
	if err != nil {
		return nil, err
	}
	goalHandler, err := handlers.NewGoalHandler(svc.Goals)
	if err != nil {
		return nil, err
	}
	activityHandler, err := handlers.NewActivityHandler(svc.Audit)
	if err != nil {
		return nil, err
	}
	realtimeHandler, err := handlers.NewRealtimeHandler(svc.Hub, jwt, svc.Roster)
	if err != nil {
		return nil, err
	}

	// Public routes
	public := r.Group("/api")
	public.POST("/teams", joinLimit, teamHandler.Create)
	registerJoinRoutes(public, joinHandler, joinLimit)
	public.GET("/teams/:teamID/stream", realtimeHandler.Stream)

	// Team-scoped routes: a valid token for this team, held by a current member
	team := r.Group("/api/teams/:teamID")
	team.Use(middleware.Auth(jwt), middleware.RequireTeam("teamID"), middleware.RequireActiveMember(svc.Roster))

	registerTeamRoutes(team, teamHandler, activityHandler)
	registerInviteRoutes(team, inviteHandler)
	registerChatRoutes(team, chatHandler)
	registerScoutingRoutes(team, scoutingHandler)
	registerGoalRoutes(team, goalHandler)

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func windowOr(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Minute
	}
	return d
}
