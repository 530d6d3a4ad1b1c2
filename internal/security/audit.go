// Package security reviews a deployment's configuration and data for
// settings that weaken invite links or member sessions.
package security

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/teamsync/teamsync/internal/app"
	iauth "github.com/teamsync/teamsync/internal/auth"
	"github.com/teamsync/teamsync/internal/models"
)

// CheckStatus is the outcome of one check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

// Check identifiers.
const (
	CheckJWTSecret       = "jwt_secret_strength"
	CheckTokenTTL        = "member_token_ttl"
	CheckInviteBaseURL   = "invite_base_url"
	CheckJoinRateLimit   = "join_rate_limit"
	CheckRealtimeOrigins = "realtime_origins"
	CheckPersistence     = "database_persistence"
	CheckTeamOwners      = "team_owners"
)

const (
	minSecretBytes         = 32
	preferredSecretBytes   = 48
	maxRecommendedTokenTTL = 7 * 24 * time.Hour
)

// Check is the result of one verification.
type Check struct {
	ID          string      `json:"id"`
	Status      CheckStatus `json:"status"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
	Details     any         `json:"details,omitempty"`
}

func pass(id, message string, details any) Check {
	return Check{ID: id, Status: StatusPass, Message: message, Details: details}
}

func warn(id, message, remediation string, details any) Check {
	return Check{ID: id, Status: StatusWarn, Message: message, Remediation: remediation, Details: details}
}

func fail(id, message, remediation string, details any) Check {
	return Check{ID: id, Status: StatusFail, Message: message, Remediation: remediation, Details: details}
}

// Result is every check plus a count per status.
type Result struct {
	CheckedAt time.Time      `json:"checked_at"`
	Checks    []Check        `json:"checks"`
	Summary   map[string]int `json:"summary"`
}

// Failed reports whether any check failed outright.
func (r Result) Failed() bool {
	return r.Summary[string(StatusFail)] > 0
}

// Auditor evaluates the controls protecting invites and member tokens.
type Auditor struct {
	db  *gorm.DB
	jwt *iauth.JWTService
	cfg *app.Config
	now func() time.Time
}

// NewAuditor constructs an Auditor. Any dependency may be nil; checks that
// need a missing one report a warning.
func NewAuditor(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config) *Auditor {
	return &Auditor{db: db, jwt: jwt, cfg: cfg, now: time.Now}
}

// WithClock overrides the clock stamped on results.
func (a *Auditor) WithClock(clock func() time.Time) {
	if clock != nil {
		a.now = clock
	}
}

// Run executes every check.
func (a *Auditor) Run(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	checks := []Check{a.jwtSecret(), a.tokenTTL()}
	if a.cfg == nil {
		for _, id := range []string{CheckInviteBaseURL, CheckJoinRateLimit, CheckRealtimeOrigins, CheckPersistence} {
			checks = append(checks, warn(id, "Configuration not loaded, unable to evaluate.",
				"Load configuration before running the security audit.", nil))
		}
	} else {
		checks = append(checks,
			inviteBaseURL(a.cfg.Invites),
			joinRateLimit(a.cfg.RateLimit),
			realtimeOrigins(a.cfg.Realtime.AllowedOrigins),
			persistence(a.cfg.Database),
		)
	}
	checks = append(checks, a.teamOwners(ctx))

	summary := map[string]int{string(StatusPass): 0, string(StatusWarn): 0, string(StatusFail): 0}
	for _, check := range checks {
		summary[string(check.Status)]++
	}
	return Result{CheckedAt: a.now().UTC(), Checks: checks, Summary: summary}
}

func (a *Auditor) jwtSecret() Check {
	if a.jwt == nil {
		return warn(CheckJWTSecret, "JWT service not initialised, unable to assess signing secret strength.",
			"Initialise the JWT service with a strong secret.", nil)
	}

	length := a.jwt.SecretLength()
	details := map[string]any{"length": length}
	switch {
	case length < minSecretBytes:
		return fail(CheckJWTSecret, fmt.Sprintf("JWT signing secret is too short (%d bytes).", length),
			fmt.Sprintf("Set TEAMSYNC_AUTH_JWT_SECRET to a random value of at least %d bytes.", minSecretBytes), details)
	case length < preferredSecretBytes:
		return warn(CheckJWTSecret, fmt.Sprintf("JWT signing secret is %d bytes.", length),
			fmt.Sprintf("Increase TEAMSYNC_AUTH_JWT_SECRET to at least %d bytes.", preferredSecretBytes), details)
	}
	return pass(CheckJWTSecret, fmt.Sprintf("JWT signing secret length is %d bytes.", length), details)
}

func (a *Auditor) tokenTTL() Check {
	if a.jwt == nil {
		return warn(CheckTokenTTL, "JWT service not initialised, unable to evaluate token lifetime.",
			"Initialise the JWT service before running the audit.", nil)
	}

	ttl := a.jwt.TTL()
	details := map[string]any{"ttl": ttl.String()}
	if ttl > maxRecommendedTokenTTL {
		return warn(CheckTokenTTL,
			fmt.Sprintf("Member tokens live %s, longer than the recommended %s.", ttl, maxRecommendedTokenTTL),
			"Lower auth.jwt.access_token_ttl; removed members keep a valid token until it expires.", details)
	}
	return pass(CheckTokenTTL, fmt.Sprintf("Member tokens live %s.", ttl), details)
}

func inviteBaseURL(cfg app.InviteConfig) Check {
	raw := strings.TrimSpace(cfg.BaseURL)
	parsed, err := url.Parse(raw)
	if raw == "" || err != nil || parsed.Host == "" {
		return fail(CheckInviteBaseURL, fmt.Sprintf("Invite base URL %q is not an absolute URL.", raw),
			"Set invites.base_url to the public origin of the join page.", nil)
	}

	details := map[string]any{"base_url": raw}
	if parsed.Scheme != "https" && !isLocalHost(parsed.Hostname()) {
		return warn(CheckInviteBaseURL, "Join links are served over plain HTTP; invite codes travel in the clear.",
			"Serve the join page over HTTPS and update invites.base_url.", details)
	}
	return pass(CheckInviteBaseURL, "Join links use "+parsed.Scheme+".", details)
}

func joinRateLimit(cfg app.RateLimitConfig) Check {
	if !cfg.Enabled || cfg.Join.Requests <= 0 {
		return fail(CheckJoinRateLimit, "Join requests are not rate limited; invite codes can be guessed by brute force.",
			"Enable ratelimit and set ratelimit.join.requests.", nil)
	}
	return pass(CheckJoinRateLimit, fmt.Sprintf("Join requests limited to %d per %s.", cfg.Join.Requests, cfg.Join.Window),
		map[string]any{"store": cfg.Store})
}

// realtimeOrigins flags "*", which admits every site, and partial wildcards,
// which never match and silently lock clients out.
func realtimeOrigins(origins []string) Check {
	var partial []string
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		switch {
		case origin == "*":
			return warn(CheckRealtimeOrigins, "Any website may open realtime sockets on behalf of a signed-in member.",
				"Replace \"*\" in realtime.allowed_origins with the app's origins.", nil)
		case strings.Contains(origin, "*"):
			partial = append(partial, origin)
		}
	}
	if len(partial) > 0 {
		return warn(CheckRealtimeOrigins, "Partial wildcard websocket origins are not matched and will be rejected.",
			"List explicit origins under realtime.allowed_origins.", map[string]any{"origins": partial})
	}
	return pass(CheckRealtimeOrigins, fmt.Sprintf("%d extra websocket origins allowed.", len(origins)), nil)
}

func persistence(cfg app.DatabaseConfig) Check {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	inMemory := strings.Contains(cfg.DSN, "mode=memory") || strings.Contains(cfg.DSN, ":memory:") || cfg.Path == ":memory:"
	if (driver == "" || driver == "sqlite") && inMemory {
		return warn(CheckPersistence, "SQLite is running in memory; teams and invites vanish on restart.",
			"Point database.path at a file or use postgres or mysql.", nil)
	}
	return pass(CheckPersistence, "Database driver "+driver+" persists data.", nil)
}

func (a *Auditor) teamOwners(ctx context.Context) Check {
	if a.db == nil {
		return warn(CheckTeamOwners, "Database unavailable, unable to confirm every team has an owner.",
			"Ensure database connectivity before running the audit.", nil)
	}

	var orphaned []string
	err := a.db.WithContext(ctx).
		Model(&models.Team{}).
		Where("owner_id = '' OR owner_id IS NULL OR owner_id NOT IN (?)",
			a.db.Model(&models.Member{}).Select("id")).
		Pluck("id", &orphaned).Error
	if err != nil {
		return warn(CheckTeamOwners, fmt.Sprintf("Could not verify team owners: %v", err),
			"Retry after resolving database errors.", nil)
	}
	if len(orphaned) > 0 {
		return warn(CheckTeamOwners, fmt.Sprintf("%d teams have no owning member.", len(orphaned)),
			"Issue a coach invite or reassign ownership for these teams.", map[string]any{"team_ids": orphaned})
	}
	return pass(CheckTeamOwners, "Every team has an owning member.", nil)
}

func isLocalHost(host string) bool {
	switch strings.ToLower(host) {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
