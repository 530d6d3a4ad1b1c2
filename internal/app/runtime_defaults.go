package app

import (
	"fmt"
	"strings"

	"github.com/teamsync/teamsync/pkg/crypto"
)

const jwtSecretBytes = 48

// Keys reported by ApplyRuntimeDefaults.
const (
	DefaultedJWTSecret     = "auth.jwt.secret"
	DefaultedInviteBaseURL = "invites.base_url"
)

// ApplyRuntimeDefaults fills settings the server cannot run without. It
// returns the keys it filled so callers can log them without values.
// A generated JWT secret invalidates every member token on restart, and a
// derived base URL only works for join links opened on the server host.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated[DefaultedJWTSecret] = true
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.Invites.BaseURL), "/")
	if base == "" {
		port := cfg.Server.Port
		if port <= 0 {
			port = 8000
		}
		base = fmt.Sprintf("http://localhost:%d", port)
		generated[DefaultedInviteBaseURL] = true
	}
	cfg.Invites.BaseURL = base

	return generated, nil
}
