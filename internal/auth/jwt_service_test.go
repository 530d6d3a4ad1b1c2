package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/teamsync/teamsync/internal/membership"
)

func playerToken() AccessTokenInput {
	return AccessTokenInput{MemberID: "member-123", TeamID: "team-9", Role: membership.RolePlayer}
}

// clockAt returns a movable clock starting at t.
func clockAt(t time.Time) (func() time.Time, func(time.Duration)) {
	current := t
	return func() time.Time { return current }, func(d time.Duration) { current = current.Add(d) }
}

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.EqualError(t, err, "jwt: secret must be provided")
}

func TestNewJWTServiceDefaultsTTL(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "s"})
	require.NoError(t, err)
	require.Equal(t, DefaultAccessTokenTTL, svc.TTL())
	require.Equal(t, 1, svc.SecretLength())
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now, _ := clockAt(issued)

	svc, err := NewJWTService(JWTConfig{Secret: "super-secret", Issuer: "teamsync", AccessTokenTTL: time.Hour, Clock: now})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(AccessTokenInput{MemberID: "member-123", TeamID: "team-9", Role: membership.RoleCoach})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "member-123", claims.MemberID)
	require.Equal(t, "member-123", claims.Subject)
	require.Equal(t, "team-9", claims.TeamID)
	require.Equal(t, membership.RoleCoach, claims.Role)
	require.Equal(t, "teamsync", claims.Issuer)
	require.NotEmpty(t, claims.ID)
	require.True(t, claims.IssuedAt.Time.Equal(issued))
	require.True(t, claims.ExpiresAt.Time.Equal(issued.Add(time.Hour)))

	again, err := svc.GenerateAccessToken(AccessTokenInput{MemberID: "member-123", TeamID: "team-9", Role: membership.RoleCoach})
	require.NoError(t, err)
	second, err := svc.ValidateAccessToken(again)
	require.NoError(t, err)
	require.NotEqual(t, claims.ID, second.ID)
}

func TestGenerateAccessTokenRequiresMemberClaims(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "secret"})
	require.NoError(t, err)

	_, err = svc.GenerateAccessToken(AccessTokenInput{TeamID: "team-9", Role: membership.RolePlayer})
	require.Error(t, err)

	_, err = svc.GenerateAccessToken(AccessTokenInput{MemberID: "m", TeamID: "t", Role: "owner"})
	require.Error(t, err)
}

func TestValidateAccessTokenInvalidSignature(t *testing.T) {
	now, _ := clockAt(time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC))

	issuer, err := NewJWTService(JWTConfig{Secret: "issuer-secret", AccessTokenTTL: time.Minute, Clock: now})
	require.NoError(t, err)
	token, err := issuer.GenerateAccessToken(playerToken())
	require.NoError(t, err)

	verifier, err := NewJWTService(JWTConfig{Secret: "other-secret", AccessTokenTTL: time.Minute, Clock: now})
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
	require.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestValidateAccessTokenWrongIssuer(t *testing.T) {
	issuer, err := NewJWTService(JWTConfig{Secret: "shared", Issuer: "elsewhere"})
	require.NoError(t, err)
	token, err := issuer.GenerateAccessToken(playerToken())
	require.NoError(t, err)

	verifier, err := NewJWTService(JWTConfig{Secret: "shared", Issuer: "teamsync"})
	require.NoError(t, err)
	_, err = verifier.ValidateAccessToken(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
	require.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestValidateAccessTokenExpired(t *testing.T) {
	now, advance := clockAt(time.Date(2026, 1, 1, 14, 0, 0, 0, time.UTC))

	svc, err := NewJWTService(JWTConfig{Secret: "secret", AccessTokenTTL: time.Minute, Clock: now})
	require.NoError(t, err)
	token, err := svc.GenerateAccessToken(playerToken())
	require.NoError(t, err)

	advance(2 * time.Minute)

	_, err = svc.ValidateAccessToken(token)
	require.ErrorIs(t, err, ErrTokenExpired)
	require.NotErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateAccessTokenLeeway(t *testing.T) {
	now, advance := clockAt(time.Date(2026, 1, 1, 14, 0, 0, 0, time.UTC))

	svc, err := NewJWTService(JWTConfig{Secret: "secret", AccessTokenTTL: time.Minute, Leeway: 30 * time.Second, Clock: now})
	require.NoError(t, err)
	token, err := svc.GenerateAccessToken(playerToken())
	require.NoError(t, err)

	advance(75 * time.Second)
	_, err = svc.ValidateAccessToken(token)
	require.NoError(t, err)

	advance(time.Minute)
	_, err = svc.ValidateAccessToken(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateAccessTokenRejectsForeignClaims(t *testing.T) {
	now, _ := clockAt(time.Date(2026, 1, 1, 15, 0, 0, 0, time.UTC))
	svc, err := NewJWTService(JWTConfig{Secret: "secret", Clock: now})
	require.NoError(t, err)

	// signed with the right key but missing the member claims and expiry
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "someone"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(raw)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.ValidateAccessToken("")
	require.ErrorIs(t, err, ErrTokenInvalid)
}
