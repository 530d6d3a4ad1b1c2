package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/teamsync/teamsync/internal/membership"
)

// DefaultAccessTokenTTL defines the fallback validity period for access tokens.
const DefaultAccessTokenTTL = 12 * time.Hour

// Validation failures. Anything that is not an expiry is ErrTokenInvalid.
var (
	ErrTokenExpired = errors.New("jwt: token expired")
	ErrTokenInvalid = errors.New("jwt: token invalid")
)

// JWTConfig bundles the configuration required to build a JWTService.
// Leeway tolerates clock skew between the API nodes that issue and check tokens.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
	Leeway         time.Duration
	Clock          func() time.Time
}

// Claims identifies a team member. A token is only good for the team it names.
type Claims struct {
	MemberID string          `json:"mid"`
	TeamID   string          `json:"tid"`
	Role     membership.Role `json:"role"`
	jwt.RegisteredClaims
}

// AccessTokenInput names the member a token is minted for.
type AccessTokenInput struct {
	MemberID string
	TeamID   string
	Role     membership.Role
}

// JWTService signs and checks member access tokens with HS256.
type JWTService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
	now    func() time.Time
}

// NewJWTService constructs a JWTService instance when provided with the required configuration.
func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: secret must be provided")
	}

	svc := &JWTService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.AccessTokenTTL,
		now:    cfg.Clock,
	}
	if svc.ttl <= 0 {
		svc.ttl = DefaultAccessTokenTTL
	}
	if svc.now == nil {
		svc.now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(svc.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	svc.parser = jwt.NewParser(opts...)

	return svc, nil
}

// SecretLength reports the signing secret size in bytes.
func (s *JWTService) SecretLength() int {
	return len(s.secret)
}

// TTL reports how long issued tokens stay valid.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// GenerateAccessToken signs a token for one member of one team.
func (s *JWTService) GenerateAccessToken(input AccessTokenInput) (string, error) {
	if input.MemberID == "" || input.TeamID == "" {
		return "", errors.New("jwt: member id and team id are required")
	}
	if !input.Role.Valid() {
		return "", fmt.Errorf("jwt: invalid role %q", input.Role)
	}

	jti, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("jwt: token id: %w", err)
	}

	issuedAt := s.now()
	claims := Claims{
		MemberID: input.MemberID,
		TeamID:   input.TeamID,
		Role:     input.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Subject:   input.MemberID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken checks signature, issuer and lifetime and returns the
// member claims. Errors wrap ErrTokenExpired or ErrTokenInvalid along with
// the parser's own cause.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty token", ErrTokenInvalid)
	}

	var claims Claims
	_, err := s.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, errors.Join(ErrTokenExpired, err)
	case err != nil:
		return nil, errors.Join(ErrTokenInvalid, err)
	}

	if claims.MemberID == "" || claims.TeamID == "" || claims.Subject != claims.MemberID {
		return nil, fmt.Errorf("%w: member claims missing or inconsistent", ErrTokenInvalid)
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrTokenInvalid, claims.Role)
	}
	return &claims, nil
}
