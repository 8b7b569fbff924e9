package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fluxorio/mtp/pkg/core"
	"github.com/fluxorio/mtp/pkg/web"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken is returned when a request carries no token
	ErrMissingToken = errors.New("missing token")
	// ErrInvalidToken is returned for malformed, expired or forged tokens
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are the token claims: sub is the login, auth the roles
type Claims struct {
	Roles []string `json:"auth"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 tokens
type TokenService struct {
	secret   []byte
	issuer   string
	validity time.Duration
	now      func() time.Time
}

// NewTokenService creates a token service. validity defaults to 24h.
func NewTokenService(secret, issuer string, validity time.Duration) *TokenService {
	core.FailFastIf(secret == "", "token secret cannot be empty")
	if validity <= 0 {
		validity = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), issuer: issuer, validity: validity, now: time.Now}
}

// Issue signs a token for p
func (s *TokenService) Issue(p *Principal) (string, error) {
	if p == nil || p.Login == "" {
		return "", fmt.Errorf("issue token: %w", ErrInvalidToken)
	}
	now := s.now()
	claims := Claims{
		Roles: append([]string(nil), p.Roles...),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Login,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.validity)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns its principal
func (s *TokenService) Parse(tokenString string) (*Principal, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return &Principal{Login: claims.Subject, Roles: claims.Roles}, nil
}

// JWTConfig configures the JWT middleware
type JWTConfig struct {
	Tokens *TokenService

	// QueryParam is accepted in place of the Authorization header,
	// for clients that cannot set headers (websocket upgrades)
	QueryParam string

	// Optional lets anonymous requests through without a principal.
	// A present but invalid token is still rejected.
	Optional bool
}

// DefaultJWTConfig returns a config requiring a token
func DefaultJWTConfig(tokens *TokenService) JWTConfig {
	return JWTConfig{Tokens: tokens, QueryParam: "access_token"}
}

// JWT authenticates requests and stores the principal under web.PrincipalKey
func JWT(config JWTConfig) web.FastMiddleware {
	core.FailFastIf(config.Tokens == nil, "token service cannot be nil")

	return func(next web.FastRequestHandler) web.FastRequestHandler {
		return func(ctx *web.FastRequestContext) error {
			token := ExtractToken(ctx.Header("Authorization"), ctx.Query(config.QueryParam), config.QueryParam != "")
			if token == "" {
				if config.Optional {
					return next(ctx)
				}
				return ctx.Fail(401, "UNAUTHORIZED", ErrMissingToken.Error())
			}

			p, err := config.Tokens.Parse(token)
			if err != nil {
				return ctx.Fail(401, "UNAUTHORIZED", ErrInvalidToken.Error())
			}
			ctx.Set(web.PrincipalKey, p)
			return next(ctx)
		}
	}
}

// ExtractToken picks the bearer token from an Authorization header, then
// the query value when allowed
func ExtractToken(header, query string, allowQuery bool) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	if allowQuery {
		return query
	}
	return ""
}
