// Package session issues and verifies the signed tokens that bind a browser
// to its controller.
package session

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"resumegenius/internal/config"
	"resumegenius/internal/errors"
	"resumegenius/internal/types"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultLeeway = 30 * time.Second

// Claims are carried in every session token. User is nil until the
// visitor authenticates.
type Claims struct {
	User *types.User `json:"usr,omitempty"`
	jwt.RegisteredClaims
}

// SessionID returns the token id, which names the controller
func (c *Claims) SessionID() string {
	return c.ID
}

// Manager signs and parses HS256 session tokens
type Manager struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	parser   *jwt.Parser
	now      func() time.Time
}

// NewManager builds a manager from the session config
func NewManager(cfg config.SessionConfig) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "session secret must be set", nil)
	}
	if cfg.TTL <= 0 {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "session ttl must be positive", nil)
	}

	return &Manager{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
		parser: jwt.NewParser(
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithLeeway(defaultLeeway),
			jwt.WithExpirationRequired(),
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		),
		now: time.Now,
	}, nil
}

// NewSessionID returns a fresh random session id
func NewSessionID() string {
	return uuid.NewString()
}

// Issue signs a token for sessionID. user may be nil for anonymous sessions.
func (m *Manager) Issue(sessionID string, user *types.User) (string, error) {
	if sessionID == "" {
		return "", errors.NewSessionError(errors.ErrCodeSessionInvalid, "session id is required", nil)
	}

	now := m.now()
	claims := Claims{
		User: user,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	if user != nil {
		claims.Subject = user.Email
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", errors.NewInternalError("TOKEN_SIGN_FAILED", "failed to sign session token", err)
	}
	return signed, nil
}

// Parse verifies a token and returns its claims
func (m *Manager) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := m.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		msg := "invalid session token"
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			msg = "session token expired"
		}
		return nil, errors.NewSessionError(errors.ErrCodeSessionInvalid, msg, err)
	}
	if !parsed.Valid || claims.ID == "" {
		return nil, errors.NewSessionError(errors.ErrCodeSessionInvalid, "invalid session token", nil)
	}
	return claims, nil
}

// ExtractBearerToken returns the token from an Authorization header value
func ExtractBearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

type ctxKey int

const claimsKey ctxKey = iota

// WithClaims stores claims in ctx
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims stored by WithClaims
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}
