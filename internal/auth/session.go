// Package auth validates bearer tokens issued by the identity provider
// and carries the resulting session through request contexts. Only the
// owner-scoped operations need a session; resolution does not.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid session token")

// Session identifies the authenticated user for the current request.
type Session struct {
	UserID string
	Name   string
	Email  string
}

type sessionClaims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Provider verifies and issues HS256 session tokens.
type Provider struct {
	secret []byte
	ttl    time.Duration
}

func NewProvider(secret string, ttl time.Duration) *Provider {
	return &Provider{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the session, expiring after the provider TTL.
func (p *Provider) Issue(s Session) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Name:  s.Name,
		Email: s.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

// Verify parses a bearer token and returns the session it carries.
func (p *Provider) Verify(token string) (*Session, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Session{
		UserID: claims.Subject,
		Name:   claims.Name,
		Email:  claims.Email,
	}, nil
}

type ctxKey struct{}

// NewContext attaches the session for the lifetime of one request.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the request session, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok
}
