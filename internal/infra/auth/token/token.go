// Package token issues and verifies the HS256 bearer tokens of the password
// grant.
package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"strings"
	"time"

	"github.com/mlte-team/mlte-sub000/internal/domain"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

const (
	DefaultLifetime = 120 * time.Minute
	TokenType       = "bearer"
	minKeyLength    = 32
)

// Token is the password grant response body.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Error carries the RFC 6750 error code sent in WWW-Authenticate.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Code
	}
	return e.Code + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return domain.ErrUnauthenticated }

func invalid(format string, args ...any) error {
	return &Error{Code: "invalid_token", Err: domain.Unauthenticated(format, args...)}
}

type Issuer struct {
	key      []byte
	lifetime time.Duration
	now      func() time.Time
}

type Option func(*Issuer)

func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewIssuer signs with secret. An empty secret gets a random process-local
// key, so tokens do not survive a restart. Secrets shorter than the HS256
// minimum are stretched with SHA-256.
func NewIssuer(secret string, lifetime time.Duration, opts ...Option) (*Issuer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, minKeyLength)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
	}
	if len(key) < minKeyLength {
		sum := sha256.Sum256(key)
		key = sum[:]
	}
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	issuer := &Issuer{key: key, lifetime: lifetime, now: time.Now}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer, nil
}

func (i *Issuer) Lifetime() time.Duration { return i.lifetime }

// Issue mints a token with sub and exp claims.
func (i *Issuer) Issue(username string) (Token, error) {
	if strings.TrimSpace(username) == "" {
		return Token{}, domain.BadRequest("token subject is required")
	}
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: i.key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return Token{}, domain.Wrap(domain.ErrInternal, err, "build token signer")
	}
	now := i.now()
	claims := jwt.Claims{
		Subject:  username,
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(i.lifetime)),
	}
	raw, err := jwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return Token{}, domain.Wrap(domain.ErrInternal, err, "sign token")
	}
	return Token{AccessToken: raw, TokenType: TokenType, ExpiresIn: int(i.lifetime.Seconds())}, nil
}

// Authenticate returns the subject of a valid token.
func (i *Issuer) Authenticate(_ context.Context, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", invalid("missing bearer token")
	}
	parsed, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return "", invalid("malformed token")
	}
	var claims jwt.Claims
	if err := parsed.Claims(i.key, &claims); err != nil {
		return "", invalid("token signature is invalid")
	}
	if claims.Expiry == nil {
		return "", invalid("token has no expiry")
	}
	if err := claims.ValidateWithLeeway(jwt.Expected{Time: i.now()}, 0); err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return "", invalid("token has expired")
		}
		return "", invalid("token claims are invalid")
	}
	if claims.Subject == "" {
		return "", invalid("token has no subject")
	}
	return claims.Subject, nil
}

// IsTokenError extracts the RFC 6750 error.
func IsTokenError(err error) (*Error, bool) {
	var tokenErr *Error
	if errors.As(err, &tokenErr) {
		return tokenErr, true
	}
	return nil, false
}
