package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mlte-team/mlte-sub000/internal/domain"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestIssueAndAuthenticate(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	issuer, err := NewIssuer("a-secret-that-is-long-enough-for-hs256", 0, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	tok, err := issuer.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok.TokenType != "bearer" || tok.ExpiresIn != 7200 {
		t.Fatalf("unexpected token %+v", tok)
	}
	sub, err := issuer.Authenticate(context.Background(), tok.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if sub != "alice" {
		t.Fatalf("expected alice, got %q", sub)
	}
}

func TestExpiredToken(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	issuer, err := NewIssuer("secret", time.Minute, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	tok, err := issuer.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	clock.t = clock.t.Add(time.Duration(tok.ExpiresIn+1) * time.Second)
	_, err = issuer.Authenticate(context.Background(), tok.AccessToken)
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	tokenErr, ok := IsTokenError(err)
	if !ok || tokenErr.Code != "invalid_token" {
		t.Fatalf("expected invalid_token, got %v", err)
	}
}

func TestForeignSignatureRejected(t *testing.T) {
	a, _ := NewIssuer("secret-a", 0)
	b, _ := NewIssuer("secret-b", 0)
	tok, err := a.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := b.Authenticate(context.Background(), tok.AccessToken); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if _, err := a.Authenticate(context.Background(), "not.a.token"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected malformed rejection, got %v", err)
	}
}
