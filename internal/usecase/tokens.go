package usecase

import (
	"context"
	"errors"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/infra/auth/token"
	"github.com/mlte-team/mlte-sub000/internal/store"
)

const PasswordGrant = "password"

// GrantError carries the OAuth 2 error code of a failed token request.
type GrantError struct {
	Code string
	Err  error
}

func (e *GrantError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code
}

func (e *GrantError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func IsGrantError(err error) (*GrantError, bool) {
	var grant *GrantError
	if errors.As(err, &grant) {
		return grant, true
	}
	return nil, false
}

type TokenService struct {
	Users  *store.UserStore
	Issuer TokenIssuer
}

func NewTokenService(users *store.UserStore, issuer TokenIssuer) *TokenService {
	return &TokenService{Users: users, Issuer: issuer}
}

// Grant runs the resource owner password credentials grant.
func (s *TokenService) Grant(ctx context.Context, grantType, username, password string) (token.Token, error) {
	if grantType != PasswordGrant {
		return token.Token{}, &GrantError{Code: "unsupported_grant_type", Err: domain.BadRequest("grant type %q is not supported", grantType)}
	}
	if username == "" || password == "" {
		return token.Token{}, &GrantError{Code: "invalid_request", Err: domain.BadRequest("username and password are required")}
	}
	err := store.With(ctx, s.Users.Session, func(us *store.UserSession) error {
		_, err := us.Authenticate(ctx, username, password)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			return token.Token{}, &GrantError{Code: "invalid_grant", Err: err}
		}
		return token.Token{}, err
	}
	return s.Issuer.Issue(username)
}

// Authenticate resolves a bearer token to its current, enabled user.
func (s *TokenService) Authenticate(ctx context.Context, raw string) (domain.User, error) {
	subject, err := s.Issuer.Authenticate(ctx, raw)
	if err != nil {
		return domain.User{}, err
	}
	var user domain.User
	err = store.With(ctx, s.Users.Session, func(us *store.UserSession) error {
		u, err := us.Users().Read(ctx, subject)
		user = u
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, &token.Error{Code: "invalid_token", Err: domain.Unauthenticated("token subject %q no longer exists", subject)}
	}
	if err != nil {
		return domain.User{}, err
	}
	if user.Disabled {
		return domain.User{}, &token.Error{Code: "invalid_token", Err: domain.Unauthenticated("user %q is disabled", subject)}
	}
	return user, nil
}
