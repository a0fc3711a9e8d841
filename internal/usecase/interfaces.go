package usecase

import (
	"context"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/infra/auth/token"
)

type Authorizer interface {
	IsAuthorized(ctx context.Context, user domain.User, requested domain.Permission) (bool, error)
	Require(ctx context.Context, user domain.User, requested domain.Permission) error
}

type TokenIssuer interface {
	Issue(username string) (token.Token, error)
	Authenticate(ctx context.Context, raw string) (string, error)
}
