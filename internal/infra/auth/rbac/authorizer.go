package rbac

import (
	"context"
	"errors"

	"github.com/mlte-team/mlte-sub000/internal/domain"
)

type AuthzError struct {
	Code string
	Err  error
}

func (e *AuthzError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code
}

func (e *AuthzError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Engine decides a non-admin request from the user's group permissions.
type Engine interface {
	Decide(ctx context.Context, user domain.User, requested domain.Permission) (bool, error)
}

// Authorizer grants admins everything and otherwise defers to the engine.
type Authorizer struct {
	engine Engine
}

func NewAuthorizer(engine Engine) *Authorizer {
	if engine == nil {
		engine = NativeEngine{}
	}
	return &Authorizer{engine: engine}
}

// IsAuthorized substitutes the "me" user id before matching.
func (a *Authorizer) IsAuthorized(ctx context.Context, user domain.User, requested domain.Permission) (bool, error) {
	if user.IsAdmin() {
		return true, nil
	}
	return a.engine.Decide(ctx, user, Resolve(user, requested))
}

func (a *Authorizer) Require(ctx context.Context, user domain.User, requested domain.Permission) error {
	if user.Username == "" {
		return &AuthzError{Code: "UNAUTHENTICATED", Err: domain.ErrUnauthenticated}
	}
	if user.Disabled {
		return &AuthzError{Code: "USER_DISABLED", Err: domain.ErrUnauthenticated}
	}
	ok, err := a.IsAuthorized(ctx, user, requested)
	if err != nil {
		return err
	}
	if !ok {
		return &AuthzError{Code: "MISSING_PERMISSION", Err: domain.ErrForbidden}
	}
	return nil
}

// Resolve maps the reserved "me" user id onto the caller.
func Resolve(user domain.User, requested domain.Permission) domain.Permission {
	if requested.ResourceType == domain.ResourceUser && requested.ResourceID == domain.SelfUsername {
		requested.ResourceID = user.Username
	}
	return requested
}

// NativeEngine matches every permission of every group.
type NativeEngine struct{}

func (NativeEngine) Decide(_ context.Context, user domain.User, requested domain.Permission) (bool, error) {
	for _, group := range user.Groups {
		for _, p := range group.Permissions {
			if p.GrantsAccess(requested) {
				return true, nil
			}
		}
	}
	return false, nil
}

func IsAuthzError(err error) (*AuthzError, bool) {
	var authz *AuthzError
	if errors.As(err, &authz) {
		return authz, true
	}
	return nil, false
}
