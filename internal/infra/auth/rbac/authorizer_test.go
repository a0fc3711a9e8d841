package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/mlte-team/mlte-sub000/internal/domain"
)

func userWith(perms ...domain.Permission) domain.User {
	return domain.User{
		Username: "alice",
		Role:     domain.RoleRegular,
		Groups:   []domain.Group{{Name: "g", Permissions: perms}},
	}
}

func TestAdminBypass(t *testing.T) {
	a := NewAuthorizer(nil)
	admin := domain.User{Username: "root", Role: domain.RoleAdmin}
	ok, err := a.IsAuthorized(context.Background(), admin, domain.NewPermission(domain.ResourceModel, "m1", domain.MethodDelete))
	if err != nil || !ok {
		t.Fatalf("expected admin to be authorized, got %v %v", ok, err)
	}
}

func TestReadOnlyGroupCannotDelete(t *testing.T) {
	a := NewAuthorizer(nil)
	user := userWith(domain.NewPermission(domain.ResourceModel, "m1", domain.MethodGet))
	err := a.Require(context.Background(), user, domain.NewPermission(domain.ResourceModel, "m1", domain.MethodDelete))
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	authz, ok := IsAuthzError(err)
	if !ok || authz.Code != "MISSING_PERMISSION" {
		t.Fatalf("expected authz error, got %v", err)
	}
	if err := a.Require(context.Background(), user, domain.NewPermission(domain.ResourceModel, "m1", domain.MethodGet)); err != nil {
		t.Fatalf("expected read access, got %v", err)
	}
}

func TestWildcards(t *testing.T) {
	a := NewAuthorizer(nil)
	ctx := context.Background()
	anyID := userWith(domain.NewPermission(domain.ResourceModel, "", domain.MethodGet))
	for _, id := range []string{"m1", "m2", ""} {
		ok, _ := a.IsAuthorized(ctx, anyID, domain.NewPermission(domain.ResourceModel, id, domain.MethodGet))
		if !ok {
			t.Fatalf("expected wildcard id to grant %q", id)
		}
	}
	anyMethod := userWith(domain.NewPermission(domain.ResourceModel, "m1", domain.MethodAny))
	for _, m := range domain.Methods() {
		ok, _ := a.IsAuthorized(ctx, anyMethod, domain.NewPermission(domain.ResourceModel, "m1", m))
		if !ok {
			t.Fatalf("expected ANY to grant %s", m)
		}
	}
	ok, _ := a.IsAuthorized(ctx, anyMethod, domain.NewPermission(domain.ResourceModel, "m2", domain.MethodGet))
	if ok {
		t.Fatalf("expected other model to be denied")
	}
	ok, _ = a.IsAuthorized(ctx, anyMethod, domain.NewPermission(domain.ResourceUser, "m1", domain.MethodGet))
	if ok {
		t.Fatalf("expected other resource type to be denied")
	}
}

func TestAddingPermissionNeverRevokes(t *testing.T) {
	a := NewAuthorizer(nil)
	ctx := context.Background()
	base := []domain.Permission{domain.NewPermission(domain.ResourceModel, "m1", domain.MethodGet)}
	requests := []domain.Permission{
		domain.NewPermission(domain.ResourceModel, "m1", domain.MethodGet),
		domain.NewPermission(domain.ResourceModel, "m1", domain.MethodPut),
		domain.NewPermission(domain.ResourceModel, "m2", domain.MethodGet),
		domain.NewPermission(domain.ResourceGroup, "g", domain.MethodGet),
	}
	before := make([]bool, len(requests))
	for i, r := range requests {
		before[i], _ = a.IsAuthorized(ctx, userWith(base...), r)
	}
	extended := append(base, domain.NewPermission(domain.ResourceModel, "", domain.MethodPut))
	for i, r := range requests {
		after, _ := a.IsAuthorized(ctx, userWith(extended...), r)
		if before[i] && !after {
			t.Fatalf("request %s lost access after adding a permission", r)
		}
	}
}

func TestSelfSubstitution(t *testing.T) {
	a := NewAuthorizer(nil)
	user := userWith(domain.NewPermission(domain.ResourceUser, "alice", domain.MethodGet))
	ok, _ := a.IsAuthorized(context.Background(), user, domain.NewPermission(domain.ResourceUser, domain.SelfUsername, domain.MethodGet))
	if !ok {
		t.Fatalf("expected me to resolve to alice")
	}
	if err := a.Require(context.Background(), domain.User{}, domain.NewPermission(domain.ResourceUser, "x", domain.MethodGet)); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated for anonymous user, got %v", err)
	}
}
