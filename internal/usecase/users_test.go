package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/mlte-team/mlte-sub000/internal/domain"
)

func TestEnsureDefaultsCreatesAdmin(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t)
	if !admin.IsAdmin() {
		t.Fatalf("expected admin role, got %q", admin.Role)
	}
	if admin.HashedPassword != "" {
		t.Fatalf("expected credentials to be stripped")
	}
	if err := f.userSvc.EnsureDefaults(context.Background(), "other"); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
}

func TestCreateUserAttachesOwnPolicy(t *testing.T) {
	f := newFixture(t)
	bob := f.regular(t, "bob")
	if !bob.InGroup("read-user-bob") || !bob.InGroup("write-user-bob") {
		t.Fatalf("expected per-user groups, got %v", bob.GroupNames())
	}
}

func TestNonAdminCannotEscalate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := f.regular(t, "bob")

	_, err := f.userSvc.Create(ctx, bob, domain.User{Username: "eve", Password: "x", Role: domain.RoleAdmin})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden admin creation, got %v", err)
	}
	_, err = f.userSvc.Edit(ctx, bob, domain.User{Username: "bob", Role: domain.RoleAdmin})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden role change, got %v", err)
	}
	edited, err := f.userSvc.Edit(ctx, bob, domain.User{Username: "bob", FullName: "Bob B"})
	if err != nil {
		t.Fatalf("edit own profile: %v", err)
	}
	if edited.FullName != "Bob B" || !edited.InGroup("read-user-bob") {
		t.Fatalf("unexpected edit result %+v", edited)
	}
}

func TestDeleteUserRemovesPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.regular(t, "bob")
	if _, err := f.userSvc.Delete(ctx, "bob"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ids, err := f.userSvc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, id := range ids {
		if id == "bob" {
			t.Fatalf("bob should be gone")
		}
	}
	bob2 := f.regular(t, "bob")
	if len(bob2.Groups) != 2 {
		t.Fatalf("recreated user should only hold its own groups, got %v", bob2.GroupNames())
	}
}
