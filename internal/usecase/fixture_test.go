package usecase

import (
	"context"
	"testing"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/infra/auth/rbac"
	"github.com/mlte-team/mlte-sub000/internal/infra/memstore"
	"github.com/mlte-team/mlte-sub000/internal/store"

	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	artifacts *store.ArtifactStore
	users     *store.UserStore
	lists     *store.CustomListStore
	backend   store.Backend
	userSvc   *UserService
	modelSvc  *ModelService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	uri, err := store.ParseURI("memory://")
	if err != nil {
		t.Fatalf("parse uri: %v", err)
	}
	backend := memstore.New(uri)
	users := store.NewUserStore(backend, store.Options{})
	users.HashCost = bcrypt.MinCost
	artifacts := store.NewArtifactStore(backend, store.Options{})
	f := &fixture{
		artifacts: artifacts,
		users:     users,
		lists:     store.NewCustomListStore(backend, store.Options{}),
		backend:   backend,
		userSvc:   NewUserService(users, nil),
		modelSvc:  NewModelService(artifacts, users, rbac.NewAuthorizer(nil), nil),
	}
	if err := f.userSvc.EnsureDefaults(context.Background(), "admin1234"); err != nil {
		t.Fatalf("ensure defaults: %v", err)
	}
	return f
}

func (f *fixture) admin(t *testing.T) domain.User {
	t.Helper()
	u, err := f.userSvc.Read(context.Background(), DefaultAdminUsername)
	if err != nil {
		t.Fatalf("read admin: %v", err)
	}
	return u
}

func (f *fixture) regular(t *testing.T, name string) domain.User {
	t.Helper()
	ctx := context.Background()
	if _, err := f.userSvc.Create(ctx, f.admin(t), domain.User{Username: name, Password: "pw-" + name}); err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	u, err := f.userSvc.Read(ctx, name)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return u
}
