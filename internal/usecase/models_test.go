package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/store"
)

func TestCreatedModelVisibleOnlyToGrantees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.regular(t, "alice")
	bob := f.regular(t, "bob")

	if _, err := f.modelSvc.Create(ctx, alice, domain.Model{Identifier: "m1"}); err != nil {
		t.Fatalf("create model: %v", err)
	}
	alice, _ = f.userSvc.Read(ctx, "alice")
	visible, err := f.modelSvc.VisibleModels(ctx, alice)
	if err != nil || len(visible) != 1 || visible[0] != "m1" {
		t.Fatalf("creator should see m1, got %v %v", visible, err)
	}
	visible, err = f.modelSvc.VisibleModels(ctx, bob)
	if err != nil || len(visible) != 0 {
		t.Fatalf("bob should see nothing, got %v %v", visible, err)
	}

	bob.Groups = append(bob.Groups, domain.Group{Name: "read-model-m1"})
	if _, err := f.userSvc.Edit(ctx, f.admin(t), bob); err != nil {
		t.Fatalf("grant: %v", err)
	}
	bob, _ = f.userSvc.Read(ctx, "bob")
	visible, err = f.modelSvc.VisibleModels(ctx, bob)
	if err != nil || len(visible) != 1 {
		t.Fatalf("bob should see m1 after grant, got %v %v", visible, err)
	}
}

func TestDeleteModelRemovesPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.regular(t, "alice")
	if _, err := f.modelSvc.Create(ctx, alice, domain.Model{Identifier: "m1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.modelSvc.Delete(ctx, "m1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	alice, _ = f.userSvc.Read(ctx, "alice")
	if alice.InGroup("read-model-m1") {
		t.Fatalf("model groups should be detached, got %v", alice.GroupNames())
	}
	created, err := f.modelSvc.CreateModelPoliciesIfNeeded(ctx)
	if err != nil || len(created) != 0 {
		t.Fatalf("expected nothing to reconcile, got %v %v", created, err)
	}
}

func TestReconcileCreatesMissingPolicies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	err := store.With(ctx, f.artifacts.Session, func(as *store.ArtifactSession) error {
		_, err := as.Models().Create(ctx, domain.Model{Identifier: "legacy"})
		return err
	})
	if err != nil {
		t.Fatalf("seed model: %v", err)
	}
	created, err := f.modelSvc.CreateModelPoliciesIfNeeded(ctx)
	if err != nil || len(created) != 1 || created[0] != "legacy" {
		t.Fatalf("expected legacy policy, got %v %v", created, err)
	}
	created, err = f.modelSvc.CreateModelPoliciesIfNeeded(ctx)
	if err != nil || len(created) != 0 {
		t.Fatalf("second reconcile should be empty, got %v %v", created, err)
	}
}

func TestWriteArtifactWithParentsAttachesPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.regular(t, "alice")
	scope := domain.NewScope("m2", "v1")
	suite := domain.NewArtifact("suite", &domain.TestSuite{TestCases: []domain.TestCase{{Identifier: "tc1"}}})

	_, err := f.modelSvc.WriteArtifact(ctx, alice, scope, suite, store.WriteOptions{}, false)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected missing parents to fail, got %v", err)
	}
	out, err := f.modelSvc.WriteArtifact(ctx, alice, scope, suite, store.WriteOptions{Parents: true}, false)
	if err != nil {
		t.Fatalf("write with parents: %v", err)
	}
	if out.Header.Creator != "alice" {
		t.Fatalf("expected creator stamp, got %q", out.Header.Creator)
	}
	alice, _ = f.userSvc.Read(ctx, "alice")
	if !alice.InGroup("write-model-m2") {
		t.Fatalf("expected model policy on creator, got %v", alice.GroupNames())
	}
}
