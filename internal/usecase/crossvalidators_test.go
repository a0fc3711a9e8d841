package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/store"
)

func TestArtifactValidators(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := SeedCustomLists(ctx, f.lists, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	f.artifacts.Validators.Add(ArtifactUserValidator(f.users))
	f.artifacts.Validators.Add(ArtifactCustomListValidator(f.lists))
	scope := domain.NewScope("m1", "v1")

	write := func(a domain.Artifact) error {
		return store.With(ctx, f.artifacts.Session, func(as *store.ArtifactSession) error {
			_, err := as.Artifacts().Create(ctx, scope, a, store.WriteOptions{Parents: true})
			return err
		})
	}

	ghost := domain.NewArtifact("s1", &domain.TestSuite{})
	ghost.Header.Creator = "ghost"
	if err := write(ghost); !errors.Is(err, domain.ErrReferential) {
		t.Fatalf("expected referential error for unknown creator, got %v", err)
	}

	card := &domain.NegotiationCard{SystemRequirements: []domain.QualityAttributeScenario{{Quality: "Telepathy"}}}
	if err := write(domain.NewArtifact("card", card)); !errors.Is(err, domain.ErrReferential) {
		t.Fatalf("expected referential error for unknown quality, got %v", err)
	}

	card = &domain.NegotiationCard{SystemRequirements: []domain.QualityAttributeScenario{{Quality: "Accuracy"}, {}}}
	if err := write(domain.NewArtifact("card", card)); err != nil {
		t.Fatalf("known quality and empty quality should pass, got %v", err)
	}
}

func TestCatalogValidators(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := SeedCustomLists(ctx, f.lists, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	catalog := store.NewCatalogStore("local", f.backend, false, store.Options{})
	catalog.Validators.Add(CatalogUserValidator(f.users))
	catalog.Validators.Add(CatalogCustomListValidator(f.lists, true))
	group := store.NewCatalogGroup()
	if err := group.Add(catalog); err != nil {
		t.Fatalf("add catalog: %v", err)
	}
	svc := NewCatalogService(group)
	admin := f.admin(t)

	entry := domain.CatalogEntry{QualityAttribute: "Accuracy", Tags: []string{"General"}, Code: "x"}
	entry.Header.Identifier = "e1"
	created, err := svc.Create(ctx, admin, "local", entry)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Header.Creator != DefaultAdminUsername || created.Header.CatalogID != "local" {
		t.Fatalf("unexpected header %+v", created.Header)
	}

	entry.Tags = []string{"NoSuchTag"}
	if _, err := svc.Edit(ctx, admin, "local", entry); !errors.Is(err, domain.ErrReferential) {
		t.Fatalf("expected unknown tag rejection, got %v", err)
	}

	entry.Tags = nil
	entry.QualityAttribute = "Telepathy"
	if _, err := svc.Edit(ctx, admin, "local", entry); !errors.Is(err, domain.ErrReferential) {
		t.Fatalf("expected unknown quality attribute rejection, got %v", err)
	}

	entry.QualityAttribute = ""
	edited, err := svc.Edit(ctx, domain.User{Username: "ghost"}, "local", entry)
	if !errors.Is(err, domain.ErrReferential) {
		t.Fatalf("expected unknown updater rejection, got %v %+v", err, edited)
	}
}
