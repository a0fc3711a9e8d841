package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/query"
	"github.com/mlte-team/mlte-sub000/internal/store"
)

func TestSeedCustomListsIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	added, err := SeedCustomLists(ctx, f.lists, nil)
	if err != nil || added == 0 {
		t.Fatalf("first seed: %d %v", added, err)
	}
	again, err := SeedCustomLists(ctx, f.lists, nil)
	if err != nil || again != 0 {
		t.Fatalf("second seed should add nothing: %d %v", again, err)
	}
	err = store.With(ctx, f.lists.Session, func(cs *store.CustomListSession) error {
		ok, err := cs.Contains(ctx, domain.ListQualityAttributes, "Accuracy")
		if err != nil {
			return err
		}
		if !ok {
			t.Fatalf("expected Accuracy in %s", domain.ListQualityAttributes)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
}

func TestSampleCatalogIsReadOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sample, err := NewSampleCatalog(ctx, f.backend, store.Options{})
	if err != nil {
		t.Fatalf("sample catalog: %v", err)
	}
	if !sample.ReadOnly() {
		t.Fatalf("sample catalog should be read-only")
	}
	group := store.NewCatalogGroup()
	if err := group.Add(sample); err != nil {
		t.Fatalf("add: %v", err)
	}
	entries, err := group.Search(ctx, query.Query{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	want, _ := SampleCatalogEntries()
	if len(entries) != len(want) || len(entries) == 0 {
		t.Fatalf("expected %d sample entries, got %d", len(want), len(entries))
	}

	entry := domain.CatalogEntry{Code: "x"}
	entry.Header.Identifier = "new"
	_, err = NewCatalogService(group).Create(ctx, f.admin(t), SampleCatalogID, entry)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected read-only rejection, got %v", err)
	}
}
