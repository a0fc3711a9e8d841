// Package storetest is the behaviour every store backend must share. Backend
// packages run it from their own tests.
package storetest

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/query"
	"github.com/mlte-team/mlte-sub000/internal/store"

	"golang.org/x/crypto/bcrypt"
)

// Factory returns a fresh, empty backend for one subtest.
type Factory func(t *testing.T) store.Backend

type Options struct {
	// SkipUsers is set for backends that refuse account storage.
	SkipUsers bool
	// Seeded is set when the backend starts with custom list entries.
	Seeded bool
}

func Run(t *testing.T, factory Factory, opts Options) {
	t.Run("models", func(t *testing.T) { testModels(t, factory(t)) })
	t.Run("artifacts", func(t *testing.T) { testArtifacts(t, factory(t)) })
	t.Run("card_enumerations", func(t *testing.T) { testCardEnumerations(t, factory(t)) })
	t.Run("catalog", func(t *testing.T) { testCatalog(t, factory(t)) })
	t.Run("custom_lists", func(t *testing.T) { testCustomLists(t, factory(t), opts) })
	if opts.SkipUsers {
		t.Run("users_unsupported", func(t *testing.T) { testUsersUnsupported(t, factory(t)) })
		return
	}
	t.Run("users", func(t *testing.T) { testUsers(t, factory(t)) })
}

func expectKind(t *testing.T, err error, kind error, what string) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("%s: expected %v, got %v", what, kind, err)
	}
}

func withArtifacts(t *testing.T, b store.Backend, fn func(ctx context.Context, as *store.ArtifactSession)) {
	t.Helper()
	ctx := context.Background()
	s := store.NewArtifactStore(b, store.Options{})
	err := store.With(ctx, s.Session, func(as *store.ArtifactSession) error {
		fn(ctx, as)
		return nil
	})
	if err != nil {
		t.Fatalf("artifact session: %v", err)
	}
}

func testModels(t *testing.T, b store.Backend) {
	withArtifacts(t, b, func(ctx context.Context, as *store.ArtifactSession) {
		if _, err := as.Models().Create(ctx, domain.Model{Identifier: "m1"}); err != nil {
			t.Fatalf("create model: %v", err)
		}
		_, err := as.Models().Create(ctx, domain.Model{Identifier: "m1"})
		expectKind(t, err, domain.ErrAlreadyExists, "duplicate model")

		_, err = as.Versions().Create(ctx, "missing", domain.Version{Identifier: "v1"})
		expectKind(t, err, domain.ErrNotFound, "version of missing model")

		for _, v := range []string{"v2", "v1"} {
			if _, err := as.Versions().Create(ctx, "m1", domain.Version{Identifier: v}); err != nil {
				t.Fatalf("create version %s: %v", v, err)
			}
		}
		_, err = as.Versions().Create(ctx, "m1", domain.Version{Identifier: "v1"})
		expectKind(t, err, domain.ErrAlreadyExists, "duplicate version")

		model, err := as.Models().Read(ctx, "m1")
		if err != nil {
			t.Fatalf("read model: %v", err)
		}
		if !slices.Equal(model.Versions, []string{"v1", "v2"}) {
			t.Fatalf("expected sorted versions, got %v", model.Versions)
		}
		if _, err := as.Versions().Delete(ctx, "m1", "v2"); err != nil {
			t.Fatalf("delete version: %v", err)
		}
		_, err = as.Versions().Read(ctx, "m1", "v2")
		expectKind(t, err, domain.ErrNotFound, "deleted version")

		ids, err := as.Models().List(ctx)
		if err != nil {
			t.Fatalf("list models: %v", err)
		}
		if !slices.Contains(ids, "m1") {
			t.Fatalf("expected m1 in %v", ids)
		}
		if _, err := as.Models().Delete(ctx, "m1"); err != nil {
			t.Fatalf("delete model: %v", err)
		}
		_, err = as.Models().Read(ctx, "m1")
		expectKind(t, err, domain.ErrNotFound, "deleted model")
		_, err = as.Models().Delete(ctx, "m1")
		expectKind(t, err, domain.ErrNotFound, "delete twice")
	})
}

func suite(ids ...string) *domain.TestSuite {
	s := &domain.TestSuite{}
	for _, id := range ids {
		s.TestCases = append(s.TestCases, domain.TestCase{Identifier: id, QASList: []string{}})
	}
	return s
}

func testCardEnumerations(t *testing.T, b store.Backend) {
	withArtifacts(t, b, func(ctx context.Context, as *store.ArtifactSession) {
		arts := as.Artifacts()
		scope := domain.NewScope("cards", "v1")

		bogusProblem := &domain.NegotiationCard{System: domain.SystemDescriptor{ProblemType: "bogus"}}
		_, err := arts.Create(ctx, scope, domain.NewArtifact("c1", bogusProblem), store.WriteOptions{Parents: true})
		expectKind(t, err, domain.ErrBadRequest, "unknown problem type")

		bogusData := &domain.NegotiationCard{Data: []domain.DataDescriptor{{Classification: "secret"}}}
		_, err = arts.Create(ctx, scope, domain.NewArtifact("c1", bogusData), store.WriteOptions{Parents: true})
		expectKind(t, err, domain.ErrBadRequest, "unknown classification")
		if _, err := as.Models().Read(ctx, "cards"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("rejected card must not create parents, got %v", err)
		}

		card := &domain.NegotiationCard{
			System: domain.SystemDescriptor{ProblemType: domain.ProblemClassification},
			Data:   []domain.DataDescriptor{{Classification: domain.ClassificationPII}, {}},
		}
		if _, err := arts.Create(ctx, scope, domain.NewArtifact("c1", card), store.WriteOptions{Parents: true}); err != nil {
			t.Fatalf("write card: %v", err)
		}
		got, err := arts.Read(ctx, scope, "c1")
		if err != nil {
			t.Fatalf("read card: %v", err)
		}
		body, err := domain.BodyAs[*domain.NegotiationCard](got)
		if err != nil {
			t.Fatalf("body: %v", err)
		}
		if body.System.ProblemType != domain.ProblemClassification || len(body.Data) != 2 || body.Data[0].Classification != domain.ClassificationPII {
			t.Fatalf("unexpected card %+v", body)
		}
	})
}

func testArtifacts(t *testing.T, b store.Backend) {
	withArtifacts(t, b, func(ctx context.Context, as *store.ArtifactSession) {
		arts := as.Artifacts()
		scope := domain.NewScope("m1", "v1")

		_, err := arts.Create(ctx, scope, domain.NewArtifact("s1", suite("a")), store.WriteOptions{})
		expectKind(t, err, domain.ErrNotFound, "write without parents")
		if _, err := as.Models().Read(ctx, "m1"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("failed write must not create parents, got %v", err)
		}

		if _, err := arts.Create(ctx, scope, domain.NewArtifact("s1", suite("a")), store.WriteOptions{Parents: true}); err != nil {
			t.Fatalf("write with parents: %v", err)
		}
		_, err = arts.Create(ctx, scope, domain.NewArtifact("s1", suite("b")), store.WriteOptions{})
		expectKind(t, err, domain.ErrAlreadyExists, "duplicate artifact")
		if _, err := arts.Create(ctx, scope, domain.NewArtifact("s1", suite("b")), store.WriteOptions{Force: true}); err != nil {
			t.Fatalf("forced overwrite: %v", err)
		}

		got, err := arts.Read(ctx, scope, "s1")
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		body, err := domain.BodyAs[*domain.TestSuite](got)
		if err != nil {
			t.Fatalf("body: %v", err)
		}
		if !slices.Equal(body.CaseIDs(), []string{"b"}) || got.Header.Level != domain.LevelVersion || got.Header.Timestamp == 0 {
			t.Fatalf("unexpected artifact %+v", got)
		}

		modelLevel := domain.NewArtifact("shared", suite("x"))
		modelLevel.Header.Level = domain.LevelModel
		if _, err := arts.Create(ctx, scope, modelLevel, store.WriteOptions{}); err != nil {
			t.Fatalf("write model level: %v", err)
		}
		if _, err := arts.Read(ctx, scope, "shared"); err != nil {
			t.Fatalf("version scope must see model artifacts: %v", err)
		}
		if _, err := arts.Read(ctx, scope.ModelScope(), "s1"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("model scope must not see version artifacts, got %v", err)
		}

		ids, err := arts.List(ctx, scope)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if !slices.Equal(ids, []string{"s1", "shared"}) {
			t.Fatalf("unexpected ids %v", ids)
		}
		page, err := arts.ListDetails(ctx, scope, 1, 1)
		if err != nil {
			t.Fatalf("list details: %v", err)
		}
		if len(page) != 1 || page[0].Header.Identifier != "shared" {
			t.Fatalf("unexpected page %+v", page)
		}

		found, err := arts.Search(ctx, scope, query.New(query.And(
			query.TypeFilter{ItemType: string(domain.ArtifactTypeTestSuite)},
			query.IdentifierFilter{ID: "s1"},
		)))
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(found) != 1 || found[0].Header.Identifier != "s1" {
			t.Fatalf("unexpected search result %+v", found)
		}

		_, err = arts.Edit(ctx, scope, domain.NewArtifact("nope", suite("a")), store.WriteOptions{})
		expectKind(t, err, domain.ErrNotFound, "edit missing")

		if _, err := arts.Delete(ctx, scope, "s1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		_, err = arts.Read(ctx, scope, "s1")
		expectKind(t, err, domain.ErrNotFound, "read deleted")

		if _, err := as.Models().Delete(ctx, "m1"); err != nil {
			t.Fatalf("delete model: %v", err)
		}
		_, err = arts.List(ctx, scope)
		expectKind(t, err, domain.ErrNotFound, "list after model delete")
	})
}

func testCatalog(t *testing.T, b store.Backend) {
	ctx := context.Background()
	catalog := store.NewCatalogStore("local", b, false, store.Options{})
	err := store.With(ctx, catalog.Session, func(cs *store.CatalogSession) error {
		entries := cs.Entries()
		for _, e := range []struct {
			id   string
			tags []string
		}{{"e1", []string{"t1", "t2"}}, {"e2", []string{"t1"}}} {
			entry := domain.CatalogEntry{Tags: e.tags, Code: "print(1)"}
			entry.Header.Identifier = e.id
			if _, err := entries.Create(ctx, entry); err != nil {
				t.Fatalf("create %s: %v", e.id, err)
			}
		}
		dup := domain.CatalogEntry{Code: "x"}
		dup.Header.Identifier = "e1"
		_, err := entries.Create(ctx, dup)
		expectKind(t, err, domain.ErrAlreadyExists, "duplicate entry")

		before, err := entries.Read(ctx, "e2")
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		edit := domain.CatalogEntry{Tags: []string{"t3"}, Code: "print(2)"}
		edit.Header.Identifier = "e2"
		edited, err := entries.Edit(ctx, edit)
		if err != nil {
			t.Fatalf("edit: %v", err)
		}
		if edited.Header.Creator != before.Header.Creator || edited.Header.Created != before.Header.Created || edited.Header.Updated == 0 {
			t.Fatalf("edit must keep creation header, got %+v", edited.Header)
		}

		found, err := entries.Search(ctx, query.New(query.TagFilter{Name: "tags", Value: "t1"}))
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(found) != 1 || found[0].Header.Identifier != "e1" {
			t.Fatalf("unexpected tag search %+v", found)
		}
		if _, err := entries.Delete(ctx, "e1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		_, err = entries.Read(ctx, "e1")
		expectKind(t, err, domain.ErrNotFound, "read deleted entry")
		return nil
	})
	if err != nil {
		t.Fatalf("catalog session: %v", err)
	}

	readOnly := store.NewCatalogStore("frozen", b, true, store.Options{})
	err = store.With(ctx, readOnly.Session, func(cs *store.CatalogSession) error {
		entry := domain.CatalogEntry{Code: "x"}
		entry.Header.Identifier = "e9"
		_, err := cs.Entries().Create(ctx, entry)
		expectKind(t, err, domain.ErrForbidden, "write to read-only catalog")
		return nil
	})
	if err != nil {
		t.Fatalf("read-only session: %v", err)
	}
}

func testCustomLists(t *testing.T, b store.Backend, opts Options) {
	ctx := context.Background()
	lists := store.NewCustomListStore(b, store.Options{})
	err := store.With(ctx, lists.Session, func(ls *store.CustomListSession) error {
		_, err := ls.Entries("nope")
		expectKind(t, err, domain.ErrNotFound, "unknown list")

		categories, err := ls.Entries(string(domain.ListQACategories))
		if err != nil {
			t.Fatalf("categories: %v", err)
		}
		attributes, err := ls.Entries(string(domain.ListQualityAttributes))
		if err != nil {
			t.Fatalf("attributes: %v", err)
		}

		_, err = attributes.Create(ctx, domain.CustomListEntry{Name: "Orphan"})
		expectKind(t, err, domain.ErrBadRequest, "attribute without parent")
		_, err = attributes.Create(ctx, domain.CustomListEntry{Name: "Orphan", Parent: "Contract Missing"})
		expectKind(t, err, domain.ErrReferential, "attribute with unknown parent")

		if _, err := categories.Create(ctx, domain.CustomListEntry{Name: "Contract Category", Description: "d"}); err != nil {
			t.Fatalf("create category: %v", err)
		}
		_, err = categories.Create(ctx, domain.CustomListEntry{Name: "Contract Category", Parent: "x"})
		expectKind(t, err, domain.ErrBadRequest, "category with parent")
		for _, name := range []string{"Contract A", "Contract B"} {
			if _, err := attributes.Create(ctx, domain.CustomListEntry{Name: name, Parent: "Contract Category"}); err != nil {
				t.Fatalf("create attribute %s: %v", name, err)
			}
		}
		if ok, err := ls.Contains(ctx, domain.ListQualityAttributes, "Contract A"); err != nil || !ok {
			t.Fatalf("expected Contract A to exist: %v", err)
		}

		if _, err := categories.Delete(ctx, "Contract Category"); err != nil {
			t.Fatalf("delete category: %v", err)
		}
		for _, name := range []string{"Contract A", "Contract B"} {
			if ok, err := ls.Contains(ctx, domain.ListQualityAttributes, name); err != nil || ok {
				t.Fatalf("expected %s to cascade away (err %v)", name, err)
			}
		}
		if !opts.Seeded {
			names, err := attributes.List(ctx)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(names) != 0 {
				t.Fatalf("expected empty attribute list, got %v", names)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("custom list session: %v", err)
	}
}

func testUsers(t *testing.T, b store.Backend) {
	ctx := context.Background()
	users := store.NewUserStore(b, store.Options{})
	users.HashCost = bcrypt.MinCost
	err := store.With(ctx, users.Session, func(us *store.UserSession) error {
		perm := domain.NewPermission(domain.ResourceModel, "m1", domain.MethodGet)
		if _, err := us.Permissions().Create(ctx, perm); err != nil {
			t.Fatalf("create permission: %v", err)
		}
		if _, err := us.Groups().Create(ctx, domain.Group{Name: "readers", Permissions: []domain.Permission{perm}}); err != nil {
			t.Fatalf("create group: %v", err)
		}

		_, err := us.Users().Create(ctx, domain.User{Username: "bob", Password: "pw", Groups: []domain.Group{{Name: "ghosts"}}})
		expectKind(t, err, domain.ErrReferential, "user with unknown group")

		created, err := us.Users().Create(ctx, domain.User{Username: "bob", Password: "pw", Groups: []domain.Group{{Name: "readers"}}})
		if err != nil {
			t.Fatalf("create user: %v", err)
		}
		if created.HashedPassword == "" || created.HashedPassword == "pw" || created.Password != "" {
			t.Fatalf("password must be stored hashed, got %+v", created)
		}
		if len(created.Groups) != 1 || len(created.Groups[0].Permissions) != 1 {
			t.Fatalf("groups must resolve to permissions, got %+v", created.Groups)
		}

		if _, err := us.Authenticate(ctx, "bob", "pw"); err != nil {
			t.Fatalf("authenticate: %v", err)
		}
		_, err = us.Authenticate(ctx, "bob", "wrong")
		expectKind(t, err, domain.ErrUnauthenticated, "wrong password")

		edited, err := us.Users().Edit(ctx, domain.User{Username: "bob", Email: "bob@example.com", Groups: []domain.Group{{Name: "readers"}}})
		if err != nil {
			t.Fatalf("edit user: %v", err)
		}
		if edited.HashedPassword != created.HashedPassword {
			t.Fatalf("edit without password must keep the hash")
		}

		if _, err := us.Groups().Delete(ctx, "readers"); err != nil {
			t.Fatalf("delete group: %v", err)
		}
		bob, err := us.Users().Read(ctx, "bob")
		if err != nil {
			t.Fatalf("read user: %v", err)
		}
		if len(bob.Groups) != 0 {
			t.Fatalf("deleted group must be detached, got %+v", bob.Groups)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("user session: %v", err)
	}
}

func testUsersUnsupported(t *testing.T, b store.Backend) {
	ctx := context.Background()
	err := store.With(ctx, store.NewUserStore(b, store.Options{}).Session, func(*store.UserSession) error { return nil })
	expectKind(t, err, domain.ErrBadRequest, "user session")
}
