package usecase

import (
	"context"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/query"
	"github.com/mlte-team/mlte-sub000/internal/store"
)

// CatalogService writes catalog entries on behalf of a user.
type CatalogService struct {
	Catalogs *store.CatalogGroup
}

func NewCatalogService(catalogs *store.CatalogGroup) *CatalogService {
	return &CatalogService{Catalogs: catalogs}
}

func (s *CatalogService) withEntries(ctx context.Context, catalogID string, fn func(store.Mapper[domain.CatalogEntry]) error) error {
	catalog, err := s.Catalogs.Get(catalogID)
	if err != nil {
		return err
	}
	return store.With(ctx, catalog.Session, func(cs *store.CatalogSession) error {
		return fn(cs.Entries())
	})
}

func (s *CatalogService) Create(ctx context.Context, actor domain.User, catalogID string, entry domain.CatalogEntry) (domain.CatalogEntry, error) {
	entry.Header.Creator = actor.Username
	entry.Header.Updater = ""
	var out domain.CatalogEntry
	err := s.withEntries(ctx, catalogID, func(m store.Mapper[domain.CatalogEntry]) error {
		created, err := m.Create(ctx, entry)
		out = created
		return err
	})
	return out, err
}

func (s *CatalogService) Edit(ctx context.Context, actor domain.User, catalogID string, entry domain.CatalogEntry) (domain.CatalogEntry, error) {
	entry.Header.Updater = actor.Username
	var out domain.CatalogEntry
	err := s.withEntries(ctx, catalogID, func(m store.Mapper[domain.CatalogEntry]) error {
		edited, err := m.Edit(ctx, entry)
		out = edited
		return err
	})
	return out, err
}

func (s *CatalogService) Read(ctx context.Context, catalogID, entryID string) (domain.CatalogEntry, error) {
	var out domain.CatalogEntry
	err := s.withEntries(ctx, catalogID, func(m store.Mapper[domain.CatalogEntry]) error {
		entry, err := m.Read(ctx, entryID)
		out = entry
		return err
	})
	return out, err
}

func (s *CatalogService) Delete(ctx context.Context, catalogID, entryID string) (domain.CatalogEntry, error) {
	var out domain.CatalogEntry
	err := s.withEntries(ctx, catalogID, func(m store.Mapper[domain.CatalogEntry]) error {
		entry, err := m.Delete(ctx, entryID)
		out = entry
		return err
	})
	return out, err
}

func (s *CatalogService) List(ctx context.Context, catalogID string) ([]string, error) {
	var out []string
	err := s.withEntries(ctx, catalogID, func(m store.Mapper[domain.CatalogEntry]) error {
		ids, err := m.List(ctx)
		out = ids
		return err
	})
	return out, err
}

func (s *CatalogService) Search(ctx context.Context, q query.Query) ([]domain.CatalogEntry, error) {
	return s.Catalogs.Search(ctx, q)
}
