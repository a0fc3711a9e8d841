package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/query"
)

// CatalogStore is one named catalog of reusable test entries.
type CatalogStore struct {
	id         string
	backend    Backend
	readOnly   bool
	opts       Options
	Validators *CompositeValidator[domain.CatalogEntry]
	Now        func() time.Time
}

func NewCatalogStore(id string, backend Backend, readOnly bool, opts Options) *CatalogStore {
	return &CatalogStore{
		id:         id,
		backend:    backend,
		readOnly:   readOnly,
		opts:       opts,
		Validators: NewCompositeValidator[domain.CatalogEntry](),
		Now:        time.Now,
	}
}

func (s *CatalogStore) ID() string     { return s.id }
func (s *CatalogStore) ReadOnly() bool { return s.readOnly }
func (s *CatalogStore) URI() URI       { return s.backend.URI() }

func (s *CatalogStore) Info() domain.CatalogInfo {
	return domain.CatalogInfo{Identifier: s.id, ReadOnly: s.readOnly, Type: string(s.backend.URI().Type)}
}

func (s *CatalogStore) Session(ctx context.Context) (*CatalogSession, error) {
	sess, err := s.backend.Open(ctx)
	if err != nil {
		return nil, err
	}
	primitives, err := sess.Catalog()
	if err != nil {
		_ = sess.Close()
		return nil, err
	}
	cs := &CatalogSession{store: s, session: sess}
	cs.entries = &Collection[domain.CatalogEntry]{
		Kind:       "catalog entry",
		Backend:    primitives,
		ReadOnly:   s.readOnly,
		Validators: s.Validators,
		Prepare:    cs.prepare,
		Resolve:    cs.resolve,
	}
	return cs, nil
}

type CatalogSession struct {
	store   *CatalogStore
	session Session
	entries *Collection[domain.CatalogEntry]
}

func (s *CatalogSession) Close() error { return s.session.Close() }

func (s *CatalogSession) Entries() Mapper[domain.CatalogEntry] { return s.entries }

func (s *CatalogSession) prepare(_ context.Context, entry domain.CatalogEntry, existing *domain.CatalogEntry) (domain.CatalogEntry, error) {
	if err := domain.Validate(entry); err != nil {
		return domain.CatalogEntry{}, err
	}
	now := s.store.Now().Unix()
	entry.Header.CatalogID = s.store.id
	if existing == nil {
		if entry.Header.Created == 0 {
			entry.Header.Created = now
		}
	} else {
		entry.Header.Creator = existing.Header.Creator
		entry.Header.Created = existing.Header.Created
		entry.Header.Updated = now
	}
	if entry.Tags == nil {
		entry.Tags = []string{}
	}
	return entry, nil
}

func (s *CatalogSession) resolve(_ context.Context, entry domain.CatalogEntry) (domain.CatalogEntry, error) {
	entry.Header.CatalogID = s.store.id
	return entry, nil
}

// CatalogGroup aggregates the configured catalogs.
type CatalogGroup struct {
	mu       sync.RWMutex
	catalogs map[string]*CatalogStore
}

func NewCatalogGroup() *CatalogGroup {
	return &CatalogGroup{catalogs: make(map[string]*CatalogStore)}
}

func (g *CatalogGroup) Add(catalog *CatalogStore) error {
	if err := domain.ValidIdentifier("catalog", catalog.ID()); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.catalogs[catalog.ID()]; exists {
		return domain.AlreadyExists("catalog %q already registered", catalog.ID())
	}
	g.catalogs[catalog.ID()] = catalog
	return nil
}

func (g *CatalogGroup) Remove(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.catalogs[id]; !ok {
		return domain.NotFound("catalog %q not found", id)
	}
	delete(g.catalogs, id)
	return nil
}

func (g *CatalogGroup) Get(id string) (*CatalogStore, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	catalog, ok := g.catalogs[id]
	if !ok {
		return nil, domain.NotFound("catalog %q not found", id)
	}
	return catalog, nil
}

// Catalogs returns the registered catalogs ordered by id.
func (g *CatalogGroup) Catalogs() []*CatalogStore {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*CatalogStore, 0, len(g.catalogs))
	for _, c := range g.catalogs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (g *CatalogGroup) Infos() []domain.CatalogInfo {
	catalogs := g.Catalogs()
	out := make([]domain.CatalogInfo, 0, len(catalogs))
	for _, c := range catalogs {
		out = append(out, c.Info())
	}
	return out
}

// ListDetails lists the entries of every catalog.
func (g *CatalogGroup) ListDetails(ctx context.Context) ([]domain.CatalogEntry, error) {
	return g.Search(ctx, query.Query{})
}

// Search runs q against each catalog in turn, one session at a time, and
// concatenates the matches in catalog order.
func (g *CatalogGroup) Search(ctx context.Context, q query.Query) ([]domain.CatalogEntry, error) {
	out := make([]domain.CatalogEntry, 0)
	for _, catalog := range g.Catalogs() {
		err := With(ctx, catalog.Session, func(s *CatalogSession) error {
			entries, err := s.Entries().Search(ctx, q)
			if err != nil {
				return err
			}
			out = append(out, entries...)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
