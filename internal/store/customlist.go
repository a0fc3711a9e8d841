package store

import (
	"context"

	"github.com/mlte-team/mlte-sub000/internal/domain"
)

// CustomListStore holds the admin-curated vocabularies.
type CustomListStore struct {
	backend Backend
	opts    Options
}

func NewCustomListStore(backend Backend, opts Options) *CustomListStore {
	return &CustomListStore{backend: backend, opts: opts}
}

func (s *CustomListStore) URI() URI { return s.backend.URI() }

func (s *CustomListStore) Session(ctx context.Context) (*CustomListSession, error) {
	sess, err := s.backend.Open(ctx)
	if err != nil {
		return nil, err
	}
	primitives, err := sess.CustomLists()
	if err != nil {
		_ = sess.Close()
		return nil, err
	}
	return &CustomListSession{store: s, session: sess, backend: primitives}, nil
}

// CustomListSession exposes one mapper per list. A child entry's parent must
// exist in the parent list; deleting a parent deletes its children.
type CustomListSession struct {
	store   *CustomListStore
	session Session
	backend CustomListBackend
}

func (s *CustomListSession) Close() error { return s.session.Close() }

// Entries returns the mapper for list, or NotFound for an unknown list.
func (s *CustomListSession) Entries(list string) (Mapper[domain.CustomListEntry], error) {
	name, err := domain.ParseCustomListName(list)
	if err != nil {
		return nil, err
	}
	return s.collection(name), nil
}

func (s *CustomListSession) collection(list domain.CustomListName) *Collection[domain.CustomListEntry] {
	return &Collection[domain.CustomListEntry]{
		Kind:    string(list) + " entry",
		Backend: s.backend.Entries(list),
		Prepare: func(ctx context.Context, entry domain.CustomListEntry, _ *domain.CustomListEntry) (domain.CustomListEntry, error) {
			return s.prepare(ctx, list, entry)
		},
		AfterDelete: func(ctx context.Context, entry domain.CustomListEntry) error {
			return s.cascade(ctx, list, entry)
		},
	}
}

// Contains reports whether name is an entry of list.
func (s *CustomListSession) Contains(ctx context.Context, list domain.CustomListName, name string) (bool, error) {
	_, err := s.backend.Entries(list).Get(ctx, name)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func (s *CustomListSession) prepare(ctx context.Context, list domain.CustomListName, entry domain.CustomListEntry) (domain.CustomListEntry, error) {
	if err := domain.Validate(entry); err != nil {
		return domain.CustomListEntry{}, err
	}
	parentList, hasParent := list.ParentList()
	switch {
	case !hasParent && entry.Parent != "":
		return domain.CustomListEntry{}, domain.BadRequest("%s entries cannot have a parent", list)
	case hasParent && entry.Parent == "":
		return domain.CustomListEntry{}, domain.BadRequest("%s entry %q needs a parent from %s", list, entry.Name, parentList)
	case hasParent:
		ok, err := s.Contains(ctx, parentList, entry.Parent)
		if err != nil {
			return domain.CustomListEntry{}, err
		}
		if !ok {
			return domain.CustomListEntry{}, domain.Referential("%s entry %q has unknown parent %q in %s", list, entry.Name, entry.Parent, parentList)
		}
	}
	return entry, nil
}

func (s *CustomListSession) cascade(ctx context.Context, list domain.CustomListName, parent domain.CustomListEntry) error {
	for _, child := range list.ChildLists() {
		entries := s.collection(child)
		ids, err := entries.List(ctx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			entry, err := entries.Backend.Get(ctx, id)
			if err != nil {
				if isNotFound(err) {
					continue
				}
				return err
			}
			if entry.Parent != parent.Name {
				continue
			}
			if _, err := entries.Delete(ctx, id); err != nil && !isNotFound(err) {
				return err
			}
		}
	}
	return nil
}
