package db

import (
	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/store"

	"gorm.io/gorm"
)

// session scopes the pool to one request context. Each repository call is
// its own transaction.
type session struct {
	db  *gorm.DB
	uri store.URI
}

func (s *session) Close() error { return nil }

func (s *session) Artifacts() (store.ArtifactBackend, error) {
	return NewArtifactRepository(s.db), nil
}

func (s *session) Users() (store.UserBackend, error) {
	return &userBackend{db: s.db}, nil
}

func (s *session) Catalog() (store.DocumentBackend[domain.CatalogEntry], error) {
	return NewCatalogRepository(s.db), nil
}

func (s *session) CustomLists() (store.CustomListBackend, error) {
	return &customListBackend{db: s.db}, nil
}

type userBackend struct {
	db *gorm.DB
}

func (b *userBackend) Users() store.DocumentBackend[domain.User] {
	return NewUserRepository(b.db)
}

func (b *userBackend) Groups() store.DocumentBackend[domain.Group] {
	return NewGroupRepository(b.db)
}

func (b *userBackend) Permissions() store.DocumentBackend[domain.Permission] {
	return NewPermissionRepository(b.db)
}

type customListBackend struct {
	db *gorm.DB
}

func (b *customListBackend) Entries(list domain.CustomListName) store.DocumentBackend[domain.CustomListEntry] {
	return NewCustomListRepository(b.db, list)
}
