// Package store holds the session and mapper contract shared by every
// backend, and the semantics layered on top of the backend primitives.
package store

import (
	"context"
	"errors"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/query"
)

// DocumentBackend is the primitive keyed storage a backend offers for one
// resource family. Get and Delete return domain.ErrNotFound for absent ids;
// Put overwrites.
type DocumentBackend[T query.Item] interface {
	List(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id string) (T, error)
	Put(ctx context.Context, value T) error
	Delete(ctx context.Context, id string) error
}

// DetailLister is implemented by backends with a paged listing faster than
// list + read.
type DetailLister[T query.Item] interface {
	ListDetails(ctx context.Context, limit, offset int) ([]T, error)
}

// Searcher is implemented by backends that evaluate part of a query natively.
// Results must be exactly what query.Apply over every item would return.
type Searcher[T query.Item] interface {
	Search(ctx context.Context, q query.Query) ([]T, error)
}

// ArtifactBackend stores models, versions and artifacts. Artifact methods take
// the scope at the artifact's level: model-level calls ignore VersionID.
type ArtifactBackend interface {
	ListModels(ctx context.Context) ([]string, error)
	CreateModel(ctx context.Context, modelID string) error
	// DeleteModel removes the model with its versions and artifacts.
	DeleteModel(ctx context.Context, modelID string) error
	ListVersions(ctx context.Context, modelID string) ([]string, error)
	CreateVersion(ctx context.Context, modelID, versionID string) error
	DeleteVersion(ctx context.Context, modelID, versionID string) error

	ListArtifacts(ctx context.Context, scope domain.Scope, level domain.ArtifactLevel) ([]string, error)
	GetArtifact(ctx context.Context, scope domain.Scope, level domain.ArtifactLevel, id string) (domain.Artifact, error)
	PutArtifact(ctx context.Context, scope domain.Scope, artifact domain.Artifact) error
	DeleteArtifact(ctx context.Context, scope domain.Scope, level domain.ArtifactLevel, id string) error
}

// UserBackend stores accounts, groups and permissions. Users are persisted
// with group names only; the user session resolves them.
type UserBackend interface {
	Users() DocumentBackend[domain.User]
	Groups() DocumentBackend[domain.Group]
	Permissions() DocumentBackend[domain.Permission]
}

type CustomListBackend interface {
	Entries(list domain.CustomListName) DocumentBackend[domain.CustomListEntry]
}

// Session is one live handle on a backend. Families a backend does not
// support return domain.ErrBadRequest from the accessor.
type Session interface {
	Artifacts() (ArtifactBackend, error)
	Users() (UserBackend, error)
	Catalog() (DocumentBackend[domain.CatalogEntry], error)
	CustomLists() (CustomListBackend, error)
	Close() error
}

// Backend is the static configuration of a store location.
type Backend interface {
	URI() URI
	Open(ctx context.Context) (Session, error)
}

// Closer is satisfied by every session type.
type Closer interface {
	Close() error
}

// With runs fn on a session from open and always closes it.
func With[S Closer](ctx context.Context, open func(context.Context) (S, error), fn func(S) error) (err error) {
	session, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil && err == nil {
			err = domain.Wrap(domain.ErrInternal, cerr, "close session")
		}
	}()
	return fn(session)
}

// Unsupported is returned by session accessors for families a backend does
// not store.
func Unsupported(uri URI, family string) error {
	return domain.BadRequest("%s store %s does not support %s resources", uri.Type, uri.Redacted(), family)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
