// Package backends turns a store URI into a concrete backend.
package backends

import (
	"context"
	"io"
	"time"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/infra/db"
	"github.com/mlte-team/mlte-sub000/internal/infra/fsstore"
	"github.com/mlte-team/mlte-sub000/internal/infra/memstore"
	"github.com/mlte-team/mlte-sub000/internal/infra/remote"
	"github.com/mlte-team/mlte-sub000/internal/store"
)

type Options struct {
	// HTTPTimeout bounds every call of the remote backend.
	HTTPTimeout time.Duration
}

// Open parses raw and builds the backend for its prefix.
func Open(ctx context.Context, raw string, opts Options) (store.Backend, error) {
	uri, err := store.ParseURI(raw)
	if err != nil {
		return nil, err
	}
	var (
		backend store.Backend
		openErr error
	)
	switch uri.Type {
	case store.URIMemory:
		return memstore.New(uri), nil
	case store.URIFS:
		backend, openErr = fsBackend(uri)
	case store.URIRelation:
		backend, openErr = dbBackend(ctx, uri)
	case store.URIHTTP:
		backend, openErr = remoteBackend(uri, opts)
	default:
		return nil, domain.BadRequest("unsupported store uri %s", uri.Redacted())
	}
	if openErr != nil {
		return nil, openErr
	}
	return backend, nil
}

func fsBackend(uri store.URI) (store.Backend, error) {
	b, err := fsstore.New(uri)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func dbBackend(ctx context.Context, uri store.URI) (store.Backend, error) {
	b, err := db.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func remoteBackend(uri store.URI, opts Options) (store.Backend, error) {
	b, err := remote.New(uri, remote.WithTimeout(opts.HTTPTimeout))
	if err != nil {
		return nil, err
	}
	return b, nil
}

// OpenUsers is Open restricted to backends that hold accounts. Credentials
// are never relayed to a peer server.
func OpenUsers(ctx context.Context, raw string, opts Options) (store.Backend, error) {
	uri, err := store.ParseURI(raw)
	if err != nil {
		return nil, err
	}
	if uri.Type == store.URIHTTP {
		return nil, store.Unsupported(uri, "user")
	}
	return Open(ctx, raw, opts)
}

// Close releases backends holding connections.
func Close(b store.Backend) error {
	if c, ok := b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
