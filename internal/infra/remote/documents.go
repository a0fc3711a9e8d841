package remote

import (
	"context"
	"net/http"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/query"
)

// documents maps a DocumentBackend onto a peer collection route.
type documents[T query.Item] struct {
	c    *Client
	base string
}

func (d *documents[T]) List(ctx context.Context) ([]string, error) {
	var ids []string
	if err := d.c.do(ctx, http.MethodGet, d.base, nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (d *documents[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	err := d.c.do(ctx, http.MethodGet, d.base+escape(id), nil, &out)
	return out, err
}

// Put edits the remote value and falls back to create when it is absent.
func (d *documents[T]) Put(ctx context.Context, value T) error {
	err := d.c.do(ctx, http.MethodPut, d.base, value, nil)
	if domain.KindOf(err) == domain.ErrNotFound {
		return d.c.do(ctx, http.MethodPost, d.base, value, nil)
	}
	return err
}

func (d *documents[T]) Delete(ctx context.Context, id string) error {
	return d.c.do(ctx, http.MethodDelete, d.base+escape(id), nil, nil)
}
