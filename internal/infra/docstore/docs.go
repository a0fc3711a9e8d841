package docstore

import (
	"context"
	"encoding/json"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/query"
)

// documents stores values of one family as JSON documents in a group.
type documents[T query.Item] struct {
	storage Storage
	group   []string
}

func newDocuments[T query.Item](storage Storage, group ...string) *documents[T] {
	return &documents[T]{storage: storage, group: group}
}

func (d *documents[T]) path(id string) []string {
	out := make([]string, 0, len(d.group)+1)
	out = append(out, d.group...)
	return append(out, id)
}

func (d *documents[T]) List(ctx context.Context) ([]string, error) {
	return d.storage.List(ctx, d.group...)
}

func (d *documents[T]) Get(ctx context.Context, id string) (T, error) {
	var value T
	data, err := d.storage.Read(ctx, d.path(id)...)
	if err != nil {
		return value, err
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, domain.Wrap(domain.ErrInternal, err, "decode %s", id)
	}
	return value, nil
}

func (d *documents[T]) Put(ctx context.Context, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return domain.Wrap(domain.ErrInternal, err, "encode %s", value.QueryIdentifier())
	}
	if err := d.storage.EnsureGroup(ctx, d.group...); err != nil {
		return err
	}
	return d.storage.Write(ctx, data, d.path(value.QueryIdentifier())...)
}

func (d *documents[T]) Delete(ctx context.Context, id string) error {
	return d.storage.Delete(ctx, d.path(id)...)
}
