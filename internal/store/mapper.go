package store

import (
	"context"
	"sort"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/query"
)

// Mapper is the uniform CRUD contract every resource family exposes.
type Mapper[T query.Item] interface {
	Create(ctx context.Context, value T) (T, error)
	Read(ctx context.Context, id string) (T, error)
	Edit(ctx context.Context, value T) (T, error)
	Delete(ctx context.Context, id string) (T, error)
	List(ctx context.Context) ([]string, error)
	ListDetails(ctx context.Context, limit, offset int) ([]T, error)
	Search(ctx context.Context, q query.Query) ([]T, error)
}

// Collection implements Mapper over a DocumentBackend. The optional hooks
// carry the per-family rules.
type Collection[T query.Item] struct {
	Kind       string
	Backend    DocumentBackend[T]
	ReadOnly   bool
	Validators *CompositeValidator[T]

	// Prepare runs before every write. existing is nil on create.
	Prepare func(ctx context.Context, value T, existing *T) (T, error)
	// Resolve runs on every value leaving the collection.
	Resolve func(ctx context.Context, value T) (T, error)
	// AfterDelete runs once the value is gone.
	AfterDelete func(ctx context.Context, value T) error
}

var _ Mapper[domain.Group] = (*Collection[domain.Group])(nil)

func (c *Collection[T]) Create(ctx context.Context, value T) (T, error) {
	var zero T
	if err := c.writable(); err != nil {
		return zero, err
	}
	id := value.QueryIdentifier()
	if err := domain.ValidIdentifier(c.Kind, id); err != nil {
		return zero, err
	}
	if _, err := c.Backend.Get(ctx, id); err == nil {
		return zero, domain.AlreadyExists("%s %q already exists", c.Kind, id)
	} else if !isNotFound(err) {
		return zero, err
	}
	return c.put(ctx, value, nil)
}

func (c *Collection[T]) Read(ctx context.Context, id string) (T, error) {
	value, err := c.Backend.Get(ctx, id)
	if err != nil {
		return value, c.notFound(err, id)
	}
	return c.resolve(ctx, value)
}

func (c *Collection[T]) Edit(ctx context.Context, value T) (T, error) {
	var zero T
	if err := c.writable(); err != nil {
		return zero, err
	}
	id := value.QueryIdentifier()
	existing, err := c.Backend.Get(ctx, id)
	if err != nil {
		return zero, c.notFound(err, id)
	}
	return c.put(ctx, value, &existing)
}

func (c *Collection[T]) Delete(ctx context.Context, id string) (T, error) {
	var zero T
	if err := c.writable(); err != nil {
		return zero, err
	}
	existing, err := c.Backend.Get(ctx, id)
	if err != nil {
		return zero, c.notFound(err, id)
	}
	if err := c.Backend.Delete(ctx, id); err != nil {
		return zero, c.notFound(err, id)
	}
	if c.AfterDelete != nil {
		if err := c.AfterDelete(ctx, existing); err != nil {
			return zero, err
		}
	}
	return c.resolve(ctx, existing)
}

func (c *Collection[T]) List(ctx context.Context) ([]string, error) {
	ids, err := c.Backend.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

func (c *Collection[T]) ListDetails(ctx context.Context, limit, offset int) ([]T, error) {
	if fast, ok := c.Backend.(DetailLister[T]); ok {
		values, err := fast.ListDetails(ctx, limit, offset)
		if err != nil {
			return nil, err
		}
		return c.resolveAll(ctx, values)
	}
	return ListDetails(ctx, c.List, c.Read, limit, offset)
}

func (c *Collection[T]) Search(ctx context.Context, q query.Query) ([]T, error) {
	if fast, ok := c.Backend.(Searcher[T]); ok && c.Resolve == nil {
		return fast.Search(ctx, q)
	}
	return Search(ctx, c.List, c.Read, q)
}

func (c *Collection[T]) put(ctx context.Context, value T, existing *T) (T, error) {
	var zero T
	var err error
	if c.Prepare != nil {
		if value, err = c.Prepare(ctx, value, existing); err != nil {
			return zero, err
		}
	}
	if c.Validators != nil {
		if err := c.Validators.Validate(ctx, value); err != nil {
			return zero, err
		}
	}
	if err := c.Backend.Put(ctx, value); err != nil {
		return zero, domain.Wrap(domain.ErrInternal, err, "write %s %q", c.Kind, value.QueryIdentifier())
	}
	return c.resolve(ctx, value)
}

func (c *Collection[T]) resolve(ctx context.Context, value T) (T, error) {
	if c.Resolve == nil {
		return value, nil
	}
	return c.Resolve(ctx, value)
}

func (c *Collection[T]) resolveAll(ctx context.Context, values []T) ([]T, error) {
	if c.Resolve == nil {
		return values, nil
	}
	out := make([]T, 0, len(values))
	for _, v := range values {
		r, err := c.Resolve(ctx, v)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (c *Collection[T]) writable() error {
	if c.ReadOnly {
		return domain.Forbidden("%s store is read-only", c.Kind)
	}
	return nil
}

func (c *Collection[T]) notFound(err error, id string) error {
	if isNotFound(err) {
		return domain.NotFound("%s %q not found", c.Kind, id)
	}
	return err
}

// ListDetails derives a paged listing from list + read. A non-positive
// limit returns everything after offset.
func ListDetails[T any](ctx context.Context, list func(context.Context) ([]string, error), read func(context.Context, string) (T, error), limit, offset int) ([]T, error) {
	ids, err := list(ctx)
	if err != nil {
		return nil, err
	}
	ids = Page(ids, limit, offset)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		v, err := read(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Search derives a query evaluation from list + read.
func Search[T query.Item](ctx context.Context, list func(context.Context) ([]string, error), read func(context.Context, string) (T, error), q query.Query) ([]T, error) {
	all, err := ListDetails(ctx, list, read, 0, 0)
	if err != nil {
		return nil, err
	}
	return query.Apply(q, all), nil
}

// Page slices ids by offset and limit.
func Page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
