package store

import (
	"context"
	"log/slog"
)

// Observer is notified around every mapper operation. The returned func is
// called with the operation's error.
type Observer interface {
	Observe(ctx context.Context, family, op string) (context.Context, func(error))
}

type nopObserver struct{}

func (nopObserver) Observe(ctx context.Context, _, _ string) (context.Context, func(error)) {
	return ctx, func(error) {}
}

// Options carries the ambient collaborators shared by every store type.
type Options struct {
	Logger   *slog.Logger
	Observer Observer
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o Options) observer() Observer {
	if o.Observer == nil {
		return nopObserver{}
	}
	return o.Observer
}

// rejected logs a write refused by a hook or validator.
func (o Options) rejected(ctx context.Context, family, id string, err error) {
	o.logger().WarnContext(ctx, "store write rejected", "family", family, "id", id, "err", err)
}
