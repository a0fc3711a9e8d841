package store

import (
	"context"
)

// CrossValidator checks a write against the state of another store.
type CrossValidator[T any] interface {
	Validate(ctx context.Context, value T) error
}

// CrossValidatorFunc adapts a function to CrossValidator.
type CrossValidatorFunc[T any] func(ctx context.Context, value T) error

func (f CrossValidatorFunc[T]) Validate(ctx context.Context, value T) error { return f(ctx, value) }

// CompositeValidator runs its validators in order and stops at the first
// failure. A nil CompositeValidator accepts everything.
type CompositeValidator[T any] struct {
	validators []CrossValidator[T]
}

func NewCompositeValidator[T any](validators ...CrossValidator[T]) *CompositeValidator[T] {
	return &CompositeValidator[T]{validators: validators}
}

func (c *CompositeValidator[T]) Add(v CrossValidator[T]) {
	c.validators = append(c.validators, v)
}

func (c *CompositeValidator[T]) Len() int {
	if c == nil {
		return 0
	}
	return len(c.validators)
}

func (c *CompositeValidator[T]) Validate(ctx context.Context, value T) error {
	if c == nil {
		return nil
	}
	for _, v := range c.validators {
		if err := v.Validate(ctx, value); err != nil {
			return err
		}
	}
	return nil
}
