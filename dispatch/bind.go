package dispatch

import (
	"context"

	"github.com/goliatone/go-argstore"
)

// Logic is consumer code run with validated arguments.
type Logic[T any] func(ctx context.Context, args T) (any, error)

// Bind returns a handler for function. Its input is the per-call override
// record (nil for none). The handler resolves the effective arguments,
// validates them with shape and only then runs logic.
func Bind[T any](store *argstore.Store, function string, shape Shape[T], logic Logic[T]) Handler {
	return func(ctx context.Context, input any) (any, error) {
		var override argstore.Record
		if input != nil {
			object, err := decodeObject(function, input)
			if err != nil {
				return nil, err
			}
			override = argstore.Record(object)
		}

		args := store.GetArgs(argstore.Named(function), override)
		if shape == nil {
			return nil, &ResolvedArgsTypeError{Function: function, Err: ErrNoShape}
		}
		value, err := shape.Check(ctx, function, args)
		if err != nil {
			return nil, &ResolvedArgsTypeError{Function: function, Err: err}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return logic(ctx, value)
	}
}

// BindTo registers Bind(d.Store(), function, shape, logic) under function.
func BindTo[T any](d *Dispatcher, function string, shape Shape[T], logic Logic[T]) error {
	return d.Register(function, Bind(d.Store(), function, shape, logic))
}
