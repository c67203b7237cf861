// Package hydrate decodes effective argument records into typed structs.
package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-argstore"
)

// ErrMissingArgument reports required arguments absent from the record.
var ErrMissingArgument = errors.New("hydrate: missing argument")

// Context identifies the call a record was resolved for.
type Context struct {
	Key        argstore.Key
	EntryPoint string
}

// Stage names the step of Decode that failed.
type Stage string

const (
	StagePreHook  Stage = "pre-hook"
	StageRequire  Stage = "require"
	StageDecode   Stage = "decode"
	StagePostHook Stage = "post-hook"
)

// DecodeError reports which call's record failed to hydrate and at which
// stage.
type DecodeError struct {
	Key        argstore.Key
	EntryPoint string
	Stage      Stage
	Err        error
}

func (e *DecodeError) Error() string {
	call := e.Key.String()
	if e.EntryPoint != "" {
		call += " via " + e.EntryPoint
	}
	return fmt.Sprintf("hydrate: %s %s: %v", e.Stage, call, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (c Context) fail(stage Stage, err error) error {
	return &DecodeError{Key: c.Key, EntryPoint: c.EntryPoint, Stage: stage, Err: err}
}

// PreHook rewrites the record before decoding. It receives a detached copy.
type PreHook func(Context, argstore.Record) (argstore.Record, error)

// PostHook lets callers adjust or validate the decoded value.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces the default JSON decoding when provided.
type CustomDecoder[T any] func(Context, argstore.Record) (T, error)

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts effective argument records into T.
type Decoder[T any] struct {
	preHooks     []PreHook
	required     []string
	postHooks    []PostHook[T]
	configureDec []func(*json.Decoder)
	custom       CustomDecoder[T]
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithRequired fails decoding when any of names is absent from the record
// after the pre-hooks ran. A present null value counts as supplied.
func WithRequired[T any](names ...string) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.required = append(d.required, names...)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithUseNumber enables json.Decoder.UseNumber during decoding.
func WithUseNumber[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.UseNumber()
		})
	}
}

// WithDisallowUnknownFields rejects record keys T does not declare.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.DisallowUnknownFields()
		})
	}
}

// WithCustomDecoder replaces the default JSON decoding path.
func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.custom = decoder
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts record into T applying the configured hooks. A nil record
// decodes like an empty one; the caller's record is never modified. Failures
// are *DecodeError values naming ctx.Key.
func (d *Decoder[T]) Decode(ctx Context, record argstore.Record) (T, error) {
	var zero T

	current := record.Clone()
	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, ctx.fail(StagePreHook, err)
		}
		if next != nil {
			current = next
		}
	}

	if missing := missingArgs(current, d.required); len(missing) > 0 {
		return zero, ctx.fail(StageRequire, fmt.Errorf("%w: %s", ErrMissingArgument, strings.Join(missing, ", ")))
	}

	result, err := d.decode(ctx, current)
	if err != nil {
		return zero, ctx.fail(StageDecode, err)
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, ctx.fail(StagePostHook, err)
		}
	}
	return result, nil
}

func (d *Decoder[T]) decode(ctx Context, record argstore.Record) (T, error) {
	var result T
	if d.custom != nil {
		return d.custom(ctx, record)
	}
	buffer, err := json.Marshal(record)
	if err != nil {
		return result, err
	}
	decoder := json.NewDecoder(bytes.NewReader(buffer))
	for _, configure := range d.configureDec {
		if configure != nil {
			configure(decoder)
		}
	}
	err = decoder.Decode(&result)
	return result, err
}

func missingArgs(record argstore.Record, required []string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := record[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}
