package dispatch

import (
	"context"
	"fmt"
	"math"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/goliatone/go-argstore"
	"github.com/goliatone/go-argstore/guard"
	"github.com/goliatone/go-argstore/internal/hydrate"
)

// Shape is the expected shape of a function's effective arguments. Check
// returns the validated value handed to bound logic.
type Shape[T any] interface {
	Check(ctx context.Context, function string, args argstore.Record) (T, error)
}

// ShapeFunc adapts a function to Shape.
type ShapeFunc[T any] func(ctx context.Context, function string, args argstore.Record) (T, error)

// Check implements Shape.
func (f ShapeFunc[T]) Check(ctx context.Context, function string, args argstore.Record) (T, error) {
	return f(ctx, function, args)
}

// RecordShape accepts any record unchanged.
func RecordShape() Shape[argstore.Record] {
	return ShapeFunc[argstore.Record](func(_ context.Context, _ string, args argstore.Record) (argstore.Record, error) {
		return args, nil
	})
}

// StructOption configures StructShape.
type StructOption func(*structConfig)

type structConfig struct {
	strict    bool
	useNumber bool
	required  []string
}

// RequireArgs rejects records that resolve without any of names, whether
// set for the function, inherited from the wildcard or passed as override.
func RequireArgs(names ...string) StructOption {
	return func(cfg *structConfig) {
		cfg.required = append(cfg.required, names...)
	}
}

// StrictFields rejects record keys the struct does not declare. Wildcard
// arguments reach every function, so this is off by default.
func StrictFields() StructOption {
	return func(cfg *structConfig) {
		cfg.strict = true
	}
}

// UseNumber decodes numbers into json.Number fields where the target is
// untyped.
func UseNumber() StructOption {
	return func(cfg *structConfig) {
		cfg.useNumber = true
	}
}

type validator interface {
	Validate() error
}

// StructShape decodes the record into T using its json tags. When T (or *T)
// implements Validate() error it is called after decoding.
func StructShape[T any](opts ...StructOption) Shape[T] {
	cfg := structConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	decoderOpts := []hydrate.DecoderOption[T]{
		hydrate.WithPostHook[T](func(_ hydrate.Context, value *T) error {
			if v, ok := any(value).(validator); ok {
				return v.Validate()
			}
			return nil
		}),
	}
	if cfg.strict {
		decoderOpts = append(decoderOpts, hydrate.WithDisallowUnknownFields[T]())
	}
	if cfg.useNumber {
		decoderOpts = append(decoderOpts, hydrate.WithUseNumber[T]())
	}
	if len(cfg.required) > 0 {
		decoderOpts = append(decoderOpts, hydrate.WithRequired[T](cfg.required...))
	}
	decoder := hydrate.NewDecoder[T](decoderOpts...)

	return ShapeFunc[T](func(ctx context.Context, function string, args argstore.Record) (T, error) {
		info, _ := CallInfoFromContext(ctx)
		return decoder.Decode(hydrate.Context{Key: argstore.Named(function), EntryPoint: info.EntryPoint}, args)
	})
}

type cueShape struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
}

// CUEShape compiles schema and checks records by unifying them with it. The
// unified value must be concrete, so every field the schema declares without
// a default has to be supplied. Whole float64 values (what JSON input decodes
// to) are checked as integers, so `int` constraints accept them.
func CUEShape(schema string) (Shape[argstore.Record], error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(schema)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("dispatch: compile cue schema: %w", err)
	}
	return &cueShape{ctx: ctx, schema: value}, nil
}

func (s *cueShape) Check(_ context.Context, _ string, args argstore.Record) (argstore.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	encoded := s.ctx.Encode(integralNumbers(map[string]any(args.Clone())))
	if err := encoded.Err(); err != nil {
		return nil, fmt.Errorf("dispatch: encode args: %w", err)
	}
	unified := s.schema.Unify(encoded)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, err
	}
	return args, nil
}

func integralNumbers(value any) any {
	switch typed := value.(type) {
	case float64:
		if typed == math.Trunc(typed) && math.Abs(typed) < 1<<53 {
			return int64(typed)
		}
		return typed
	case map[string]any:
		for key, item := range typed {
			typed[key] = integralNumbers(item)
		}
		return typed
	case []any:
		for i, item := range typed {
			typed[i] = integralNumbers(item)
		}
		return typed
	default:
		return value
	}
}

// GuardShape requires every expression to evaluate to true against the
// record. A nil evaluator selects the expr engine. Inside a dispatcher call
// the entry point is reported on failures and the invocation id is exposed
// to expressions as metadata.invocation_id.
func GuardShape(evaluator guard.Evaluator, exprs ...string) (Shape[argstore.Record], error) {
	return GuardShapeWith(exprs, guard.WithEvaluator(evaluator))
}

// GuardShapeWith is GuardShape with full guard options, such as
// guard.WithEvaluatorLogger(guard.LogTo(store.Logger())).
func GuardShapeWith(exprs []string, opts ...guard.Option) (Shape[argstore.Record], error) {
	g, err := guard.New(exprs, opts...)
	if err != nil {
		return nil, err
	}
	return ShapeFunc[argstore.Record](func(ctx context.Context, function string, args argstore.Record) (argstore.Record, error) {
		rule := guard.RuleContext{Function: function, Args: map[string]any(args)}
		if info, ok := CallInfoFromContext(ctx); ok {
			rule.EntryPoint = info.EntryPoint
			rule.Metadata = map[string]any{"invocation_id": info.InvocationID}
		}
		if err := g.Check(rule); err != nil {
			return nil, err
		}
		return args, nil
	}), nil
}

// AllOf runs shapes in order and returns the value of the last one. The first
// failure stops the chain.
func AllOf[T any](shapes ...Shape[T]) Shape[T] {
	return ShapeFunc[T](func(ctx context.Context, function string, args argstore.Record) (T, error) {
		var value T
		if len(shapes) == 0 {
			return value, ErrNoShape
		}
		for _, shape := range shapes {
			if shape == nil {
				return value, ErrNoShape
			}
			next, err := shape.Check(ctx, function, args)
			if err != nil {
				var zero T
				return zero, err
			}
			value = next
		}
		return value, nil
	})
}

// Guarded runs record level checks (CUE schemas, guards) before shape.
func Guarded[T any](shape Shape[T], checks ...Shape[argstore.Record]) Shape[T] {
	return ShapeFunc[T](func(ctx context.Context, function string, args argstore.Record) (T, error) {
		var zero T
		for _, check := range checks {
			if check == nil {
				continue
			}
			if _, err := check.Check(ctx, function, args); err != nil {
				return zero, err
			}
		}
		if shape == nil {
			return zero, ErrNoShape
		}
		return shape.Check(ctx, function, args)
	})
}
