// Package guard evaluates boolean expressions against effective argument
// records. Guards let a consumer declare constraints such as
// `size > 0 && color in ["red", "blue"]` next to the function they protect;
// the dispatch layer runs them after arguments are resolved.
package guard

import (
	"fmt"
	"time"
)

// Option configures a Guard.
type Option func(*guardConfig)

type guardConfig struct {
	evaluator Evaluator
	engine    []EngineOption
	logger    EvaluatorLogger
}

// WithEvaluator selects the engine used by the guard. The default is
// NewExprEvaluator.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *guardConfig) {
		cfg.evaluator = e
	}
}

// WithEngineOptions configures the default expr engine when no evaluator is
// supplied.
func WithEngineOptions(opts ...EngineOption) Option {
	return func(cfg *guardConfig) {
		cfg.engine = append(cfg.engine, opts...)
	}
}

// WithEvaluatorLogger records every evaluation.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *guardConfig) {
		if logger == nil {
			cfg.logger = noopEvaluatorLogger{}
			return
		}
		cfg.logger = logger
	}
}

// Guard holds a set of expressions that must all evaluate to true.
type Guard struct {
	exprs     []string
	evaluator Evaluator
	logger    EvaluatorLogger
}

// New builds a Guard over exprs. Empty expressions are rejected.
func New(exprs []string, opts ...Option) (*Guard, error) {
	cfg := guardConfig{logger: noopEvaluatorLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	evaluator := cfg.evaluator
	if evaluator == nil {
		evaluator = NewExprEvaluator(cfg.engine...)
	}
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	for i, expr := range exprs {
		if expr == "" {
			return nil, fmt.Errorf("%w: index %d", ErrEmptyExpression, i)
		}
	}
	return &Guard{
		exprs:     append([]string(nil), exprs...),
		evaluator: evaluator,
		logger:    cfg.logger,
	}, nil
}

// Expressions returns a copy of the guarded expressions.
func (g *Guard) Expressions() []string {
	return append([]string(nil), g.exprs...)
}

// Check evaluates every expression in order and stops at the first one that
// errors or does not yield true. A false result wraps ErrGuardFailed.
func (g *Guard) Check(ctx RuleContext) error {
	if g == nil {
		return nil
	}
	ctx = ctx.withDefaults()
	engine := EngineName(g.evaluator)
	for _, expr := range g.exprs {
		start := time.Now()
		value, err := g.evaluator.Evaluate(ctx, expr)
		if err == nil {
			err = requireTrue(value)
		}
		err = evaluationFailure(engine, expr, ctx, err)
		g.logger.LogEvaluation(EvaluatorLogEvent{
			Engine:     engine,
			Expr:       expr,
			Function:   ctx.Function,
			EntryPoint: ctx.EntryPoint,
			Duration:   time.Since(start),
			Result:     value,
			Passed:     err == nil,
			Err:        err,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Check is a convenience for a one-off guard using evaluator.
func Check(evaluator Evaluator, ctx RuleContext, exprs ...string) error {
	g, err := New(exprs, WithEvaluator(evaluator))
	if err != nil {
		return err
	}
	return g.Check(ctx)
}

func requireTrue(value any) error {
	ok, isBool := value.(bool)
	if !isBool {
		return fmt.Errorf("%w: result %T is not a boolean", ErrGuardFailed, value)
	}
	if !ok {
		return ErrGuardFailed
	}
	return nil
}
