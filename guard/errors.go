package guard

import (
	"errors"
	"fmt"
)

var (
	// ErrGuardFailed reports a guard expression that did not evaluate to true.
	ErrGuardFailed = errors.New("guard: expression rejected arguments")
	// ErrNoEvaluator reports a guard without a usable evaluator.
	ErrNoEvaluator = errors.New("guard: evaluator not configured")
	// ErrEmptyExpression reports an evaluator asked to run an empty expression.
	ErrEmptyExpression = errors.New("guard: expression must not be empty")
)

// EvaluationError ties a failed expression to the call whose arguments it
// ran against: the function the record was resolved for and, when the check
// ran inside a dispatcher call, the entry point that triggered it.
type EvaluationError struct {
	Engine     string
	Expr       string
	Function   string
	EntryPoint string
	// Args lists the argument names present in the record, sorted.
	Args []string
	Err  error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	call := e.Function
	if call == "" {
		call = "<no function>"
	}
	if e.EntryPoint != "" {
		call += " via " + e.EntryPoint
	}
	expr := "<empty>"
	if e.Expr != "" {
		expr = fmt.Sprintf("%q", e.Expr)
	}
	return fmt.Sprintf("guard: %s: %s %s: %v", call, e.Engine, expr, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// evaluationFailure attaches the call details of ctx to err. An
// EvaluationError already in the chain is completed instead of nested, so a
// compile failure reported without a call keeps its engine and expression.
func evaluationFailure(engine, expr string, ctx RuleContext, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		evalErr = &EvaluationError{Err: err}
	}
	if evalErr.Engine == "" {
		evalErr.Engine = engine
	}
	if evalErr.Expr == "" {
		evalErr.Expr = expr
	}
	if evalErr.Function == "" {
		evalErr.Function = ctx.Function
	}
	if evalErr.EntryPoint == "" {
		evalErr.EntryPoint = ctx.EntryPoint
	}
	if evalErr.Args == nil && len(ctx.Args) > 0 {
		evalErr.Args = ctx.argNames()
	}
	return evalErr
}

func emptyExpression(engine string) error {
	return fmt.Errorf("%w (%s engine)", ErrEmptyExpression, engine)
}

// engineError reports a failure that is not tied to any expression, such as
// a misbuilt compiled rule.
func engineError(engine string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("guard: %s engine: %w", engine, err)
}
