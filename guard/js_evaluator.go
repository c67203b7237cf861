//go:build js_eval

package guard

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	cfg engineConfig
}

func (*jsEvaluator) engine() string { return EngineJS }

// NewJSEvaluator constructs an Evaluator backed by goja. Each evaluation runs
// in a fresh runtime.
func NewJSEvaluator(opts ...EngineOption) Evaluator {
	return &jsEvaluator{cfg: applyEngineOptions(opts)}
}

// JSAvailable reports whether the binary was built with the js_eval tag.
func JSAvailable() bool {
	return true
}

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, emptyExpression(EngineJS)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(ctx.withDefaults(), expression, program)
}

func (e *jsEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, emptyExpression(EngineJS)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &jsCompiledRule{evaluator: e, expression: expression, program: program}, nil
}

func (e *jsEvaluator) loadOrCompile(expression string) (*goja.Program, error) {
	if cached, ok := e.cfg.cached(EngineJS + ":" + expression); ok {
		if program, ok := cached.(*goja.Program); ok {
			return program, nil
		}
	}
	program, err := goja.Compile("", wrapExpression(expression), false)
	if err != nil {
		return nil, evaluationFailure(EngineJS, expression, RuleContext{}, err)
	}
	e.cfg.store(EngineJS+":"+expression, program)
	return program, nil
}

func (e *jsEvaluator) run(ctx RuleContext, expression string, program *goja.Program) (any, error) {
	vm := goja.New()
	for name, value := range ctx.environment() {
		if err := vm.Set(name, value); err != nil {
			return nil, evaluationFailure(EngineJS, expression, ctx, err)
		}
	}
	for name, fn := range e.cfg.callables() {
		if err := vm.Set(name, fn); err != nil {
			return nil, evaluationFailure(EngineJS, expression, ctx, err)
		}
	}
	value, err := vm.RunProgram(program)
	if err != nil {
		return nil, evaluationFailure(EngineJS, expression, ctx, err)
	}
	return value.Export(), nil
}

func wrapExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

type jsCompiledRule struct {
	evaluator  *jsEvaluator
	expression string
	program    *goja.Program
}

func (r *jsCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, engineError(EngineJS, fmt.Errorf("compiled rule missing evaluator"))
	}
	return r.evaluator.run(ctx.withDefaults(), r.expression, r.program)
}
