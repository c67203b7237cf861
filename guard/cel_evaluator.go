package guard

import (
	"fmt"
	"strings"

	celgo "github.com/google/cel-go/cel"
	functions "github.com/google/cel-go/common/functions"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

type celEvaluator struct {
	cfg engineConfig
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Every argument is
// declared as a dynamic variable, so programs are cached per expression and
// argument-name set.
func NewCELEvaluator(opts ...EngineOption) Evaluator {
	return &celEvaluator{cfg: applyEngineOptions(opts)}
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, emptyExpression(EngineCEL)
	}
	ctx = ctx.withDefaults()
	program, err := e.loadOrCompile(expression, ctx.argNames())
	if err != nil {
		return nil, evaluationFailure(EngineCEL, expression, ctx, err)
	}
	out, _, err := program.Eval(e.activation(ctx))
	if err != nil {
		return nil, evaluationFailure(EngineCEL, expression, ctx, err)
	}
	return out.Value(), nil
}

func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, emptyExpression(EngineCEL)
	}
	// Variables depend on the arguments seen at evaluation time, so compilation
	// is deferred and served from the cache.
	return &celCompiledRule{evaluator: e, expression: expression}, nil
}

func (e *celEvaluator) loadOrCompile(expression string, names []string) (celgo.Program, error) {
	cacheKey := EngineCEL + ":" + strings.Join(names, ",") + ":" + expression
	if cached, ok := e.cfg.cached(cacheKey); ok {
		if program, ok := cached.(celgo.Program); ok {
			return program, nil
		}
	}

	env, err := e.buildEnv(names)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	e.cfg.store(cacheKey, program)
	return program, nil
}

func (e *celEvaluator) buildEnv(names []string) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Variable("fn", celgo.StringType),
		celgo.Variable("metadata", celgo.MapType(celgo.StringType, celgo.DynType)),
	}
	if e.cfg.registry != nil {
		opts = append(opts, celgo.Function("call", celgo.Overload(
			"call_dyn",
			[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
			celgo.DynType,
			celgo.BinaryBinding(e.callBinding()),
		)))
	}
	for _, name := range names {
		if isReservedName(name) {
			continue
		}
		opts = append(opts, celgo.Variable(name, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) activation(ctx RuleContext) map[string]any {
	return ctx.environment()
}

func (e *celEvaluator) callBinding() functions.BinaryOp {
	return func(nameVal, argsVal ref.Val) ref.Val {
		name, ok := nameVal.Value().(string)
		if !ok {
			return types.NewErr("guard: call name must be string")
		}
		list, ok := argsVal.(traits.Lister)
		if !ok {
			return types.NewErr("guard: call arguments must be a list")
		}
		size, _ := list.Size().(types.Int)
		arguments := make([]any, 0, int(size))
		for i := types.Int(0); i < size; i++ {
			arguments = append(arguments, list.Get(i).Value())
		}
		result, err := e.cfg.registry.Call(name, arguments...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, engineError(EngineCEL, fmt.Errorf("compiled rule missing evaluator"))
	}
	return r.evaluator.Evaluate(ctx, r.expression)
}

func isReservedName(name string) bool {
	switch name {
	case "now", "args", "fn", "metadata", "call":
		return true
	default:
		return false
	}
}
