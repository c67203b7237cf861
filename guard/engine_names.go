package guard

const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

type namedEngine interface {
	engine() string
}

func (*exprEvaluator) engine() string { return EngineExpr }
func (*celEvaluator) engine() string  { return EngineCEL }

// EngineName reports the engine behind e: "expr", "cel", "js" or "custom".
func EngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	if named, ok := e.(namedEngine); ok {
		return named.engine()
	}
	return "custom"
}
