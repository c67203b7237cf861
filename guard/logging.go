package guard

import (
	"time"

	"github.com/goliatone/go-argstore"
)

// EvaluatorLogEvent describes one expression checked against a call's
// effective arguments.
type EvaluatorLogEvent struct {
	Engine     string
	Expr       string
	Function   string
	EntryPoint string
	Duration   time.Duration
	Result     any
	// Passed is true when the expression yielded true; Err is set otherwise.
	Passed bool
	Err    error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

// LogTo writes evaluations to a store logger: passing checks at debug level,
// rejections and evaluator failures at warn level.
func LogTo(logger argstore.Logger) EvaluatorLogger {
	if logger == nil {
		return noopEvaluatorLogger{}
	}
	return EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		fields := []any{
			"engine", event.Engine,
			"expr", event.Expr,
			"function", event.Function,
			"duration", event.Duration,
		}
		if event.EntryPoint != "" {
			fields = append(fields, "entry_point", event.EntryPoint)
		}
		if event.Passed {
			logger.Debug("args guard passed", fields...)
			return
		}
		logger.Warn("args guard rejected", append(fields, "error", event.Err)...)
	})
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}
