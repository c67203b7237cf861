package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownEntryPoint reports a call to a name nothing is registered under.
	ErrUnknownEntryPoint = errors.New("dispatch: unknown entry point")
	// ErrDuplicateEntryPoint reports a second registration under the same name.
	ErrDuplicateEntryPoint = errors.New("dispatch: entry point already registered")
	// ErrNoShape reports a bound handler without a shape to validate against.
	ErrNoShape = errors.New("dispatch: shape not configured")
)

// ValidationError reports untyped entry point input that does not match the
// expected shape. Field is empty when the input as a whole is wrong.
type ValidationError struct {
	EntryPoint string
	Field      string
	Reason     string
	Err        error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Field == "" {
		return fmt.Sprintf("dispatch: invalid input for %s: %s", e.EntryPoint, e.Reason)
	}
	return fmt.Sprintf("dispatch: invalid input for %s: field %q %s", e.EntryPoint, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ResolvedArgsTypeError reports an effective record that does not satisfy the
// shape declared for Function. The bound logic is not invoked.
type ResolvedArgsTypeError struct {
	Function string
	Err      error
}

func (e *ResolvedArgsTypeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("dispatch: resolved args for %s do not match shape: %v", e.Function, e.Err)
}

func (e *ResolvedArgsTypeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func invalid(entryPoint, field, format string, args ...any) *ValidationError {
	return &ValidationError{
		EntryPoint: entryPoint,
		Field:      field,
		Reason:     fmt.Sprintf(format, args...),
	}
}
