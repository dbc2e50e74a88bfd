// Package errs defines the stable error taxonomy shared by every core
// surface (indicator kernel, backtest kernel, sweep orchestrator,
// leaderboard, artifact export).
package errs

import "fmt"

// Code is one of the stable, machine-readable error codes from the core's
// error taxonomy. UI collaborators key off Code, never off Message text.
type Code string

const (
	InvalidInput             Code = "InvalidInput"
	InvalidConfig            Code = "InvalidConfig"
	Warmup                   Code = "Warmup"
	BacktestError            Code = "BacktestError"
	UnrepresentableIndicator Code = "UnrepresentableIndicator"
	PersistenceError         Code = "PersistenceError"
	Cancelled                Code = "Cancelled"
	Internal                 Code = "Internal"
)

// CoreError is the structured error type returned across package
// boundaries. Callers should use errors.As to recover it and switch on Code.
type CoreError struct {
	Code    Code
	Message string
	Symbol  string
	Config  string // config_id, when known
	Cause   error
}

func (e *CoreError) Error() string {
	s := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Symbol != "" {
		s = fmt.Sprintf("%s [symbol=%s]", s, e.Symbol)
	}
	if e.Config != "" {
		s = fmt.Sprintf("%s [config=%s]", s, e.Config)
	}
	if e.Cause != nil {
		s = fmt.Sprintf("%s: %v", s, e.Cause)
	}
	return s
}

func (e *CoreError) Unwrap() error { return e.Cause }

// New builds a CoreError with no context fields.
func New(code Code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// Newf builds a CoreError with a formatted message.
func Newf(code Code, format string, args ...any) *CoreError {
	return &CoreError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a CoreError that preserves cause via Unwrap.
func Wrap(code Code, cause error, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg, Cause: cause}
}

// WithContext returns a shallow copy of e with symbol/config_id attached,
// used by the sweep orchestrator when it annotates a failed run.
func (e *CoreError) WithContext(symbol, configID string) *CoreError {
	cp := *e
	cp.Symbol = symbol
	cp.Config = configID
	return &cp
}

// Is reports whether target is a *CoreError with the same Code, enabling
// errors.Is(err, errs.New(errs.Warmup, "")) style checks in callers that
// only care about the code.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}
