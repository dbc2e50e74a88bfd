// Package logging is the structured-logging surface of the orchestration
// layers: the leaderboard store and the YOLO loop log through it, while the
// sweep orchestrator, the artifact exporter, and the indicator and backtest
// kernels stay logging-free. Records are emitted as JSON through golog.
package logging

import (
	"github.com/evdnx/golog"
)

// Field re-exports golog.Field so callers never import golog directly.
type Field = golog.Field

// Logger is the minimal surface the orchestration layers need. With returns
// a Logger that stamps the given fields onto every record it emits; the
// YOLO loop uses it to bind its strategy name to every record without
// threading identifiers through every call site.
type Logger interface {
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

// sink is the subset of golog.Logger the runLogger writes through. Kept as
// an interface so the binding logic is testable without a real encoder.
type sink interface {
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// runLogger writes through a sink, prepending its bound run-context fields
// to every record.
type runLogger struct {
	out   sink
	bound []Field
}

// New creates the production logger: JSON records to stdout at the given
// level ("debug", "info", "warn", "error"; anything else means info).
func New(level string) (Logger, error) {
	lv := golog.InfoLevel
	switch level {
	case "debug":
		lv = golog.DebugLevel
	case "warn":
		lv = golog.WarnLevel
	case "error":
		lv = golog.ErrorLevel
	}
	inner, err := golog.NewLogger(
		golog.WithStdOutProvider(golog.JSONEncoder),
		golog.WithLevel(lv),
	)
	if err != nil {
		return nil, err
	}
	return &runLogger{out: inner}, nil
}

func (l *runLogger) merge(fields []Field) []Field {
	if len(l.bound) == 0 {
		return fields
	}
	merged := make([]Field, 0, len(l.bound)+len(fields))
	merged = append(merged, l.bound...)
	return append(merged, fields...)
}

func (l *runLogger) Info(msg string, fields ...Field)  { l.out.Info(msg, l.merge(fields)...) }
func (l *runLogger) Warn(msg string, fields ...Field)  { l.out.Warn(msg, l.merge(fields)...) }
func (l *runLogger) Error(msg string, fields ...Field) { l.out.Error(msg, l.merge(fields)...) }

func (l *runLogger) With(fields ...Field) Logger {
	return &runLogger{out: l.out, bound: l.merge(fields)}
}

// Field constructors for the identifiers this codebase logs most. Naming
// them once keeps the JSON keys consistent across every call site.
func Symbol(v string) Field      { return golog.String("symbol", v) }
func Strategy(v string) Field    { return golog.String("strategy", v) }
func Config(id string) Field     { return golog.String("config_id", id) }
func Iteration(n int) Field      { return golog.Int("iteration", n) }
func Path(p string) Field        { return golog.String("path", p) }
func Count(key string, n int) Field { return golog.Int(key, n) }
func String(key, v string) Field { return golog.String(key, v) }
func Err(err error) Field        { return golog.Err(err) }

// Noop discards everything; kernel tests and callers that do not care about
// logs use it instead of wiring golog.
type Noop struct{}

func (Noop) Info(string, ...Field)  {}
func (Noop) Warn(string, ...Field)  {}
func (Noop) Error(string, ...Field) {}
func (Noop) With(...Field) Logger   { return Noop{} }
