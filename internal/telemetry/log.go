// Package telemetry carries the scheduler's observability surfaces: a
// zap logger for invariant-violation and programming-error reporting
// (spec.md §5, §7), and msgpack encoding of the external trace/result
// contract (spec.md §6).
package telemetry

import "go.uber.org/zap"

// NewLogger returns a production zap logger tagged for the simulation
// engine, following the same WithLogger/component-tag convention the
// wider corpus uses for its own service loggers.
func NewLogger() (*zap.Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("component", "sim")), nil
}

// Nop returns a no-op logger, the default before a caller supplies its
// own (mirrors the corpus's zap.NewNop().Sugar() idiom for untested
// call sites).
func Nop() *zap.Logger {
	return zap.NewNop()
}
