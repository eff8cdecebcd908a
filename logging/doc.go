// Package logging provides a minimal logging interface and adapters.
//
// The Logger interface defines the four levelled methods (Debug, Info, Warn,
// Error) that the engine, the RHS evaluator and the support calculator use.
// Arguments are slog-style alternating keys and values. This package
// includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping a *slog.Logger
//   - AgentLogger with component, agent and custom context attributes
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	agent := engine.New(symbols, func(o *engine.Options) { o.Logger = logger.WithComponent("engine") })
package logging
