package search

import "log/slog"

// Option configures an Engine at construction.
type Option func(*Engine)

// WithConfig overrides the engine's chunking/timeout configuration.
func WithConfig(cfg EngineConfig) Option {
	return func(e *Engine) {
		e.config = cfg
	}
}

// WithLogger sets the engine's structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}
