package slog

import (
	"log/slog"
	"time"

	"github.com/fwojciec/wikifuse"
)

// Ensure LoggingRegistry implements wikifuse.Registry.
var _ wikifuse.Registry = (*LoggingRegistry)(nil)

// LoggingRegistry wraps a Registry with logging of configuration loads.
type LoggingRegistry struct {
	next   wikifuse.Registry
	logger *slog.Logger
}

// NewLoggingRegistry creates a new LoggingRegistry.
func NewLoggingRegistry(next wikifuse.Registry, logger *slog.Logger) *LoggingRegistry {
	return &LoggingRegistry{next: next, logger: logger}
}

// Load delegates to the wrapped registry and logs the resolved configuration.
func (r *LoggingRegistry) Load(sourceKey string) (cfg *wikifuse.SourceConfig, err error) {
	defer func(begin time.Time) {
		resolved := "(none)"
		var rules int
		if cfg != nil {
			resolved = cfg.Key
			rules = len(cfg.Rules)
		}
		r.logger.Debug("config load",
			"source", sourceKey,
			"resolved", resolved,
			"rules", rules,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return r.next.Load(sourceKey)
}

// ResolveRule delegates to the wrapped registry.
func (r *LoggingRegistry) ResolveRule(sourceKey, field string) (*wikifuse.SelectorRule, error) {
	return r.next.ResolveRule(sourceKey, field)
}

// List delegates to the wrapped registry.
func (r *LoggingRegistry) List() ([]string, error) {
	return r.next.List()
}
