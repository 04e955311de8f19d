// Package metrics instruments the engine. The prometheus backend is the
// production choice; the memory backend exists for tests and embedding.
package metrics

import (
	"github.com/artfetch/artfetch/types"
)

// NewMetricsManager builds the configured backend. Disabled metrics yield a
// nil manager; every component treats nil as "do not record".
func NewMetricsManager(logger types.Logger, config *types.MetricsConfig) (types.MetricsManager, error) {
	if config == nil || !config.Enabled {
		return nil, nil
	}

	switch config.Type {
	case "", "prometheus":
		return NewPrometheusMetrics(logger, config)
	case "memory":
		return NewMemoryMetrics(logger), nil
	default:
		return nil, types.Errorf(types.ErrMetricsTypeUnknown, "%s", config.Type)
	}
}
