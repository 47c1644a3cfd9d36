package publishers

import (
	"context"
	"fmt"
)

// Builder creates a Publisher from a config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

// Registry maps publisher types to builders. It is not safe for concurrent
// registration; populate it before building.
type Registry map[string]Builder

// DefaultRegistry knows every built-in publisher type.
func DefaultRegistry() Registry {
	return Registry{
		TypeHTTP: newHTTPPublisher,
		TypeSQS:  newSQSPublisher,
		TypeSNS:  newSNSPublisher,
	}
}

// Build creates the publisher for cfg.
func (r Registry) Build(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	builder, ok := r[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("publisher %q: no builder for type %q", cfg.ID, cfg.Type)
	}
	return builder(ctx, cfg, log)
}

// BuildAll creates a publisher per config, honoring each entry's deliver
// filter. It stops at the first failure.
func (r Registry) BuildAll(ctx context.Context, cfgs []PublisherConfig, log Logger) ([]Publisher, error) {
	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		pub, err := r.Build(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, withDeliverFilter(pub, cfg.Deliver))
	}
	return pubs, nil
}
