package health

import "context"

// Pinger checks store availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// Probe returns a lightweight count/health snapshot of one component.
type Probe func(ctx context.Context) (map[string]any, error)

// PingProbe adapts a Pinger.
func PingProbe(p Pinger) Probe {
	return func(ctx context.Context) (map[string]any, error) {
		return nil, p.Ping(ctx)
	}
}

// EmbeddingProbe adapts an EmbeddingChecker.
func EmbeddingProbe(c EmbeddingChecker) Probe {
	return func(ctx context.Context) (map[string]any, error) {
		return nil, c.HealthCheck(ctx)
	}
}
