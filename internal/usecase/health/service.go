// Package health runs named component probes concurrently and aggregates the outcome.
package health

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// DefaultTimeout bounds each probe.
const DefaultTimeout = 5 * time.Second

// Component is one probe outcome: "status", an "error" message on failure, plus the probe's fields.
type Component map[string]any

// Result returns the component's check result.
func (c Component) Result() CheckResult {
	r, _ := c["status"].(CheckResult)
	return r
}

// Report aggregates health check results.
type Report struct {
	Status     Status
	Components map[string]Component
}

// MarshalJSON renders components as top-level keys next to "status".
func (r Report) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Components)+1)
	for name, c := range r.Components {
		out[name] = c
	}
	out["status"] = r.Status
	return json.Marshal(out)
}

type namedProbe struct {
	name  string
	probe Probe
}

// Service coordinates health checks.
type Service struct {
	probes  []namedProbe
	timeout time.Duration
}

// New creates a Service with no probes.
func New() *Service {
	return &Service{timeout: DefaultTimeout}
}

// WithProbe registers a probe under name. A nil probe is ignored.
func (s *Service) WithProbe(name string, p Probe) *Service {
	if p != nil {
		s.probes = append(s.probes, namedProbe{name: name, probe: p})
	}
	return s
}

// WithTimeout sets the per-probe timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs every probe concurrently. A failing probe never fails the whole check.
func (s *Service) Check(ctx context.Context) Report {
	results := make([]Component, len(s.probes))

	var g errgroup.Group
	for i, np := range s.probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			results[i] = run(pctx, np.probe)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Components: make(map[string]Component, len(s.probes))}
	failed := 0
	for i, np := range s.probes {
		report.Components[np.name] = results[i]
		if results[i].Result() == CheckError {
			failed++
		}
	}

	switch {
	case failed == 0:
		report.Status = Healthy
	case failed == len(s.probes):
		report.Status = Unhealthy
	default:
		report.Status = Degraded
	}
	return report
}

func run(ctx context.Context, p Probe) (c Component) {
	defer func() {
		if r := recover(); r != nil {
			c = Component{"status": CheckError, "error": "probe panicked"}
		}
	}()

	fields, err := p(ctx)
	if err != nil {
		return Component{"status": CheckError, "error": err.Error()}
	}
	c = make(Component, len(fields)+1)
	for k, v := range fields {
		c[k] = v
	}
	c["status"] = CheckOK
	return c
}
