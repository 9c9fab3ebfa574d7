package verifier

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// EndpointHealth is one endpoint's result from a Sweep.
type EndpointHealth struct {
	// Endpoint is the probed URL.
	Endpoint string

	// IP is the address reported, empty on failure.
	IP string

	// Latency is the time the successful request took.
	Latency time.Duration

	// Err records why the endpoint failed, nil on success.
	Err error
}

// Sweep probes every endpoint concurrently, once each, and returns their
// health in configuration order. Unlike Probe it does not short-circuit:
// the point is a complete picture for the check command, not a fast
// answer for the rotation loop.
func (v *Verifier) Sweep(ctx context.Context) []EndpointHealth {
	results := make([]EndpointHealth, len(v.endpoints))

	g, ctx := errgroup.WithContext(ctx)
	for i, endpoint := range v.endpoints {
		g.Go(func() error {
			start := time.Now()
			ip, err := v.fetch(ctx, endpoint)
			results[i] = EndpointHealth{
				Endpoint: endpoint,
				IP:       ip,
				Latency:  time.Since(start),
				Err:      err,
			}
			// Individual endpoint failures are data, not group errors.
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // Goroutines always return nil

	return results
}
