package service

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"shadow-proxy-go/internal/metrics"
	"shadow-proxy-go/internal/model"
)

// Forwarder sends one captured request to one destination.
type Forwarder interface {
	Forward(ctx context.Context, dest *url.URL, req *model.CapturedRequest, timeout time.Duration) model.Outcome
}

// Dispatcher fans a captured request out to every destination at once and
// waits for all of them.
type Dispatcher struct {
	fwd     Forwarder
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher. The metrics parameter is optional; pass
// nil to disable destination metrics.
func NewDispatcher(fwd Forwarder, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		fwd:     fwd,
		metrics: m,
		logger:  logger.With("component", "dispatcher"),
	}
}

// Dispatch forwards req to every destination concurrently, each call bounded
// by its own timeout, and returns once all calls have finished. outcomes[i]
// always belongs to dests[i], whatever order the calls complete in.
func (d *Dispatcher) Dispatch(ctx context.Context, dests []*url.URL, req *model.CapturedRequest, timeout time.Duration) []model.Outcome {
	outcomes := make([]model.Outcome, len(dests))

	var g errgroup.Group
	for i, dest := range dests {
		g.Go(func() error {
			start := time.Now()
			outcomes[i] = d.fwd.Forward(ctx, dest, req, timeout)
			d.observe(i, outcomes[i], time.Since(start))
			return nil
		})
	}
	_ = g.Wait() // Forward never fails; outcomes carry the errors.

	d.logger.Debug("dispatch complete",
		"path", req.Path,
		"destinations", len(dests),
	)
	return outcomes
}

func (d *Dispatcher) observe(i int, out model.Outcome, elapsed time.Duration) {
	if d.metrics == nil {
		return
	}
	role := metrics.Role(i)
	d.metrics.DestinationDuration.WithLabelValues(role).Observe(elapsed.Seconds())
	d.metrics.DestinationOutcomes.WithLabelValues(role, out.Kind.String()).Inc()
}
