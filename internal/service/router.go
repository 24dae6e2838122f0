// Package service implements the shadowing core: destination resolution,
// concurrent dispatch and reconciliation of destination outcomes.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"shadow-proxy-go/internal/config"
	"shadow-proxy-go/internal/model"
)

// Resolver maps an inbound path to its ordered destinations.
type Resolver interface {
	Resolve(path string) ([]*url.URL, error)
}

// Router is the entry point used by the transport: it resolves, dispatches
// and reconciles one inbound request.
type Router struct {
	resolver   Resolver
	dispatcher *Dispatcher
	reconciler *Reconciler
	timeout    time.Duration
	logger     *slog.Logger
}

// NewRouter creates a Router.
func NewRouter(res Resolver, d *Dispatcher, rc *Reconciler, cfg *config.Config, logger *slog.Logger) *Router {
	return &Router{
		resolver:   res,
		dispatcher: d,
		reconciler: rc,
		timeout:    cfg.Upstream.Timeout(),
		logger:     logger.With("component", "router"),
	}
}

// Timeout returns the per-destination call timeout.
func (r *Router) Timeout() time.Duration {
	return r.timeout
}

// Capture buffers the inbound request into an immutable snapshot. The
// inbound body is fully consumed.
func Capture(req *http.Request) (*model.CapturedRequest, error) {
	var body []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: read body: %w", ErrCapture, err)
		}
		body = b
	}

	return &model.CapturedRequest{
		Method:   req.Method,
		Proto:    req.Proto,
		Path:     req.URL.Path,
		RawQuery: req.URL.RawQuery,
		Header:   req.Header.Clone(),
		Body:     body,
	}, nil
}

// Route resolves the inbound path, replays the request to every destination
// and returns the primary's response. It fails with ErrRouteNotFound before
// any outbound call when the path has no route, and with a *PrimaryError when
// the primary destination fails.
func (r *Router) Route(ctx context.Context, inbound *http.Request) (*model.Response, error) {
	dests, err := r.resolver.Resolve(inbound.URL.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, inbound.URL.Path)
	}

	req, err := Capture(inbound)
	if err != nil {
		return nil, err
	}

	return r.RouteCaptured(ctx, dests, req)
}

// RouteCaptured dispatches an already captured request to dests.
func (r *Router) RouteCaptured(ctx context.Context, dests []*url.URL, req *model.CapturedRequest) (*model.Response, error) {
	outcomes := r.dispatcher.Dispatch(ctx, dests, req, r.timeout)
	res := r.reconciler.Reconcile(req, outcomes)

	r.logger.Debug("routed",
		"method", req.Method,
		"path", req.Path,
		"destinations", len(dests),
		"verdict", res.Verdict.String(),
	)

	if res.Err != nil {
		return nil, res.Err
	}
	return res.Response, nil
}
