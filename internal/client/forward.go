// Package client provides the outbound HTTP client that replays captured
// requests against destinations.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"shadow-proxy-go/internal/config"
	"shadow-proxy-go/internal/model"
)

// Forwarder sends one copy of a captured request to one destination. A single
// Forwarder is shared by all requests; its connection pool is safe for
// concurrent use.
type Forwarder struct {
	httpClient *http.Client
	logger     *slog.Logger
	maxBody    int64
}

// NewForwarder creates a Forwarder with connection pooling. Deadlines are
// applied per call by Forward, not on the client.
func NewForwarder(cfg *config.Config, logger *slog.Logger) *Forwarder {
	transport := &http.Transport{
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		// Bodies are compared byte for byte and returned verbatim.
		DisableCompression: true,
	}

	return &Forwarder{
		httpClient: &http.Client{
			Transport: transport,
			// Redirects are the destination's answer, not something to follow.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:  logger.With("component", "forwarder"),
		maxBody: cfg.Upstream.ResponseMaxBytes,
	}
}

// Forward replays req against dest and returns the classified outcome. It
// never returns an error: failures are OutcomeUpstreamError or
// OutcomeTimedOut.
//
// The call runs on a context detached from ctx's cancellation, bounded only
// by timeout. A caller that goes away does not abort calls already issued.
func (f *Forwarder) Forward(ctx context.Context, dest *url.URL, req *model.CapturedRequest, timeout time.Duration) model.Outcome {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	target := req.TargetURL(dest)
	out := model.Outcome{Destination: dest.String()}

	outReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), bytes.NewReader(req.Body))
	if err != nil {
		return f.failed(ctx, out, fmt.Errorf("build request: %w", err))
	}
	outReq.Header = req.Header.Clone()
	if outReq.Header == nil {
		outReq.Header = make(http.Header)
	}
	if _, ok := outReq.Header["User-Agent"]; !ok {
		// Keep the client from adding its own User-Agent.
		outReq.Header.Set("User-Agent", "")
	}

	f.logger.Debug("forwarding",
		"method", req.Method,
		"proto", req.Proto,
		"url", target.String(),
	)

	resp, err := f.httpClient.Do(outReq)
	if err != nil {
		return f.failed(ctx, out, err)
	}
	defer func() { _ = resp.Body.Close() }()

	reader := io.Reader(resp.Body)
	if f.maxBody > 0 {
		reader = io.LimitReader(resp.Body, f.maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return f.failed(ctx, out, fmt.Errorf("read body: %w", err))
	}
	if f.maxBody > 0 && int64(len(body)) > f.maxBody {
		out.Kind = model.OutcomeUpstreamError
		out.Message = fmt.Sprintf("response body exceeds %d bytes", f.maxBody)
		return out
	}

	out.Kind = model.OutcomeSuccess
	out.Response = &model.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}
	return out
}

func (f *Forwarder) failed(ctx context.Context, out model.Outcome, err error) model.Outcome {
	out.Message = err.Error()
	if isTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		out.Kind = model.OutcomeTimedOut
	} else {
		out.Kind = model.OutcomeUpstreamError
	}
	f.logger.Debug("destination failed",
		"destination", out.Destination,
		"outcome", out.Kind.String(),
		"err", err,
	)
	return out
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
