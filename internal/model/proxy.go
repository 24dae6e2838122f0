// Package model defines shared types for the shadow proxy.
package model

import (
	"net/http"
	"net/url"
)

// CapturedRequest is an immutable snapshot of an inbound request, taken once
// and replayed to every destination. Only the target URL differs between the
// outbound copies.
type CapturedRequest struct {
	Method   string
	Proto    string // inbound protocol version, e.g. "HTTP/1.1"
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// TargetURL returns the outbound URL for dest: the destination's scheme and
// host, the destination path joined with the inbound path, and the inbound
// query string.
func (r *CapturedRequest) TargetURL(dest *url.URL) *url.URL {
	u := *dest
	u.Path = joinPath(dest.Path, r.Path)
	u.RawPath = ""
	u.RawQuery = r.RawQuery
	u.Fragment = ""
	return &u
}

func joinPath(a, b string) string {
	switch {
	case a == "" || a == "/":
		if b == "" {
			return "/"
		}
		return b
	case b == "" || b == "/":
		return a
	}
	aslash := a[len(a)-1] == '/'
	bslash := b[0] == '/'
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	}
	return a + b
}

// OutcomeKind tags an Outcome.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeUpstreamError
	OutcomeTimedOut
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeUpstreamError:
		return "upstream_error"
	case OutcomeTimedOut:
		return "timeout"
	}
	return "unknown"
}

// Response is a fully buffered upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Outcome is the result of one destination call. Response is set only for
// OutcomeSuccess; Message only for OutcomeUpstreamError and OutcomeTimedOut.
type Outcome struct {
	Destination string
	Kind        OutcomeKind
	Response    *Response
	Message     string
}

// OK reports whether the destination answered.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// Verdict is the diagnostic comparison result of one routed request.
type Verdict int

const (
	VerdictMatch Verdict = iota
	VerdictMismatch
	VerdictInconclusive
)

func (v Verdict) String() string {
	switch v {
	case VerdictMatch:
		return "match"
	case VerdictMismatch:
		return "mismatch"
	case VerdictInconclusive:
		return "inconclusive"
	}
	return "unknown"
}

// Result is what the reconciler hands back to the router: either the
// primary's Response or an Err, plus the Verdict used for observability.
type Result struct {
	Response *Response
	Err      error
	Verdict  Verdict
}
