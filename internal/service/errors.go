package service

import (
	"errors"
	"fmt"

	"shadow-proxy-go/internal/model"
)

// Caller-visible routing failures. Shadow failures and mismatches are never
// returned; they are only logged and counted.
var (
	ErrRouteNotFound   = errors.New("no route configured for path")
	ErrPrimaryUpstream = errors.New("primary destination failed")
	ErrPrimaryTimeout  = errors.New("primary destination timed out")
	ErrCapture         = errors.New("capture inbound request")
)

// PrimaryError reports a failed primary destination. It unwraps to
// ErrPrimaryTimeout or ErrPrimaryUpstream.
type PrimaryError struct {
	Destination string
	Kind        model.OutcomeKind
	Message     string
}

func (e *PrimaryError) Error() string {
	return fmt.Sprintf("primary %s: %s: %s", e.Destination, e.Kind, e.Message)
}

func (e *PrimaryError) Unwrap() error {
	if e.Kind == model.OutcomeTimedOut {
		return ErrPrimaryTimeout
	}
	return ErrPrimaryUpstream
}
