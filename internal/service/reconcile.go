package service

import (
	"fmt"
	"log/slog"

	"shadow-proxy-go/internal/config"
	"shadow-proxy-go/internal/metrics"
	"shadow-proxy-go/internal/model"
)

// Reconciler turns the ordered outcomes of one dispatch into the single
// caller-visible result. outcomes[0] is the primary and is authoritative:
// its success is always returned and its failure always fails the request.
// Shadows never change what the caller sees.
type Reconciler struct {
	cmp     Comparator
	diffMax int
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewReconciler creates a Reconciler. The metrics parameter is optional.
func NewReconciler(cmp Comparator, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		cmp:     cmp,
		diffMax: cfg.Compare.DiffMaxBytes,
		metrics: m,
		logger:  logger.With("component", "reconciler"),
	}
}

// Reconcile applies the primary-dominates policy to outcomes.
//
// Verdicts: Match when every shadow answered with an equal body (or there
// are no shadows); Mismatch when any shadow body differs; Inconclusive when
// a shadow failed and none differed, or when the primary failed.
func (r *Reconciler) Reconcile(req *model.CapturedRequest, outcomes []model.Outcome) model.Result {
	log := r.logger.With("method", req.Method, "path", req.Path)

	if len(outcomes) == 0 {
		r.count(model.VerdictInconclusive)
		return model.Result{
			Err:     fmt.Errorf("%w: no destinations", ErrPrimaryUpstream),
			Verdict: model.VerdictInconclusive,
		}
	}

	primary, shadows := outcomes[0], outcomes[1:]

	if !primary.OK() {
		log.Error("primary destination failed",
			"destination", primary.Destination,
			"outcome", primary.Kind.String(),
			"err", primary.Message,
			"shadows", summarize(shadows),
		)
		r.count(model.VerdictInconclusive)
		return model.Result{
			Err: &PrimaryError{
				Destination: primary.Destination,
				Kind:        primary.Kind,
				Message:     primary.Message,
			},
			Verdict: model.VerdictInconclusive,
		}
	}

	verdict := model.VerdictMatch
	for _, s := range shadows {
		if !s.OK() {
			log.Warn("shadow destination failed",
				"destination", s.Destination,
				"outcome", s.Kind.String(),
				"err", s.Message,
			)
			if verdict == model.VerdictMatch {
				verdict = model.VerdictInconclusive
			}
			continue
		}

		if r.cmp.Equal(primary.Response.Body, s.Response.Body) {
			continue
		}
		verdict = model.VerdictMismatch
		log.Warn("shadow response differs from primary",
			"primary", primary.Destination,
			"shadow", s.Destination,
			"primary_status", primary.Response.StatusCode,
			"shadow_status", s.Response.StatusCode,
			"primary_bytes", len(primary.Response.Body),
			"shadow_bytes", len(s.Response.Body),
			"diff", truncate(r.cmp.Diff(primary.Response.Body, s.Response.Body), r.diffMax),
		)
	}

	if verdict == model.VerdictMatch {
		log.Debug("shadow responses match", "shadows", len(shadows))
	}
	r.count(verdict)

	return model.Result{Response: primary.Response, Verdict: verdict}
}

func (r *Reconciler) count(v model.Verdict) {
	if r.metrics != nil {
		r.metrics.Verdicts.WithLabelValues(v.String()).Inc()
	}
}

// summarize renders shadow outcomes for the primary-failure log line.
func summarize(shadows []model.Outcome) []string {
	out := make([]string, 0, len(shadows))
	for _, s := range shadows {
		if s.OK() {
			out = append(out, fmt.Sprintf("%s: %s %d", s.Destination, s.Kind, s.Response.StatusCode))
			continue
		}
		out = append(out, fmt.Sprintf("%s: %s: %s", s.Destination, s.Kind, s.Message))
	}
	return out
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
