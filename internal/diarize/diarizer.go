package diarize

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/user/meeting-scribe/internal/observability/metrics"
)

// availabilityChecker is implemented by engines that can probe their
// backend before a call is attempted.
type availabilityChecker interface {
	IsAvailable(ctx context.Context) bool
}

// Diarizer runs a primary diarization engine with a heuristic fallback.
// Callers receive the same output shape from either path; fallback turns
// simply carry lower confidence. Raw engine output is normalized: sorted by
// start time with turns shorter than the minimum duration discarded.
type Diarizer struct {
	primary        Engine
	fallback       Engine
	minTurnSeconds float64
	metrics        *metrics.Metrics
}

// NewDiarizer wires a primary engine (may be nil) and a fallback.
func NewDiarizer(primary, fallback Engine, minTurnSeconds float64, m *metrics.Metrics) *Diarizer {
	if minTurnSeconds == 0 {
		minTurnSeconds = 0.5
	}
	return &Diarizer{
		primary:        primary,
		fallback:       fallback,
		minTurnSeconds: minTurnSeconds,
		metrics:        m,
	}
}

// Diarize computes speaker turns for a saved recording, degrading to the
// fallback engine when the primary is missing, unreachable, or fails.
func (d *Diarizer) Diarize(ctx context.Context, wavPath string) ([]Turn, error) {
	if d.primary != nil && d.available(ctx) {
		turns, err := d.primary.Diarize(ctx, wavPath)
		d.metrics.RecordDiarization("primary", err)
		if err == nil {
			return sortAndFilter(turns, d.minTurnSeconds), nil
		}
		log.Warn().Err(err).Msg("Primary diarization failed, using fallback")
	}

	if d.fallback == nil {
		return nil, fmt.Errorf("no diarization engine available")
	}

	turns, err := d.fallback.Diarize(ctx, wavPath)
	d.metrics.RecordDiarization("fallback", err)
	if err != nil {
		return nil, fmt.Errorf("fallback diarization failed: %w", err)
	}
	return sortAndFilter(turns, d.minTurnSeconds), nil
}

func (d *Diarizer) available(ctx context.Context) bool {
	if checker, ok := d.primary.(availabilityChecker); ok {
		return checker.IsAvailable(ctx)
	}
	return true
}
