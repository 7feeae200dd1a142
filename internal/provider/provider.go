// Package provider supplies planetary snapshots. The local calculator is
// always available; a remote enrichment service can add retrograde data and
// the eight-phase moon vocabulary.
package provider

import (
	"context"
	"time"

	"github.com/Tiliavir/astro-journal/internal/astro"
	"github.com/Tiliavir/astro-journal/internal/model"
)

// Provider computes the snapshot for an instant. locationHint is an opaque
// label copied into the result.
type Provider interface {
	Snapshot(ctx context.Context, t time.Time, locationHint string) (model.PlanetaryInfo, error)
}

// Local is the deterministic calculator.
type Local struct{}

// Snapshot never blocks and ignores ctx.
func (Local) Snapshot(_ context.Context, t time.Time, locationHint string) (model.PlanetaryInfo, error) {
	return astro.Compute(t, locationHint)
}
