package provider

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tiliavir/astro-journal/internal/model"
)

// Sources reported in Result.
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// Result is a snapshot together with where it came from.
type Result struct {
	Info   model.PlanetaryInfo
	Source string
	// Advisory is a short user-facing notice set when enrichment failed.
	Advisory string
}

// Fellback reports whether the primary provider failed.
func (r Result) Fellback() bool { return r.Advisory != "" }

// Fallback tries Primary under Timeout and falls back to Secondary on any
// failure. A nil Primary means local-only operation; a nil Secondary means
// the deterministic calculator.
type Fallback struct {
	Primary   Provider
	Secondary Provider
	Timeout   time.Duration
	Log       zerolog.Logger
}

// Resolve returns a snapshot for t. It fails only when the secondary
// provider fails.
func (f *Fallback) Resolve(ctx context.Context, t time.Time, locationHint string) (Result, error) {
	var advisory string
	if f.Primary != nil {
		pctx := ctx
		if f.Timeout > 0 {
			var cancel context.CancelFunc
			pctx, cancel = context.WithTimeout(ctx, f.Timeout)
			defer cancel()
		}
		info, err := f.Primary.Snapshot(pctx, t, locationHint)
		if err == nil {
			return Result{Info: info, Source: SourceRemote}, nil
		}
		f.Log.Warn().Err(err).Msg("enrichment failed, using local calculator")
		advisory = Advisory(err)
	}

	secondary := f.Secondary
	if secondary == nil {
		secondary = Local{}
	}
	info, err := secondary.Snapshot(ctx, t, locationHint)
	if err != nil {
		return Result{}, err
	}
	return Result{Info: info, Source: SourceLocal, Advisory: advisory}, nil
}

// Snapshot implements Provider.
func (f *Fallback) Snapshot(ctx context.Context, t time.Time, locationHint string) (model.PlanetaryInfo, error) {
	res, err := f.Resolve(ctx, t, locationHint)
	return res.Info, err
}

// Advisory turns an enrichment failure into a notice for the user.
func Advisory(err error) string {
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		return "Enrichment quota exceeded; showing locally calculated positions."
	case errors.Is(err, context.DeadlineExceeded):
		return "Enrichment timed out; showing locally calculated positions."
	default:
		return "Enrichment unavailable; showing locally calculated positions."
	}
}
