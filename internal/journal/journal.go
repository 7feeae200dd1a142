// Package journal writes, edits and deletes journal entries, stamping each
// with the planetary snapshot of its moment.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tiliavir/astro-journal/internal/model"
	"github.com/Tiliavir/astro-journal/internal/provider"
	"github.com/Tiliavir/astro-journal/internal/search"
	"github.com/Tiliavir/astro-journal/internal/storage"
	"github.com/Tiliavir/astro-journal/internal/timecalc"
	"github.com/Tiliavir/astro-journal/internal/timeline"
)

// Draft validation errors.
var (
	ErrEmptyText   = errors.New("entry text is empty")
	ErrInvalidMood = errors.New("invalid mood")
)

// Resolver produces snapshots; *provider.Fallback implements it.
type Resolver interface {
	Resolve(ctx context.Context, t time.Time, locationHint string) (provider.Result, error)
}

// Draft is user input for a new or edited entry.
type Draft struct {
	Text string
	Mood model.Mood
	// Date is used only when ManualDate is set; otherwise the entry is
	// written "now".
	Date       time.Time
	ManualDate bool
	Location   string
	Coords     *model.Coords
	Hashtags   []string
	Images     []string
	Videos     []string
}

// Saved is the outcome of Save or Update.
type Saved struct {
	Entry    model.JournalEntry
	Events   []model.ChangeEvent
	Advisory string
}

// Service applies drafts to a user's journal.
type Service struct {
	store    storage.Store
	resolver Resolver
	user     string
	// last returns the most recent polled snapshot, if any.
	last func() (model.PlanetaryInfo, bool)
	now  func() time.Time
	log  zerolog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithLastSnapshot lets Save reuse the polled snapshot for entries written
// "now" without a location.
func WithLastSnapshot(fn func() (model.PlanetaryInfo, bool)) Option {
	return func(s *Service) { s.last = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service for user.
func NewService(store storage.Store, resolver Resolver, user string, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		resolver: resolver,
		user:     user,
		last:     func() (model.PlanetaryInfo, bool) { return model.PlanetaryInfo{}, false },
		now:      time.Now,
		log:      log.With().Str("component", "journal").Logger(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func normalizeDraft(d Draft) (Draft, error) {
	d.Text = strings.TrimSpace(d.Text)
	if d.Text == "" {
		return d, ErrEmptyText
	}
	if d.Mood == "" {
		d.Mood = model.DefaultMood
	}
	if _, err := model.ParseMood(string(d.Mood)); err != nil {
		return d, fmt.Errorf("%w: %w", ErrInvalidMood, err)
	}
	d.Location = strings.TrimSpace(d.Location)
	d.Hashtags = search.NormalizeHashtags(d.Hashtags)
	return d, nil
}

// Save writes a new entry. Entries written "now" without a location reuse the
// last polled snapshot when one exists; all others get a fresh snapshot for
// their own moment and location. A retrograde marker is added for the entry's
// date when the snapshot lists retrograde planets.
func (s *Service) Save(ctx context.Context, d Draft) (Saved, error) {
	d, err := normalizeDraft(d)
	if err != nil {
		return Saved{}, err
	}

	createdAt := s.now()
	if d.ManualDate && !d.Date.IsZero() {
		createdAt = d.Date
	}

	var out Saved
	info, ok := s.last()
	if d.ManualDate || d.Location != "" || !ok {
		res, err := s.resolver.Resolve(ctx, createdAt, d.Location)
		if err != nil {
			return Saved{}, fmt.Errorf("computing snapshot: %w", err)
		}
		info, out.Advisory = res.Info, res.Advisory
	}

	e := model.JournalEntry{
		ID:        timecalc.GenerateID(createdAt),
		Text:      d.Text,
		CreatedAt: createdAt,
		Mood:      d.Mood,
		Images:    d.Images,
		Videos:    d.Videos,
		Hashtags:  d.Hashtags,
		Location:  firstNonEmpty(d.Location, info.LocationName),
		Coords:    d.Coords,
	}
	e.Stamp(info)

	if err := s.store.PutEntry(ctx, s.user, e); err != nil {
		return Saved{}, fmt.Errorf("saving entry: %w", err)
	}
	out.Entry = e

	events, err := s.markRetrograde(ctx, createdAt, info)
	if err != nil {
		return out, err
	}
	out.Events = events
	s.log.Info().Str("entry_id", e.ID).Int("events", len(events)).Msg("entry saved")
	return out, nil
}

// Update rewrites entry id from d. The snapshot is recomputed when the date
// or location changes.
func (s *Service) Update(ctx context.Context, id string, d Draft) (Saved, error) {
	d, err := normalizeDraft(d)
	if err != nil {
		return Saved{}, err
	}
	old, err := s.store.FindEntry(ctx, s.user, id)
	if err != nil {
		return Saved{}, err
	}

	createdAt := old.CreatedAt
	if d.ManualDate && !d.Date.IsZero() {
		createdAt = d.Date
	}

	e := old
	e.Text = d.Text
	e.Mood = d.Mood
	e.Hashtags = d.Hashtags
	e.Images = d.Images
	e.Videos = d.Videos
	e.Coords = d.Coords
	e.CreatedAt = createdAt

	var out Saved
	if !createdAt.Equal(old.CreatedAt) || d.Location != old.Location {
		res, err := s.resolver.Resolve(ctx, createdAt, d.Location)
		if err != nil {
			return Saved{}, fmt.Errorf("computing snapshot: %w", err)
		}
		e.Stamp(res.Info)
		e.Location = firstNonEmpty(d.Location, res.Info.LocationName)
		out.Advisory = res.Advisory

		events, err := s.markRetrograde(ctx, createdAt, res.Info)
		if err != nil {
			return Saved{}, err
		}
		out.Events = events
	}

	if err := s.store.PutEntry(ctx, s.user, e); err != nil {
		return Saved{}, fmt.Errorf("saving entry: %w", err)
	}
	out.Entry = e
	return out, nil
}

// Delete removes an entry or event by ID.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteByID(ctx, s.user, id); err != nil {
		return err
	}
	s.log.Info().Str("id", id).Msg("deleted")
	return nil
}

func (s *Service) markRetrograde(ctx context.Context, at time.Time, info model.PlanetaryInfo) ([]model.ChangeEvent, error) {
	if len(info.Retrogrades) == 0 {
		return nil, nil
	}
	// The ID carries the UTC date and the event sits at local midnight, so
	// the same ID can live in the neighbouring day.
	ids, err := s.store.EventIDs(ctx, s.user, at.AddDate(0, 0, -1), at.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("loading event ids: %w", err)
	}
	ev, ok := timeline.Retrograde(at, info, timeline.NewIDSet(ids...))
	if !ok {
		return nil, nil
	}
	events := []model.ChangeEvent{ev}
	if _, err := s.store.AppendEvents(ctx, s.user, events); err != nil {
		return nil, fmt.Errorf("saving retrograde event: %w", err)
	}
	return events, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
