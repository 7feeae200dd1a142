// Package session owns the per-user polling loop: it keeps the last known
// snapshot, detects changes against it and persists the resulting events.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Tiliavir/astro-journal/internal/model"
	"github.com/Tiliavir/astro-journal/internal/provider"
	"github.com/Tiliavir/astro-journal/internal/storage"
	"github.com/Tiliavir/astro-journal/internal/timeline"
)

// ErrPollInProgress is returned when Poll is called while another poll has
// not finished.
var ErrPollInProgress = errors.New("poll already in progress")

// Resolver produces snapshots; *provider.Fallback implements it.
type Resolver interface {
	Resolve(ctx context.Context, t time.Time, locationHint string) (provider.Result, error)
}

// Result describes one completed poll.
type Result struct {
	RunID    string
	At       time.Time
	Snapshot model.PlanetaryInfo
	Events   []model.ChangeEvent
	Advisory string
	// Primed is true for the first poll, which only records the snapshot.
	Primed bool
}

// Options configures a Poller.
type Options struct {
	User     string
	Location string
	Interval time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
	// OnPoll, when set, is called after every successful poll.
	OnPoll func(Result)
	Log    zerolog.Logger
}

// Poller serializes polls for one user.
type Poller struct {
	resolver Resolver
	store    storage.Store
	opts     Options

	pollMu sync.Mutex

	mu       sync.RWMutex
	last     *model.PlanetaryInfo
	interval time.Duration
	reset    chan struct{}
}

// New creates a Poller. The previous snapshot starts out empty.
func New(resolver Resolver, store storage.Store, opts Options) *Poller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	opts.Log = opts.Log.With().Str("component", "poller").Str("user", opts.User).Logger()
	return &Poller{
		resolver: resolver,
		store:    store,
		opts:     opts,
		interval: opts.Interval,
		reset:    make(chan struct{}, 1),
	}
}

// Last returns a copy of the last known snapshot.
func (p *Poller) Last() (model.PlanetaryInfo, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return model.PlanetaryInfo{}, false
	}
	info := *p.last
	info.Retrogrades = append([]model.Planet(nil), p.last.Retrogrades...)
	return info, true
}

func (p *Poller) setLast(info model.PlanetaryInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = &info
}

// Interval returns the current polling interval.
func (p *Poller) Interval() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.interval
}

// SetInterval changes the interval of a running loop. The next tick is
// rescheduled from now.
func (p *Poller) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	p.interval = d
	p.mu.Unlock()
	select {
	case p.reset <- struct{}{}:
	default:
	}
}

// Poll computes a fresh snapshot, diffs it against the last one and stores
// new events. The last snapshot is replaced only after the events are stored.
func (p *Poller) Poll(ctx context.Context) (Result, error) {
	if !p.pollMu.TryLock() {
		skippedTotal.Inc()
		return Result{}, ErrPollInProgress
	}
	defer p.pollMu.Unlock()

	start := time.Now()
	defer func() { pollDuration.Observe(time.Since(start).Seconds()) }()

	now := p.opts.Now()
	res := Result{RunID: uuid.NewString(), At: now}
	log := p.opts.Log.With().Str("run_id", res.RunID).Logger()

	snap, err := p.resolver.Resolve(ctx, now, p.opts.Location)
	if err != nil {
		pollsTotal.WithLabelValues("error").Inc()
		return res, fmt.Errorf("computing snapshot: %w", err)
	}
	if snap.Fellback() {
		fallbacksTotal.Inc()
	}
	res.Snapshot = snap.Info
	res.Advisory = snap.Advisory

	prev, ok := p.Last()
	if !ok {
		p.setLast(snap.Info)
		res.Primed = true
		pollsTotal.WithLabelValues("primed").Inc()
		log.Debug().Msg("first snapshot recorded")
		return res, nil
	}

	// IDs are bucketed by UTC date, files by local date; a two-day window
	// covers both.
	ids, err := p.store.EventIDs(ctx, p.opts.User, now.AddDate(0, 0, -1), now)
	if err != nil {
		pollsTotal.WithLabelValues("error").Inc()
		return res, fmt.Errorf("loading event ids: %w", err)
	}

	if _, err := timeline.PhaseChanged(prev.MoonPhase, snap.Info.MoonPhase); errors.Is(err, timeline.ErrStaleComparison) {
		log.Debug().Err(err).Msg("moon phase not compared")
	}

	events := timeline.Detect(prev, snap.Info, now, timeline.NewIDSet(ids...))
	if len(events) > 0 {
		if _, err := p.store.AppendEvents(ctx, p.opts.User, events); err != nil {
			pollsTotal.WithLabelValues("error").Inc()
			return res, fmt.Errorf("storing events: %w", err)
		}
		for _, ev := range events {
			eventsTotal.WithLabelValues(string(ev.Header().Type)).Inc()
			log.Info().Str("event_id", ev.Header().ID).Str("type", string(ev.Header().Type)).Msg("change detected")
		}
	}
	res.Events = events

	p.setLast(snap.Info)
	pollsTotal.WithLabelValues("ok").Inc()
	return res, nil
}

// Run polls immediately and then every Interval until ctx is cancelled.
// Poll errors are logged and do not stop the loop.
func (p *Poller) Run(ctx context.Context) error {
	p.pollOnce(ctx)

	timer := time.NewTimer(p.Interval())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.reset:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(p.Interval())
		case <-timer.C:
			p.pollOnce(ctx)
			timer.Reset(p.Interval())
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	res, err := p.Poll(ctx)
	switch {
	case errors.Is(err, ErrPollInProgress):
		p.opts.Log.Debug().Msg("poll skipped, previous still running")
		return
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		p.opts.Log.Error().Stack().Err(err).Msg("poll failed")
		return
	}
	if p.opts.OnPoll != nil {
		p.opts.OnPoll(res)
	}
}
