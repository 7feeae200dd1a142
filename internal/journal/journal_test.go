package journal_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/astro-journal/internal/journal"
	"github.com/Tiliavir/astro-journal/internal/model"
	"github.com/Tiliavir/astro-journal/internal/provider"
	"github.com/Tiliavir/astro-journal/internal/storage"
)

var now = time.Date(2024, 8, 23, 10, 0, 0, 0, time.Local)

type fixedResolver struct {
	info  model.PlanetaryInfo
	calls int
	hints []string
}

func (f *fixedResolver) Resolve(_ context.Context, _ time.Time, hint string) (provider.Result, error) {
	f.calls++
	f.hints = append(f.hints, hint)
	info := f.info
	info.LocationName = hint
	return provider.Result{Info: info, Source: provider.SourceRemote}, nil
}

func enriched(retro ...model.Planet) model.PlanetaryInfo {
	return model.PlanetaryInfo{
		PlanetaryDay:  model.Venus,
		PlanetaryHour: model.Jupiter,
		SunSign:       model.Virgo,
		MoonSign:      model.Aries,
		MoonPhase:     model.WaningGibbous,
		Retrogrades:   retro,
	}
}

func newService(t *testing.T, r journal.Resolver, opts ...journal.Option) (*journal.Service, storage.Store) {
	t.Helper()
	st := storage.NewFileStore(t.TempDir())
	opts = append([]journal.Option{journal.WithClock(func() time.Time { return now })}, opts...)
	return journal.NewService(st, r, "alice", zerolog.Nop(), opts...), st
}

func TestSaveReusesLastSnapshot(t *testing.T) {
	r := &fixedResolver{info: enriched()}
	last := enriched()
	last.SunSign = model.Leo
	svc, st := newService(t, r, journal.WithLastSnapshot(func() (model.PlanetaryInfo, bool) { return last, true }))

	saved, err := svc.Save(context.Background(), journal.Draft{Text: "  morning pages  ", Hashtags: []string{"#Focus", "focus"}})
	require.NoError(t, err)
	assert.Equal(t, 0, r.calls)
	assert.Equal(t, model.Leo, saved.Entry.SunSign)
	assert.Equal(t, "morning pages", saved.Entry.Text)
	assert.Equal(t, model.DefaultMood, saved.Entry.Mood)
	assert.Equal(t, []string{"focus"}, saved.Entry.Hashtags)
	assert.True(t, now.Equal(saved.Entry.CreatedAt))

	got, err := st.FindEntry(context.Background(), "alice", saved.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Entry.Text, got.Text)
}

func TestSaveWithLocationComputesFreshSnapshot(t *testing.T) {
	r := &fixedResolver{info: enriched()}
	svc, _ := newService(t, r, journal.WithLastSnapshot(func() (model.PlanetaryInfo, bool) { return enriched(), true }))

	saved, err := svc.Save(context.Background(), journal.Draft{Text: "at the coast", Location: "Lisbon"})
	require.NoError(t, err)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, []string{"Lisbon"}, r.hints)
	assert.Equal(t, "Lisbon", saved.Entry.Location)
}

func TestSaveManualDate(t *testing.T) {
	r := &fixedResolver{info: enriched()}
	svc, _ := newService(t, r)

	date := time.Date(2024, 1, 5, 21, 0, 0, 0, time.Local)
	saved, err := svc.Save(context.Background(), journal.Draft{Text: "backfilled", ManualDate: true, Date: date})
	require.NoError(t, err)
	assert.Equal(t, 1, r.calls)
	assert.True(t, date.Equal(saved.Entry.CreatedAt))
}

func TestSaveAddsOneRetrogradeEventPerDay(t *testing.T) {
	r := &fixedResolver{info: enriched(model.Mercury, model.Saturn)}
	svc, st := newService(t, r)

	saved, err := svc.Save(context.Background(), journal.Draft{Text: "first"})
	require.NoError(t, err)
	require.Len(t, saved.Events, 1)
	ev, ok := saved.Events[0].(model.RetrogradeActive)
	require.True(t, ok)
	assert.Equal(t, []model.Planet{model.Mercury, model.Saturn}, ev.Planets)
	assert.Equal(t, []model.Planet{model.Mercury, model.Saturn}, saved.Entry.Retrogrades)

	saved, err = svc.Save(context.Background(), journal.Draft{Text: "second"})
	require.NoError(t, err)
	assert.Empty(t, saved.Events)

	ids, err := st.EventIDs(context.Background(), "alice", now, now)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestSaveRetrogradeAcrossLocalMidnight(t *testing.T) {
	cest := time.FixedZone("CEST", 2*60*60)
	st := storage.NewFileStoreIn(t.TempDir(), cest)
	r := &fixedResolver{info: enriched(model.Mercury)}
	svc := journal.NewService(st, r, "alice", zerolog.Nop(), journal.WithClock(func() time.Time { return now }))

	// 2024-08-24 00:30 CEST is still 2024-08-23 in UTC.
	morning := time.Date(2024, 8, 23, 10, 0, 0, 0, cest)
	pastMidnight := time.Date(2024, 8, 24, 0, 30, 0, 0, cest)

	saved, err := svc.Save(context.Background(), journal.Draft{Text: "morning", ManualDate: true, Date: morning})
	require.NoError(t, err)
	require.Len(t, saved.Events, 1)
	assert.Equal(t, "retrograde-2024-08-23", saved.Events[0].Header().ID)

	saved, err = svc.Save(context.Background(), journal.Draft{Text: "late", ManualDate: true, Date: pastMidnight})
	require.NoError(t, err)
	assert.Empty(t, saved.Events)

	ids, err := st.EventIDs(context.Background(), "alice", morning.AddDate(0, 0, -1), pastMidnight.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"retrograde-2024-08-23"}, ids)
}

func TestSaveValidation(t *testing.T) {
	svc, _ := newService(t, &fixedResolver{info: enriched()})

	_, err := svc.Save(context.Background(), journal.Draft{Text: "   "})
	assert.ErrorIs(t, err, journal.ErrEmptyText)

	_, err = svc.Save(context.Background(), journal.Draft{Text: "x", Mood: "Ecstatic"})
	assert.ErrorIs(t, err, journal.ErrInvalidMood)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	r := &fixedResolver{info: enriched()}
	svc, st := newService(t, r)

	saved, err := svc.Save(ctx, journal.Draft{Text: "draft", Mood: "Tired"})
	require.NoError(t, err)
	calls := r.calls

	// Text-only edits keep the stored snapshot.
	updated, err := svc.Update(ctx, saved.Entry.ID, journal.Draft{Text: "final", Mood: "Proud"})
	require.NoError(t, err)
	assert.Equal(t, calls, r.calls)
	assert.Equal(t, "final", updated.Entry.Text)
	assert.Equal(t, model.Mood("Proud"), updated.Entry.Mood)

	// Moving the entry recomputes it.
	moved := time.Date(2024, 8, 20, 7, 0, 0, 0, time.Local)
	updated, err = svc.Update(ctx, saved.Entry.ID, journal.Draft{Text: "final", ManualDate: true, Date: moved})
	require.NoError(t, err)
	assert.Equal(t, calls+1, r.calls)
	assert.Equal(t, saved.Entry.ID, updated.Entry.ID)

	got, err := st.FindEntry(ctx, "alice", saved.Entry.ID)
	require.NoError(t, err)
	assert.True(t, moved.Equal(got.CreatedAt))

	_, err = svc.Update(ctx, "missing", journal.Draft{Text: "x"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t, &fixedResolver{info: enriched()})

	saved, err := svc.Save(ctx, journal.Draft{Text: "ephemeral"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, saved.Entry.ID))

	_, err = st.FindEntry(ctx, "alice", saved.Entry.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, saved.Entry.ID), storage.ErrNotFound)
}
