package storage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Tiliavir/astro-journal/internal/model"
	"github.com/Tiliavir/astro-journal/internal/storage"
)

const user = "alice"

var ctx = context.Background()

func entryAt(id string, t time.Time) model.JournalEntry {
	return model.JournalEntry{
		ID:            id,
		Text:          "notes for " + id,
		CreatedAt:     t,
		PlanetaryDay:  model.Venus,
		PlanetaryHour: model.Mars,
		SunSign:       model.Virgo,
		MoonSign:      model.Aries,
		MoonPhase:     model.Waxing,
		Mood:          model.DefaultMood,
	}
}

func hourEvent(id string, t time.Time) model.ChangeEvent {
	return model.HourChange{
		EventHeader: model.EventHeader{ID: id, Type: model.KindHourChange, CreatedAt: t, Title: "Planetary Hour: Sun Begins"},
		FromPlanet:  model.Mars,
		ToPlanet:    model.Sun,
	}
}

func TestLoadDayNotExist(t *testing.T) {
	s := storage.NewFileStore(t.TempDir())
	day := time.Date(2026, 2, 27, 0, 0, 0, 0, time.Local)
	df, err := s.LoadDay(user, day)
	if err != nil {
		t.Fatalf("LoadDay on missing file: %v", err)
	}
	if df.Date != "2026-02-27" {
		t.Errorf("LoadDay date = %q, want %q", df.Date, "2026-02-27")
	}
	if len(df.Entries) != 0 || len(df.Events) != 0 {
		t.Errorf("LoadDay = %d entries, %d events, want none", len(df.Entries), len(df.Events))
	}
}

func TestPutEntryAndLoadDay(t *testing.T) {
	base := t.TempDir()
	s := storage.NewFileStore(base)
	day := time.Date(2026, 2, 27, 9, 30, 0, 0, time.Local)

	if err := s.PutEntry(ctx, user, entryAt("e1", day)); err != nil {
		t.Fatalf("PutEntry: %v", err)
	}

	if _, err := os.Stat(filepath.Join(base, "users", user, "2026", "02", "27.json")); err != nil {
		t.Fatalf("expected day file: %v", err)
	}

	loaded, err := s.LoadDay(user, day)
	if err != nil {
		t.Fatalf("LoadDay after save: %v", err)
	}
	if len(loaded.Entries) != 1 {
		t.Fatalf("LoadDay entries = %d, want 1", len(loaded.Entries))
	}
	if loaded.Entries[0].SunSign != model.Virgo {
		t.Errorf("LoadDay sunSign = %q, want %q", loaded.Entries[0].SunSign, model.Virgo)
	}
}

func TestLoadDayCorruptFileIsBackedUp(t *testing.T) {
	base := t.TempDir()
	s := storage.NewFileStore(base)
	day := time.Date(2026, 2, 27, 0, 0, 0, 0, time.Local)

	dir := filepath.Join(base, "users", user, "2026", "02")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "27.json")
	if err := os.WriteFile(path, []byte("{bad json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := s.LoadDay(user, day); err == nil {
		t.Fatal("expected error for corrupt JSON, got nil")
	}
	if _, err := os.Stat(path + ".corrupt"); os.IsNotExist(err) {
		t.Error("expected backup file to exist after corrupt JSON")
	}
}

func TestPutEntryReplacesAndMoves(t *testing.T) {
	s := storage.NewFileStore(t.TempDir())
	day := time.Date(2026, 2, 27, 9, 0, 0, 0, time.Local)

	e := entryAt("e1", day)
	if err := s.PutEntry(ctx, user, e); err != nil {
		t.Fatalf("PutEntry (insert): %v", err)
	}

	e.Text = "updated"
	if err := s.PutEntry(ctx, user, e); err != nil {
		t.Fatalf("PutEntry (update): %v", err)
	}
	df, err := s.LoadDay(user, day)
	if err != nil {
		t.Fatal(err)
	}
	if len(df.Entries) != 1 || df.Entries[0].Text != "updated" {
		t.Fatalf("entries after update = %+v", df.Entries)
	}

	// Re-dating the entry moves it to the new day file.
	e.CreatedAt = day.AddDate(0, 0, 2)
	if err := s.PutEntry(ctx, user, e); err != nil {
		t.Fatalf("PutEntry (move): %v", err)
	}
	old, err := s.LoadDay(user, day)
	if err != nil {
		t.Fatal(err)
	}
	if len(old.Entries) != 0 {
		t.Errorf("old day still has %d entries", len(old.Entries))
	}
	got, err := s.FindEntry(ctx, user, "e1")
	if err != nil {
		t.Fatalf("FindEntry: %v", err)
	}
	if !got.CreatedAt.Equal(e.CreatedAt) {
		t.Errorf("createdAt = %v, want %v", got.CreatedAt, e.CreatedAt)
	}
}

func TestFindEntryNotFound(t *testing.T) {
	s := storage.NewFileStore(t.TempDir())
	_, err := s.FindEntry(ctx, user, "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("FindEntry err = %v, want ErrNotFound", err)
	}
}

func TestAppendEventsDeduplicates(t *testing.T) {
	s := storage.NewFileStore(t.TempDir())
	at := time.Date(2026, 2, 27, 14, 0, 0, 0, time.Local)
	evs := []model.ChangeEvent{hourEvent("hourchange-a", at), hourEvent("hourchange-b", at.Add(time.Hour))}

	n, err := s.AppendEvents(ctx, user, evs)
	if err != nil || n != 2 {
		t.Fatalf("AppendEvents = %d, %v; want 2, nil", n, err)
	}
	n, err = s.AppendEvents(ctx, user, append(evs, evs[0]))
	if err != nil || n != 0 {
		t.Fatalf("second AppendEvents = %d, %v; want 0, nil", n, err)
	}

	ids, err := s.EventIDs(ctx, user, at, at)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("EventIDs = %v, want 2 ids", ids)
	}

	df, err := s.LoadDay(user, at)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := df.Events[0].Event.(model.HourChange); !ok {
		t.Errorf("decoded event type = %T, want model.HourChange", df.Events[0].Event)
	}
}

func TestAppendEventsChecksNeighbouringDays(t *testing.T) {
	cest := time.FixedZone("CEST", 2*60*60)
	s := storage.NewFileStoreIn(t.TempDir(), cest)

	// Both markers carry the same UTC date but land in different local day files.
	first := hourEvent("retrograde-2024-08-23", time.Date(2024, 8, 23, 0, 0, 0, 0, cest))
	second := hourEvent("retrograde-2024-08-23", time.Date(2024, 8, 24, 0, 0, 0, 0, cest))

	if n, err := s.AppendEvents(ctx, user, []model.ChangeEvent{first}); err != nil || n != 1 {
		t.Fatalf("AppendEvents = %d, %v; want 1, nil", n, err)
	}
	if n, err := s.AppendEvents(ctx, user, []model.ChangeEvent{second}); err != nil || n != 0 {
		t.Fatalf("AppendEvents on next day = %d, %v; want 0, nil", n, err)
	}

	ids, err := s.EventIDs(ctx, user, first.Header().CreatedAt, second.Header().CreatedAt)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Errorf("EventIDs = %v, want a single id", ids)
	}
}

func TestLoadRangeNewestFirst(t *testing.T) {
	s := storage.NewFileStore(t.TempDir())
	day := time.Date(2026, 3, 1, 8, 0, 0, 0, time.Local)

	for i, id := range []string{"e1", "e2"} {
		if err := s.PutEntry(ctx, user, entryAt(id, day.AddDate(0, 0, i))); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.AppendEvents(ctx, user, []model.ChangeEvent{hourEvent("h1", day.Add(time.Hour))}); err != nil {
		t.Fatal(err)
	}
	// Outside the range.
	if err := s.PutEntry(ctx, user, entryAt("e0", day.AddDate(0, 0, -3))); err != nil {
		t.Fatal(err)
	}

	items, err := s.LoadRange(ctx, user, day, day.AddDate(0, 0, 1).Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, it := range items {
		got = append(got, it.ID())
	}
	want := []string{"e2", "h1", "e1"}
	if len(got) != len(want) {
		t.Fatalf("LoadRange ids = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("LoadRange ids = %v, want %v", got, want)
		}
	}
}

func TestDeleteByID(t *testing.T) {
	s := storage.NewFileStore(t.TempDir())
	day := time.Date(2026, 3, 1, 8, 0, 0, 0, time.Local)
	if err := s.PutEntry(ctx, user, entryAt("e1", day)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AppendEvents(ctx, user, []model.ChangeEvent{hourEvent("h1", day)}); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"h1", "e1"} {
		if err := s.DeleteByID(ctx, user, id); err != nil {
			t.Fatalf("DeleteByID(%s): %v", id, err)
		}
	}
	if err := s.DeleteByID(ctx, user, "e1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
	items, err := s.LoadRange(ctx, user, day, day)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty day, got %d items", len(items))
	}
}

func TestUsersAreIsolated(t *testing.T) {
	s := storage.NewFileStore(t.TempDir())
	day := time.Date(2026, 3, 1, 8, 0, 0, 0, time.Local)
	if err := s.PutEntry(ctx, "alice", entryAt("e1", day)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.FindEntry(ctx, "bob", "e1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("bob sees alice's entry: %v", err)
	}
}

func TestValidateUser(t *testing.T) {
	tests := []struct {
		user string
		ok   bool
	}{
		{"alice", true},
		{"user-42", true},
		{"", false},
		{"  ", false},
		{"..", false},
		{"a/b", false},
	}
	for _, tt := range tests {
		err := storage.ValidateUser(tt.user)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateUser(%q) = %v, want ok=%v", tt.user, err, tt.ok)
		}
	}
}
