package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Tiliavir/astro-journal/internal/model"
	"github.com/Tiliavir/astro-journal/internal/timecalc"
)

// ErrNotFound is returned when no entry or event has the requested ID.
var ErrNotFound = errors.New("not found")

// Store persists journal entries and change events per user. Event IDs are
// natural keys: AppendEvents skips events whose ID is already stored.
type Store interface {
	PutEntry(ctx context.Context, user string, e model.JournalEntry) error
	FindEntry(ctx context.Context, user, id string) (model.JournalEntry, error)
	DeleteByID(ctx context.Context, user, id string) error
	AppendEvents(ctx context.Context, user string, events []model.ChangeEvent) (int, error)
	// LoadRange returns entries and events created in [from, to], newest first.
	LoadRange(ctx context.Context, user string, from, to time.Time) ([]model.TimelineItem, error)
	EventIDs(ctx context.Context, user string, from, to time.Time) ([]string, error)
	Close() error
}

// ValidateUser rejects user IDs that are empty or would escape the data
// directory.
func ValidateUser(user string) error {
	if strings.TrimSpace(user) == "" {
		return fmt.Errorf("user id is empty")
	}
	if strings.ContainsAny(user, `/\`) || user == "." || user == ".." {
		return fmt.Errorf("invalid user id %q", user)
	}
	return nil
}

// FileStore keeps one JSON file per user and calendar day at
// <base>/users/<user>/YYYY/MM/DD.json.
type FileStore struct {
	base string
	loc  *time.Location
	mu   sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store rooted at base. Days are bucketed in local time.
func NewFileStore(base string) *FileStore {
	return NewFileStoreIn(base, time.Local)
}

// NewFileStoreIn is NewFileStore with days bucketed in loc.
func NewFileStoreIn(base string, loc *time.Location) *FileStore {
	return &FileStore{base: base, loc: loc}
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) userDir(user string) (string, error) {
	if err := ValidateUser(user); err != nil {
		return "", err
	}
	return filepath.Join(s.base, "users", user), nil
}

// dayFilePath returns the path for the given date's JSON file.
func (s *FileStore) dayFilePath(dir string, t time.Time) string {
	t = t.In(s.loc)
	return filepath.Join(dir, t.Format("2006"), t.Format("01"), t.Format("02")+".json")
}

// loadDay loads a day file. A missing file yields an empty DayFile.
func loadDay(path, date string) (model.DayFile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return model.DayFile{Date: date, Entries: []model.JournalEntry{}, Events: []model.EventRecord{}}, nil
	}
	if err != nil {
		return model.DayFile{}, fmt.Errorf("storage error reading %s: %w", path, err)
	}

	var df model.DayFile
	if err := json.Unmarshal(data, &df); err != nil {
		// Back up corrupt file and abort.
		backupPath := path + ".corrupt"
		_ = os.Rename(path, backupPath)
		return model.DayFile{}, fmt.Errorf("corrupt JSON in %s (backed up to %s): %w", path, backupPath, err)
	}
	if df.Entries == nil {
		df.Entries = []model.JournalEntry{}
	}
	if df.Events == nil {
		df.Events = []model.EventRecord{}
	}
	return df, nil
}

// saveDay atomically writes a day file. An empty day removes the file.
func saveDay(path string, df model.DayFile) error {
	if len(df.Entries) == 0 && len(df.Events) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("storage error removing %s: %w", path, err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("storage error creating directories: %w", err)
	}

	data, err := json.MarshalIndent(df, "", "  ")
	if err != nil {
		return fmt.Errorf("storage error marshalling JSON: %w", err)
	}

	// Atomic write: write to temp file then rename.
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error renaming temp file: %w", err)
	}
	return nil
}

// LoadDay returns the day file holding records created on the local date of t.
func (s *FileStore) LoadDay(user string, t time.Time) (model.DayFile, error) {
	dir, err := s.userDir(user)
	if err != nil {
		return model.DayFile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return loadDay(s.dayFilePath(dir, t), t.In(s.loc).Format("2006-01-02"))
}

// walkDays calls fn for every day file of dir until fn returns true.
func walkDays(dir string, fn func(path string, df model.DayFile) (bool, error)) error {
	stop := errors.New("stop")
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		df, err := loadDay(path, "")
		if err != nil {
			return err
		}
		done, err := fn(path, df)
		if err != nil {
			return err
		}
		if done {
			return stop
		}
		return nil
	})
	if errors.Is(err, stop) {
		return nil
	}
	return err
}

// PutEntry inserts or replaces the entry with e.ID. An entry whose CreatedAt
// moved to another day is removed from its old file.
func (s *FileStore) PutEntry(_ context.Context, user string, e model.JournalEntry) error {
	dir, err := s.userDir(user)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.dayFilePath(dir, e.CreatedAt)
	err = walkDays(dir, func(path string, df model.DayFile) (bool, error) {
		if path == target {
			return false, nil
		}
		for i, old := range df.Entries {
			if old.ID == e.ID {
				df.Entries = append(df.Entries[:i], df.Entries[i+1:]...)
				return true, saveDay(path, df)
			}
		}
		return false, nil
	})
	if err != nil {
		return err
	}

	df, err := loadDay(target, e.CreatedAt.In(s.loc).Format("2006-01-02"))
	if err != nil {
		return err
	}
	for i, old := range df.Entries {
		if old.ID == e.ID {
			df.Entries[i] = e
			return saveDay(target, df)
		}
	}
	df.Entries = append(df.Entries, e)
	return saveDay(target, df)
}

// FindEntry searches every day file of the user for the entry.
func (s *FileStore) FindEntry(_ context.Context, user, id string) (model.JournalEntry, error) {
	dir, err := s.userDir(user)
	if err != nil {
		return model.JournalEntry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *model.JournalEntry
	err = walkDays(dir, func(_ string, df model.DayFile) (bool, error) {
		for i := range df.Entries {
			if df.Entries[i].ID == id {
				found = &df.Entries[i]
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return model.JournalEntry{}, err
	}
	if found == nil {
		return model.JournalEntry{}, fmt.Errorf("entry %s: %w", id, ErrNotFound)
	}
	return *found, nil
}

// DeleteByID removes the entry or event with the given ID.
func (s *FileStore) DeleteByID(_ context.Context, user, id string) error {
	dir, err := s.userDir(user)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := false
	err = walkDays(dir, func(path string, df model.DayFile) (bool, error) {
		for i, e := range df.Entries {
			if e.ID == id {
				df.Entries = append(df.Entries[:i], df.Entries[i+1:]...)
				deleted = true
				return true, saveDay(path, df)
			}
		}
		for i, r := range df.Events {
			if r.Event != nil && r.Event.Header().ID == id {
				df.Events = append(df.Events[:i], df.Events[i+1:]...)
				deleted = true
				return true, saveDay(path, df)
			}
		}
		return false, nil
	})
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

// AppendEvents stores events whose ID is not yet present and returns how many
// were written. Events are filed by local CreatedAt date while IDs carry the
// UTC date, so the neighbouring day files are checked as well.
func (s *FileStore) AppendEvents(_ context.Context, user string, events []model.ChangeEvent) (int, error) {
	dir, err := s.userDir(user)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	byPath := map[string][]model.ChangeEvent{}
	var order []string
	for _, ev := range events {
		p := s.dayFilePath(dir, ev.Header().CreatedAt)
		if _, ok := byPath[p]; !ok {
			order = append(order, p)
		}
		byPath[p] = append(byPath[p], ev)
	}

	seen := map[string]bool{}
	inserted := 0
	for _, path := range order {
		evs := byPath[path]
		day := evs[0].Header().CreatedAt.In(s.loc)
		df, err := loadDay(path, day.Format("2006-01-02"))
		if err != nil {
			return inserted, err
		}
		markIDs(seen, df)
		for _, offset := range []int{-1, 1} {
			d := day.AddDate(0, 0, offset)
			near, err := loadDay(s.dayFilePath(dir, d), d.Format("2006-01-02"))
			if err != nil {
				return inserted, err
			}
			markIDs(seen, near)
		}
		added := 0
		for _, ev := range evs {
			id := ev.Header().ID
			if seen[id] {
				continue
			}
			seen[id] = true
			df.Events = append(df.Events, model.EventRecord{Event: ev})
			added++
		}
		if added == 0 {
			continue
		}
		if err := saveDay(path, df); err != nil {
			return inserted, err
		}
		inserted += added
	}
	return inserted, nil
}

func markIDs(seen map[string]bool, df model.DayFile) {
	for _, r := range df.Events {
		if r.Event != nil {
			seen[r.Event.Header().ID] = true
		}
	}
}

// rangeDays calls fn with each day file between the local dates of from and to.
func (s *FileStore) rangeDays(user string, from, to time.Time, fn func(df model.DayFile)) error {
	dir, err := s.userDir(user)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	last := timecalc.StartOfDay(to.In(s.loc))
	for d := timecalc.StartOfDay(from.In(s.loc)); !d.After(last); d = d.AddDate(0, 0, 1) {
		df, err := loadDay(s.dayFilePath(dir, d), d.Format("2006-01-02"))
		if err != nil {
			return err
		}
		fn(df)
	}
	return nil
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

// LoadRange loads all entries and events created in [from, to].
func (s *FileStore) LoadRange(_ context.Context, user string, from, to time.Time) ([]model.TimelineItem, error) {
	var items []model.TimelineItem
	err := s.rangeDays(user, from, to, func(df model.DayFile) {
		for i := range df.Entries {
			if within(df.Entries[i].CreatedAt, from, to) {
				items = append(items, model.TimelineItem{Entry: &df.Entries[i]})
			}
		}
		for _, r := range df.Events {
			if r.Event != nil && within(r.Event.Header().CreatedAt, from, to) {
				items = append(items, model.TimelineItem{Event: r.Event})
			}
		}
	})
	if err != nil {
		return nil, err
	}
	model.SortTimeline(items)
	return items, nil
}

// EventIDs returns the IDs of events stored on the days spanned by [from, to].
func (s *FileStore) EventIDs(_ context.Context, user string, from, to time.Time) ([]string, error) {
	var ids []string
	err := s.rangeDays(user, from, to, func(df model.DayFile) {
		for _, r := range df.Events {
			if r.Event != nil {
				ids = append(ids, r.Event.Header().ID)
			}
		}
	})
	return ids, err
}
