// Package sqlite implements storage.Store on a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Tiliavir/astro-journal/internal/model"
	"github.com/Tiliavir/astro-journal/internal/storage"
	"github.com/Tiliavir/astro-journal/internal/timecalc"
)

// Store keeps entries and events as JSON bodies keyed by (user, id).
// Timestamps are stored as Unix nanoseconds for range queries.
type Store struct {
	db  *sql.DB
	loc *time.Location
}

var _ storage.Store = (*Store)(nil)

// Open opens (or creates) the database at path in WAL mode and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("sqlite: create directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}

	// SQLite has a single writer; one pooled connection avoids SQLITE_BUSY
	// between connections that would each need their own PRAGMA setup.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, loc: time.Local}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutEntry upserts the entry.
func (s *Store) PutEntry(ctx context.Context, user string, e model.JournalEntry) error {
	if err := storage.ValidateUser(user); err != nil {
		return err
	}
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("sqlite: marshal entry %s: %w", e.ID, err)
	}
	const q = `
		INSERT INTO entries (user_id, id, created_at, body)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET created_at = excluded.created_at, body = excluded.body`
	if _, err := s.db.ExecContext(ctx, q, user, e.ID, e.CreatedAt.UnixNano(), string(body)); err != nil {
		return fmt.Errorf("sqlite: put entry %s: %w", e.ID, err)
	}
	return nil
}

// FindEntry loads one entry.
func (s *Store) FindEntry(ctx context.Context, user, id string) (model.JournalEntry, error) {
	if err := storage.ValidateUser(user); err != nil {
		return model.JournalEntry{}, err
	}
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM entries WHERE user_id = ? AND id = ?`, user, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.JournalEntry{}, fmt.Errorf("entry %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return model.JournalEntry{}, fmt.Errorf("sqlite: find entry %s: %w", id, err)
	}
	var e model.JournalEntry
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		return model.JournalEntry{}, fmt.Errorf("sqlite: decode entry %s: %w", id, err)
	}
	return e, nil
}

// DeleteByID removes the entry or event with the given ID.
func (s *Store) DeleteByID(ctx context.Context, user, id string) error {
	if err := storage.ValidateUser(user); err != nil {
		return err
	}
	for _, table := range []string{"entries", "events"} {
		res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = ? AND id = ?`, user, id)
		if err != nil {
			return fmt.Errorf("sqlite: delete %s from %s: %w", id, table, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}
	}
	return fmt.Errorf("%s: %w", id, storage.ErrNotFound)
}

// AppendEvents inserts events in one transaction, skipping known IDs.
func (s *Store) AppendEvents(ctx context.Context, user string, events []model.ChangeEvent) (int, error) {
	if err := storage.ValidateUser(user); err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const q = `
		INSERT INTO events (user_id, id, type, created_at, body)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO NOTHING`
	inserted := 0
	for _, ev := range events {
		h := ev.Header()
		body, err := json.Marshal(model.EventRecord{Event: ev})
		if err != nil {
			return 0, fmt.Errorf("sqlite: marshal event %s: %w", h.ID, err)
		}
		res, err := tx.ExecContext(ctx, q, user, h.ID, string(h.Type), h.CreatedAt.UnixNano(), string(body))
		if err != nil {
			return 0, fmt.Errorf("sqlite: insert event %s: %w", h.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit events: %w", err)
	}
	return inserted, nil
}

// LoadRange loads entries and events created in [from, to], newest first.
func (s *Store) LoadRange(ctx context.Context, user string, from, to time.Time) ([]model.TimelineItem, error) {
	if err := storage.ValidateUser(user); err != nil {
		return nil, err
	}
	var items []model.TimelineItem

	err := s.eachBody(ctx, `SELECT body FROM entries WHERE user_id = ? AND created_at BETWEEN ? AND ? ORDER BY seq`,
		func(body []byte) error {
			var e model.JournalEntry
			if err := json.Unmarshal(body, &e); err != nil {
				return err
			}
			items = append(items, model.TimelineItem{Entry: &e})
			return nil
		}, user, from.UnixNano(), to.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("sqlite: load entries: %w", err)
	}

	err = s.eachBody(ctx, `SELECT body FROM events WHERE user_id = ? AND created_at BETWEEN ? AND ? ORDER BY seq`,
		func(body []byte) error {
			ev, err := model.DecodeEvent(body)
			if err != nil {
				return err
			}
			items = append(items, model.TimelineItem{Event: ev})
			return nil
		}, user, from.UnixNano(), to.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("sqlite: load events: %w", err)
	}

	model.SortTimeline(items)
	return items, nil
}

// EventIDs returns the IDs of events created on the local days spanned by
// [from, to].
func (s *Store) EventIDs(ctx context.Context, user string, from, to time.Time) ([]string, error) {
	if err := storage.ValidateUser(user); err != nil {
		return nil, err
	}
	lo := timecalc.StartOfDay(from.In(s.loc))
	hi := timecalc.StartOfDay(to.In(s.loc)).AddDate(0, 0, 1)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM events WHERE user_id = ? AND created_at >= ? AND created_at < ? ORDER BY seq`,
		user, lo.UnixNano(), hi.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("sqlite: event ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scan event id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) eachBody(ctx context.Context, q string, fn func([]byte) error, args ...any) error {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return err
		}
		if err := fn([]byte(body)); err != nil {
			return err
		}
	}
	return rows.Err()
}
