package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/Tiliavir/astro-journal/internal/api/respond"
	"github.com/Tiliavir/astro-journal/internal/astro"
	"github.com/Tiliavir/astro-journal/internal/journal"
	"github.com/Tiliavir/astro-journal/internal/model"
	"github.com/Tiliavir/astro-journal/internal/search"
	"github.com/Tiliavir/astro-journal/internal/storage"
)

const (
	defaultTimelineDays = 7
	defaultSearchDays   = 365
	maxDays             = 3660
)

type handler struct {
	deps Deps
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

type hourWindow struct {
	Index   int          `json:"index"`
	Daytime bool         `json:"daytime"`
	Start   time.Time    `json:"start"`
	End     time.Time    `json:"end"`
	Ruler   model.Planet `json:"ruler"`
}

type snapshotResponse struct {
	At       time.Time           `json:"at"`
	Snapshot model.PlanetaryInfo `json:"snapshot"`
	Hour     hourWindow          `json:"hour"`
	Source   string              `json:"source"`
	Advisory string              `json:"advisory,omitempty"`
}

// snapshot: GET /api/v1/snapshot?at=RFC3339&location=
func (h *handler) snapshot(w http.ResponseWriter, r *http.Request) {
	at := h.deps.Now()
	if s := r.URL.Query().Get("at"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respond.WriteBadRequest(w, r, "at must be an RFC3339 timestamp")
			return
		}
		at = t
	}

	res, err := h.deps.Resolver.Resolve(r.Context(), at, r.URL.Query().Get("location"))
	if err != nil {
		respond.WriteInternalError(w, r, err)
		return
	}
	hour, err := astro.HourOf(at)
	if err != nil {
		respond.WriteInternalError(w, r, err)
		return
	}

	respond.WriteJSON(w, r, http.StatusOK, snapshotResponse{
		At:       at,
		Snapshot: res.Info,
		Hour: hourWindow{
			Index:   hour.Index,
			Daytime: hour.Daytime,
			Start:   hour.Start,
			End:     hour.End,
			Ruler:   hour.Ruler,
		},
		Source:   res.Source,
		Advisory: res.Advisory,
	})
}

type timelineResponse struct {
	From  time.Time            `json:"from"`
	To    time.Time            `json:"to"`
	Items []model.TimelineItem `json:"items"`
}

// timeline: GET /api/v1/timeline?days=N&hide=Kind,Kind&view=entries|events
func (h *handler) timeline(w http.ResponseWriter, r *http.Request) {
	days, err := daysParam(r, defaultTimelineDays)
	if err != nil {
		respond.WriteBadRequest(w, r, err.Error())
		return
	}
	vis, err := search.Hiding(r.URL.Query()["hide"]...)
	if err != nil {
		respond.WriteBadRequest(w, r, err.Error())
		return
	}
	view := r.URL.Query().Get("view")
	switch view {
	case "", "all", "entries", "events":
	default:
		respond.WriteBadRequest(w, r, "view must be one of all, entries, events")
		return
	}

	to := h.deps.Now()
	from := to.AddDate(0, 0, -days)
	items, err := h.deps.Store.LoadRange(r.Context(), h.deps.User, from, to)
	if err != nil {
		respond.WriteInternalError(w, r, err)
		return
	}

	out := make([]model.TimelineItem, 0, len(items))
	for _, it := range vis.Apply(items) {
		if (view == "entries" && it.Entry == nil) || (view == "events" && it.Entry != nil) {
			continue
		}
		out = append(out, it)
	}
	respond.WriteJSON(w, r, http.StatusOK, timelineResponse{From: from, To: to, Items: out})
}

// searchEntries: GET /api/v1/search?q=&tag=&day=&hour=&sun=&moon=&phase=&days=N
func (h *handler) searchEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := search.Query{
		Keyword:  q.Get("q"),
		Hashtag:  q.Get("tag"),
		Day:      q.Get("day"),
		Hour:     q.Get("hour"),
		SunSign:  q.Get("sun"),
		MoonSign: q.Get("moon"),
		Phase:    q.Get("phase"),
	}.Filter()
	if err != nil {
		respond.WriteBadRequest(w, r, err.Error())
		return
	}
	days, err := daysParam(r, defaultSearchDays)
	if err != nil {
		respond.WriteBadRequest(w, r, err.Error())
		return
	}

	to := h.deps.Now()
	items, err := h.deps.Store.LoadRange(r.Context(), h.deps.User, to.AddDate(0, 0, -days), to)
	if err != nil {
		respond.WriteInternalError(w, r, err)
		return
	}
	entries := f.Entries(items)
	if entries == nil {
		entries = []model.JournalEntry{}
	}
	respond.WriteJSON(w, r, http.StatusOK, map[string]any{"entries": entries})
}

type entryRequest struct {
	Text string `json:"text"`
	Mood string `json:"mood"`
	// Date is optional; when set the entry is back-dated to it.
	Date     string        `json:"date"`
	Location string        `json:"location"`
	Coords   *model.Coords `json:"coords"`
	Hashtags []string      `json:"hashtags"`
	Images   []string      `json:"images"`
	Videos   []string      `json:"videos"`
}

type entryResponse struct {
	Entry    model.JournalEntry  `json:"entry"`
	Events   []model.EventRecord `json:"events"`
	Advisory string              `json:"advisory,omitempty"`
}

func decodeDraft(r *http.Request) (journal.Draft, error) {
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return journal.Draft{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	d := journal.Draft{
		Text:     req.Text,
		Mood:     model.Mood(req.Mood),
		Location: req.Location,
		Coords:   req.Coords,
		Hashtags: req.Hashtags,
		Images:   req.Images,
		Videos:   req.Videos,
	}
	if req.Date != "" {
		t, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			return journal.Draft{}, fmt.Errorf("date must be an RFC3339 timestamp")
		}
		d.Date, d.ManualDate = t, true
	}
	return d, nil
}

func (h *handler) writeSaved(w http.ResponseWriter, r *http.Request, status int, saved journal.Saved, err error) {
	switch {
	case errors.Is(err, journal.ErrEmptyText), errors.Is(err, journal.ErrInvalidMood):
		respond.WriteBadRequest(w, r, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		respond.WriteNotFound(w, r, err.Error())
	case err != nil:
		respond.WriteInternalError(w, r, err)
	default:
		respond.WriteJSON(w, r, status, entryResponse{
			Entry:    saved.Entry,
			Events:   model.Records(saved.Events),
			Advisory: saved.Advisory,
		})
	}
}

// createEntry: POST /api/v1/entries
func (h *handler) createEntry(w http.ResponseWriter, r *http.Request) {
	d, err := decodeDraft(r)
	if err != nil {
		respond.WriteBadRequest(w, r, err.Error())
		return
	}
	saved, err := h.deps.Journal.Save(r.Context(), d)
	h.writeSaved(w, r, http.StatusCreated, saved, err)
}

// updateEntry: PUT /api/v1/entries/{id}
func (h *handler) updateEntry(w http.ResponseWriter, r *http.Request) {
	d, err := decodeDraft(r)
	if err != nil {
		respond.WriteBadRequest(w, r, err.Error())
		return
	}
	saved, err := h.deps.Journal.Update(r.Context(), mux.Vars(r)["id"], d)
	h.writeSaved(w, r, http.StatusOK, saved, err)
}

// deleteEntry: DELETE /api/v1/entries/{id}. Events can be deleted by ID too.
func (h *handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	err := h.deps.Journal.Delete(r.Context(), mux.Vars(r)["id"])
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respond.WriteNotFound(w, r, err.Error())
	case err != nil:
		respond.WriteInternalError(w, r, err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func daysParam(r *http.Request, def int) (int, error) {
	s := r.URL.Query().Get("days")
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > maxDays {
		return 0, fmt.Errorf("days must be an integer between 1 and %d", maxDays)
	}
	return n, nil
}
