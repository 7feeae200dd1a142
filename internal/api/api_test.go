package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/astro-journal/internal/api"
	"github.com/Tiliavir/astro-journal/internal/api/respond"
	"github.com/Tiliavir/astro-journal/internal/journal"
	"github.com/Tiliavir/astro-journal/internal/model"
	"github.com/Tiliavir/astro-journal/internal/provider"
	"github.com/Tiliavir/astro-journal/internal/storage"
)

var now = time.Date(2024, 8, 23, 10, 0, 0, 0, time.Local)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	store := storage.NewFileStore(t.TempDir())
	resolver := &provider.Fallback{Log: zerolog.Nop()}
	clock := func() time.Time { return now }
	svc := journal.NewService(store, resolver, "alice", zerolog.Nop(), journal.WithClock(clock))
	return api.NewRouter(api.Deps{
		Store:    store,
		Journal:  svc,
		Resolver: resolver,
		User:     "alice",
		Log:      zerolog.Nop(),
		Now:      clock,
	})
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

type savedBody struct {
	Entry  model.JournalEntry `json:"entry"`
	Events []json.RawMessage  `json:"events"`
}

type timelineBody struct {
	Items []struct {
		Kind  string              `json:"kind"`
		Entry *model.JournalEntry `json:"entry"`
		Event json.RawMessage     `json:"event"`
	} `json:"items"`
}

type snapshotBody struct {
	Snapshot model.PlanetaryInfo `json:"snapshot"`
	Hour     struct {
		Index   int          `json:"index"`
		Daytime bool         `json:"daytime"`
		Ruler   model.Planet `json:"ruler"`
	} `json:"hour"`
	Source string `json:"source"`
}

func TestHealthz(t *testing.T) {
	rr := do(t, newRouter(t), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	newRouter(t).ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))
}

func TestSnapshot(t *testing.T) {
	rr := do(t, newRouter(t), http.MethodGet, "/api/v1/snapshot?at=2024-08-21T06:00:00%2B01:00", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := decode[snapshotBody](t, rr)

	assert.Equal(t, model.Mercury, body.Snapshot.PlanetaryDay)
	assert.Equal(t, model.Mercury, body.Snapshot.PlanetaryHour)
	assert.Equal(t, 0, body.Hour.Index)
	assert.True(t, body.Hour.Daytime)
	assert.Equal(t, model.Mercury, body.Hour.Ruler)
	assert.Equal(t, provider.SourceLocal, body.Source)
}

func TestSnapshotBadTime(t *testing.T) {
	rr := do(t, newRouter(t), http.MethodGet, "/api/v1/snapshot?at=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	body := decode[respond.ErrorResponse](t, rr)
	assert.Equal(t, http.StatusBadRequest, body.Code)
	assert.Equal(t, "Bad Request", body.Error)
}

func TestEntryLifecycle(t *testing.T) {
	h := newRouter(t)

	rr := do(t, h, http.MethodPost, "/api/v1/entries",
		`{"text":"Walked by the ocean","mood":"Peaceful","hashtags":["#Sea"]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	saved := decode[savedBody](t, rr)
	assert.Equal(t, "Walked by the ocean", saved.Entry.Text)
	assert.Equal(t, []string{"sea"}, saved.Entry.Hashtags)
	assert.NotEmpty(t, saved.Entry.SunSign)
	id := saved.Entry.ID

	rr = do(t, h, http.MethodGet, "/api/v1/timeline?hide=all", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	tl := decode[timelineBody](t, rr)
	require.Len(t, tl.Items, 1)
	assert.Equal(t, "entry", tl.Items[0].Kind)
	assert.Equal(t, id, tl.Items[0].Entry.ID)

	rr = do(t, h, http.MethodGet, "/api/v1/timeline?view=events", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[timelineBody](t, rr).Items)

	rr = do(t, h, http.MethodGet, "/api/v1/search?q=OCEAN&tag=sea", "")
	require.Equal(t, http.StatusOK, rr.Code)
	found := decode[struct {
		Entries []model.JournalEntry `json:"entries"`
	}](t, rr)
	require.Len(t, found.Entries, 1)
	assert.Equal(t, id, found.Entries[0].ID)

	rr = do(t, h, http.MethodPut, "/api/v1/entries/"+id, `{"text":"Walked by the sea","mood":"Grateful"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, model.Mood("Grateful"), decode[savedBody](t, rr).Entry.Mood)

	rr = do(t, h, http.MethodDelete, "/api/v1/entries/"+id, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, h, http.MethodDelete, "/api/v1/entries/"+id, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateEntryValidation(t *testing.T) {
	h := newRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"text":`},
		{"empty text", `{"text":"   "}`},
		{"unknown mood", `{"text":"hi","mood":"Ecstatic"}`},
		{"bad date", `{"text":"hi","date":"23.08.2024"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/api/v1/entries", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		})
	}
}

func TestUpdateUnknownEntry(t *testing.T) {
	rr := do(t, newRouter(t), http.MethodPut, "/api/v1/entries/nope", `{"text":"x"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestQueryValidation(t *testing.T) {
	h := newRouter(t)
	for _, target := range []string{
		"/api/v1/timeline?days=0",
		"/api/v1/timeline?days=abc",
		"/api/v1/timeline?hide=Eclipse",
		"/api/v1/timeline?view=maps",
		"/api/v1/search?day=Pluto",
		"/api/v1/search?phase=Gibbous",
	} {
		rr := do(t, h, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
	}
}

func TestMetrics(t *testing.T) {
	h := newRouter(t)
	do(t, h, http.MethodGet, "/healthz", "")

	rr := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `astrojournal_api_requests_total{code="200",route="/healthz"}`)
}
