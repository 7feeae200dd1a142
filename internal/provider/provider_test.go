package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/astro-journal/internal/astro"
	"github.com/Tiliavir/astro-journal/internal/model"
)

const validReply = `{"planetaryDay":"Venus","planetaryHour":"Mars","sunSign":"Virgo","moonSign":"Aries","moonPhase":"Waning Gibbous","retrogrades":["Mercury","Saturn"]}`

var at = time.Date(2024, 8, 23, 14, 0, 0, 0, time.UTC)

func newTestRemote(t *testing.T, url string, retries int) *Remote {
	t.Helper()
	r := NewRemote(RemoteConfig{URL: url, Timeout: 2 * time.Second, MaxRetries: retries}, zerolog.Nop())
	r.backoff = func() *backoff.ExponentialBackOff {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = time.Millisecond
		exp.MaxInterval = 5 * time.Millisecond
		exp.Reset()
		return exp
	}
	return r
}

func serve(t *testing.T, h http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{"direct", validReply, true},
		{"fenced", "Here you go:\n```json\n" + validReply + "\n```\nEnjoy.", true},
		{"fenced without tag", "```\n" + validReply + "\n```", true},
		{"braces", "The answer is " + validReply + " as requested.", true},
		{"malformed", "I cannot help with that {not json}", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := extractJSON([]byte(tt.body))
			if !tt.ok {
				assert.ErrorIs(t, err, ErrEnrichmentUnavailable)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, validReply, string(raw))
		})
	}
}

func TestDecodeSnapshotRejectsUnknownValues(t *testing.T) {
	_, err := decodeSnapshot([]byte(`{"planetaryDay":"Pluto","planetaryHour":"Mars","sunSign":"Virgo","moonSign":"Aries","moonPhase":"Waxing"}`), "")
	assert.ErrorIs(t, err, ErrEnrichmentUnavailable)

	info, err := decodeSnapshot([]byte(`{"planetaryDay":"Venus","planetaryHour":"Mars","sunSign":"Virgo","moonSign":"Aries","moonPhase":"Waxing"}`), "Berlin")
	require.NoError(t, err)
	assert.NotNil(t, info.Retrogrades)
	assert.Equal(t, "Berlin", info.LocationName)
}

func TestRemoteSnapshot(t *testing.T) {
	var got snapshotRequest
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, "```json\n"+validReply+"\n```")
	})

	info, err := newTestRemote(t, url, 0).Snapshot(context.Background(), at, "Berlin")
	require.NoError(t, err)
	assert.Equal(t, "2024-08-23T14:00:00Z", got.Time)
	assert.Equal(t, "Berlin", got.Location)
	assert.Equal(t, model.WaningGibbous, info.MoonPhase)
	assert.Equal(t, []model.Planet{model.Mercury, model.Saturn}, info.Retrogrades)
	assert.Equal(t, "Berlin", info.LocationName)
}

func TestRemoteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, validReply)
	})

	_, err := newTestRemote(t, url, 2).Snapshot(context.Background(), at, "")
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestRemoteQuotaIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":"quota exhausted"}`)
	})

	_, err := newTestRemote(t, url, 3).Snapshot(context.Background(), at, "")
	assert.ErrorIs(t, err, ErrEnrichmentUnavailable)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.EqualValues(t, 1, calls.Load())
}

func TestRemoteMalformedPayload(t *testing.T) {
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "sorry, the stars are unclear today")
	})

	_, err := newTestRemote(t, url, 2).Snapshot(context.Background(), at, "")
	assert.ErrorIs(t, err, ErrEnrichmentUnavailable)
	assert.False(t, errors.Is(err, ErrQuotaExceeded))
}

type failing struct{ err error }

func (f failing) Snapshot(context.Context, time.Time, string) (model.PlanetaryInfo, error) {
	return model.PlanetaryInfo{}, f.err
}

func TestFallbackUsesPrimaryWhenHealthy(t *testing.T) {
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, validReply)
	})
	f := &Fallback{Primary: newTestRemote(t, url, 0), Timeout: time.Second, Log: zerolog.Nop()}

	res, err := f.Resolve(context.Background(), at, "")
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, res.Source)
	assert.False(t, res.Fellback())
}

func TestFallbackOnTimeout(t *testing.T) {
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	f := &Fallback{Primary: newTestRemote(t, url, 0), Timeout: 50 * time.Millisecond, Log: zerolog.Nop()}

	start := time.Now()
	res, err := f.Resolve(context.Background(), at, "Berlin")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, SourceLocal, res.Source)
	assert.True(t, res.Fellback())
	assert.Contains(t, res.Advisory, "timed out")

	want, err := astro.Compute(at, "Berlin")
	require.NoError(t, err)
	assert.Equal(t, want, res.Info)
}

func TestFallbackAdvisories(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrQuotaExceeded, "quota"},
		{context.DeadlineExceeded, "timed out"},
		{errors.New("connection refused"), "unavailable"},
	}
	for _, tt := range tests {
		f := &Fallback{Primary: failing{tt.err}, Log: zerolog.Nop()}
		res, err := f.Resolve(context.Background(), at, "")
		require.NoError(t, err)
		assert.Contains(t, res.Advisory, tt.want)
		assert.Equal(t, SourceLocal, res.Source)
	}
}

func TestFallbackLocalOnly(t *testing.T) {
	f := &Fallback{Log: zerolog.Nop()}
	info, err := f.Snapshot(context.Background(), at, "")
	require.NoError(t, err)
	want, _ := Local{}.Snapshot(context.Background(), at, "")
	assert.Equal(t, want, info)
}

func TestFallbackSecondaryFailurePropagates(t *testing.T) {
	boom := &astro.ComputationError{Op: "test", Msg: "boom"}
	f := &Fallback{Primary: failing{ErrEnrichmentUnavailable}, Secondary: failing{boom}, Log: zerolog.Nop()}
	_, err := f.Resolve(context.Background(), at, "")
	var ce *astro.ComputationError
	assert.ErrorAs(t, err, &ce)
}
