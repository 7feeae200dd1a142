// Package api serves the journal over HTTP for `aj serve`.
package api

import (
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Tiliavir/astro-journal/internal/api/recovery"
	"github.com/Tiliavir/astro-journal/internal/journal"
	"github.com/Tiliavir/astro-journal/internal/storage"
)

// Deps are the components the handlers operate on.
type Deps struct {
	Store    storage.Store
	Journal  *journal.Service
	Resolver journal.Resolver
	User     string
	Log      zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewRouter creates the HTTP router with all API routes.
func NewRouter(d Deps) *mux.Router {
	if d.Now == nil {
		d.Now = time.Now
	}
	h := &handler{deps: d}

	router := mux.NewRouter()
	router.Use(requestID(d.Log), recovery.Middleware(d.Log), instrument)

	router.HandleFunc("/healthz", h.health).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/snapshot", h.snapshot).Methods("GET")
	v1.HandleFunc("/timeline", h.timeline).Methods("GET")
	v1.HandleFunc("/search", h.searchEntries).Methods("GET")
	v1.HandleFunc("/entries", h.createEntry).Methods("POST")
	v1.HandleFunc("/entries/{id}", h.updateEntry).Methods("PUT")
	v1.HandleFunc("/entries/{id}", h.deleteEntry).Methods("DELETE")

	return router
}
