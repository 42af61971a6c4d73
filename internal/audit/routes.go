package audit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/vachat/internal/policy"
)

// RegisterRoutes mounts policy event endpoints under /api/policy-events.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/api/policy-events", func(r chi.Router) {
		r.Get("/", handleQuery(store))
		r.Get("/summary", handleSummary(store))
		r.Get("/{id}", handleGetByID(store))
	})
}

func handleQuery(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseFilter(r.URL.Query())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		events, err := store.Query(r.Context(), filter)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if events == nil {
			events = []policy.Event{}
		}
		writeJSON(w, http.StatusOK, events)
	}
}

// parseFilter reads category, stage, session, since, until (RFC 3339),
// limit and offset.
func parseFilter(q url.Values) (QueryFilter, error) {
	f := QueryFilter{
		Category:  policy.Category(q.Get("category")),
		Stage:     policy.Stage(q.Get("stage")),
		SessionID: q.Get("session"),
	}
	for name, dst := range map[string]**time.Time{"since": &f.Since, "until": &f.Until} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, fmt.Errorf("invalid %s: want RFC 3339 time", name)
		}
		*dst = &t
	}
	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("invalid %s: want a non-negative integer", name)
		}
		*dst = n
	}
	return f, nil
}

func handleSummary(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := store.Summarize(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

func handleGetByID(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		event, err := store.GetByID(r.Context(), id)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, event)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
