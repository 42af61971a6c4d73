package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/ziadkadry99/vachat/internal/policy"
)

// statsResponse is the JSON response for the stats endpoint.
type statsResponse struct {
	Chunks       int                     `json:"chunks"`
	Sessions     int                     `json:"sessions"`
	Slots        []string                `json:"slots"`
	PolicyEvents int                     `json:"policy_events"`
	ByCategory   map[policy.Category]int `json:"by_category"`
	Failures     int                     `json:"moderation_failures"`
}

func (d *Dashboard) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := statsResponse{
		Slots:      []string{},
		ByCategory: map[policy.Category]int{},
	}

	if d.docs != nil {
		n, err := d.docs.Count(ctx)
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		stats.Chunks = n
	}

	if d.service != nil {
		if d.service.Engine != nil {
			stats.Slots = d.service.Engine.Slots()
		}
		if d.service.Sessions != nil {
			n, err := d.service.Sessions.Count(ctx)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			stats.Sessions = n
		}
	}

	if d.audit != nil {
		summary, err := d.audit.Summarize(ctx)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		stats.PolicyEvents = summary.Total
		stats.Failures = summary.Failures
		for k, v := range summary.ByCategory {
			stats.ByCategory[k] = v
		}
	}

	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
