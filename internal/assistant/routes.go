package assistant

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/vachat/internal/conversation"
	"github.com/ziadkadry99/vachat/internal/embeddings"
	"github.com/ziadkadry99/vachat/internal/policy"
	"github.com/ziadkadry99/vachat/internal/vectordb"
)

// RegisterRoutes mounts the assistant API routes.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/respond", handleRespond(svc))
		r.Post("/search", handleSearch(svc))
		r.Post("/policy/check", handlePolicyCheck(svc))
		r.Get("/slots", handleSlots(svc))
		r.Get("/sessions/{id}", handleSession(svc))
	})
}

type respondRequest struct {
	Query     string   `json:"query"`
	SessionID string   `json:"session_id"`
	Slots     []string `json:"slots"`
}

type respondResponse struct {
	SessionID string  `json:"session_id,omitempty"`
	Result    *Result `json:"result"`
}

func handleRespond(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req respondRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Query == "" {
			writeError(w, http.StatusBadRequest, "query is required")
			return
		}

		res, sessionID, err := svc.Turn(r.Context(), req.SessionID, req.Query, req.Slots)
		switch {
		case errors.Is(err, conversation.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, err.Error())
			return
		case err != nil && res == nil:
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			svc.logger().Printf("assistant: %v", err)
		}

		writeJSON(w, http.StatusOK, respondResponse{SessionID: sessionID, Result: res})
	}
}

type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

func handleSearch(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Query == "" {
			writeError(w, http.StatusBadRequest, "query is required")
			return
		}

		results, err := svc.Search.Search(r.Context(), req.Query, req.K)
		if err != nil {
			var pe *embeddings.ProviderError
			switch {
			case errors.Is(err, vectordb.ErrStoreUnavailable):
				writeError(w, http.StatusServiceUnavailable, err.Error())
			case errors.As(err, &pe):
				writeError(w, http.StatusBadGateway, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		if results == nil {
			results = []vectordb.SearchResult{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
	}
}

type policyCheckRequest struct {
	Text string `json:"text"`
}

type policyCheckResponse struct {
	policy.Verdict
	CheckError string `json:"check_error,omitempty"`
}

func handlePolicyCheck(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req policyCheckRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		v, err := svc.Gate.CheckInput(r.Context(), req.Text)
		resp := policyCheckResponse{Verdict: v}
		if err != nil {
			resp.CheckError = err.Error()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleSlots(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"slots": svc.Engine.Slots()})
	}
}

func handleSession(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc.Sessions == nil {
			writeError(w, http.StatusNotFound, "sessions are not enabled")
			return
		}
		id := chi.URLParam(r, "id")
		sess, err := svc.Sessions.Get(r.Context(), id)
		if errors.Is(err, conversation.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		turns, err := svc.Sessions.Turns(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"session": sess, "turns": turns})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
