package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/ayusman/bodystats/internal/body"
	"github.com/ayusman/bodystats/internal/store"
)

// SessionsHandler handles HTTP requests for recorded tracking sessions.
type SessionsHandler struct {
	store *store.Store
}

// NewSessionsHandler creates a new SessionsHandler with the given store.
func NewSessionsHandler(s *store.Store) *SessionsHandler {
	return &SessionsHandler{store: s}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/sessions, /api/sessions/{id}, /api/sessions/{id}/summaries,
// /api/sessions/{id}/samples
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/sessions")

	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		h.list(w, r)
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.get(w, r, parts[0])
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.delete(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "summaries" && r.Method == http.MethodGet:
		h.summaries(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "samples" && r.Method == http.MethodGet:
		h.samples(w, r, parts[0])
	case len(parts) <= 2:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type sessionResponse struct {
	ID          string  `json:"id"`
	BodyID      string  `json:"body_id"`
	StartedAt   string  `json:"started_at"`
	EndedAt     string  `json:"ended_at,omitempty"`
	Active      bool    `json:"active"`
	HeightScale float64 `json:"height_scale"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type listSummariesResponse struct {
	SessionID string           `json:"session_id"`
	Summaries []*store.Summary `json:"summaries"`
}

type listSamplesResponse struct {
	SessionID string             `json:"session_id"`
	Limb      body.Limb          `json:"limb"`
	Samples   []store.HandSample `json:"samples"`
}

// toSessionResponse converts a store.Session to a sessionResponse.
func toSessionResponse(s *store.Session, _ int) sessionResponse {
	resp := sessionResponse{
		ID:          s.ID,
		BodyID:      s.BodyID,
		StartedAt:   s.StartedAt.Format(time.RFC3339),
		Active:      s.Active(),
		HeightScale: s.HeightScale,
	}
	if s.EndedAt != nil {
		resp.EndedAt = s.EndedAt.Format(time.RFC3339)
	}
	return resp
}

// list handles GET /api/sessions. With ?active=true only running sessions are returned.
func (h *SessionsHandler) list(w http.ResponseWriter, r *http.Request) {
	list := h.store.Sessions().List
	if r.URL.Query().Get("active") == "true" {
		list = h.store.Sessions().ListActive
	}

	sessions, err := list()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	writeJSON(w, http.StatusOK, listSessionsResponse{
		Sessions: lo.Map(sessions, toSessionResponse),
	})
}

// get handles GET /api/sessions/{id}.
func (h *SessionsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	session, ok := h.lookup(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session, 0))
}

// delete handles DELETE /api/sessions/{id} and removes the session with its data.
func (h *SessionsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// summaries handles GET /api/sessions/{id}/summaries.
func (h *SessionsHandler) summaries(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.lookup(w, id); !ok {
		return
	}

	summaries, err := h.store.Summaries().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list summaries")
		return
	}

	writeJSON(w, http.StatusOK, listSummariesResponse{
		SessionID: id,
		Summaries: nonNil(summaries),
	})
}

// samples handles GET /api/sessions/{id}/samples?limb=right_hand.
func (h *SessionsHandler) samples(w http.ResponseWriter, r *http.Request, id string) {
	limb := body.LeftHand
	if q := r.URL.Query().Get("limb"); q != "" {
		l, err := body.ParseLimb(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		limb = l
	}

	if _, ok := h.lookup(w, id); !ok {
		return
	}

	samples, err := h.store.Samples().ListBySession(id, string(limb))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	writeJSON(w, http.StatusOK, listSamplesResponse{
		SessionID: id,
		Limb:      limb,
		Samples:   nonNil(samples),
	})
}

func (h *SessionsHandler) lookup(w http.ResponseWriter, id string) (*store.Session, bool) {
	session, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return nil, false
	}
	return session, true
}
