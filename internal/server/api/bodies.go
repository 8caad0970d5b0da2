package api

import (
	"errors"
	"net/http"

	"github.com/ayusman/bodystats/internal/app"
	"github.com/ayusman/bodystats/internal/body"
	"github.com/ayusman/bodystats/internal/extrema"
	"github.com/ayusman/bodystats/internal/tracking"
)

// BodiesHandler handles HTTP requests for the bodies currently being tracked.
type BodiesHandler struct {
	app *app.App
}

// NewBodiesHandler creates a new BodiesHandler for the given application.
func NewBodiesHandler(a *app.App) *BodiesHandler {
	return &BodiesHandler{app: a}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
// Expected paths: /api/bodies, /api/bodies/{id}, /api/bodies/{id}/stats, /api/bodies/{id}/samples
func (h *BodiesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/bodies")

	switch len(parts) {
	case 0:
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)

	case 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, parts[0])
		case http.MethodDelete:
			h.delete(w, r, parts[0])
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}

	case 2:
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		switch parts[1] {
		case "stats":
			h.stats(w, r, parts[0])
		case "samples":
			h.samples(w, r, parts[0])
		default:
			writeError(w, http.StatusNotFound, "Not found")
		}

	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type listBodiesResponse struct {
	Bodies []tracking.TrackerInfo `json:"bodies"`
}

type statsResponse struct {
	BodyID  string                `json:"body_id"`
	Reports []tracking.LimbReport `json:"reports"`
}

type samplesResponse struct {
	BodyID        string         `json:"body_id"`
	Limb          body.Limb      `json:"limb"`
	Samples       []body.Point3D `json:"samples"`
	MinimaIndices []int          `json:"minima_indices"`
}

// list handles GET /api/bodies and returns every tracked body.
func (h *BodiesHandler) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listBodiesResponse{Bodies: h.app.Registry().List()})
}

// get handles GET /api/bodies/{id}.
func (h *BodiesHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	info, err := h.app.Registry().Get(id)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// stats handles GET /api/bodies/{id}/stats and returns the current report of every limb.
func (h *BodiesHandler) stats(w http.ResponseWriter, r *http.Request, id string) {
	reports, err := h.app.Registry().Stats(id)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{BodyID: id, Reports: reports})
}

// samples handles GET /api/bodies/{id}/samples?limb=left_hand and returns the
// limb history with the indices of the minima used for its statistics.
func (h *BodiesHandler) samples(w http.ResponseWriter, r *http.Request, id string) {
	limb := body.LeftHand
	if q := r.URL.Query().Get("limb"); q != "" {
		l, err := body.ParseLimb(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		limb = l
	}

	samples, err := h.app.Registry().Samples(id, limb)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, samplesResponse{
		BodyID:        id,
		Limb:          limb,
		Samples:       samples,
		MinimaIndices: extrema.LocalMinimaIndices(samples, h.app.Registry().Options().MaxMinima),
	})
}

// delete handles DELETE /api/bodies/{id} and stops tracking the body.
func (h *BodiesHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.app.Remove(id); err != nil {
		writeBodyError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeBodyError(w http.ResponseWriter, err error) {
	if errors.Is(err, tracking.ErrUnknownBody) {
		writeError(w, http.StatusNotFound, "Body not found")
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}
