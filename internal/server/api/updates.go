package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/samber/lo"

	"github.com/ayusman/bodystats/internal/app"
	"github.com/ayusman/bodystats/internal/body"
	"github.com/ayusman/bodystats/internal/tracking"
)

// maxUpdateBytes bounds the size of one posted change set.
const maxUpdateBytes = 1 << 20

// UpdatesHandler applies host change sets posted over HTTP.
type UpdatesHandler struct {
	app *app.App
}

// NewUpdatesHandler creates a new UpdatesHandler for the given application.
func NewUpdatesHandler(a *app.App) *UpdatesHandler {
	return &UpdatesHandler{app: a}
}

type updateResponse struct {
	Started []tracking.TrackerInfo `json:"started"`
	Reports []tracking.LimbReport  `json:"reports"`
	Ended   []tracking.TrackerInfo `json:"ended"`
	Errors  []string               `json:"errors"`
}

// ServeHTTP handles POST /api/updates.
func (h *UpdatesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var cs body.ChangeSet
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes)).Decode(&cs); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	res, err := h.app.Apply(cs)
	if err != nil {
		if errors.Is(err, body.ErrInvalidChangeSet) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to apply change set")
		return
	}

	writeJSON(w, http.StatusOK, updateResponse{
		Started: nonNil(res.Started),
		Reports: nonNil(res.Reports),
		Ended:   nonNil(res.Ended),
		Errors:  lo.Map(res.Errors, func(err error, _ int) string { return err.Error() }),
	})
}

// nonNil keeps empty lists as [] rather than null in responses.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
