package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"couriernav/internal/model"
	"couriernav/internal/store"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	writeJSON(w, status, Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeError maps domain errors to problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	path := r.URL.Path
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error(), path)
	case errors.Is(err, model.ErrInvalidState):
		writeProblem(w, http.StatusConflict, "Invalid State", err.Error(), path)
	case errors.Is(err, store.ErrVersionConflict):
		writeProblem(w, http.StatusConflict, "Version Conflict", err.Error(), path)
	case errors.Is(err, model.ErrInvalidCoordinate):
		writeProblem(w, http.StatusBadRequest, "Invalid Coordinate", err.Error(), path)
	case errors.Is(err, model.ErrOptimization):
		writeProblem(w, http.StatusUnprocessableEntity, "Optimization Failed", err.Error(), path)
	case errors.Is(err, model.ErrExternalService):
		writeProblem(w, http.StatusBadGateway, "Upstream Unavailable", err.Error(), path)
	default:
		writeProblem(w, http.StatusInternalServerError, "Internal Error", err.Error(), path)
	}
}
