package api

import (
	"encoding/json"
	"net/http"

	"github.com/circuito/veinscope/internal/app"
)

// DetectionHandler handles HTTP requests for the detection toggle and
// status.
type DetectionHandler struct {
	app *app.App
}

// NewDetectionHandler creates a new DetectionHandler backed by the given
// pipeline.
func NewDetectionHandler(a *app.App) *DetectionHandler {
	return &DetectionHandler{app: a}
}

// Request and response types

type setDetectionRequest struct {
	Enabled bool `json:"enabled"`
}

type detectionStatusResponse struct {
	Enabled     bool     `json:"enabled"`
	ModelLoaded bool     `json:"model_loaded"`
	Classes     []string `json:"classes"`
}

// ServeHTTP implements the http.Handler interface.
func (h *DetectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.status(w, r)
	case http.MethodPut:
		h.set(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// toStatusResponse builds the current detection status.
func (h *DetectionHandler) toStatusResponse() detectionStatusResponse {
	classes := []string{}
	if d := h.app.Detector(); d != nil {
		if c := d.Classes(); c != nil {
			classes = c
		}
	}
	return detectionStatusResponse{
		Enabled:     h.app.IsEnabled(),
		ModelLoaded: h.app.ModelLoaded(),
		Classes:     classes,
	}
}

// status handles GET /api/detection.
func (h *DetectionHandler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.toStatusResponse())
}

// set handles PUT /api/detection and toggles detection processing.
func (h *DetectionHandler) set(w http.ResponseWriter, r *http.Request) {
	var req setDetectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	h.app.SetEnabled(req.Enabled)
	writeJSON(w, http.StatusOK, h.toStatusResponse())
}
