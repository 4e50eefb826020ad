// Package api provides HTTP API handlers for the VeinScope imaging system.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/circuito/veinscope/internal/app"
	"github.com/circuito/veinscope/internal/v4l2"
)

// ControlsHandler handles HTTP requests for camera control resources.
type ControlsHandler struct {
	app *app.App
}

// NewControlsHandler creates a new ControlsHandler backed by the given
// pipeline.
func NewControlsHandler(a *app.App) *ControlsHandler {
	return &ControlsHandler{app: a}
}

// ServeHTTP implements the http.Handler interface and routes requests to
// appropriate methods.
func (h *ControlsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Parse the path to determine if this is a collection or item request
	// Expected paths: /api/controls or /api/controls/{name}
	path := strings.TrimPrefix(r.URL.Path, "/api/controls")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		// Collection endpoint: /api/controls
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	// Item endpoint: /api/controls/{name}
	name := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, name)
	case http.MethodPut:
		h.set(w, r, name)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type setControlRequest struct {
	Value int32 `json:"value"`
}

type controlResponse struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Value       int32  `json:"value"`
	Min         int32  `json:"min"`
	Max         int32  `json:"max"`
	Step        int32  `json:"step"`
	Default     int32  `json:"default"`
	Active      bool   `json:"active"`
}

type listControlsResponse struct {
	Controls []controlResponse `json:"controls"`
}

type setControlResponse struct {
	Name   string          `json:"name"`
	Value  int32           `json:"value"`
	Active map[string]bool `json:"active"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// panel returns the open device's control panel, or nil when the camera
// is not running.
func (h *ControlsHandler) panel() *v4l2.Panel {
	camera := h.app.Camera()
	if camera == nil {
		return nil
	}
	return camera.Controls()
}

// toControlResponse builds the wire form of one control, reading the
// current hardware value and falling back to the cached one when the read
// fails.
func toControlResponse(panel *v4l2.Panel, d v4l2.Descriptor, cached v4l2.ControlValues) controlResponse {
	value, err := panel.Value(d.Control)
	if err != nil {
		value = cached[d.Control.String()]
	}
	return controlResponse{
		Name:        d.Control.String(),
		DisplayName: d.Control.DisplayName(),
		Value:       value,
		Min:         d.Min,
		Max:         d.Max,
		Step:        d.Step,
		Default:     d.Default,
		Active:      d.Active,
	}
}

// list handles GET /api/controls and returns every available control.
func (h *ControlsHandler) list(w http.ResponseWriter, r *http.Request) {
	panel := h.panel()
	if panel == nil {
		writeError(w, http.StatusServiceUnavailable, "Camera controls not available")
		return
	}

	descriptors := panel.Descriptors()
	cached := panel.Values()

	response := listControlsResponse{
		Controls: make([]controlResponse, 0, len(descriptors)),
	}
	for _, d := range descriptors {
		response.Controls = append(response.Controls, toControlResponse(panel, d, cached))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/controls/{name} and returns a single control.
func (h *ControlsHandler) get(w http.ResponseWriter, r *http.Request, name string) {
	panel := h.panel()
	if panel == nil {
		writeError(w, http.StatusServiceUnavailable, "Camera controls not available")
		return
	}

	control, ok := v4l2.ControlByName(name)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown control")
		return
	}

	d, ok := panel.Range(control)
	if !ok {
		writeError(w, http.StatusNotFound, "Control not available on device")
		return
	}
	d.Active = panel.Active(control)

	writeJSON(w, http.StatusOK, toControlResponse(panel, d, panel.Values()))
}

// set handles PUT /api/controls/{name} and writes a value to the device.
// The response carries the post-set active state of every control, since
// an exposure mode change flips which controls the device honors.
func (h *ControlsHandler) set(w http.ResponseWriter, r *http.Request, name string) {
	panel := h.panel()
	if panel == nil {
		writeError(w, http.StatusServiceUnavailable, "Camera controls not available")
		return
	}

	control, ok := v4l2.ControlByName(name)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown control")
		return
	}

	var req setControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := panel.Set(control, req.Value); err != nil {
		if errors.Is(err, v4l2.ErrControlUnavailable) {
			writeError(w, http.StatusNotFound, "Control not available on device")
			return
		}
		writeError(w, http.StatusUnprocessableEntity, "Device rejected value")
		return
	}

	active := make(map[string]bool)
	for _, d := range panel.Descriptors() {
		active[d.Control.String()] = d.Active
	}

	writeJSON(w, http.StatusOK, setControlResponse{
		Name:   control.String(),
		Value:  req.Value,
		Active: active,
	})
}
