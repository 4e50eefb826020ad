package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/circuito/veinscope/internal/app"
	"github.com/circuito/veinscope/internal/render"
	"github.com/circuito/veinscope/internal/vein"
)

// ConfigHandler handles HTTP requests for the enhancement and
// visualization configuration.
type ConfigHandler struct {
	app *app.App
}

// NewConfigHandler creates a new ConfigHandler backed by the given
// pipeline.
func NewConfigHandler(a *app.App) *ConfigHandler {
	return &ConfigHandler{app: a}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/config/pipeline or /api/config/visualization
func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	section := strings.TrimPrefix(r.URL.Path, "/api/config/")

	switch section {
	case "pipeline":
		h.pipeline(w, r)
	case "visualization":
		h.visualization(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// pipeline handles GET and PUT on /api/config/pipeline. A PUT replaces
// the whole enhancement configuration; the next frame picks it up.
func (h *ConfigHandler) pipeline(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.app.PipelineConfig())
	case http.MethodPut:
		var cfg vein.Config
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		h.app.SetPipelineConfig(cfg)
		writeJSON(w, http.StatusOK, h.app.PipelineConfig())
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// visualization handles GET and PUT on /api/config/visualization. Values
// the renderer cannot work with come back clamped in the response.
func (h *ConfigHandler) visualization(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.app.VisualizationConfig())
	case http.MethodPut:
		var cfg render.Config
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		h.app.SetVisualizationConfig(cfg)
		writeJSON(w, http.StatusOK, h.app.VisualizationConfig())
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
