package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/circuito/veinscope/internal/app"
	"github.com/circuito/veinscope/internal/render"
	"github.com/circuito/veinscope/internal/vein"
)

func TestConfigHandler_PipelineRoundTrip(t *testing.T) {
	a := app.New(app.Config{})
	handler := NewConfigHandler(a)

	// GET returns the shipping defaults
	req := httptest.NewRequest(http.MethodGet, "/api/config/pipeline", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want %d", rec.Code, http.StatusOK)
	}

	var got vein.Config
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got != vein.DefaultConfig() {
		t.Errorf("GET config = %+v, want defaults", got)
	}

	// PUT a modified configuration
	updated := vein.DefaultConfig()
	updated.MedianEnabled = false
	updated.GaussianKernelSize = 7
	body, _ := json.Marshal(updated)

	req = httptest.NewRequest(http.MethodPut, "/api/config/pipeline", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got != updated {
		t.Errorf("PUT response = %+v, want %+v", got, updated)
	}

	// The loop sees the new configuration
	if cfg := a.PipelineConfig(); cfg != updated {
		t.Errorf("app config = %+v, want %+v", cfg, updated)
	}
}

func TestConfigHandler_VisualizationRoundTrip(t *testing.T) {
	a := app.New(app.Config{})
	handler := NewConfigHandler(a)

	updated := render.DefaultConfig()
	updated.ShowMask = true
	updated.BoxThickness = 3
	body, _ := json.Marshal(updated)

	req := httptest.NewRequest(http.MethodPut, "/api/config/visualization", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var got render.Config
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !got.ShowMask || got.BoxThickness != 3 {
		t.Errorf("PUT response = %+v, want mask shown with thickness 3", got)
	}
}

func TestConfigHandler_VisualizationClampsOnSet(t *testing.T) {
	a := app.New(app.Config{})
	handler := NewConfigHandler(a)

	updated := render.DefaultConfig()
	updated.ConfidenceThreshold = 1.5
	updated.BoxThickness = 0
	body, _ := json.Marshal(updated)

	req := httptest.NewRequest(http.MethodPut, "/api/config/visualization", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, want %d", rec.Code, http.StatusOK)
	}

	var got render.Config
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ConfidenceThreshold != 1.0 {
		t.Errorf("threshold = %v, want clamped to 1.0", got.ConfidenceThreshold)
	}
	if got.BoxThickness != 1 {
		t.Errorf("thickness = %d, want clamped to 1", got.BoxThickness)
	}
}

func TestConfigHandler_InvalidJSON(t *testing.T) {
	a := app.New(app.Config{})
	handler := NewConfigHandler(a)

	for _, section := range []string{"pipeline", "visualization"} {
		req := httptest.NewRequest(http.MethodPut, "/api/config/"+section, bytes.NewBufferString("not json"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status %d, got %d", section, http.StatusBadRequest, rec.Code)
		}
	}
}

func TestConfigHandler_UnknownSection(t *testing.T) {
	a := app.New(app.Config{})
	handler := NewConfigHandler(a)

	req := httptest.NewRequest(http.MethodGet, "/api/config/camera", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestConfigHandler_MethodNotAllowed(t *testing.T) {
	a := app.New(app.Config{})
	handler := NewConfigHandler(a)

	req := httptest.NewRequest(http.MethodDelete, "/api/config/pipeline", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
