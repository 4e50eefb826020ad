package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/circuito/veinscope/internal/app"
	"github.com/circuito/veinscope/internal/capture"
	"github.com/circuito/veinscope/internal/v4l2"
)

// newTestApp creates an App over a mock camera whose control panel sits on
// a fake device. The camera is opened so the panel exists; the capture
// loop itself is not running.
func newTestApp(t *testing.T) (*app.App, *capture.MockCamera) {
	t.Helper()

	a := app.New(app.Config{})
	camera := capture.NewMockCamera(nil, true)
	a.SetCamera(camera)

	if err := camera.Open(); err != nil {
		t.Fatalf("failed to open mock camera: %v", err)
	}
	t.Cleanup(func() {
		camera.Close()
	})

	return a, camera
}

func TestControlsHandler_List(t *testing.T) {
	a, _ := newTestApp(t)
	handler := NewControlsHandler(a)

	req := httptest.NewRequest(http.MethodGet, "/api/controls", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var response listControlsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(response.Controls) != len(v4l2.Controls()) {
		t.Fatalf("expected %d controls, got %d", len(v4l2.Controls()), len(response.Controls))
	}

	// Declaration order puts Brightness first
	first := response.Controls[0]
	if first.Name != "Brightness" {
		t.Errorf("expected first control Brightness, got %q", first.Name)
	}
	if first.Min != -64 || first.Max != 64 {
		t.Errorf("Brightness range = [%d, %d], want [-64, 64]", first.Min, first.Max)
	}
	if !first.Active {
		t.Error("expected Brightness to be active")
	}
}

func TestControlsHandler_List_CameraNotOpen(t *testing.T) {
	a := app.New(app.Config{})
	a.SetCamera(capture.NewMockCamera(nil, true))
	handler := NewControlsHandler(a)

	req := httptest.NewRequest(http.MethodGet, "/api/controls", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
}

func TestControlsHandler_Get(t *testing.T) {
	a, camera := newTestApp(t)
	camera.Device().SetStoredValue(v4l2.Brightness, 17)
	handler := NewControlsHandler(a)

	req := httptest.NewRequest(http.MethodGet, "/api/controls/Brightness", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var response controlResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Name != "Brightness" {
		t.Errorf("expected name Brightness, got %q", response.Name)
	}
	if response.Value != 17 {
		t.Errorf("expected hardware value 17, got %d", response.Value)
	}
	if response.DisplayName != "Brightness" {
		t.Errorf("expected display name Brightness, got %q", response.DisplayName)
	}
}

func TestControlsHandler_Get_UnknownControl(t *testing.T) {
	a, _ := newTestApp(t)
	handler := NewControlsHandler(a)

	req := httptest.NewRequest(http.MethodGet, "/api/controls/Focus", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestControlsHandler_Get_UnavailableControl(t *testing.T) {
	a := app.New(app.Config{})
	camera := capture.NewMockCamera(nil, true)
	a.SetCamera(camera)

	// Hardware without a Hue control, removed before the panel discovers it
	camera.Device().Remove(v4l2.Hue)
	if err := camera.Open(); err != nil {
		t.Fatalf("failed to open mock camera: %v", err)
	}
	defer camera.Close()

	handler := NewControlsHandler(a)

	req := httptest.NewRequest(http.MethodGet, "/api/controls/Hue", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestControlsHandler_Set(t *testing.T) {
	a, camera := newTestApp(t)
	handler := NewControlsHandler(a)

	body := bytes.NewBufferString(`{"value": 21}`)
	req := httptest.NewRequest(http.MethodPut, "/api/controls/Brightness", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var response setControlResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Name != "Brightness" || response.Value != 21 {
		t.Errorf("response = %s=%d, want Brightness=21", response.Name, response.Value)
	}
	if len(response.Active) != len(v4l2.Controls()) {
		t.Errorf("expected active state for %d controls, got %d", len(v4l2.Controls()), len(response.Active))
	}

	// The write reached the hardware
	if got := camera.Device().StoredValue(v4l2.Brightness); got != 21 {
		t.Errorf("device value = %d, want 21", got)
	}
}

func TestControlsHandler_Set_OutOfRange(t *testing.T) {
	a, camera := newTestApp(t)
	handler := NewControlsHandler(a)

	body := bytes.NewBufferString(`{"value": 1000}`)
	req := httptest.NewRequest(http.MethodPut, "/api/controls/Brightness", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, rec.Code)
	}

	// Rejected write leaves the hardware untouched
	if got := camera.Device().StoredValue(v4l2.Brightness); got != 0 {
		t.Errorf("device value = %d, want 0", got)
	}
}

func TestControlsHandler_Set_UnknownControl(t *testing.T) {
	a, _ := newTestApp(t)
	handler := NewControlsHandler(a)

	body := bytes.NewBufferString(`{"value": 1}`)
	req := httptest.NewRequest(http.MethodPut, "/api/controls/Focus", body)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestControlsHandler_Set_InvalidJSON(t *testing.T) {
	a, _ := newTestApp(t)
	handler := NewControlsHandler(a)

	body := bytes.NewBufferString("not json")
	req := httptest.NewRequest(http.MethodPut, "/api/controls/Brightness", body)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestControlsHandler_Set_ReportsFlippedActiveStates(t *testing.T) {
	a, camera := newTestApp(t)
	handler := NewControlsHandler(a)

	// Manual exposure deactivates backlight compensation on this hardware
	camera.Device().SetInactive(v4l2.BacklightCompensation, true)

	body := bytes.NewBufferString(`{"value": 1}`)
	req := httptest.NewRequest(http.MethodPut, "/api/controls/ExposureMode", body)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var response setControlResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Active["BacklightCompensation"] {
		t.Error("expected BacklightCompensation inactive after exposure mode change")
	}
	if !response.Active["Brightness"] {
		t.Error("expected Brightness to stay active")
	}
}

func TestControlsHandler_MethodNotAllowed(t *testing.T) {
	a, _ := newTestApp(t)
	handler := NewControlsHandler(a)

	req := httptest.NewRequest(http.MethodPost, "/api/controls", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("collection POST: expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/controls/Brightness", nil)
	rec = httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("item DELETE: expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
