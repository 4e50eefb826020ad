// Package app provides the main application logic for the VeinScope
// imaging system: it owns the camera, runs the enhancement and detection
// loop, and publishes encoded frames for the serving layer.
package app

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/circuito/veinscope/internal/capture"
	"github.com/circuito/veinscope/internal/detector"
	"github.com/circuito/veinscope/internal/render"
	"github.com/circuito/veinscope/internal/store"
	"github.com/circuito/veinscope/internal/vein"
)

// FrameInterval paces the capture loop at roughly 30 frames per second.
const FrameInterval = 30 * time.Millisecond

// Settings keys for persisted runtime state.
const (
	settingDetectionEnabled = "detection_enabled"
	settingPipelineConfig   = "pipeline_config"
	settingVisualization    = "visualization_config"
)

// Config holds configuration options for the application.
type Config struct {
	Store         *store.Store
	Camera        capture.Config
	ModelPath     string
	ClassesPath   string
	ConfThreshold float32
}

// App is the main application that orchestrates capture, enhancement,
// detection and frame publishing.
type App struct {
	config   Config
	camera   capture.Camera
	pipeline *vein.Pipeline
	detector detector.Detector

	modelLoaded bool
	enabled     bool
	veinCfg     vein.Config
	visCfg      render.Config

	mu         sync.RWMutex
	stopCh     chan struct{}
	latestJPEG []byte
	latestDets []detector.Detection
	frameSeq   uint64
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	a := &App{
		config:   config,
		camera:   capture.NewCameraWithConfig(config.Camera),
		pipeline: vein.NewPipeline(),
		enabled:  true,
		veinCfg:  vein.DefaultConfig(),
		visCfg:   render.DefaultConfig(),
	}
	if config.ConfThreshold > 0 {
		a.visCfg.ConfidenceThreshold = config.ConfThreshold
	}

	// Try the configured ONNX model first, fall back to the classical
	// pipeline via the null detector.
	if config.ModelPath != "" {
		if d, err := detector.LoadONNXDetector(config.ModelPath, config.ClassesPath); err == nil {
			a.detector = d
			a.modelLoaded = true
			log.Printf("Using ONNX detection model %s", config.ModelPath)
		} else {
			log.Printf("Detection model not available (%v), using classical pipeline", err)
			a.detector = detector.NewNullDetector()
		}
	} else {
		a.detector = detector.NewNullDetector()
	}

	a.loadPersisted()
	return a
}

// loadPersisted restores runtime state saved by earlier runs.
func (a *App) loadPersisted() {
	if a.config.Store == nil {
		return
	}
	settings := a.config.Store.Settings()

	if v, err := settings.Get(settingDetectionEnabled); err == nil {
		a.enabled = v == "true"
	}
	if v, err := settings.Get(settingPipelineConfig); err == nil {
		var cfg vein.Config
		if err := json.Unmarshal([]byte(v), &cfg); err == nil {
			a.veinCfg = cfg
		} else {
			log.Printf("Ignoring saved pipeline config: %v", err)
		}
	}
	if v, err := settings.Get(settingVisualization); err == nil {
		var cfg render.Config
		if err := json.Unmarshal([]byte(v), &cfg); err == nil {
			a.visCfg = clampVisualization(cfg)
		} else {
			log.Printf("Ignoring saved visualization config: %v", err)
		}
	}
}

// savePersisted writes the runtime state for the next run.
func (a *App) savePersisted() {
	if a.config.Store == nil {
		return
	}
	settings := a.config.Store.Settings()

	enabled := "false"
	if a.enabled {
		enabled = "true"
	}
	if err := settings.Set(settingDetectionEnabled, enabled); err != nil {
		log.Printf("Saving detection state: %v", err)
	}

	if data, err := json.Marshal(a.veinCfg); err == nil {
		if err := settings.Set(settingPipelineConfig, string(data)); err != nil {
			log.Printf("Saving pipeline config: %v", err)
		}
	}
	if data, err := json.Marshal(a.visCfg); err == nil {
		if err := settings.Set(settingVisualization, string(data)); err != nil {
			log.Printf("Saving visualization config: %v", err)
		}
	}
}

// SetEnabled enables or disables detection processing. Disabled, the loop
// keeps publishing raw frames.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether detection processing is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetCamera replaces the capture device. Effective before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// SetDetector sets the detection backend to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// PipelineConfig returns the current enhancement settings.
func (a *App) PipelineConfig() vein.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.veinCfg
}

// SetPipelineConfig replaces the enhancement settings. The next frame
// picks them up; the frame in flight keeps its snapshot.
func (a *App) SetPipelineConfig(cfg vein.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.veinCfg = cfg
}

// VisualizationConfig returns the current visualization settings.
func (a *App) VisualizationConfig() render.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.visCfg
}

// SetVisualizationConfig replaces the visualization settings, clamping
// values the renderer cannot work with.
func (a *App) SetVisualizationConfig(cfg render.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.visCfg = clampVisualization(cfg)
}

// clampVisualization forces out-of-range settings back into service.
func clampVisualization(cfg render.Config) render.Config {
	if cfg.ConfidenceThreshold < 0 {
		cfg.ConfidenceThreshold = 0
	}
	if cfg.ConfidenceThreshold > 1 {
		cfg.ConfidenceThreshold = 1
	}
	if cfg.BoxThickness < 1 {
		cfg.BoxThickness = 1
	}
	return cfg
}

// Start opens the camera, applies persisted controls and begins the
// capture loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}

	a.applyStoredControls()

	a.stopCh = make(chan struct{})
	go a.runLoop(a.stopCh)

	log.Println("Imaging pipeline started")
	return nil
}

// Stop halts the capture loop, persists device and runtime state, and
// releases resources.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
	}

	a.saveControls()
	a.savePersisted()

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}

	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	log.Println("Imaging pipeline stopped")
}

// applyStoredControls pushes persisted control values to the open device.
func (a *App) applyStoredControls() {
	if a.config.Store == nil {
		return
	}
	panel := a.camera.Controls()
	if panel == nil {
		return
	}

	values, err := a.config.Store.CameraSettings().LoadGroup(a.controlGroup())
	if err != nil {
		log.Printf("Loading camera settings: %v", err)
		return
	}
	if len(values) == 0 {
		return
	}

	panel.Apply(values)
	log.Printf("Applied %d persisted camera controls", len(values))
}

// saveControls persists the device's current control values. Must run
// before the camera closes.
func (a *App) saveControls() {
	if a.config.Store == nil {
		return
	}
	panel := a.camera.Controls()
	if panel == nil {
		return
	}

	values := panel.Values()
	if len(values) == 0 {
		return
	}

	if err := a.config.Store.CameraSettings().SaveGroup(a.controlGroup(), values); err != nil {
		log.Printf("Saving camera settings: %v", err)
	}
}

// controlGroup returns the settings group key for the configured device.
func (a *App) controlGroup() string {
	return fmt.Sprintf("Camera%d", a.config.Camera.DeviceID)
}

// Camera returns the capture device.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// Detector returns the detection backend.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// ModelLoaded reports whether an ONNX model is serving detections.
func (a *App) ModelLoaded() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.modelLoaded
}

// LatestJPEG returns the most recent encoded frame and its sequence
// number. The slice is shared; callers must not modify it.
func (a *App) LatestJPEG() ([]byte, uint64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latestJPEG, a.frameSeq
}

// LatestDetections returns a copy of the most recent detection set and
// the sequence number of the frame it belongs to.
func (a *App) LatestDetections() ([]detector.Detection, uint64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]detector.Detection, len(a.latestDets))
	copy(out, a.latestDets)
	return out, a.frameSeq
}
