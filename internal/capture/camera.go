// Package capture provides camera capture functionality using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/circuito/veinscope/internal/v4l2"
)

// Default camera settings
const (
	DefaultWidth  = 640
	DefaultHeight = 480
	DefaultFPS    = 30
)

// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
var ErrCameraNotOpen = errors.New("camera is not open")

// Config holds camera open parameters. Zero fields fall back to defaults.
type Config struct {
	DeviceID int
	Width    int
	Height   int
	FPS      int
}

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	Controls() *v4l2.Panel
	IsOpen() bool
}

// cameraImpl manages video capture from a camera device. Frames flow
// through an OpenCV capture handle while hardware controls go over a raw
// V4L2 handle to the same device node; the camera owns both.
type cameraImpl struct {
	config  Config
	device  v4l2.Device
	capture *gocv.VideoCapture
	panel   *v4l2.Panel
	mu      sync.Mutex
	running bool
}

// NewCamera creates a Camera for the given device index using the default
// resolution and frame rate.
func NewCamera(deviceID int) Camera {
	return NewCameraWithConfig(Config{DeviceID: deviceID})
}

// NewCameraWithConfig creates a Camera with explicit open parameters.
func NewCameraWithConfig(cfg Config) Camera {
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFPS
	}
	return &cameraImpl{config: cfg}
}

// Open acquires the raw control handle and the capture handle. Both must
// succeed: if the capture open fails the control handle is released again,
// so a failed open never leaves a partial handle behind.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	device, err := v4l2.Open(v4l2.DevicePath(c.config.DeviceID))
	if err != nil {
		return fmt.Errorf("control handle: %w", err)
	}

	capture, err := gocv.OpenVideoCapture(c.config.DeviceID)
	if err != nil {
		device.Close()
		return fmt.Errorf("capture handle: %w", err)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.config.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.config.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.config.FPS))

	c.device = device
	c.capture = capture
	c.panel = v4l2.NewPanel(device)
	c.running = true

	return nil
}

// Close releases the raw handle and then the capture handle. Calling Close
// on an already closed camera is a no-op.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}
	c.running = false
	c.panel = nil

	var firstErr error
	if c.device != nil {
		if err := c.device.Close(); err != nil {
			firstErr = err
		}
		c.device = nil
	}
	if c.capture != nil {
		if err := c.capture.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.capture = nil
	}

	return firstErr
}

// ReadFrame reads a single frame from the camera.
// The caller is responsible for closing the returned Mat.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from camera")
	}

	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}

	return &mat, nil
}

// Controls returns the control panel for the open device, or nil when the
// camera is closed.
func (c *cameraImpl) Controls() *v4l2.Panel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.panel
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
