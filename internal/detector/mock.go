package detector

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu         sync.Mutex
	detections []Detection
	classes    []string
	err        error
	calls      int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{classes: []string{"vein"}}
}

// SetDetections sets the detections that will be returned by Detect.
func (m *MockDetector) SetDetections(detections []Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detections = detections
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetClasses sets the class names reported by Classes.
func (m *MockDetector) SetClasses(classes []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classes = classes
}

// Calls reports how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured detections or error.
func (m *MockDetector) Detect(frame *gocv.Mat, confThreshold float32) ([]Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.detections, nil
}

// Classes returns the configured class names.
func (m *MockDetector) Classes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.classes
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// ForearmDetections returns a preset pair of detections shaped like the
// regions the pipeline typically finds on a forearm frame.
func ForearmDetections() []Detection {
	return []Detection{
		{
			Box:        image.Rect(120, 80, 220, 140),
			Confidence: 0.92,
			ClassID:    0,
			ClassName:  "vein",
		},
		{
			Box:        image.Rect(300, 200, 360, 330),
			Confidence: 0.71,
			ClassID:    0,
			ClassName:  "vein",
		},
	}
}
