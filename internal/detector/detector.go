// Package detector provides vein region detection backed by an ONNX model,
// plus the null and mock implementations used when no model is available.
package detector

import (
	"errors"
	"image"
	"sort"

	"gocv.io/x/gocv"
)

// ErrNoModel is returned by Detect when no model is loaded. Callers treat
// it as the signal to fall back to the classical mask-based extraction.
var ErrNoModel = errors.New("no detection model loaded")

// Detection is one scored, classified region of interest in a frame.
// Box is in frame pixel coordinates.
type Detection struct {
	Box        image.Rectangle `json:"box"`
	Confidence float32         `json:"confidence"`
	ClassID    int             `json:"class_id"`
	ClassName  string          `json:"class_name"`
}

// Detector defines the interface for vein detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detections whose
	// confidence strictly exceeds confThreshold. An error means the
	// backend cannot serve the frame.
	Detect(frame *gocv.Mat, confThreshold float32) ([]Detection, error)

	// Classes returns the class names the detector was loaded with.
	Classes() []string

	// Close releases any resources held by the detector.
	Close() error
}

// ClassName maps a class index to its name. Indexes outside the list are
// reported as "unknown" rather than failing the detection.
func ClassName(classes []string, id int) string {
	if id < 0 || id >= len(classes) {
		return "unknown"
	}
	return classes[id]
}

// TopByConfidence orders detections by descending confidence and truncates
// the slice to at most max entries. The input slice is sorted in place.
func TopByConfidence(detections []Detection, max int) []Detection {
	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Confidence > detections[j].Confidence
	})
	if len(detections) > max {
		detections = detections[:max]
	}
	return detections
}
