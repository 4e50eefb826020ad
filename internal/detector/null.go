package detector

import "gocv.io/x/gocv"

// NullDetector stands in when no model is configured or loading failed.
// Every Detect call reports ErrNoModel so the caller takes the classical
// fallback path instead.
type NullDetector struct{}

// NewNullDetector creates a new NullDetector instance.
func NewNullDetector() *NullDetector {
	return &NullDetector{}
}

// Detect always returns ErrNoModel.
func (d *NullDetector) Detect(frame *gocv.Mat, confThreshold float32) ([]Detection, error) {
	return nil, ErrNoModel
}

// Classes returns nil; there is no model to supply names.
func (d *NullDetector) Classes() []string {
	return nil
}

// Close is a no-op.
func (d *NullDetector) Close() error {
	return nil
}
