// Package vein implements the enhancement pipeline that turns raw camera
// frames into vein-emphasizing previews and binary masks, and the contour
// based extraction of vein candidate regions from those masks.
package vein

// Morphological operation selectors, matching OpenCV's MorphType values.
const (
	MorphErode  = 0
	MorphDilate = 1
	MorphOpen   = 2
	MorphClose  = 3
)

// Config holds the per-stage switches and parameters of the enhancement
// chain. Frames are processed against a single snapshot of this struct, so
// edits arriving mid-stream never tear a frame.
type Config struct {
	MedianEnabled    bool `json:"median_enabled"`
	MedianKernelSize int  `json:"median_kernel_size"`

	GaussianEnabled    bool    `json:"gaussian_enabled"`
	GaussianKernelSize int     `json:"gaussian_kernel_size"`
	GaussianSigma      float64 `json:"gaussian_sigma"`

	BilateralEnabled    bool    `json:"bilateral_enabled"`
	BilateralDiameter   int     `json:"bilateral_diameter"`
	BilateralSigmaColor float64 `json:"bilateral_sigma_color"`
	BilateralSigmaSpace float64 `json:"bilateral_sigma_space"`

	CLAHEEnabled   bool    `json:"clahe_enabled"`
	CLAHEClipLimit float64 `json:"clahe_clip_limit"`
	CLAHETileX     int     `json:"clahe_tile_x"`
	CLAHETileY     int     `json:"clahe_tile_y"`

	ContrastEnabled bool    `json:"contrast_enabled"`
	ContrastAlpha   float64 `json:"contrast_alpha"`
	ContrastBeta    float64 `json:"contrast_beta"`

	AdaptiveEnabled   bool `json:"adaptive_enabled"`
	AdaptiveBlockSize int  `json:"adaptive_block_size"`
	AdaptiveC         int  `json:"adaptive_c"`

	MorphologyEnabled    bool `json:"morphology_enabled"`
	MorphologyKernelSize int  `json:"morphology_kernel_size"`
	MorphologyOp         int  `json:"morphology_op"`

	EnhanceAlpha float64 `json:"enhance_alpha"`
	EnhanceBeta  float64 `json:"enhance_beta"`
}

// DefaultConfig returns the tuning the device ships with: every stage on,
// parameters chosen for near-infrared forearm footage.
func DefaultConfig() Config {
	return Config{
		MedianEnabled:    true,
		MedianKernelSize: 5,

		GaussianEnabled:    true,
		GaussianKernelSize: 5,
		GaussianSigma:      1.2,

		BilateralEnabled:    true,
		BilateralDiameter:   9,
		BilateralSigmaColor: 75,
		BilateralSigmaSpace: 75,

		CLAHEEnabled:   true,
		CLAHEClipLimit: 3.0,
		CLAHETileX:     8,
		CLAHETileY:     8,

		ContrastEnabled: true,
		ContrastAlpha:   1.8,
		ContrastBeta:    10,

		AdaptiveEnabled:   true,
		AdaptiveBlockSize: 11,
		AdaptiveC:         2,

		MorphologyEnabled:    true,
		MorphologyKernelSize: 3,
		MorphologyOp:         MorphClose,

		EnhanceAlpha: 0.7,
		EnhanceBeta:  0.3,
	}
}

// oddKernel rounds an even kernel or block size up to the next odd value
// and floors it at 1. The filter stages require odd sizes; bad input is
// corrected rather than rejected.
func oddKernel(size int) int {
	if size < 1 {
		return 1
	}
	if size%2 == 0 {
		return size + 1
	}
	return size
}
