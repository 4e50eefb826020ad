package vein

import (
	"image"
	"log"

	"gocv.io/x/gocv"
)

// GlobalThreshold is the fixed cutoff used for mask binarization when
// adaptive thresholding is disabled.
const GlobalThreshold = 128

// Mask overlay blend weights for the colorized preview.
const (
	overlayFrameWeight = 0.7
	overlayMaskWeight  = 0.3
)

// Result bundles the two outputs of one pipeline pass. The caller owns
// both Mats and must Close the result.
type Result struct {
	// Enhanced is the grayscale image after the filter chain, or a clone
	// of the input when the chain could not run.
	Enhanced gocv.Mat

	// Mask is the binary vein mask, empty when the chain could not run.
	Mask gocv.Mat
}

// Close releases the result's Mats.
func (r *Result) Close() {
	r.Enhanced.Close()
	r.Mask.Close()
}

// Pipeline runs the enhancement chain. It holds no per-frame state; all
// tuning arrives through the Config snapshot passed to each call.
type Pipeline struct{}

// NewPipeline creates a new Pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Process runs the full chain over one frame: grayscale conversion, the
// enabled smoothing and contrast stages, ridge enhancement, thresholding
// and morphological cleanup. A stage blowing up on malformed input must
// never take down the capture loop, so any failure is logged and the
// original frame passed through with an empty mask.
func (p *Pipeline) Process(frame *gocv.Mat, cfg Config) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Enhancement stage failed, passing frame through: %v", r)
			result = passthrough(frame)
		}
	}()

	if frame == nil || frame.Empty() {
		log.Printf("Enhancement skipped: empty input frame")
		return passthrough(frame)
	}

	enhanced := p.enhance(frame, cfg)
	mask := p.binarize(enhanced, cfg)
	return Result{Enhanced: enhanced, Mask: mask}
}

// passthrough builds the degraded result for frames the chain cannot
// process.
func passthrough(frame *gocv.Mat) Result {
	result := Result{Mask: gocv.NewMat()}
	if frame == nil {
		result.Enhanced = gocv.NewMat()
		return result
	}
	result.Enhanced = frame.Clone()
	return result
}

// enhance converts the frame to grayscale and applies the filter chain
// through ridge enhancement. The caller owns the returned Mat.
func (p *Pipeline) enhance(frame *gocv.Mat, cfg Config) gocv.Mat {
	var gray gocv.Mat
	if frame.Channels() > 1 {
		gray = gocv.NewMat()
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		gray = frame.Clone()
	}

	if cfg.MedianEnabled {
		filtered := gocv.NewMat()
		gocv.MedianBlur(gray, &filtered, oddKernel(cfg.MedianKernelSize))
		gray.Close()
		gray = filtered
	}

	if cfg.GaussianEnabled {
		k := oddKernel(cfg.GaussianKernelSize)
		smoothed := gocv.NewMat()
		gocv.GaussianBlur(gray, &smoothed, image.Pt(k, k), cfg.GaussianSigma, cfg.GaussianSigma, gocv.BorderDefault)
		gray.Close()
		gray = smoothed
	}

	if cfg.BilateralEnabled {
		smoothed := gocv.NewMat()
		gocv.BilateralFilter(gray, &smoothed, cfg.BilateralDiameter, cfg.BilateralSigmaColor, cfg.BilateralSigmaSpace)
		gray.Close()
		gray = smoothed
	}

	if cfg.CLAHEEnabled {
		clahe := gocv.NewCLAHEWithParams(cfg.CLAHEClipLimit, image.Pt(cfg.CLAHETileX, cfg.CLAHETileY))
		equalized := gocv.NewMat()
		clahe.Apply(gray, &equalized)
		clahe.Close()
		gray.Close()
		gray = equalized
	}

	if cfg.ContrastEnabled {
		stretched := gocv.NewMat()
		gocv.ConvertScaleAbs(gray, &stretched, cfg.ContrastAlpha, cfg.ContrastBeta)
		gray.Close()
		gray = stretched
	}

	// Ridge enhancement always runs: veins read as dark ridges, so the
	// Laplacian response is inverted before blending it back in.
	edges := gocv.NewMat()
	gocv.Laplacian(gray, &edges, gocv.MatTypeCV8U, 3, 1, 0, gocv.BorderDefault)
	inverted := gocv.NewMat()
	gocv.BitwiseNot(edges, &inverted)
	edges.Close()

	enhanced := gocv.NewMat()
	gocv.AddWeighted(gray, cfg.EnhanceAlpha, inverted, cfg.EnhanceBeta, 0, &enhanced)
	inverted.Close()
	gray.Close()

	return enhanced
}

// binarize produces the binary vein mask from the enhanced grayscale
// image. Veins are darker than surrounding tissue, so both threshold modes
// use inverse polarity. The caller owns the returned Mat.
func (p *Pipeline) binarize(enhanced gocv.Mat, cfg Config) gocv.Mat {
	mask := gocv.NewMat()
	if cfg.AdaptiveEnabled {
		block := oddKernel(cfg.AdaptiveBlockSize)
		if block < 3 {
			block = 3
		}
		gocv.AdaptiveThreshold(enhanced, &mask, 255, gocv.AdaptiveThresholdMean, gocv.ThresholdBinaryInv, block, float32(cfg.AdaptiveC))
	} else {
		gocv.Threshold(enhanced, &mask, GlobalThreshold, 255, gocv.ThresholdBinaryInv)
	}

	if cfg.MorphologyEnabled {
		op := gocv.MorphType(cfg.MorphologyOp)
		if cfg.MorphologyOp < MorphErode || cfg.MorphologyOp > MorphClose {
			op = gocv.MorphClose
		}
		k := oddKernel(cfg.MorphologyKernelSize)
		kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(k, k))
		cleaned := gocv.NewMat()
		gocv.MorphologyEx(mask, &cleaned, op, kernel)
		kernel.Close()
		mask.Close()
		mask = cleaned
	}

	return mask
}

// Overlay builds the operator-facing preview for a processed frame. For
// color input the mask is blended into the green channel over the
// original; a single-channel frame has no color planes to blend into, so
// the enhanced image itself is the preview. The caller owns the returned
// Mat.
func (p *Pipeline) Overlay(frame *gocv.Mat, result Result) gocv.Mat {
	if frame == nil || frame.Empty() || result.Mask.Empty() {
		return result.Enhanced.Clone()
	}
	if frame.Channels() == 1 {
		return result.Enhanced.Clone()
	}

	zero := gocv.Zeros(frame.Rows(), frame.Cols(), gocv.MatTypeCV8U)
	defer zero.Close()
	tinted := gocv.NewMat()
	defer tinted.Close()
	gocv.Merge([]gocv.Mat{zero, result.Mask, zero}, &tinted)

	preview := gocv.NewMat()
	gocv.AddWeighted(*frame, overlayFrameWeight, tinted, overlayMaskWeight, 0, &preview)
	return preview
}
