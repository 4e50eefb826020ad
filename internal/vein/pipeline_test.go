package vein

import (
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

// testFrame returns a BGR frame with a light uniform background and a
// darker filled rectangle standing in for a vein against tissue.
func testFrame(width, height int) gocv.Mat {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(180, 180, 180, 0), height, width, gocv.MatTypeCV8UC3)
	gocv.Rectangle(&frame, image.Rect(60, 50, 100, 70), color.RGBA{40, 40, 40, 0}, -1)
	return frame
}

// testGrayFrame is the single-channel variant of testFrame.
func testGrayFrame(width, height int) gocv.Mat {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(180, 0, 0, 0), height, width, gocv.MatTypeCV8U)
	gocv.Rectangle(&frame, image.Rect(60, 50, 100, 70), color.RGBA{40, 40, 40, 0}, -1)
	return frame
}

func TestProcessColorFrame(t *testing.T) {
	frame := testFrame(160, 120)
	defer frame.Close()

	result := NewPipeline().Process(&frame, DefaultConfig())
	defer result.Close()

	if result.Enhanced.Empty() {
		t.Fatal("expected non-empty enhanced image")
	}
	if result.Enhanced.Channels() != 1 {
		t.Errorf("enhanced channels = %d, want 1", result.Enhanced.Channels())
	}
	if result.Enhanced.Rows() != 120 || result.Enhanced.Cols() != 160 {
		t.Errorf("enhanced size = %dx%d, want 160x120", result.Enhanced.Cols(), result.Enhanced.Rows())
	}

	if result.Mask.Empty() {
		t.Fatal("expected non-empty mask")
	}
	if result.Mask.Rows() != 120 || result.Mask.Cols() != 160 {
		t.Errorf("mask size = %dx%d, want 160x120", result.Mask.Cols(), result.Mask.Rows())
	}

	minVal, maxVal, _, _ := gocv.MinMaxLoc(result.Mask)
	if minVal != 0 || maxVal != 255 {
		t.Errorf("mask range = [%f, %f], want binary [0, 255]", minVal, maxVal)
	}
}

func TestProcessGrayFrame(t *testing.T) {
	frame := testGrayFrame(160, 120)
	defer frame.Close()

	result := NewPipeline().Process(&frame, DefaultConfig())
	defer result.Close()

	if result.Enhanced.Empty() || result.Enhanced.Channels() != 1 {
		t.Fatal("expected single-channel enhanced image")
	}
	if result.Mask.Empty() {
		t.Fatal("expected non-empty mask")
	}
}

func TestProcessEmptyFrame(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()

	result := NewPipeline().Process(&empty, DefaultConfig())
	defer result.Close()

	if !result.Enhanced.Empty() {
		t.Error("expected enhanced pass-through of the empty frame")
	}
	if !result.Mask.Empty() {
		t.Error("expected empty mask for empty frame")
	}
}

func TestProcessNilFrame(t *testing.T) {
	result := NewPipeline().Process(nil, DefaultConfig())
	defer result.Close()

	if !result.Enhanced.Empty() || !result.Mask.Empty() {
		t.Error("expected empty result for nil frame")
	}
}

func TestProcessAllStagesDisabled(t *testing.T) {
	frame := testFrame(160, 120)
	defer frame.Close()

	cfg := DefaultConfig()
	cfg.MedianEnabled = false
	cfg.GaussianEnabled = false
	cfg.BilateralEnabled = false
	cfg.CLAHEEnabled = false
	cfg.ContrastEnabled = false
	cfg.AdaptiveEnabled = false
	cfg.MorphologyEnabled = false

	result := NewPipeline().Process(&frame, cfg)
	defer result.Close()

	if result.Mask.Empty() {
		t.Fatal("expected mask from the fixed-threshold fallback")
	}

	// Inverse polarity at the fixed 128 cutoff keeps the dark blob and
	// drops the light background.
	if v := result.Mask.GetUCharAt(60, 80); v != 255 {
		t.Errorf("blob center = %d, want 255", v)
	}
	if v := result.Mask.GetUCharAt(5, 5); v != 0 {
		t.Errorf("background corner = %d, want 0", v)
	}
}

func TestProcessRoundsEvenKernelsUp(t *testing.T) {
	frame := testFrame(160, 120)
	defer frame.Close()

	cfg := DefaultConfig()
	cfg.MedianKernelSize = 4
	cfg.GaussianKernelSize = 6
	cfg.AdaptiveBlockSize = 10
	cfg.MorphologyKernelSize = 2

	result := NewPipeline().Process(&frame, cfg)
	defer result.Close()

	// A rejected kernel size would have tripped the pass-through fence
	// and left the mask empty.
	if result.Mask.Empty() {
		t.Fatal("expected even kernel sizes to be rounded up, not rejected")
	}
}

func TestOverlayColorFrame(t *testing.T) {
	frame := testFrame(160, 120)
	defer frame.Close()

	cfg := DefaultConfig()
	cfg.AdaptiveEnabled = false
	cfg.MorphologyEnabled = false
	cfg.MedianEnabled = false
	cfg.GaussianEnabled = false
	cfg.BilateralEnabled = false
	cfg.CLAHEEnabled = false
	cfg.ContrastEnabled = false

	pipeline := NewPipeline()
	result := pipeline.Process(&frame, cfg)
	defer result.Close()

	preview := pipeline.Overlay(&frame, result)
	defer preview.Close()

	if preview.Channels() != 3 {
		t.Fatalf("preview channels = %d, want 3", preview.Channels())
	}
	if preview.Rows() != 120 || preview.Cols() != 160 {
		t.Errorf("preview size = %dx%d, want 160x120", preview.Cols(), preview.Rows())
	}

	// Masked pixels pick up green from the blended mask plane.
	px := preview.GetVecbAt(60, 80)
	if px[1] <= px[0] {
		t.Errorf("expected green channel boost at masked pixel, got B=%d G=%d", px[0], px[1])
	}
}

func TestOverlayGrayFrame(t *testing.T) {
	frame := testGrayFrame(160, 120)
	defer frame.Close()

	pipeline := NewPipeline()
	result := pipeline.Process(&frame, DefaultConfig())
	defer result.Close()

	preview := pipeline.Overlay(&frame, result)
	defer preview.Close()

	if preview.Channels() != 1 {
		t.Errorf("grayscale preview channels = %d, want 1", preview.Channels())
	}
}

func TestOverlayEmptyMask(t *testing.T) {
	frame := testFrame(160, 120)
	defer frame.Close()

	gray := testGrayFrame(160, 120)
	defer gray.Close()

	result := Result{Enhanced: gray.Clone(), Mask: gocv.NewMat()}
	defer result.Close()

	preview := NewPipeline().Overlay(&frame, result)
	defer preview.Close()

	if preview.Channels() != 1 {
		t.Errorf("expected enhanced image as preview when mask is empty, got %d channels", preview.Channels())
	}
}
