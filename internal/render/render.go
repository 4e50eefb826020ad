// Package render draws detection results onto outgoing frames: bounding
// boxes with corner accents and optional class labels with confidence.
package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/circuito/veinscope/internal/detector"
)

// minAccentArm keeps corner accents visible on small boxes.
const minAccentArm = 5

// Config controls how detections are drawn onto outgoing frames.
type Config struct {
	ShowBoxes      bool `json:"show_boxes"`
	ShowLabels     bool `json:"show_labels"`
	ShowConfidence bool `json:"show_confidence"`
	ShowMask       bool `json:"show_mask"`

	BoxColor  color.RGBA `json:"box_color"`
	TextColor color.RGBA `json:"text_color"`

	BoxThickness        int     `json:"box_thickness"`
	FontScale           float64 `json:"font_scale"`
	ConfidenceThreshold float32 `json:"confidence_threshold"`
}

// DefaultConfig returns the shipped visualization settings: green boxes,
// white labels with confidence, mask overlay off.
func DefaultConfig() Config {
	return Config{
		ShowBoxes:           true,
		ShowLabels:          true,
		ShowConfidence:      true,
		ShowMask:            false,
		BoxColor:            color.RGBA{0, 255, 0, 255},
		TextColor:           color.RGBA{255, 255, 255, 255},
		BoxThickness:        2,
		FontScale:           0.5,
		ConfidenceThreshold: 0.5,
	}
}

// Draw renders detections onto the frame in place. Boxes are clipped to
// the frame bounds; a detection whose clipped box is empty is skipped.
func Draw(frame *gocv.Mat, detections []detector.Detection, cfg Config) {
	if frame == nil || frame.Empty() {
		return
	}

	bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())
	for _, det := range detections {
		box := det.Box.Intersect(bounds)
		if box.Empty() {
			continue
		}

		if cfg.ShowBoxes {
			gocv.Rectangle(frame, box, cfg.BoxColor, cfg.BoxThickness)
			drawCornerAccents(frame, box, cfg)
		}

		if label := labelFor(det, cfg); label != "" {
			drawLabel(frame, box, label, cfg)
		}
	}
}

// labelFor composes the text for one detection from the enabled parts.
func labelFor(det detector.Detection, cfg Config) string {
	switch {
	case cfg.ShowLabels && cfg.ShowConfidence:
		return fmt.Sprintf("%s: %.0f%%", det.ClassName, det.Confidence*100)
	case cfg.ShowLabels:
		return det.ClassName
	case cfg.ShowConfidence:
		return fmt.Sprintf("%.0f%%", det.Confidence*100)
	default:
		return ""
	}
}

// drawCornerAccents marks the four corners with short L-shaped strokes,
// one stroke heavier than the box outline. Arms span a quarter of the
// shorter box side, never less than minAccentArm.
func drawCornerAccents(frame *gocv.Mat, box image.Rectangle, cfg Config) {
	arm := box.Dx()
	if box.Dy() < arm {
		arm = box.Dy()
	}
	arm /= 4
	if arm < minAccentArm {
		arm = minAccentArm
	}
	thickness := cfg.BoxThickness + 1

	gocv.Line(frame, image.Pt(box.Min.X, box.Min.Y), image.Pt(box.Min.X+arm, box.Min.Y), cfg.BoxColor, thickness)
	gocv.Line(frame, image.Pt(box.Min.X, box.Min.Y), image.Pt(box.Min.X, box.Min.Y+arm), cfg.BoxColor, thickness)

	gocv.Line(frame, image.Pt(box.Max.X, box.Min.Y), image.Pt(box.Max.X-arm, box.Min.Y), cfg.BoxColor, thickness)
	gocv.Line(frame, image.Pt(box.Max.X, box.Min.Y), image.Pt(box.Max.X, box.Min.Y+arm), cfg.BoxColor, thickness)

	gocv.Line(frame, image.Pt(box.Min.X, box.Max.Y), image.Pt(box.Min.X+arm, box.Max.Y), cfg.BoxColor, thickness)
	gocv.Line(frame, image.Pt(box.Min.X, box.Max.Y), image.Pt(box.Min.X, box.Max.Y-arm), cfg.BoxColor, thickness)

	gocv.Line(frame, image.Pt(box.Max.X, box.Max.Y), image.Pt(box.Max.X-arm, box.Max.Y), cfg.BoxColor, thickness)
	gocv.Line(frame, image.Pt(box.Max.X, box.Max.Y), image.Pt(box.Max.X, box.Max.Y-arm), cfg.BoxColor, thickness)
}

// drawLabel puts the label on a filled background strip above the box.
// A box flush with the frame top has no room above, so the label drops
// below the box instead.
func drawLabel(frame *gocv.Mat, box image.Rectangle, label string, cfg Config) {
	size := gocv.GetTextSize(label, gocv.FontHersheySimplex, cfg.FontScale, 1)

	x := box.Min.X
	baseline := box.Min.Y - 5
	if box.Min.Y < 10 {
		baseline = box.Max.Y + size.Y + 5
	}

	bg := image.Rect(x, baseline-size.Y-2, x+size.X+4, baseline+2)
	gocv.Rectangle(frame, bg, cfg.BoxColor, -1)
	gocv.PutText(frame, label, image.Pt(x+2, baseline), gocv.FontHersheySimplex, cfg.FontScale, cfg.TextColor, 1)
}
