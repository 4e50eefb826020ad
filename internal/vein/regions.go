package vein

import (
	"gocv.io/x/gocv"

	"github.com/circuito/veinscope/internal/detector"
)

// Region extraction tuning. Area and aspect ratio must fall strictly
// inside these open intervals; boundary values are rejected along with
// everything outside.
const (
	MinRegionArea  = 100.0
	MaxRegionArea  = 10000.0
	MinAspectRatio = 0.2
	MaxAspectRatio = 5.0

	// AreaConfidenceScale divides a region's area to produce its
	// confidence, capped at 1.0.
	AreaConfidenceScale = 1000.0

	// MaxRegions caps how many detections one frame may produce.
	MaxRegions = 10

	// RegionClassName labels detections from the classical fallback path.
	RegionClassName = "vein_region"
)

// FindRegions extracts vein candidate detections from a binary mask. Only
// external contours are considered; nested structure inside a vein blob is
// noise at this resolution. Survivors must strictly exceed confThreshold
// and are returned ordered by descending confidence, at most MaxRegions of
// them.
func FindRegions(mask gocv.Mat, confThreshold float32) []detector.Detection {
	if mask.Empty() {
		return nil
	}

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var detections []detector.Detection
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)

		area := gocv.ContourArea(contour)
		if area <= MinRegionArea || area >= MaxRegionArea {
			continue
		}

		box := gocv.BoundingRect(contour)
		if box.Dy() == 0 {
			continue
		}
		aspect := float64(box.Dx()) / float64(box.Dy())
		if aspect <= MinAspectRatio || aspect >= MaxAspectRatio {
			continue
		}

		confidence := float32(area / AreaConfidenceScale)
		if confidence > 1.0 {
			confidence = 1.0
		}
		if confidence <= confThreshold {
			continue
		}

		detections = append(detections, detector.Detection{
			Box:        box,
			Confidence: confidence,
			ClassID:    0,
			ClassName:  RegionClassName,
		})
	}

	return detector.TopByConfidence(detections, MaxRegions)
}
