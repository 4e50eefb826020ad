package app

import (
	"errors"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/circuito/veinscope/internal/detector"
	"github.com/circuito/veinscope/internal/render"
	"github.com/circuito/veinscope/internal/vein"
)

// runLoop is the capture loop that processes frames from the camera.
//
// Loop logic:
// 1. Tick at ~30 fps
// 2. Read a frame; a failed read skips the tick
// 3. With detection disabled, publish the raw frame
// 4. Otherwise run the enhancement chain and ask the detector, falling
//    back to mask regions when no model serves the frame
// 5. Draw overlays per the visualization settings and publish the frame
func (a *App) runLoop(stopCh chan struct{}) {
	ticker := time.NewTicker(FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			frame, err := a.camera.ReadFrame()
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			a.processFrame(frame)
			frame.Close()
		}
	}
}

// processFrame runs one frame through the pipeline against a config
// snapshot and publishes the encoded result.
func (a *App) processFrame(frame *gocv.Mat) {
	a.mu.RLock()
	enabled := a.enabled
	veinCfg := a.veinCfg
	visCfg := a.visCfg
	det := a.detector
	a.mu.RUnlock()

	if !enabled {
		a.publishFrame(frame, nil)
		return
	}

	result := a.pipeline.Process(frame, veinCfg)
	defer result.Close()

	detections := a.runDetection(frame, result.Mask, det, visCfg.ConfidenceThreshold)

	display := a.displayFrame(frame, result, visCfg)
	defer display.Close()

	render.Draw(&display, detections, visCfg)
	a.publishFrame(&display, detections)
}

// runDetection asks the model for detections and falls back to classical
// mask regions when no model serves the frame. Both paths share the
// confidence cutoff and the per-frame cap.
func (a *App) runDetection(frame *gocv.Mat, mask gocv.Mat, det detector.Detector, confThreshold float32) []detector.Detection {
	if det != nil {
		detections, err := det.Detect(frame, confThreshold)
		if err == nil {
			return detector.TopByConfidence(detections, vein.MaxRegions)
		}
		if !errors.Is(err, detector.ErrNoModel) {
			log.Printf("Detector failed, using mask regions: %v", err)
		}
	}
	return vein.FindRegions(mask, confThreshold)
}

// displayFrame picks the base image for the outgoing stream: the mask
// overlay when requested, the plain camera frame otherwise.
func (a *App) displayFrame(frame *gocv.Mat, result vein.Result, visCfg render.Config) gocv.Mat {
	if visCfg.ShowMask {
		return a.pipeline.Overlay(frame, result)
	}
	return frame.Clone()
}

// publishFrame encodes the frame to JPEG and stores it, together with the
// detections, for the streaming and websocket layers.
func (a *App) publishFrame(frame *gocv.Mat, detections []detector.Detection) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		log.Printf("Error encoding frame: %v", err)
		return
	}
	defer buf.Close()

	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())

	a.mu.Lock()
	a.latestJPEG = jpeg
	a.latestDets = detections
	a.frameSeq++
	a.mu.Unlock()
}
