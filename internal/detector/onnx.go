package detector

import (
	"bufio"
	"fmt"
	"image"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"
)

// Model input geometry and decode parameters for YOLO-style detectors.
const (
	inputWidth  = 640
	inputHeight = 640
	numAnchors  = 8400

	// nmsThreshold is the IoU limit for suppressing overlapping boxes.
	nmsThreshold = 0.45
)

// defaultClasses applies when no class list sits next to the model.
var defaultClasses = []string{"vein"}

// ONNXDetector runs a YOLO-style ONNX model over the shared runtime.
// Sessions are single-threaded; Detect serializes callers.
type ONNXDetector struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	classes []string
	closed  bool
}

// LoadONNXDetector loads the model at modelPath with class names read from
// classPath. The model file must exist; its size is logged up front so
// truncated downloads are visible before the runtime touches the file.
func LoadONNXDetector(modelPath, classPath string) (*ONNXDetector, error) {
	info, err := os.Stat(modelPath)
	if err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	log.Printf("Loading detection model %s (%d bytes)", modelPath, info.Size())

	classes := loadClasses(classPath)

	if err := initRuntime(); err != nil {
		return nil, err
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, inputHeight, inputWidth))
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+len(classes)), numAnchors))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("output tensor: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"images"}, []string{"output0"},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output},
		options)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &ONNXDetector{
		session: session,
		input:   input,
		output:  output,
		classes: classes,
	}, nil
}

// loadClasses reads one class name per line, skipping blanks. A missing or
// empty file falls back to the built-in single vein class.
func loadClasses(path string) []string {
	if path == "" {
		return defaultClasses
	}

	f, err := os.Open(path)
	if err != nil {
		log.Printf("Class list %s not readable (%v), using default", path, err)
		return defaultClasses
	}
	defer f.Close()

	var classes []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name != "" {
			classes = append(classes, name)
		}
	}
	if len(classes) == 0 {
		return defaultClasses
	}
	return classes
}

// Detect runs one inference pass and returns detections above confThreshold
// in frame coordinates.
func (d *ONNXDetector) Detect(frame *gocv.Mat, confThreshold float32) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrNoModel
	}
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	img, err := frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	d.fillInput(img)

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}

	return d.decode(frame.Cols(), frame.Rows(), confThreshold), nil
}

// fillInput resizes the image to the model input size and writes CHW
// float32 pixels normalized to [0, 1].
func (d *ONNXDetector) fillInput(img image.Image) {
	resized := imaging.Resize(img, inputWidth, inputHeight, imaging.Lanczos)
	data := d.input.GetData()
	channelSize := inputWidth * inputHeight

	for y := 0; y < inputHeight; y++ {
		for x := 0; x < inputWidth; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			idx := y*inputWidth + x
			data[idx] = float32(r>>8) / 255.0
			data[channelSize+idx] = float32(g>>8) / 255.0
			data[2*channelSize+idx] = float32(b>>8) / 255.0
		}
	}
}

// decode reads the [1, 4+classes, 8400] output laid out as rows of cx, cy,
// w, h followed by one score row per class. Boxes are scaled back to frame
// coordinates and overlapping candidates suppressed.
func (d *ONNXDetector) decode(frameWidth, frameHeight int, confThreshold float32) []Detection {
	data := d.output.GetData()

	scaleX := float32(frameWidth) / float32(inputWidth)
	scaleY := float32(frameHeight) / float32(inputHeight)

	var boxes []image.Rectangle
	var scores []float32
	var classIDs []int

	for i := 0; i < numAnchors; i++ {
		classID := 0
		best := float32(0)
		for c := 0; c < len(d.classes); c++ {
			if score := data[(4+c)*numAnchors+i]; score > best {
				best = score
				classID = c
			}
		}
		if best <= confThreshold {
			continue
		}

		cx := data[i]
		cy := data[numAnchors+i]
		w := data[2*numAnchors+i]
		h := data[3*numAnchors+i]

		boxes = append(boxes, scaleBox(cx, cy, w, h, scaleX, scaleY))
		scores = append(scores, best)
		classIDs = append(classIDs, classID)
	}

	if len(boxes) == 0 {
		return nil
	}

	indices := gocv.NMSBoxes(boxes, scores, confThreshold, nmsThreshold)

	detections := make([]Detection, 0, len(indices))
	for _, idx := range indices {
		detections = append(detections, Detection{
			Box:        boxes[idx],
			Confidence: scores[idx],
			ClassID:    classIDs[idx],
			ClassName:  ClassName(d.classes, classIDs[idx]),
		})
	}
	return detections
}

// scaleBox converts a center-format box in model input coordinates to a
// corner-format rectangle in frame coordinates.
func scaleBox(cx, cy, w, h, scaleX, scaleY float32) image.Rectangle {
	x0 := int((cx - w/2) * scaleX)
	y0 := int((cy - h/2) * scaleY)
	x1 := int((cx + w/2) * scaleX)
	y1 := int((cy + h/2) * scaleY)
	return image.Rect(x0, y0, x1, y1)
}

// Classes returns a copy of the loaded class names.
func (d *ONNXDetector) Classes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.classes))
	copy(out, d.classes)
	return out
}

// Close destroys the session and its tensors. The shared runtime stays up
// for other detectors; ShutdownRuntime owns its teardown.
func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.session.Destroy()
	d.input.Destroy()
	d.output.Destroy()
	return nil
}
