package detect

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sort"

	"gocv.io/x/gocv"

	"github.com/swdee/go-anpr/tracker"
)

// YOLOv8Params defines the YOLOv8 model and post processing parameters
type YOLOv8Params struct {
	// InputWidth and InputHeight are the model input tensor dimensions
	InputWidth  int
	InputHeight int
	// BoxThreshold is the minimum class score required for a bounding box
	// to be considered for processing
	BoxThreshold float64
	// NMSThreshold is the Non-Maximum Suppression threshold used for defining
	// the maximum allowed Intersection Over Union (IoU) between two
	// bounding boxes of the same class for both to be kept
	NMSThreshold float64
	// ObjectClassNum is the number of different object classes the Model has
	// been trained with
	ObjectClassNum int
	// MaxObjectNumber is the maximum number of objects returned per frame
	MaxObjectNumber int
}

// YOLOv8COCOParams returns parameters for a Model trained on the COCO
// dataset featuring:
// - Input: 640x640
// - Object Classes: 80
// - Box Threshold: 0.25
// - NMS Threshold: 0.45
// - Maximum Object Number: 64
func YOLOv8COCOParams() YOLOv8Params {
	return YOLOv8Params{
		InputWidth:      640,
		InputHeight:     640,
		BoxThreshold:    0.25,
		NMSThreshold:    0.45,
		ObjectClassNum:  80,
		MaxObjectNumber: 64,
	}
}

// YOLOv8PlateParams returns parameters for a single class license plate
// Model
func YOLOv8PlateParams() YOLOv8Params {
	p := YOLOv8COCOParams()
	p.ObjectClassNum = 1
	return p
}

// letterboxColor is the padding color used when letterbox resizing
var letterboxColor = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// YOLOv8 runs a YOLOv8 ONNX model through the OpenCV DNN module. An instance
// is not safe for concurrent use, create one per worker
type YOLOv8 struct {
	// Params are the Model configuration parameters
	Params YOLOv8Params
	net    gocv.Net
	// resizer is rebuilt whenever the source frame size changes
	resizer *Resizer
	input   gocv.Mat
	idGen   *IDGenerator
}

// NewYOLOv8 loads the ONNX model file. Detection IDs are drawn from idGen
// which may be shared between detectors, a nil idGen gives the detector its
// own sequence
func NewYOLOv8(modelFile string, p YOLOv8Params, idGen *IDGenerator) (*YOLOv8, error) {

	if p.InputWidth <= 0 || p.InputHeight <= 0 || p.ObjectClassNum <= 0 {
		return nil, errors.New("yolov8 params need a positive input size and class count")
	}

	net := gocv.ReadNetFromONNX(modelFile)

	if net.Empty() {
		return nil, fmt.Errorf("error loading onnx model %s", modelFile)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("error setting dnn backend: %w", err)
	}

	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("error setting dnn target: %w", err)
	}

	if idGen == nil {
		idGen = NewIDGenerator()
	}

	return &YOLOv8{
		Params: p,
		net:    net,
		input:  gocv.NewMat(),
		idGen:  idGen,
	}, nil
}

// Close frees the model and working buffers
func (y *YOLOv8) Close() error {

	if y.resizer != nil {
		y.resizer.Close()
	}

	y.input.Close()

	return y.net.Close()
}

// Detect runs the model over a BGR frame and returns the objects found in
// frame coordinates, ordered by descending score
func (y *YOLOv8) Detect(img gocv.Mat) ([]Result, error) {

	if img.Empty() {
		return nil, errors.New("empty frame")
	}

	if y.resizer == nil || !y.resizer.Fits(img.Cols(), img.Rows()) {
		if y.resizer != nil {
			y.resizer.Close()
		}
		y.resizer = NewResizer(img.Cols(), img.Rows(), y.Params.InputWidth,
			y.Params.InputHeight)
	}

	y.resizer.LetterBoxResize(img, &y.input, letterboxColor)

	blob := gocv.BlobFromImage(y.input, 1.0/255.0,
		image.Pt(y.Params.InputWidth, y.Params.InputHeight),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	y.net.SetInput(blob, "")

	out := y.net.Forward("")
	defer out.Close()

	dims := out.Size()

	if len(dims) != 3 || dims[1] != 4+y.Params.ObjectClassNum {
		return nil, fmt.Errorf("unexpected yolov8 output shape %v for %d classes",
			dims, y.Params.ObjectClassNum)
	}

	data, err := out.DataPtrFloat32()

	if err != nil {
		return nil, fmt.Errorf("error reading yolov8 output: %w", err)
	}

	cands := decodeYOLOv8(data, y.Params.ObjectClassNum, dims[2], y.Params.BoxThreshold)
	cands = nms(cands, y.Params.NMSThreshold, y.Params.MaxObjectNumber)

	results := make([]Result, len(cands))

	for i, c := range cands {
		results[i] = Result{
			Box:   y.resizer.ToSource(c.box),
			Score: c.score,
			Class: c.class,
			ID:    y.idGen.Next(),
		}
	}

	return results, nil
}

// candidate is a decoded box in model input coordinates
type candidate struct {
	box   tracker.Box
	score float64
	class int
}

// decodeYOLOv8 reads the [4+classes, anchors] channel major output where
// each anchor holds cx, cy, w, h followed by the class scores. Anchors whose
// best class score does not exceed threshold are discarded
func decodeYOLOv8(data []float32, classes, anchors int, threshold float64) []candidate {

	var out []candidate

	for a := 0; a < anchors; a++ {

		best := -1
		bestScore := threshold

		for c := 0; c < classes; c++ {
			if s := float64(data[(4+c)*anchors+a]); s > bestScore {
				best = c
				bestScore = s
			}
		}

		if best < 0 {
			continue
		}

		cx := float64(data[a])
		cy := float64(data[anchors+a])
		w := float64(data[2*anchors+a])
		h := float64(data[3*anchors+a])

		out = append(out, candidate{
			box:   tracker.NewBox(cx-w/2, cy-h/2, cx+w/2, cy+h/2),
			score: bestScore,
			class: best,
		})
	}

	return out
}

// nms sorts the candidates by descending score and suppresses any candidate
// overlapping a higher scoring one of the same class by more than threshold.
// At most maxObjects candidates are kept, 0 means no limit
func nms(cands []candidate, threshold float64, maxObjects int) []candidate {

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})

	suppressed := make([]bool, len(cands))
	var out []candidate

	for i := range cands {

		if suppressed[i] {
			continue
		}

		if maxObjects > 0 && len(out) >= maxObjects {
			break
		}

		out = append(out, cands[i])

		for j := i + 1; j < len(cands); j++ {
			if suppressed[j] || cands[j].class != cands[i].class {
				continue
			}

			if cands[i].box.IoU(cands[j].box) > threshold {
				suppressed[j] = true
			}
		}
	}

	return out
}
