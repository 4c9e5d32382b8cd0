package anpr

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/swdee/go-anpr/detect"
	"github.com/swdee/go-anpr/tracker"
	"gocv.io/x/gocv"
)

const (
	testCols = 640
	testRows = 480
)

// frameSource serves synthesised frames from memory. The frame index is
// stored in the blue channel of pixel (0,0) so detectors can tell frames
// apart whatever order they run in
type frameSource struct {
	frames   int
	reported int
	next     int
	closed   bool
}

func newFrameSource(frames int) *frameSource {
	return &frameSource{frames: frames, reported: frames}
}

func (s *frameSource) Read(dst *gocv.Mat) bool {
	if s.next >= s.frames {
		return false
	}

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 128, 128, 0),
		testRows, testCols, gocv.MatTypeCV8UC3)
	defer img.Close()

	img.SetUCharAt(0, 0, uint8(s.next))
	img.CopyTo(dst)
	s.next++

	return true
}

func (s *frameSource) FrameCount() int {
	return s.reported
}

func (s *frameSource) Close() error {
	s.closed = true
	return nil
}

// frameIndex recovers the index written by frameSource
func frameIndex(img gocv.Mat) int {
	return int(img.GetUCharAt(0, 0))
}

// scriptedDetector returns fixed results per frame index
type scriptedDetector struct {
	byFrame map[int][]detect.Result
	// every is returned for all frames when set
	every   []detect.Result
	failAt  int
	calls   atomic.Int64
	closed  atomic.Bool
}

func newScriptedDetector() *scriptedDetector {
	return &scriptedDetector{byFrame: make(map[int][]detect.Result), failAt: -1}
}

func (d *scriptedDetector) add(frame int, class int, score float64, box tracker.Box) {
	d.byFrame[frame] = append(d.byFrame[frame], detect.Result{Box: box, Score: score, Class: class})
}

func (d *scriptedDetector) Detect(img gocv.Mat) ([]detect.Result, error) {
	d.calls.Add(1)

	if d.every != nil {
		return d.every, nil
	}

	idx := frameIndex(img)

	if idx == d.failAt {
		return nil, errors.New("detector exploded")
	}

	return d.byFrame[idx], nil
}

func (d *scriptedDetector) Close() error {
	d.closed.Store(true)
	return nil
}

// reading is one scripted PlateReader answer
type reading struct {
	text  string
	score float64
	ok    bool
	err   error
}

// scriptedReader answers reads in call order, which is frame order since
// plates are read inline by the tracking goroutine
type scriptedReader struct {
	mu       sync.Mutex
	readings []reading
	calls    int
}

func (r *scriptedReader) Read(crop gocv.Mat) (string, float64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if crop.Empty() {
		return "", 0, false, errors.New("empty crop")
	}

	if r.calls >= len(r.readings) {
		r.calls++
		return "", 0, false, nil
	}

	rd := r.readings[r.calls]
	r.calls++

	return rd.text, rd.score, rd.ok, rd.err
}

// readOK is a successful reading
func readOK(text string, score float64) reading {
	return reading{text: text, score: score, ok: true}
}

// newTestPipeline builds a pipeline with workers copies of the detectors
func newTestPipeline(cfg Config, vehicles, plates *scriptedDetector,
	reader PlateReader) (*Pipeline, error) {

	pool, err := NewDetectorPool(cfg.Workers, func(int) (DetectorSet, error) {
		return DetectorSet{Vehicles: vehicles, Plates: plates}, nil
	})

	if err != nil {
		return nil, err
	}

	return NewPipeline(cfg, pool, reader, nil)
}
