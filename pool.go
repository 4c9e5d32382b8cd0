package anpr

import (
	"errors"
	"io"
	"sync"

	"github.com/swdee/go-anpr/detect"
	"gocv.io/x/gocv"
)

// Detector finds objects in a frame. Implementations need not be safe for
// concurrent use, the DetectorPool hands each instance to one goroutine at a
// time
type Detector interface {
	Detect(img gocv.Mat) ([]detect.Result, error)
}

// PlateReader reads the text of a thresholded plate crop. It returns ok false
// when the text does not pass the plate format check, and an error only when
// the reader itself failed
type PlateReader interface {
	Read(crop gocv.Mat) (text string, score float64, ok bool, err error)
}

// DetectorSet is a vehicle and plate detector pair run on the same frame
type DetectorSet struct {
	Vehicles Detector
	Plates   Detector
}

// DetectorPool is a pool of detector sets so frames can be detected on in
// parallel
type DetectorPool struct {
	// pool of detector sets
	sets chan DetectorSet
	// size of pool
	size  int
	close sync.Once
}

// NewDetectorPool creates a pool of size detector sets built by newSet
func NewDetectorPool(size int, newSet func(i int) (DetectorSet, error)) (*DetectorPool, error) {

	if size < 1 {
		return nil, errors.New("pool size must be at least 1")
	}

	p := &DetectorPool{
		sets: make(chan DetectorSet, size),
		size: size,
	}

	for i := 0; i < size; i++ {
		set, err := newSet(i)

		if err != nil {
			// close any instances that may have been created before receiving
			// the error
			p.Close()
			return nil, err
		}

		if set.Vehicles == nil || set.Plates == nil {
			p.Close()
			return nil, errors.New("detector set must have vehicle and plate detectors")
		}

		// attach to pool
		p.Return(set)
	}

	return p, nil
}

// Size returns the number of detector sets in the pool
func (p *DetectorPool) Size() int {
	return p.size
}

// Get a detector set from the pool, blocking until one is free
func (p *DetectorPool) Get() DetectorSet {
	return <-p.sets
}

// Return a detector set to the pool
func (p *DetectorPool) Return(set DetectorSet) {
	select {
	case p.sets <- set:
	default:
		// pool is full
	}
}

// Close the pool and any detectors in it that implement io.Closer
func (p *DetectorPool) Close() {
	p.close.Do(func() {
		// close channel
		close(p.sets)

		for next := range p.sets {
			closeDetector(next.Vehicles)
			closeDetector(next.Plates)
		}
	})
}

func closeDetector(d Detector) {
	if c, ok := d.(io.Closer); ok {
		_ = c.Close()
	}
}
