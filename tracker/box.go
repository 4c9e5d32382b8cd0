package tracker

import (
	"math"
)

// Box is an axis aligned bounding box in (x1, y1, x2, y2) format, being the
// top left and bottom right corners in pixel coordinates
type Box [4]float64

// Xysr (center x, center y, area, aspect ratio) is the measurement space used
// by the Kalman filter
type Xysr [4]float64

// NewBox returns a Box with the given corner coordinates
func NewBox(x1, y1, x2, y2 float64) Box {
	return Box{x1, y1, x2, y2}
}

// X1 returns the top left x coordinate
func (b Box) X1() float64 {
	return b[0]
}

// Y1 returns the top left y coordinate
func (b Box) Y1() float64 {
	return b[1]
}

// X2 returns the bottom right x coordinate
func (b Box) X2() float64 {
	return b[2]
}

// Y2 returns the bottom right y coordinate
func (b Box) Y2() float64 {
	return b[3]
}

// Width of the box
func (b Box) Width() float64 {
	return b[2] - b[0]
}

// Height of the box
func (b Box) Height() float64 {
	return b[3] - b[1]
}

// Area of the box, zero for degenerate boxes
func (b Box) Area() float64 {
	w := b.Width()
	h := b.Height()

	if w <= 0 || h <= 0 {
		return 0
	}

	return w * h
}

// IsValid reports whether all coordinates are finite and the box has a
// positive width and height
func (b Box) IsValid() bool {
	for _, v := range b {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return b[2] > b[0] && b[3] > b[1]
}

// Contains reports whether the point (x, y) lies strictly inside the box
func (b Box) Contains(x, y float64) bool {
	return x > b[0] && y > b[1] && x < b[2] && y < b[3]
}

// ContainsBox reports whether the other box lies strictly inside this box
func (b Box) ContainsBox(other Box) bool {
	return other[0] > b[0] && other[1] > b[1] && other[2] < b[2] && other[3] < b[3]
}

// IoU calculates the Intersection over Union with another box
func (b Box) IoU(other Box) float64 {

	iw := math.Min(b[2], other[2]) - math.Max(b[0], other[0])
	ih := math.Min(b[3], other[3]) - math.Max(b[1], other[1])

	if iw <= 0 || ih <= 0 {
		return 0
	}

	inter := iw * ih
	union := b.Area() + other.Area() - inter

	if union <= 0 {
		return 0
	}

	return inter / union
}

// Xysr converts the box to (center x, center y, area, aspect ratio) format
func (b Box) Xysr() Xysr {
	w := b.Width()
	h := b.Height()

	return Xysr{
		b[0] + w/2,
		b[1] + h/2,
		w * h,
		w / h,
	}
}

// BoxFromXysr creates a Box from (center x, center y, area, aspect ratio)
// values. A negative area or aspect ratio yields NaN coordinates
func BoxFromXysr(z Xysr) Box {
	w := math.Sqrt(z[2] * z[3])
	h := z[2] / w

	return Box{
		z[0] - w/2,
		z[1] - h/2,
		z[0] + w/2,
		z[1] + h/2,
	}
}

// iouMatrix calculates the IoU between every box in aBoxes (rows) and every
// box in bBoxes (columns)
func iouMatrix(aBoxes, bBoxes []Box) [][]float64 {

	ious := make([][]float64, len(aBoxes))

	for ai := range aBoxes {
		ious[ai] = make([]float64, len(bBoxes))

		for bi := range bBoxes {
			ious[ai][bi] = aBoxes[ai].IoU(bBoxes[bi])
		}
	}

	return ious
}
