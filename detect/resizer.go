package detect

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/swdee/go-anpr/tracker"
)

// Resizer letterbox scales source frames to the model input size and maps
// model coordinates back to the source frame
type Resizer struct {
	// srcWidth is the width of the source image
	srcWidth int
	// srcHeight is the height of the source image
	srcHeight int
	// destWidth is the width to scale to
	destWidth int
	// destHeight is the height to scale to
	destHeight int
	// tempMat is a Mat used during the resize process
	tempMat gocv.Mat
	// letterbox parameters used in scaling
	xPad  int
	yPad  int
	scale float64
	// resize dimensions
	resizeW int
	resizeH int
}

// NewResizer returns a resizer scaling srcWidth x srcHeight images into
// destWidth x destHeight
func NewResizer(srcWidth, srcHeight, destWidth, destHeight int) *Resizer {
	r := &Resizer{
		srcWidth:   srcWidth,
		srcHeight:  srcHeight,
		destWidth:  destWidth,
		destHeight: destHeight,
		tempMat:    gocv.NewMat(),
	}

	r.preCalc()

	return r
}

// Close frees memory allocated during resize process
func (r *Resizer) Close() error {
	return r.tempMat.Close()
}

// preCalc works out the scale and padding keeping the source aspect ratio
func (r *Resizer) preCalc() {

	r.resizeW = r.destWidth
	r.resizeH = r.destHeight

	scaleW := float64(r.destWidth) / float64(r.srcWidth)
	scaleH := float64(r.destHeight) / float64(r.srcHeight)
	r.scale = scaleH

	if scaleW < scaleH {
		r.scale = scaleW
		r.resizeH = int(float64(r.srcHeight) * r.scale)
	} else {
		r.resizeW = int(float64(r.srcWidth) * r.scale)
	}

	r.yPad = (r.destHeight - r.resizeH) / 2
	r.xPad = (r.destWidth - r.resizeW) / 2
}

// Fits reports whether the resizer was built for a source of the given size
func (r *Resizer) Fits(srcWidth, srcHeight int) bool {
	return r.srcWidth == srcWidth && r.srcHeight == srcHeight
}

// LetterBoxResize resizes src into dest at the model input size keeping the
// aspect ratio, padding the borders with the given color
func (r *Resizer) LetterBoxResize(src gocv.Mat, dest *gocv.Mat, c color.RGBA) {

	gocv.Resize(src, &r.tempMat, image.Pt(r.resizeW, r.resizeH),
		0, 0, gocv.InterpolationArea)

	gocv.CopyMakeBorder(r.tempMat, dest, r.yPad, r.destHeight-r.resizeH-r.yPad,
		r.xPad, r.destWidth-r.resizeW-r.xPad, gocv.BorderConstant, c)
}

// ToSource maps a box in model input coordinates back to the source image,
// clamped to the source bounds
func (r *Resizer) ToSource(b tracker.Box) tracker.Box {

	conv := func(v float64, pad, limit int) float64 {
		v = (v - float64(pad)) / r.scale

		if v < 0 {
			return 0
		}

		if v > float64(limit) {
			return float64(limit)
		}

		return v
	}

	return tracker.NewBox(
		conv(b[0], r.xPad, r.srcWidth),
		conv(b[1], r.yPad, r.srcHeight),
		conv(b[2], r.xPad, r.srcWidth),
		conv(b[3], r.yPad, r.srcHeight),
	)
}

// ScaleFactor returns the scale factor used in letterbox resize
func (r *Resizer) ScaleFactor() float64 {
	return r.scale
}

// XPad returns the x padding used in letterbox resize
func (r *Resizer) XPad() int {
	return r.xPad
}

// YPad returns the y padding used in letterbox resize
func (r *Resizer) YPad() int {
	return r.yPad
}
