package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// CornerBorder draws only the four corners of rect, each as two lines of
// length lineLen running along the box edges. The line length is capped at
// half the box side so opposite corners never join
func CornerBorder(img *gocv.Mat, rect image.Rectangle, clr color.RGBA,
	thickness, lineLen int) {

	lx := min(lineLen, rect.Dx()/2)
	ly := min(lineLen, rect.Dy()/2)

	x1, y1 := rect.Min.X, rect.Min.Y
	x2, y2 := rect.Max.X, rect.Max.Y

	// top left
	gocv.Line(img, image.Pt(x1, y1), image.Pt(x1, y1+ly), clr, thickness)
	gocv.Line(img, image.Pt(x1, y1), image.Pt(x1+lx, y1), clr, thickness)
	// bottom left
	gocv.Line(img, image.Pt(x1, y2), image.Pt(x1, y2-ly), clr, thickness)
	gocv.Line(img, image.Pt(x1, y2), image.Pt(x1+lx, y2), clr, thickness)
	// top right
	gocv.Line(img, image.Pt(x2, y1), image.Pt(x2-lx, y1), clr, thickness)
	gocv.Line(img, image.Pt(x2, y1), image.Pt(x2, y1+ly), clr, thickness)
	// bottom right
	gocv.Line(img, image.Pt(x2, y2), image.Pt(x2, y2-ly), clr, thickness)
	gocv.Line(img, image.Pt(x2, y2), image.Pt(x2-lx, y2), clr, thickness)
}
