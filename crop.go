package anpr

import (
	"fmt"
	"image"
	"math"

	"github.com/swdee/go-anpr/tracker"
	"gocv.io/x/gocv"
)

// plateCrop cuts the plate box out of the frame and prepares it for reading:
// grayscale followed by an inverse binary threshold so dark characters end up
// white on black
func plateCrop(frame gocv.Mat, box tracker.Box, threshold float32) (gocv.Mat, error) {

	rect, err := clampRect(box, frame.Cols(), frame.Rows())

	if err != nil {
		return gocv.Mat{}, err
	}

	region := frame.Region(rect)
	defer region.Close()

	gray := gocv.NewMat()
	defer gray.Close()

	if region.Channels() == 1 {
		region.CopyTo(&gray)
	} else {
		gocv.CvtColor(region, &gray, gocv.ColorBGRToGray)
	}

	crop := gocv.NewMat()
	gocv.Threshold(gray, &crop, threshold, 255, gocv.ThresholdBinaryInv)

	return crop, nil
}

// clampRect converts the box to integer pixels clipped to the frame, failing
// when nothing of it is left
func clampRect(b tracker.Box, cols, rows int) (image.Rectangle, error) {

	if !b.IsValid() {
		return image.Rectangle{}, fmt.Errorf("invalid plate box %v", b)
	}

	rect := image.Rect(
		int(math.Floor(b.X1())), int(math.Floor(b.Y1())),
		int(math.Ceil(b.X2())), int(math.Ceil(b.Y2())),
	).Intersect(image.Rect(0, 0, cols, rows))

	if rect.Empty() {
		return image.Rectangle{}, fmt.Errorf("plate box %v outside the frame", b)
	}

	return rect, nil
}
