// Package testvideo synthesises small video clips for tests
package testvideo

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// FourCC is the codec used for synthesised clips, available in every
// OpenCV build
const FourCC = "MJPG"

// DrawFunc paints frame i of a clip
type DrawFunc func(i int, img *gocv.Mat)

// WriteClip writes an MJPG AVI of frames frames sized cols x rows at 10fps.
// Each frame starts grey and is then passed to draw when draw is not nil
func WriteClip(path string, frames, cols, rows int, draw DrawFunc) error {

	writer, err := gocv.VideoWriterFile(path, FourCC, 10, cols, rows, true)

	if err != nil {
		return fmt.Errorf("error creating clip: %w", err)
	}

	defer writer.Close()

	if !writer.IsOpened() {
		return fmt.Errorf("clip writer for %s not opened", path)
	}

	img := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC3)
	defer img.Close()

	for i := 0; i < frames; i++ {
		img.SetTo(gocv.NewScalar(128, 128, 128, 0))

		if draw != nil {
			draw(i, &img)
		}

		if err := writer.Write(img); err != nil {
			return fmt.Errorf("error writing clip frame %d: %w", i, err)
		}
	}

	return nil
}

// FillRect paints a solid rectangle, a convenience for DrawFuncs
func FillRect(img *gocv.Mat, x1, y1, x2, y2 int, c color.RGBA) {
	region := img.Region(image.Rect(x1, y1, x2, y2))
	defer region.Close()
	region.SetTo(gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0))
}

// CountFrames decodes the video and returns its frame count and size
func CountFrames(path string) (frames, cols, rows int, err error) {

	capture, err := gocv.VideoCaptureFile(path)

	if err != nil {
		return 0, 0, 0, err
	}

	defer capture.Close()

	img := gocv.NewMat()
	defer img.Close()

	for capture.Read(&img) && !img.Empty() {
		if frames == 0 {
			cols, rows = img.Cols(), img.Rows()
		}
		frames++
	}

	return frames, cols, rows, nil
}
