package detect

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"

	"github.com/swdee/go-anpr/tracker"
)

var (
	black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

func TestLetterBoxResize(t *testing.T) {

	tests := []struct {
		srcWidth      int
		srcHeight     int
		resizeWidth   int
		resizeHeight  int
		expectedXPad  int
		expectedYPad  int
		expectedScale float64
	}{
		{1280, 720, 640, 640, 0, 140, 0.50},
		{800, 1000, 640, 640, 64, 0, 0.64},
		{800, 800, 640, 640, 0, 0, 0.8},
	}

	for _, tc := range tests {
		img := gocv.NewMatWithSize(tc.srcHeight, tc.srcWidth, gocv.MatTypeCV8UC3)
		resizedImg := gocv.NewMat()

		resizer := NewResizer(tc.srcWidth, tc.srcHeight, tc.resizeWidth, tc.resizeHeight)
		resizer.LetterBoxResize(img, &resizedImg, black)

		assert.Equal(t, tc.expectedXPad, resizer.XPad(), "src %dx%d", tc.srcWidth, tc.srcHeight)
		assert.Equal(t, tc.expectedYPad, resizer.YPad(), "src %dx%d", tc.srcWidth, tc.srcHeight)
		assert.InDelta(t, tc.expectedScale, resizer.ScaleFactor(), 1e-9)
		assert.Equal(t, tc.resizeWidth, resizedImg.Cols())
		assert.Equal(t, tc.resizeHeight, resizedImg.Rows())
		assert.True(t, resizer.Fits(tc.srcWidth, tc.srcHeight))

		img.Close()
		resizedImg.Close()
		resizer.Close()
	}
}

func TestResizerToSource(t *testing.T) {
	r := NewResizer(1280, 720, 640, 640)
	defer r.Close()

	// scale 0.5 with 140 pixels of padding top and bottom
	got := r.ToSource(tracker.NewBox(100, 190, 200, 240))
	assert.Equal(t, tracker.NewBox(200, 100, 400, 200), got)

	// padding area clamps to the frame
	got = r.ToSource(tracker.NewBox(-10, 100, 660, 600))
	assert.Equal(t, tracker.NewBox(0, 0, 1280, 720), got)
}
