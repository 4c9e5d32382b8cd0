package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/swdee/go-anpr/results"
)

// TrailStyle defines the parameters used for rendering a track's path
type TrailStyle struct {
	// LineSame defines if the color of the trail line should be the
	// same color as the track.  If set to false then use the color
	// specified at LineColor
	LineSame      bool
	LineColor     color.RGBA
	LineThickness int
	CircleRadius  int
	// Length is the maximum number of points drawn, 0 draws all
	Length int
}

// DefaultTrailStyle returns default trail style settings
func DefaultTrailStyle() TrailStyle {
	return TrailStyle{
		LineSame:      true,
		LineColor:     Yellow,
		LineThickness: 4,
		CircleRadius:  8,
		Length:        50,
	}
}

// Trail draws the path of the track's vehicle box centres through the
// observations recorded up to and including frame
func Trail(img *gocv.Mat, history []results.Observation, frame int,
	style TrailStyle) {

	var points []image.Point

	for _, obs := range history {
		if obs.FrameIndex > frame {
			continue
		}

		b := obs.VehicleBox
		points = append(points, image.Pt(int((b[0]+b[2])/2), int((b[1]+b[3])/2)))
	}

	if style.Length > 0 && len(points) > style.Length {
		points = points[len(points)-style.Length:]
	}

	if len(points) < 2 {
		return
	}

	clr := style.LineColor

	if style.LineSame {
		clr = TrackColor(history[0].TrackID)
	}

	for i := 1; i < len(points); i++ {
		gocv.Line(img, points[i-1], points[i], clr, style.LineThickness)
	}

	gocv.Circle(img, points[len(points)-1], style.CircleRadius, clr, -1)
}
