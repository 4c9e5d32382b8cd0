// Package render draws ANPR overlays onto video frames
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"

	"gocv.io/x/gocv"

	"github.com/swdee/go-anpr/internal/monitoring"
	"github.com/swdee/go-anpr/results"
	"github.com/swdee/go-anpr/tracker"
)

// DefaultFourCC is the codec tag of annotated output video
const DefaultFourCC = "XVID"

// referenceHeight is the frame height the default overlay geometry is sized
// for
const referenceHeight = 2160

// Style selects how observations are labelled
type Style int

const (
	// StyleCanonical labels every observation with its track's canonical
	// plate text and crop, drawn in a panel above or below the vehicle
	StyleCanonical Style = 0
	// StyleSimple draws plain boxes with the per frame OCR text
	StyleSimple Style = 1
)

// Params configure the annotator. Pixel sizes are for 2160 line video and
// are scaled to the source height when AutoScale is set
type Params struct {
	// FourCC is the output codec tag
	FourCC string
	Style  Style
	// CropHeight is the height the canonical plate crop is resized to
	CropHeight int
	// CropGap is the space between the vehicle box and the label
	CropGap int
	// PanelHeight is the height of the text panel
	PanelHeight     int
	PanelColor      color.RGBA
	BorderThickness int
	BorderLength    int
	BorderColor     color.RGBA
	PlateThickness  int
	PlateColor      color.RGBA
	Font            Font
	AutoScale       bool
	// Trail draws each track's path through its observations
	Trail      bool
	TrailStyle TrailStyle
}

// DefaultParams returns the annotator defaults:
// - FourCC: XVID
// - Crop Height: 400, Gap: 100, Panel Height: 300
// - Border: green, 25 thick, 200 long corners
// - Plate: red, 12 thick
// - Auto Scale: on
func DefaultParams() Params {
	return Params{
		FourCC:          DefaultFourCC,
		Style:           StyleCanonical,
		CropHeight:      400,
		CropGap:         100,
		PanelHeight:     300,
		PanelColor:      White,
		BorderThickness: 25,
		BorderLength:    200,
		BorderColor:     Green,
		PlateThickness:  12,
		PlateColor:      Red,
		Font:            DefaultFont(),
		AutoScale:       true,
		TrailStyle:      DefaultTrailStyle(),
	}
}

// Stats summarise an annotation run
type Stats struct {
	// Frames is the number of frames written
	Frames int
	// Drawn is the number of observations drawn
	Drawn int
	// Skipped is the number of observations that could not be drawn
	Skipped int
	// Unplaced is the number of drawn observations whose label did not fit
	// above or below the vehicle
	Unplaced int
	// Crops is the number of canonical crops extracted
	Crops int
}

// Annotator renders the observations of a run onto a copy of its source
// video in two passes, the first collecting each track's canonical plate
// crop and the second drawing every frame
type Annotator struct {
	params Params
}

// NewAnnotator returns an annotator using the given parameters
func NewAnnotator(p Params) (*Annotator, error) {

	if len(p.FourCC) != 4 {
		return nil, fmt.Errorf("fourcc must be 4 characters, got %q", p.FourCC)
	}

	if p.CropHeight <= 0 || p.PanelHeight <= 0 || p.CropGap < 0 {
		return nil, errors.New("crop height and panel height must be positive")
	}

	return &Annotator{params: p}, nil
}

// layout holds the overlay geometry for a given frame size
type layout struct {
	cropH, gap, panelH int
	borderT, borderLen int
	plateT             int
	font               Font
	trail              TrailStyle
}

// layoutFor scales the overlay geometry to the frame height
func (a *Annotator) layoutFor(rows int) layout {

	f := 1.0

	if a.params.AutoScale && rows > 0 {
		f = float64(rows) / referenceHeight
	}

	trail := a.params.TrailStyle
	trail.LineThickness = scaleInt(trail.LineThickness, f)
	trail.CircleRadius = scaleInt(trail.CircleRadius, f)

	return layout{
		cropH:     scaleInt(a.params.CropHeight, f),
		gap:       scaleInt(a.params.CropGap, f),
		panelH:    scaleInt(a.params.PanelHeight, f),
		borderT:   scaleInt(a.params.BorderThickness, f),
		borderLen: scaleInt(a.params.BorderLength, f),
		plateT:    scaleInt(a.params.PlateThickness, f),
		font:      a.params.Font.scaled(f),
		trail:     trail,
	}
}

// scaleInt scales a positive pixel size keeping it at least 1
func scaleInt(v int, f float64) int {
	if v <= 0 {
		return v
	}
	return max(1, int(math.Round(float64(v)*f)))
}

// Annotate writes dst as a copy of src with the store's observations drawn
// on the frames they were recorded at. Exactly one frame is written per
// source frame. Observations that cannot be drawn are logged and skipped
func (a *Annotator) Annotate(ctx context.Context, src, dst string,
	store *results.Store, sum results.Summary) (Stats, error) {

	var stats Stats

	var crops map[int]gocv.Mat
	var err error

	if a.params.Style == StyleCanonical {
		crops, err = a.extractCrops(ctx, src, sum)

		if err != nil {
			return stats, err
		}

		defer closeAll(crops)

		stats.Crops = len(crops)
	}

	err = a.render(ctx, src, dst, store, sum, crops, &stats)

	return stats, err
}

// openSource opens the video and reads its frame geometry
func openSource(src string) (*gocv.VideoCapture, int, int, error) {

	capture, err := gocv.VideoCaptureFile(src)

	if err != nil {
		return nil, 0, 0, fmt.Errorf("error opening video %s: %w", src, err)
	}

	if !capture.IsOpened() {
		capture.Close()
		return nil, 0, 0, fmt.Errorf("video %s could not be opened", src)
	}

	cols := int(capture.Get(gocv.VideoCaptureFrameWidth))
	rows := int(capture.Get(gocv.VideoCaptureFrameHeight))

	return capture, cols, rows, nil
}

// extractCrops is the first pass. It decodes the source in order until every
// canonical observation's frame has been seen and returns each track's plate
// crop resized to the crop height
func (a *Annotator) extractCrops(ctx context.Context, src string,
	sum results.Summary) (map[int]gocv.Mat, error) {

	crops := make(map[int]gocv.Mat)

	if len(sum) == 0 {
		return crops, nil
	}

	capture, _, rows, err := openSource(src)

	if err != nil {
		return nil, err
	}

	defer capture.Close()

	l := a.layoutFor(rows)
	wanted := sum.Frames()
	remaining := len(wanted)

	frame := gocv.NewMat()
	defer frame.Close()

	for idx := 0; remaining > 0; idx++ {

		if err := ctx.Err(); err != nil {
			closeAll(crops)
			return nil, err
		}

		if ok := capture.Read(&frame); !ok || frame.Empty() {
			break
		}

		ids, ok := wanted[idx]

		if !ok {
			continue
		}

		remaining--

		for _, id := range ids {
			crop, err := plateCrop(frame, sum[id].PlateBox, l.cropH)

			if err != nil {
				monitoring.Logf("frame %d track %d: skipping canonical crop: %v", idx, id, err)
				continue
			}

			crops[id] = crop
		}
	}

	return crops, nil
}

// plateCrop cuts the plate box out of the frame, resized to height keeping
// its aspect ratio
func plateCrop(frame gocv.Mat, box tracker.Box, height int) (gocv.Mat, error) {

	rect, err := frameRect(box, frame.Cols(), frame.Rows())

	if err != nil {
		return gocv.Mat{}, err
	}

	width := max(1, int(math.Round(float64(rect.Dx())*float64(height)/float64(rect.Dy()))))

	region := frame.Region(rect)
	defer region.Close()

	crop := gocv.NewMat()
	gocv.Resize(region, &crop, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)

	return crop, nil
}

// render is the second pass drawing every frame from the first
func (a *Annotator) render(ctx context.Context, src, dst string,
	store *results.Store, sum results.Summary, crops map[int]gocv.Mat,
	stats *Stats) (err error) {

	capture, cols, rows, err := openSource(src)

	if err != nil {
		return err
	}

	defer capture.Close()

	fps := capture.Get(gocv.VideoCaptureFPS)

	if fps <= 0 {
		return fmt.Errorf("video %s reports no frame rate", src)
	}

	writer, err := gocv.VideoWriterFile(dst, a.params.FourCC, fps, cols, rows, true)

	defer func() {
		if writer != nil {
			writer.Close()
		}

		// an incomplete video is not left behind looking like valid output
		if err != nil {
			if rmErr := os.Remove(dst); rmErr != nil && !os.IsNotExist(rmErr) {
				monitoring.Logf("error removing incomplete video %s: %v", dst, rmErr)
			}
		}
	}()

	if err != nil {
		return fmt.Errorf("error creating video %s: %w", dst, err)
	}

	if !writer.IsOpened() {
		return fmt.Errorf("video writer for %s could not be opened", dst)
	}

	l := a.layoutFor(rows)

	frame := gocv.NewMat()
	defer frame.Close()

	for idx := 0; ; idx++ {

		if err := ctx.Err(); err != nil {
			return err
		}

		if ok := capture.Read(&frame); !ok || frame.Empty() {
			break
		}

		for _, obs := range store.Frame(idx) {
			placed, err := a.drawObservation(&frame, obs, store, sum, crops, l, idx)

			if err != nil {
				stats.Skipped++
				monitoring.Logf("frame %d track %d: skipping observation: %v", idx, obs.TrackID, err)
				continue
			}

			stats.Drawn++

			if !placed {
				stats.Unplaced++
			}
		}

		if err := writer.Write(frame); err != nil {
			return fmt.Errorf("error writing frame %d: %w", idx, err)
		}

		stats.Frames++
	}

	return nil
}

// drawObservation draws one observation. The bool result is false when the
// canonical label was due but fitted neither above nor below the vehicle
func (a *Annotator) drawObservation(img *gocv.Mat, obs results.Observation,
	store *results.Store, sum results.Summary, crops map[int]gocv.Mat, l layout,
	frameIdx int) (bool, error) {

	car, err := frameRect(obs.VehicleBox, img.Cols(), img.Rows())

	if err != nil {
		return false, fmt.Errorf("vehicle box: %w", err)
	}

	plate, err := frameRect(obs.PlateBox, img.Cols(), img.Rows())

	if err != nil {
		return false, fmt.Errorf("plate box: %w", err)
	}

	if a.params.Style == StyleSimple {
		gocv.Rectangle(img, car, a.params.BorderColor, l.plateT)
		gocv.Rectangle(img, plate, a.params.PlateColor, l.plateT)

		size := l.font.TextSize(obs.PlateText)
		label := image.Rect(car.Min.X, car.Min.Y-size.Y-2*l.plateT, car.Min.X+size.X, car.Min.Y)

		if label.Min.Y < 0 {
			label = label.Add(image.Pt(0, -label.Min.Y))
		}

		simple := l.font
		simple.Color = a.params.BorderColor

		return true, simple.PutCentered(img, obs.PlateText, label)
	}

	CornerBorder(img, car, a.params.BorderColor, l.borderT, l.borderLen)
	gocv.Rectangle(img, plate, a.params.PlateColor, l.plateT)

	if a.params.Trail {
		Trail(img, store.Track(obs.TrackID), frameIdx, l.trail)
	}

	canon, ok := sum[obs.TrackID]

	if !ok {
		return true, nil
	}

	crop, hasCrop := crops[obs.TrackID]

	textW := l.font.TextSize(canon.PlateText).X + 2*l.gap
	lw, ch := textW, 0

	if hasCrop {
		lw = labelWidth(crop.Cols(), textW)
		ch = crop.Rows()
	}

	panel, cropRect, placed := placeLabel(car, lw, ch, l, img.Cols(), img.Rows())

	if !placed {
		return false, nil
	}

	if hasCrop {
		region := img.Region(centreIn(cropRect, crop.Cols()))
		crop.CopyTo(&region)
		region.Close()
	}

	gocv.Rectangle(img, panel, a.params.PanelColor, -1)

	if err := l.font.PutCentered(img, canon.PlateText, panel); err != nil {
		return true, fmt.Errorf("label text: %w", err)
	}

	return true, nil
}

// placeLabel positions a label made of a text panel stacked on a crop of
// width cw and height ch, centred on the vehicle and clamped horizontally to
// the frame. The label goes above the vehicle box with the crop nearest the
// vehicle, or below it when there is no room above. The bool result is false
// when neither fits
func placeLabel(car image.Rectangle, cw, ch int, l layout,
	cols, rows int) (panel, crop image.Rectangle, ok bool) {

	if cw > cols {
		return panel, crop, false
	}

	x := (car.Min.X+car.Max.X)/2 - cw/2
	x = max(0, min(x, cols-cw))

	height := l.panelH + ch + l.gap

	if top := car.Min.Y - height; top >= 0 {
		panel = image.Rect(x, top, x+cw, top+l.panelH)
		crop = image.Rect(x, top+l.panelH, x+cw, top+l.panelH+ch)
		return panel, crop, true
	}

	if top := car.Max.Y + l.gap; top+ch+l.panelH <= rows {
		crop = image.Rect(x, top, x+cw, top+ch)
		panel = image.Rect(x, top+ch, x+cw, top+ch+l.panelH)
		return panel, crop, true
	}

	return panel, crop, false
}

// labelWidth is the width of a label holding a crop of width cropW and a text
// panel needing textW, so neither spills past the other
func labelWidth(cropW, textW int) int {
	return max(cropW, textW)
}

// centreIn returns the part of outer of width w centred horizontally
func centreIn(outer image.Rectangle, w int) image.Rectangle {
	x := outer.Min.X + (outer.Dx()-w)/2
	return image.Rect(x, outer.Min.Y, x+w, outer.Max.Y)
}

// frameRect converts a box to a pixel rectangle clamped to the frame. Boxes
// that are not finite, are degenerate or lie wholly outside the frame are
// rejected
func frameRect(b tracker.Box, cols, rows int) (image.Rectangle, error) {

	if !b.IsValid() {
		return image.Rectangle{}, fmt.Errorf("invalid box %v", b)
	}

	r := image.Rect(int(b[0]), int(b[1]), int(math.Ceil(b[2])), int(math.Ceil(b[3])))
	r = r.Intersect(image.Rect(0, 0, cols, rows))

	if r.Empty() {
		return image.Rectangle{}, fmt.Errorf("box %v outside %dx%d frame", b, cols, rows)
	}

	return r, nil
}

func closeAll(mats map[int]gocv.Mat) {
	for _, m := range mats {
		m.Close()
	}
}
