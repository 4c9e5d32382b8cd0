package render

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/swdee/go-anpr/internal/testvideo"
	"github.com/swdee/go-anpr/results"
	"github.com/swdee/go-anpr/tracker"
)

// testParams returns annotator params writing MJPG so the tests do not rely
// on an XVID encoder being present
func testParams() Params {
	p := DefaultParams()
	p.FourCC = testvideo.FourCC
	return p
}

// carObs returns an observation of a vehicle box with a plate inside it
func carObs(frame, track int, x float64, text string, score float64) results.Observation {
	return results.Observation{
		FrameIndex:     frame,
		TrackID:        track,
		VehicleBox:     tracker.NewBox(x, 200, x+120, 300),
		PlateBox:       tracker.NewBox(x+30, 270, x+90, 290),
		PlateBoxScore:  0.9,
		PlateText:      text,
		PlateTextScore: score,
	}
}

func TestNewAnnotatorValidates(t *testing.T) {
	p := DefaultParams()
	p.FourCC = "XVIDX"
	_, err := NewAnnotator(p)
	assert.Error(t, err)

	p = DefaultParams()
	p.CropHeight = 0
	_, err = NewAnnotator(p)
	assert.Error(t, err)

	_, err = NewAnnotator(DefaultParams())
	assert.NoError(t, err)
}

func TestAnnotateFrameExact(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.avi")
	dst := filepath.Join(dir, "dst.avi")

	require.NoError(t, testvideo.WriteClip(src, 12, 640, 480, nil))

	store := results.NewStore()
	store.Record(carObs(2, 1, 100, "AB12CDE", 0.6))
	store.Record(carObs(3, 1, 110, "AB12CDF", 0.9))
	store.Record(carObs(4, 1, 120, "AB12CDE", 0.7))

	// malformed rows are skipped without dropping their frame
	bad := carObs(5, 2, 100, "XY99ZZZ", 0.5)
	bad.VehicleBox = tracker.NewBox(5000, 5000, 5100, 5100)
	store.Record(bad)

	degenerate := carObs(6, 3, 100, "XY99ZZZ", 0.5)
	degenerate.PlateBox = tracker.NewBox(10, 10, 10, 10)
	store.Record(degenerate)

	a, err := NewAnnotator(testParams())
	require.NoError(t, err)

	stats, err := a.Annotate(context.Background(), src, dst, store, results.Summarize(store))
	require.NoError(t, err)

	assert.Equal(t, 12, stats.Frames)
	assert.Equal(t, 3, stats.Drawn)
	assert.Equal(t, 2, stats.Skipped)
	// track 3 has a degenerate plate so gets no crop
	assert.Equal(t, 2, stats.Crops)

	frames, cols, rows, err := testvideo.CountFrames(dst)
	require.NoError(t, err)
	assert.Equal(t, 12, frames)
	assert.Equal(t, 640, cols)
	assert.Equal(t, 480, rows)
}

func TestAnnotateEmptyStore(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.avi")
	dst := filepath.Join(dir, "dst.avi")

	require.NoError(t, testvideo.WriteClip(src, 7, 320, 240, nil))

	a, err := NewAnnotator(testParams())
	require.NoError(t, err)

	store := results.NewStore()
	stats, err := a.Annotate(context.Background(), src, dst, store, results.Summarize(store))
	require.NoError(t, err)

	assert.Equal(t, Stats{Frames: 7}, stats)

	frames, _, _, err := testvideo.CountFrames(dst)
	require.NoError(t, err)
	assert.Equal(t, 7, frames)
}

func TestAnnotateSimpleStyle(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.avi")
	dst := filepath.Join(dir, "dst.avi")

	require.NoError(t, testvideo.WriteClip(src, 5, 640, 480, nil))

	store := results.NewStore()
	store.Record(carObs(1, 1, 100, "AB12CDE", 0.6))

	p := testParams()
	p.Style = StyleSimple
	a, err := NewAnnotator(p)
	require.NoError(t, err)

	stats, err := a.Annotate(context.Background(), src, dst, store, results.Summarize(store))
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Frames)
	assert.Equal(t, 1, stats.Drawn)
	assert.Equal(t, 0, stats.Crops)
}

func TestAnnotateMissingSource(t *testing.T) {
	a, err := NewAnnotator(testParams())
	require.NoError(t, err)

	dir := t.TempDir()
	_, err = a.Annotate(context.Background(), filepath.Join(dir, "none.avi"),
		filepath.Join(dir, "dst.avi"), results.NewStore(), results.Summary{})
	assert.Error(t, err)
}

func TestAnnotateCanceled(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.avi")
	require.NoError(t, testvideo.WriteClip(src, 3, 320, 240, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a, err := NewAnnotator(testParams())
	require.NoError(t, err)

	dst := filepath.Join(dir, "dst.avi")
	_, err = a.Annotate(ctx, src, dst, results.NewStore(), results.Summary{})
	assert.ErrorIs(t, err, context.Canceled)

	// the incomplete output is removed
	_, err = os.Stat(dst)
	assert.True(t, os.IsNotExist(err))
}

func TestPlaceLabel(t *testing.T) {
	l := layout{cropH: 40, gap: 10, panelH: 30}

	// enough room above
	car := image.Rect(100, 200, 220, 300)
	panel, crop, ok := placeLabel(car, 80, 40, l, 640, 480)
	require.True(t, ok)
	assert.Equal(t, image.Rect(120, 120, 200, 150), panel)
	assert.Equal(t, image.Rect(120, 150, 200, 190), crop)

	// no room above so placed below
	car = image.Rect(100, 20, 220, 120)
	panel, crop, ok = placeLabel(car, 80, 40, l, 640, 480)
	require.True(t, ok)
	assert.Equal(t, image.Rect(120, 130, 200, 170), crop)
	assert.Equal(t, image.Rect(120, 170, 200, 200), panel)

	// vehicle filling the frame height
	car = image.Rect(100, 20, 220, 470)
	_, _, ok = placeLabel(car, 80, 40, l, 640, 480)
	assert.False(t, ok)

	// clamped horizontally at the frame edge
	car = image.Rect(600, 200, 640, 300)
	panel, _, ok = placeLabel(car, 80, 40, l, 640, 480)
	require.True(t, ok)
	assert.Equal(t, 560, panel.Min.X)
	assert.Equal(t, 640, panel.Max.X)

	// wider than the frame
	_, _, ok = placeLabel(car, 700, 40, l, 640, 480)
	assert.False(t, ok)
}

func TestLabelWiderTextThanCrop(t *testing.T) {
	l := layout{cropH: 40, gap: 10, panelH: 30}

	// text needing 200px over an 80px crop widens the label to the text
	lw := labelWidth(80, 200)
	assert.Equal(t, 200, lw)
	assert.Equal(t, 80, labelWidth(80, 60))

	car := image.Rect(100, 200, 220, 300)
	panel, crop, ok := placeLabel(car, lw, 40, l, 640, 480)
	require.True(t, ok)
	assert.Equal(t, image.Rect(60, 120, 260, 150), panel)

	// the crop sits centred under the panel
	assert.Equal(t, image.Rect(120, 150, 200, 190), centreIn(crop, 80))

	// a wide label at the frame edge stays inside the frame
	car = image.Rect(600, 200, 640, 300)
	panel, crop, ok = placeLabel(car, lw, 40, l, 640, 480)
	require.True(t, ok)
	assert.Equal(t, 440, panel.Min.X)
	assert.Equal(t, 640, panel.Max.X)
	assert.Equal(t, image.Rect(500, 150, 580, 190), centreIn(crop, 80))
}

func TestFrameRect(t *testing.T) {
	r, err := frameRect(tracker.NewBox(-10, 5.5, 50.2, 700), 640, 480)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 5, 51, 480), r)

	_, err = frameRect(tracker.NewBox(700, 10, 800, 20), 640, 480)
	assert.Error(t, err)

	_, err = frameRect(tracker.NewBox(50, 10, 40, 20), 640, 480)
	assert.Error(t, err)
}

func TestLayoutAutoScale(t *testing.T) {
	a, err := NewAnnotator(DefaultParams())
	require.NoError(t, err)

	l := a.layoutFor(1080)
	assert.Equal(t, 200, l.cropH)
	assert.Equal(t, 50, l.gap)
	assert.Equal(t, 150, l.panelH)
	assert.InDelta(t, 2.15, l.font.Scale, 1e-9)

	l = a.layoutFor(referenceHeight)
	assert.Equal(t, 400, l.cropH)
	assert.Equal(t, 17, l.font.Thickness)
}

func TestCornerBorder(t *testing.T) {
	img := gocv.NewMatWithSize(200, 200, gocv.MatTypeCV8UC3)
	defer img.Close()

	CornerBorder(&img, image.Rect(20, 20, 180, 180), Green, 3, 30)

	// corners painted, the middle of each edge left alone
	assert.Equal(t, uint8(255), img.GetVecbAt(20, 20)[1])
	assert.Equal(t, uint8(255), img.GetVecbAt(180, 180)[1])
	assert.Equal(t, uint8(0), img.GetVecbAt(20, 100)[1])
	assert.Equal(t, uint8(0), img.GetVecbAt(100, 20)[1])
}

func TestTrackColor(t *testing.T) {
	assert.Equal(t, TrackColor(1), TrackColor(1+len(trackColors)))
	assert.NotEqual(t, TrackColor(1), TrackColor(2))
}
