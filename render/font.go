package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// TTF when set is used instead of the Hershey face, supporting any
	// characters the font file holds
	TTF font.Face
}

// DefaultFont returns the label font used on 2160 line video
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     4.3,
		Color:     Black,
		Thickness: 17,
		LineType:  gocv.LineAA,
	}
}

// scaled returns the font resized by factor, a TTF face is left as is
func (f Font) scaled(factor float64) Font {
	f.Scale *= factor
	f.Thickness = scaleInt(f.Thickness, factor)
	return f
}

// LoadTTF loads a TTF or OTF font file as a face of the given point size
func LoadTTF(fontPath string, size float64) (font.Face, error) {

	fontBytes, err := os.ReadFile(fontPath)

	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	f, err := opentype.Parse(fontBytes)

	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create type face: %w", err)
	}

	return face, nil
}

// TextSize returns the rendered width and height of the text
func (f Font) TextSize(text string) image.Point {

	if f.TTF != nil {
		adv := font.MeasureString(f.TTF, text)
		m := f.TTF.Metrics()
		return image.Pt(adv.Ceil(), (m.Ascent + m.Descent).Ceil())
	}

	return gocv.GetTextSize(text, f.Face, f.Scale, f.Thickness)
}

// PutCentered draws the text centred inside rect. Hershey text is drawn
// directly, TTF text is rasterised over the existing pixels of rect
func (f Font) PutCentered(img *gocv.Mat, text string, rect image.Rectangle) error {

	size := f.TextSize(text)
	cx := (rect.Min.X + rect.Max.X) / 2
	cy := (rect.Min.Y + rect.Max.Y) / 2

	if f.TTF == nil {
		// Hershey text is positioned from its baseline
		gocv.PutTextWithParams(img, text, image.Pt(cx-size.X/2, cy+size.Y/2),
			f.Face, f.Scale, f.Color, f.Thickness, f.LineType, false)
		return nil
	}

	return f.putTTF(img, text, rect, image.Pt(cx-size.X/2-rect.Min.X,
		cy-size.Y/2-rect.Min.Y+f.TTF.Metrics().Ascent.Ceil()))
}

// putTTF rasterises text at dot, relative to rect, over the rect region of
// the BGR image
func (f Font) putTTF(img *gocv.Mat, text string, rect image.Rectangle,
	dot image.Point) error {

	rect = rect.Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))

	if rect.Empty() {
		return fmt.Errorf("text region outside image")
	}

	region := img.Region(rect)
	defer region.Close()

	// copy the region out as RGBA so the glyphs blend with what is there
	roi := region.Clone()
	defer roi.Close()

	bgr, err := roi.ToImage()

	if err != nil {
		return fmt.Errorf("error reading text region: %w", err)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(rgba, rgba.Bounds(), bgr, bgr.Bounds().Min, draw.Src)

	dr := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(f.Color),
		Face: f.TTF,
		Dot:  fixed.P(dot.X, dot.Y),
	}
	dr.DrawString(text)

	txt, err := gocv.ImageToMatRGB(rgba)

	if err != nil {
		return fmt.Errorf("error converting text raster: %w", err)
	}

	defer txt.Close()

	txt.CopyTo(&region)

	return nil
}
