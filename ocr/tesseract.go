package ocr

import (
	"errors"
	"fmt"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// plateWhitelist are the characters that may appear on a plate
const plateWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// TesseractParams configure the Tesseract plate reader
type TesseractParams struct {
	// Language is the Tesseract trained data language
	Language string
	// Whitelist limits the characters Tesseract may return
	Whitelist string
	// MinConfidence is the lowest mean word confidence, in [0,1], accepted
	MinConfidence float64
	// Format validates and corrects the text read, nil accepts any text
	Format Formatter
}

// DefaultTesseractParams returns parameters reading UK plates:
// - Language: eng
// - Whitelist: A-Z 0-9
// - Min Confidence: 0
// - Format: UK AA99AAA
func DefaultTesseractParams() TesseractParams {
	return TesseractParams{
		Language:  "eng",
		Whitelist: plateWhitelist,
		Format:    UKFormat,
	}
}

// Tesseract reads plate crops with a Tesseract client. An instance is not
// safe for concurrent use
type Tesseract struct {
	params TesseractParams
	client *gosseract.Client
}

// NewTesseract returns a plate reader using single line page segmentation
func NewTesseract(p TesseractParams) (*Tesseract, error) {

	client := gosseract.NewClient()

	if p.Language != "" {
		if err := client.SetLanguage(p.Language); err != nil {
			client.Close()
			return nil, fmt.Errorf("error setting tesseract language: %w", err)
		}
	}

	if p.Whitelist != "" {
		if err := client.SetWhitelist(p.Whitelist); err != nil {
			client.Close()
			return nil, fmt.Errorf("error setting tesseract whitelist: %w", err)
		}
	}

	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		client.Close()
		return nil, fmt.Errorf("error setting tesseract page mode: %w", err)
	}

	if p.Format == nil {
		p.Format = AnyFormat
	}

	return &Tesseract{
		params: p,
		client: client,
	}, nil
}

// Close frees the Tesseract client
func (t *Tesseract) Close() error {
	return t.client.Close()
}

// Read returns the plate text and a confidence in [0,1] being the mean word
// confidence. The bool result is false when nothing usable was read, which
// is not an error
func (t *Tesseract) Read(crop gocv.Mat) (string, float64, bool, error) {

	if crop.Empty() {
		return "", 0, false, errors.New("empty plate crop")
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, crop)

	if err != nil {
		return "", 0, false, fmt.Errorf("error encoding plate crop: %w", err)
	}

	defer buf.Close()

	if err := t.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return "", 0, false, fmt.Errorf("error setting ocr image: %w", err)
	}

	raw, err := t.client.Text()

	if err != nil {
		return "", 0, false, fmt.Errorf("error reading plate text: %w", err)
	}

	text, ok := t.params.Format(raw)

	if !ok {
		return "", 0, false, nil
	}

	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)

	if err != nil {
		return "", 0, false, fmt.Errorf("error reading word confidence: %w", err)
	}

	score := meanConfidence(boxes)

	if score < t.params.MinConfidence {
		return "", 0, false, nil
	}

	return text, score, true, nil
}

// meanConfidence averages the positive word confidences, converted from
// Tesseract's percentage to [0,1]
func meanConfidence(boxes []gosseract.BoundingBox) float64 {

	var total float64
	var n int

	for _, b := range boxes {
		if b.Confidence > 0 {
			total += b.Confidence
			n++
		}
	}

	if n == 0 {
		return 0
	}

	return total / float64(n) / 100
}
