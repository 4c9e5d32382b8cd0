package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/swdee/go-anpr/tracker"
)

// Header is the column layout of the exported table
var Header = []string{
	"frame_nmr",
	"car_id",
	"car_bbox",
	"license_plate_bbox",
	"license_plate_bbox_score",
	"license_number",
	"license_number_score",
}

// WriteCSV writes every live observation of the store as a table row ordered
// by frame then track ID
func WriteCSV(w io.Writer, s *Store) error {

	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("error writing csv header: %w", err)
	}

	for _, obs := range s.Rows() {
		rec := []string{
			strconv.Itoa(obs.FrameIndex),
			strconv.Itoa(obs.TrackID),
			FormatBox(obs.VehicleBox),
			FormatBox(obs.PlateBox),
			formatFloat(obs.PlateBoxScore),
			obs.PlateText,
			formatFloat(obs.PlateTextScore),
		}

		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("error writing csv row for frame %d: %w",
				obs.FrameIndex, err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("error flushing csv: %w", err)
	}

	return nil
}

// RowError describes a table row that could not be read back
type RowError struct {
	// Line is the 1-based line number of the row in the table
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ReadCSV reads a table written by WriteCSV into a new store using the
// LastWriteWins policy. Rows that fail to parse are skipped and returned as
// RowErrors, a malformed header or a read failure is returned as the error
func ReadCSV(r io.Reader) (*Store, []*RowError, error) {

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	head, err := cr.Read()

	if err != nil {
		return nil, nil, fmt.Errorf("error reading csv header: %w", err)
	}

	if len(head) < len(Header) {
		return nil, nil, fmt.Errorf("csv header has %d columns, expected %d",
			len(head), len(Header))
	}

	for i, name := range Header {
		if strings.TrimSpace(head[i]) != name {
			return nil, nil, fmt.Errorf("csv column %d is %q, expected %q",
				i, head[i], name)
		}
	}

	store := NewStore()
	var skipped []*RowError

	for {
		rec, err := cr.Read()

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			var perr *csv.ParseError

			if errors.As(err, &perr) {
				skipped = append(skipped, &RowError{Line: perr.Line, Err: err})
				continue
			}

			return store, skipped, fmt.Errorf("error reading csv: %w", err)
		}

		line, _ := cr.FieldPos(0)
		obs, err := parseRow(rec)

		if err != nil {
			skipped = append(skipped, &RowError{Line: line, Err: err})
			continue
		}

		store.Record(obs)
	}

	return store, skipped, nil
}

// parseRow converts a table record into an Observation
func parseRow(rec []string) (Observation, error) {

	var obs Observation
	var err error

	if len(rec) < len(Header) {
		return obs, fmt.Errorf("row has %d columns, expected %d", len(rec), len(Header))
	}

	if obs.FrameIndex, err = strconv.Atoi(strings.TrimSpace(rec[0])); err != nil {
		return obs, fmt.Errorf("invalid frame_nmr: %w", err)
	}

	if obs.TrackID, err = parseID(rec[1]); err != nil {
		return obs, fmt.Errorf("invalid car_id: %w", err)
	}

	if obs.VehicleBox, err = ParseBox(rec[2]); err != nil {
		return obs, fmt.Errorf("invalid car_bbox: %w", err)
	}

	if obs.PlateBox, err = ParseBox(rec[3]); err != nil {
		return obs, fmt.Errorf("invalid license_plate_bbox: %w", err)
	}

	if obs.PlateBoxScore, err = strconv.ParseFloat(strings.TrimSpace(rec[4]), 64); err != nil {
		return obs, fmt.Errorf("invalid license_plate_bbox_score: %w", err)
	}

	obs.PlateText = rec[5]

	if obs.PlateTextScore, err = strconv.ParseFloat(strings.TrimSpace(rec[6]), 64); err != nil {
		return obs, fmt.Errorf("invalid license_number_score: %w", err)
	}

	return obs, nil
}

// parseID accepts integer track IDs also written in float form such as "3.0"
func parseID(s string) (int, error) {

	s = strings.TrimSpace(s)

	if id, err := strconv.Atoi(s); err == nil {
		return id, nil
	}

	f, err := strconv.ParseFloat(s, 64)

	if err != nil {
		return 0, err
	}

	if f != float64(int(f)) {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}

	return int(f), nil
}

// FormatBox renders a box as "[x1 y1 x2 y2]" with single space separators
func FormatBox(b tracker.Box) string {
	return "[" + formatFloat(b[0]) + " " + formatFloat(b[1]) + " " +
		formatFloat(b[2]) + " " + formatFloat(b[3]) + "]"
}

// ParseBox reads four coordinates from a box string. Brackets are optional,
// coordinates may be separated by any run of whitespace and/or commas
func ParseBox(s string) (tracker.Box, error) {

	var b tracker.Box

	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})

	if len(fields) != 4 {
		return b, fmt.Errorf("box %q has %d coordinates, expected 4", s, len(fields))
	}

	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)

		if err != nil {
			return b, fmt.Errorf("box coordinate %d: %w", i, err)
		}

		b[i] = v
	}

	return b, nil
}

// formatFloat writes the shortest representation that parses back exactly
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
