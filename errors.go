package anpr

import (
	"fmt"
)

// Kind classifies a fatal pipeline failure
type Kind int

const (
	// VideoIO is a source video that cannot be opened or a read that fails
	// part way through, or an output video that cannot be written
	VideoIO Kind = 1
	// Detect is a detector failure
	Detect Kind = 2
	// Track is a tracker failure
	Track Kind = 3
	// OCR is a plate reader failure, as distinct from a plate that could not
	// be read
	OCR Kind = 4
	// Export is a failure writing the result table
	Export Kind = 5
	// Canceled is a run stopped by its context
	Canceled Kind = 6
)

// String returns a readable description of the kind
func (k Kind) String() string {
	switch k {
	case VideoIO:
		return "video io failed"
	case Detect:
		return "detection failed"
	case Track:
		return "tracking failed"
	case OCR:
		return "plate reading failed"
	case Export:
		return "export failed"
	case Canceled:
		return "run canceled"
	default:
		return fmt.Sprintf("unknown error kind %d", int(k))
	}
}

// Error is the single structured failure returned by a run
type Error struct {
	Kind Kind
	// Frame is the index of the frame being processed or -1 when the failure
	// is not tied to a frame
	Frame int
	// Path is the file involved, if any
	Path string
	Err  error
}

// Error implements the error interface
func (e *Error) Error() string {

	msg := e.Kind.String()

	if e.Frame >= 0 {
		msg = fmt.Sprintf("%s at frame %d", msg, e.Frame)
	}

	if e.Path != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Path)
	}

	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same Kind so callers can test with
// errors.Is(err, &anpr.Error{Kind: anpr.OCR})
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// newError builds an Error for a frame
func newError(kind Kind, frame int, path string, err error) *Error {
	return &Error{Kind: kind, Frame: frame, Path: path, Err: err}
}
