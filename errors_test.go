package anpr

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := newError(OCR, 12, "clip.mp4", io.ErrUnexpectedEOF)
	assert.Equal(t, "plate reading failed at frame 12 (clip.mp4): unexpected EOF", err.Error())

	err = newError(Export, -1, "", errors.New("disk full"))
	assert.Equal(t, "export failed: disk full", err.Error())

	assert.Equal(t, "unknown error kind 42", Kind(42).String())
}

func TestErrorMatching(t *testing.T) {
	var err error = newError(Track, 3, "", io.EOF)

	assert.True(t, errors.Is(err, io.EOF))
	assert.True(t, errors.Is(err, &Error{Kind: Track}))
	assert.False(t, errors.Is(err, &Error{Kind: Detect}))

	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, 3, e.Frame)
}
