package anpr

import (
	"fmt"

	"gocv.io/x/gocv"
)

// FrameSource supplies decoded frames in order
type FrameSource interface {
	// Read decodes the next frame into dst returning false at the end of the
	// stream or on failure
	Read(dst *gocv.Mat) bool
	// FrameCount returns the number of frames the source reports, or 0 when
	// unknown
	FrameCount() int
	Close() error
}

// videoSource is a FrameSource over a gocv VideoCapture
type videoSource struct {
	capture *gocv.VideoCapture
	count   int
}

// OpenVideo opens a video file as a FrameSource
func OpenVideo(path string) (FrameSource, error) {

	capture, err := gocv.VideoCaptureFile(path)

	if err != nil {
		if capture != nil {
			capture.Close()
		}
		return nil, fmt.Errorf("error opening video: %w", err)
	}

	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("video could not be opened")
	}

	count := int(capture.Get(gocv.VideoCaptureFrameCount))

	if count < 0 {
		count = 0
	}

	return &videoSource{capture: capture, count: count}, nil
}

func (v *videoSource) Read(dst *gocv.Mat) bool {
	return v.capture.Read(dst)
}

func (v *videoSource) FrameCount() int {
	return v.count
}

func (v *videoSource) Close() error {
	return v.capture.Close()
}
