package tracker

import (
	"errors"
	"fmt"
	"math"
)

// Params are the SORT tracker policy values
type Params struct {
	// IoUThreshold is the IoU a detection and predicted track box must exceed
	// to be associated
	IoUThreshold float64
	// MaxAge is the number of consecutive frames a track may go unmatched
	// before it is retired
	MaxAge int
	// MinHits is the number of consecutive matches needed before a track is
	// reported. During the first MinHits frames of a run tracks are reported
	// as soon as they are matched
	MinHits int
}

// DefaultParams returns the SORT default policy:
// - IoU Threshold: 0.3
// - Max Age: 1 frame
// - Min Hits: 3 frames
func DefaultParams() Params {
	return Params{
		IoUThreshold: 0.3,
		MaxAge:       1,
		MinHits:      3,
	}
}

// Validate checks the parameters are usable
func (p Params) Validate() error {
	if p.IoUThreshold < 0 || p.IoUThreshold >= 1 {
		return fmt.Errorf("iou threshold must be in [0,1), got %v", p.IoUThreshold)
	}
	if p.MaxAge < 0 {
		return errors.New("max age must not be negative")
	}
	if p.MinHits < 0 {
		return errors.New("min hits must not be negative")
	}
	return nil
}

// TrackedBox is a reported track, being its current box estimate and identity
type TrackedBox struct {
	Box Box
	ID  int
}

// SORT is a Simple Online and Realtime Tracker assigning stable identities to
// per frame vehicle detections. It is not safe for concurrent use and must be
// fed frames in order
type SORT struct {
	params Params
	// kalmanFilter is the motion model shared by all tracks
	kalmanFilter *KalmanFilter
	// tracks are the active tracks in creation (ascending ID) order
	tracks []*Track
	// predicted holds each track's predicted box when Predict has been
	// called for the coming frame
	predicted []Box
	// frameCount is the number of Update calls made
	frameCount int
	// trackIDCount is the last track ID handed out
	trackIDCount int
}

// NewSORT returns a new tracker using the given parameters
func NewSORT(p Params) *SORT {
	return &SORT{
		params:       p,
		kalmanFilter: NewKalmanFilter(),
	}
}

// Reset clears all tracks and the identity counter
func (s *SORT) Reset() {
	s.tracks = nil
	s.predicted = nil
	s.frameCount = 0
	s.trackIDCount = 0
}

// FrameCount returns the number of frames processed
func (s *SORT) FrameCount() int {
	return s.frameCount
}

// TrackCount returns the total number of track identities created
func (s *SORT) TrackCount() int {
	return s.trackIDCount
}

// Tracks returns the active tracks in ascending ID order
func (s *SORT) Tracks() []*Track {
	out := make([]*Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

// Predict advances every active track by one frame using the constant
// velocity model and returns the predicted boxes. Tracks whose prediction is
// not a finite box are dropped. Update calls Predict itself unless it has
// already been called for the coming frame
func (s *SORT) Predict() []TrackedBox {

	alive := s.tracks[:0]
	s.predicted = s.predicted[:0]

	for _, track := range s.tracks {
		box := track.predict()

		if hasNaN(box) {
			track.state = Retired
			continue
		}

		alive = append(alive, track)
		s.predicted = append(s.predicted, box)
	}

	s.tracks = alive

	out := make([]TrackedBox, len(s.tracks))

	for i, track := range s.tracks {
		out[i] = TrackedBox{Box: s.predicted[i], ID: track.id}
	}

	return out
}

// Update associates the frame's vehicle detections with the active tracks and
// returns the reported tracks in ascending ID order. An empty detection list
// is valid and ages every track
func (s *SORT) Update(dets []Box) ([]TrackedBox, error) {

	if s.predicted == nil || len(s.predicted) != len(s.tracks) {
		s.Predict()
	}

	predicted := s.predicted
	s.predicted = nil
	s.frameCount++

	matches, unmatchedDets, unmatchedTrks, err := associate(dets, predicted,
		s.params.IoUThreshold)

	if err != nil {
		return nil, fmt.Errorf("error associating frame %d: %w", s.frameCount, err)
	}

	for _, m := range matches {
		err := s.tracks[m[1]].update(dets[m[0]])

		if err != nil {
			return nil, fmt.Errorf("error updating frame %d: %w", s.frameCount, err)
		}
	}

	for _, idx := range unmatchedTrks {
		s.tracks[idx].state = Lost
	}

	// new tracks are created in detection input order
	for _, idx := range unmatchedDets {
		if !dets[idx].IsValid() {
			continue
		}

		s.trackIDCount++
		s.tracks = append(s.tracks, newTrack(s.kalmanFilter, dets[idx], s.trackIDCount))
	}

	var out []TrackedBox
	alive := s.tracks[:0]

	for _, track := range s.tracks {

		if track.framesSinceUpdate < 1 {
			if track.hitStreak >= s.params.MinHits || s.frameCount <= s.params.MinHits {
				track.state = Confirmed
				out = append(out, TrackedBox{Box: track.Box(), ID: track.id})
			} else {
				track.state = Tentative
			}
		}

		if track.framesSinceUpdate > s.params.MaxAge {
			track.state = Retired
			continue
		}

		alive = append(alive, track)
	}

	s.tracks = alive

	return out, nil
}

// hasNaN reports whether any coordinate of the box is NaN
func hasNaN(b Box) bool {
	for _, v := range b {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
