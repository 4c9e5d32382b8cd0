package tracker

import (
	"fmt"
)

// TrackState represents the lifecycle state of a Track
type TrackState int

const (
	// Tentative tracks exist but are not yet reported
	Tentative TrackState = 0
	// Confirmed tracks are matched this frame and reported
	Confirmed TrackState = 1
	// Lost tracks missed the current frame but have not exceeded the maximum
	// age yet
	Lost TrackState = 2
	// Retired tracks have been removed from the tracker
	Retired TrackState = 3
)

// String returns the state name
func (s TrackState) String() string {
	switch s {
	case Tentative:
		return "tentative"
	case Confirmed:
		return "confirmed"
	case Lost:
		return "lost"
	case Retired:
		return "retired"
	}

	return fmt.Sprintf("TrackState(%d)", int(s))
}

// Track is the state of a single tracked vehicle
type Track struct {
	// kalmanFilter is shared by all tracks of a tracker
	kalmanFilter *KalmanFilter
	// mean is the Kalman state vector
	mean StateMean
	// covariance is the Kalman state covariance
	covariance StateCov
	// id is the unique track identity, assigned once at creation
	id int
	// state is the lifecycle state
	state TrackState
	// age is the number of frames since the track was created
	age int
	// hits is the total number of matched detections
	hits int
	// hitStreak is the number of consecutive frames matched
	hitStreak int
	// framesSinceUpdate is the number of frames since the last match
	framesSinceUpdate int
}

// newTrack creates a Tentative track from its first detection
func newTrack(kf *KalmanFilter, det Box, id int) *Track {

	mean, cov := kf.Initiate(det.Xysr())

	return &Track{
		kalmanFilter: kf,
		mean:         mean,
		covariance:   cov,
		id:           id,
		state:        Tentative,
	}
}

// ID returns the unique track identity
func (t *Track) ID() int {
	return t.id
}

// State returns the lifecycle state of the track
func (t *Track) State() TrackState {
	return t.state
}

// Age returns the number of predict steps the track has been through
func (t *Track) Age() int {
	return t.age
}

// Hits returns the total number of detections matched to the track
func (t *Track) Hits() int {
	return t.hits
}

// HitStreak returns the number of consecutive frames matched
func (t *Track) HitStreak() int {
	return t.hitStreak
}

// FramesSinceUpdate returns the number of frames since the track was last
// matched to a detection
func (t *Track) FramesSinceUpdate() int {
	return t.framesSinceUpdate
}

// Box returns the current bounding box estimate
func (t *Track) Box() Box {
	return BoxFromXysr(Xysr{t.mean[0], t.mean[1], t.mean[2], t.mean[3]})
}

// predict advances the motion state one frame and returns the predicted box
func (t *Track) predict() Box {

	// stop the area shrinking below zero
	if t.mean[6]+t.mean[2] <= 0 {
		t.mean[6] = 0
	}

	t.kalmanFilter.Predict(t.mean, &t.covariance)

	t.age++

	if t.framesSinceUpdate > 0 {
		t.hitStreak = 0
	}

	t.framesSinceUpdate++

	return t.Box()
}

// update corrects the motion state with a matched detection
func (t *Track) update(det Box) error {

	err := t.kalmanFilter.Update(t.mean, &t.covariance, det.Xysr())

	if err != nil {
		return fmt.Errorf("error updating track %d: %w", t.id, err)
	}

	t.framesSinceUpdate = 0
	t.hits++
	t.hitStreak++

	return nil
}
