// Package results holds the accepted plate observations of a video run, the
// per track canonical summary and the tabular exports
package results

import (
	"fmt"
	"sort"

	"github.com/swdee/go-anpr/tracker"
)

// Observation is an accepted plate reading, a plate detection that was both
// assigned to a vehicle track and read by OCR
type Observation struct {
	// FrameIndex is the 0-based index of the source frame
	FrameIndex int
	// TrackID is the identity of the owning vehicle track
	TrackID int
	// VehicleBox is the track box at the frame
	VehicleBox tracker.Box
	// PlateBox is the plate detection box
	PlateBox tracker.Box
	// PlateBoxScore is the plate detection confidence
	PlateBoxScore float64
	// PlateText is the OCR reading
	PlateText string
	// PlateTextScore is the OCR confidence
	PlateTextScore float64
}

// WritePolicy decides which observation is kept when two are recorded for
// the same frame and track
type WritePolicy int

const (
	// LastWriteWins keeps the most recently recorded observation
	LastWriteWins WritePolicy = 0
	// KeepHighest keeps the observation with the higher OCR confidence, the
	// earlier recorded one on a tie
	KeepHighest WritePolicy = 1
)

// String returns the policy name as used in configuration files
func (p WritePolicy) String() string {
	switch p {
	case LastWriteWins:
		return "last"
	case KeepHighest:
		return "highest"
	}
	return fmt.Sprintf("WritePolicy(%d)", int(p))
}

// ParseWritePolicy returns the WritePolicy for the given configuration name
func ParseWritePolicy(s string) (WritePolicy, error) {
	switch s {
	case "", "last":
		return LastWriteWins, nil
	case "highest":
		return KeepHighest, nil
	}
	return 0, fmt.Errorf("unknown write policy %q", s)
}

// Store is an append only arena of observations indexed by frame and by
// track. It holds at most one live observation per (frame, track) pair and
// is not safe for concurrent writers
type Store struct {
	policy WritePolicy
	// arena holds every recorded observation, including replaced ones
	arena []Observation
	// frames lists the frame indices in the order first recorded
	frames []int
	// byFrame maps frame index to track ID to arena slot
	byFrame map[int]map[int]int
	// byTrack maps track ID to the arena slots of its live observations
	byTrack map[int][]int
}

// NewStore returns an empty store using the LastWriteWins policy
func NewStore() *Store {
	return NewStoreWithPolicy(LastWriteWins)
}

// NewStoreWithPolicy returns an empty store using the given write policy
func NewStoreWithPolicy(policy WritePolicy) *Store {
	return &Store{
		policy:  policy,
		byFrame: make(map[int]map[int]int),
		byTrack: make(map[int][]int),
	}
}

// Policy returns the write policy of the store
func (s *Store) Policy() WritePolicy {
	return s.policy
}

// Record inserts the observation, or replaces the live observation already
// held for its frame and track according to the write policy. stored is false
// when the policy kept the existing observation instead, dup is true when an
// observation for the same frame and track already existed
func (s *Store) Record(obs Observation) (stored, dup bool) {

	tracks, ok := s.byFrame[obs.FrameIndex]

	if !ok {
		tracks = make(map[int]int)
		s.byFrame[obs.FrameIndex] = tracks
		s.frames = append(s.frames, obs.FrameIndex)
	}

	prev, dup := tracks[obs.TrackID]

	if dup && s.policy == KeepHighest &&
		s.arena[prev].PlateTextScore >= obs.PlateTextScore {
		return false, true
	}

	slot := len(s.arena)
	s.arena = append(s.arena, obs)
	tracks[obs.TrackID] = slot

	if dup {
		slots := s.byTrack[obs.TrackID]

		for i, v := range slots {
			if v == prev {
				slots[i] = slot
				break
			}
		}

	} else {
		s.byTrack[obs.TrackID] = append(s.byTrack[obs.TrackID], slot)
	}

	return true, dup
}

// Len returns the number of live observations
func (s *Store) Len() int {
	n := 0
	for _, tracks := range s.byFrame {
		n += len(tracks)
	}
	return n
}

// Frame returns the observations recorded at the frame ordered by ascending
// track ID
func (s *Store) Frame(frameIndex int) []Observation {

	tracks, ok := s.byFrame[frameIndex]

	if !ok {
		return nil
	}

	ids := make([]int, 0, len(tracks))

	for id := range tracks {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	out := make([]Observation, len(ids))

	for i, id := range ids {
		out[i] = s.arena[tracks[id]]
	}

	return out
}

// Track returns the observations of a track in ascending frame order
func (s *Store) Track(trackID int) []Observation {

	slots := s.byTrack[trackID]
	out := make([]Observation, len(slots))

	for i, slot := range slots {
		out[i] = s.arena[slot]
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FrameIndex < out[j].FrameIndex
	})

	return out
}

// TrackIDs returns the IDs of all tracks holding observations in ascending
// order
func (s *Store) TrackIDs() []int {

	ids := make([]int, 0, len(s.byTrack))

	for id := range s.byTrack {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	return ids
}

// Frames returns the frame indices holding observations in ascending order
func (s *Store) Frames() []int {
	out := make([]int, len(s.frames))
	copy(out, s.frames)
	sort.Ints(out)
	return out
}

// Rows flattens the store ordered by ascending frame index then ascending
// track ID
func (s *Store) Rows() []Observation {

	out := make([]Observation, 0, s.Len())

	for _, frame := range s.Frames() {
		out = append(out, s.Frame(frame)...)
	}

	return out
}
