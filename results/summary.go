package results

import "sort"

// Summary maps each track ID to its canonical observation, the one with the
// highest OCR confidence
type Summary map[int]Observation

// Summarize selects the canonical observation of every track in the store.
// Ties on confidence are broken by the earliest frame. Tracks with no
// observations are absent
func Summarize(s *Store) Summary {

	sum := make(Summary)

	for _, obs := range s.Rows() {
		best, ok := sum[obs.TrackID]

		// rows are in ascending frame order so a strict comparison keeps the
		// earliest frame on a tie
		if !ok || obs.PlateTextScore > best.PlateTextScore {
			sum[obs.TrackID] = obs
		}
	}

	return sum
}

// Frames maps each frame index holding a canonical observation to the
// ascending IDs of the tracks canonical at that frame
func (s Summary) Frames() map[int][]int {

	out := make(map[int][]int)

	for id, obs := range s {
		out[obs.FrameIndex] = append(out[obs.FrameIndex], id)
	}

	for _, ids := range out {
		sort.Ints(ids)
	}

	return out
}
