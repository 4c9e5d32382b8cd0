package tracker

import (
	"fmt"
)

// tieBreakEpsilon orders otherwise equal cost pairings by detection index
const tieBreakEpsilon = 1e-12

// associate matches detections (rows) to predicted track boxes (columns) by
// IoU. A pairing is only accepted when its IoU exceeds iouThreshold. Matches
// are returned as [detection, track] index pairs ordered by detection index
func associate(dets, trks []Box, iouThreshold float64) (matches [][2]int,
	unmatchedDets, unmatchedTrks []int, err error) {

	if len(trks) == 0 || len(dets) == 0 {
		for i := range dets {
			unmatchedDets = append(unmatchedDets, i)
		}
		for i := range trks {
			unmatchedTrks = append(unmatchedTrks, i)
		}
		return
	}

	ious := iouMatrix(dets, trks)

	var candidates [][2]int

	if isOneToOne(ious, iouThreshold) {
		// every detection overlaps at most one track and vice versa so the
		// optimal assignment is given directly
		for d := range ious {
			for t := range ious[d] {
				if ious[d][t] > iouThreshold {
					candidates = append(candidates, [2]int{d, t})
				}
			}
		}

	} else {
		rowsol, err := linearAssignment(ious)

		if err != nil {
			return nil, nil, nil, fmt.Errorf("linear assignment failed: %w", err)
		}

		for d, t := range rowsol {
			if t >= 0 {
				candidates = append(candidates, [2]int{d, t})
			}
		}
	}

	detMatched := make([]bool, len(dets))
	trkMatched := make([]bool, len(trks))

	for _, c := range candidates {
		if ious[c[0]][c[1]] <= iouThreshold {
			continue
		}

		detMatched[c[0]] = true
		trkMatched[c[1]] = true
		matches = append(matches, c)
	}

	for i, ok := range detMatched {
		if !ok {
			unmatchedDets = append(unmatchedDets, i)
		}
	}

	for i, ok := range trkMatched {
		if !ok {
			unmatchedTrks = append(unmatchedTrks, i)
		}
	}

	return matches, unmatchedDets, unmatchedTrks, nil
}

// isOneToOne reports whether thresholding the IoU matrix leaves at most one
// candidate per row and per column
func isOneToOne(ious [][]float64, threshold float64) bool {

	colCount := make([]int, len(ious[0]))

	for _, row := range ious {
		rowCount := 0

		for t, iou := range row {
			if iou > threshold {
				rowCount++
				colCount[t]++
			}
		}

		if rowCount > 1 {
			return false
		}
	}

	for _, c := range colCount {
		if c > 1 {
			return false
		}
	}

	return true
}

// linearAssignment solves the rectangular assignment maximizing total IoU by
// minimizing 1-IoU over a square padded cost matrix. It returns the column
// assigned to each row or -1 when the row is left unassigned
func linearAssignment(ious [][]float64) ([]int, error) {

	rows := len(ious)
	cols := len(ious[0])

	n := rows
	if cols > n {
		n = cols
	}

	// padding and non overlapping cells cost 1. Overlapping cells get a small
	// penalty growing with the row so a track contested at equal IoU goes to
	// the earliest detection. Non overlapping cells carry no penalty as every
	// row is assigned exactly once
	cost := make([][]float64, n)

	for i := range cost {
		cost[i] = make([]float64, n)

		for j := range cost[i] {
			cost[i][j] = 1

			if i < rows && j < cols && ious[i][j] > 0 {
				cost[i][j] = 1 - ious[i][j] + float64(i)*tieBreakEpsilon
			}
		}
	}

	x, _, err := solveLAP(cost)

	if err != nil {
		return nil, err
	}

	rowsol := make([]int, rows)

	for i := 0; i < rows; i++ {
		rowsol[i] = x[i]

		if x[i] >= cols {
			rowsol[i] = -1
		}
	}

	return rowsol, nil
}
