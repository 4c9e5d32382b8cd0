package tracker

import (
	"errors"
)

const (
	// large is the initial value used for column minimum searches
	large = 1000000.0
)

// lapjv solves the dense square Linear Assignment Problem using the
// Jonker-Volgenant algorithm
type lapjv struct {
	n    int
	cost [][]float64
	// x[i] is the column assigned to row i
	x []int
	// y[j] is the row assigned to column j
	y []int
	// v holds the column dual variables
	v []float64
}

// solveLAP returns the minimum cost assignment of the square cost matrix as
// row to column (x) and column to row (y) solutions
func solveLAP(cost [][]float64) (x, y []int, err error) {

	n := len(cost)

	if n == 0 {
		return nil, nil, nil
	}

	for _, row := range cost {
		if len(row) != n {
			return nil, nil, errors.New("cost matrix must be square")
		}
	}

	l := &lapjv{
		n:    n,
		cost: cost,
		x:    make([]int, n),
		y:    make([]int, n),
		v:    make([]float64, n),
	}

	freeRows := make([]int, n)
	nFree := l.columnReduction(freeRows)

	// two rounds of augmenting row reduction as in the JV paper
	for i := 0; i < 2 && nFree > 0; i++ {
		nFree = l.augmentingRowReduction(freeRows, nFree)
	}

	if nFree > 0 {
		if err := l.augment(freeRows[:nFree]); err != nil {
			return nil, nil, err
		}
	}

	return l.x, l.y, nil
}

// columnReduction performs column reduction and reduction transfer, returning
// the number of rows left unassigned which are written to freeRows
func (l *lapjv) columnReduction(freeRows []int) int {

	n := l.n
	unique := make([]bool, n)

	for i := 0; i < n; i++ {
		l.x[i] = -1
		l.v[i] = large
		l.y[i] = 0
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if c := l.cost[i][j]; c < l.v[j] {
				l.v[j] = c
				l.y[j] = i
			}
		}
	}

	for i := range unique {
		unique[i] = true
	}

	for j := n - 1; j >= 0; j-- {
		i := l.y[j]

		if l.x[i] < 0 {
			l.x[i] = j
		} else {
			unique[i] = false
			l.y[j] = -1
		}
	}

	nFree := 0

	for i := 0; i < n; i++ {

		if l.x[i] < 0 {
			freeRows[nFree] = i
			nFree++
			continue
		}

		if !unique[i] {
			continue
		}

		// reduction transfer
		j := l.x[i]
		minVal := large

		for j2 := 0; j2 < n; j2++ {
			if j2 == j {
				continue
			}

			if c := l.cost[i][j2] - l.v[j2]; c < minVal {
				minVal = c
			}
		}

		l.v[j] -= minVal
	}

	return nFree
}

// augmentingRowReduction tries to assign the free rows by finding the two
// lowest reduced costs per row, returning the count of rows still free
func (l *lapjv) augmentingRowReduction(freeRows []int, nFree int) int {

	n := l.n
	current := 0
	newFree := 0
	rrCnt := 0

	for current < nFree {

		rrCnt++
		freeI := freeRows[current]
		current++

		j1 := 0
		v1 := l.cost[freeI][0] - l.v[0]
		j2 := -1
		v2 := large

		for j := 1; j < n; j++ {
			c := l.cost[freeI][j] - l.v[j]

			if c < v2 {
				if c >= v1 {
					v2 = c
					j2 = j
				} else {
					v2 = v1
					v1 = c
					j2 = j1
					j1 = j
				}
			}
		}

		i0 := l.y[j1]
		v1New := l.v[j1] - (v2 - v1)
		v1Lowers := v1New < l.v[j1]

		if rrCnt < current*n {
			if v1Lowers {
				l.v[j1] = v1New
			} else if i0 >= 0 && j2 >= 0 {
				j1 = j2
				i0 = l.y[j2]
			}

			if i0 >= 0 {
				if v1Lowers {
					current--
					freeRows[current] = i0
				} else {
					freeRows[newFree] = i0
					newFree++
				}
			}

		} else if i0 >= 0 {
			freeRows[newFree] = i0
			newFree++
		}

		l.x[freeI] = j1
		l.y[j1] = freeI
	}

	return newFree
}

// augment assigns each remaining free row along a shortest augmenting path
func (l *lapjv) augment(freeRows []int) error {

	pred := make([]int, l.n)

	for _, freeI := range freeRows {

		j := l.findPath(freeI, pred)

		if j < 0 || j >= l.n {
			return errors.New("augmenting path has invalid column")
		}

		i := -1
		k := 0

		for i != freeI {
			i = pred[j]
			l.y[j] = i
			j, l.x[i] = l.x[i], j
			k++

			if k >= l.n {
				return errors.New("augmenting path did not terminate")
			}
		}
	}

	return nil
}

// findPath runs a single modified Dijkstra shortest path search from row
// startI, returning the free column reached and updating the duals
func (l *lapjv) findPath(startI int, pred []int) int {

	n := l.n
	lo := 0
	hi := 0
	finalJ := -1
	nReady := 0
	cols := make([]int, n)
	d := make([]float64, n)

	for j := 0; j < n; j++ {
		cols[j] = j
		pred[j] = startI
		d[j] = l.cost[startI][j] - l.v[j]
	}

	for finalJ == -1 {
		// no columns left on the SCAN list
		if lo == hi {
			nReady = lo
			hi = l.findMin(lo, d, cols)

			for k := lo; k < hi; k++ {
				if j := cols[k]; l.y[j] < 0 {
					finalJ = j
				}
			}
		}

		if finalJ == -1 {
			finalJ = l.scan(&lo, &hi, d, cols, pred)
		}
	}

	mind := d[cols[lo]]

	for k := 0; k < nReady; k++ {
		j := cols[k]
		l.v[j] += d[j] - mind
	}

	return finalJ
}

// findMin moves the columns with the minimum d[j] to the SCAN list starting
// at lo and returns the new end of the list
func (l *lapjv) findMin(lo int, d []float64, cols []int) int {

	hi := lo + 1
	mind := d[cols[lo]]

	for k := hi; k < l.n; k++ {
		j := cols[k]

		if d[j] <= mind {
			if d[j] < mind {
				hi = lo
				mind = d[j]
			}

			cols[k] = cols[hi]
			cols[hi] = j
			hi++
		}
	}

	return hi
}

// scan uses the columns on the SCAN list to lower d for the unscanned columns,
// returning a free column once one is reached at minimum distance or -1
func (l *lapjv) scan(lo, hi *int, d []float64, cols, pred []int) int {

	for *lo != *hi {

		j := cols[*lo]
		*lo++
		i := l.y[j]
		mind := d[j]
		h := l.cost[i][j] - l.v[j] - mind

		for k := *hi; k < l.n; k++ {
			j = cols[k]
			credIJ := l.cost[i][j] - l.v[j] - h

			if credIJ < d[j] {
				d[j] = credIJ
				pred[j] = i

				if credIJ == mind {
					if l.y[j] < 0 {
						return j
					}

					cols[k] = cols[*hi]
					cols[*hi] = j
					*hi++
				}
			}
		}
	}

	return -1
}
