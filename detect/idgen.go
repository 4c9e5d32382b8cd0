package detect

import "sync"

// IDGenerator hands out increasing detection IDs and is safe for concurrent
// use by detectors sharing it
type IDGenerator struct {
	sync.Mutex
	id int64
}

// NewIDGenerator returns an IDGenerator whose first ID is 1
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Next returns the next ID
func (g *IDGenerator) Next() int64 {
	g.Lock()
	defer g.Unlock()
	g.id++
	return g.id
}

// Reset restarts numbering from 1
func (g *IDGenerator) Reset() {
	g.Lock()
	g.id = 0
	g.Unlock()
}
