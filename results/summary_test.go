package results

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeHighestScore(t *testing.T) {
	s := NewStore()

	// plate seen on frames 2 to 4 with increasing confidence
	s.Record(obs(2, 1, "AB12CDE", 0.61))
	s.Record(obs(3, 1, "AB12CDF", 0.72))
	s.Record(obs(4, 1, "AB12CDE", 0.93))
	s.Record(obs(3, 2, "XY99ZZZ", 0.40))

	sum := Summarize(s)

	require.Len(t, sum, 2)
	assert.Equal(t, 4, sum[1].FrameIndex)
	assert.Equal(t, "AB12CDE", sum[1].PlateText)
	assert.Equal(t, 3, sum[2].FrameIndex)

	assert.Equal(t, map[int][]int{3: {2}, 4: {1}}, sum.Frames())
}

func TestSummarizeTieKeepsEarliestFrame(t *testing.T) {
	s := NewStore()

	s.Record(obs(9, 3, "LATE", 0.8))
	s.Record(obs(6, 3, "EARLY", 0.8))

	sum := Summarize(s)

	assert.Equal(t, 6, sum[3].FrameIndex)
	assert.Equal(t, "EARLY", sum[3].PlateText)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Empty(t, Summarize(NewStore()))
}
