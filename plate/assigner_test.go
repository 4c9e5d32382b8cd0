package plate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-anpr/tracker"
)

func TestAssignUnassigned(t *testing.T) {
	a := NewAssigner(CornerContainment)
	tracks := []tracker.TrackedBox{
		{Box: tracker.NewBox(0, 0, 100, 100), ID: 1},
		{Box: tracker.NewBox(200, 0, 300, 100), ID: 2},
	}

	_, ok := a.Assign(tracker.NewBox(150, 50, 180, 60), tracks)
	assert.False(t, ok)

	// corner on the vehicle edge is not strictly inside
	_, ok = a.Assign(tracker.NewBox(100, 50, 120, 60), tracks)
	assert.False(t, ok)

	_, ok = a.Assign(tracker.NewBox(10, 10, 20, 20), nil)
	assert.False(t, ok)
}

func TestAssignSeparateVehicles(t *testing.T) {
	a := NewAssigner(CornerContainment)
	tracks := []tracker.TrackedBox{
		{Box: tracker.NewBox(0, 0, 100, 100), ID: 4},
		{Box: tracker.NewBox(200, 0, 300, 100), ID: 7},
	}

	got, ok := a.Assign(tracker.NewBox(230, 70, 270, 85), tracks)
	require.True(t, ok)
	assert.Equal(t, 7, got.ID)

	got, ok = a.Assign(tracker.NewBox(30, 70, 70, 85), tracks)
	require.True(t, ok)
	assert.Equal(t, 4, got.ID)
	assert.Equal(t, tracks[0].Box, got.Box)
}

func TestAssignFirstTrackWins(t *testing.T) {
	a := NewAssigner(CornerContainment)
	tracks := []tracker.TrackedBox{
		{Box: tracker.NewBox(0, 0, 200, 200), ID: 2},
		{Box: tracker.NewBox(50, 50, 250, 250), ID: 3},
	}

	got, ok := a.Assign(tracker.NewBox(100, 100, 140, 110), tracks)
	require.True(t, ok)
	assert.Equal(t, 2, got.ID)
}

func TestAssignCornerOnlyVersusFull(t *testing.T) {
	tracks := []tracker.TrackedBox{{Box: tracker.NewBox(0, 0, 100, 100), ID: 1}}
	// plate starts inside but overhangs the right edge
	overhang := tracker.NewBox(80, 80, 130, 95)

	_, ok := NewAssigner(CornerContainment).Assign(overhang, tracks)
	assert.True(t, ok)

	_, ok = NewAssigner(FullContainment).Assign(overhang, tracks)
	assert.False(t, ok)

	_, ok = NewAssigner(FullContainment).Assign(tracker.NewBox(20, 80, 60, 95), tracks)
	assert.True(t, ok)
}

func TestParseContainment(t *testing.T) {
	c, err := ParseContainment("")
	require.NoError(t, err)
	assert.Equal(t, CornerContainment, c)

	c, err = ParseContainment("full")
	require.NoError(t, err)
	assert.Equal(t, FullContainment, c)
	assert.Equal(t, "full", c.String())

	_, err = ParseContainment("iou")
	assert.Error(t, err)
}
