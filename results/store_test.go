package results

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-anpr/tracker"
)

// obs builds an observation for the frame and track with the OCR score
func obs(frame, track int, text string, score float64) Observation {
	x := float64(track) * 300
	return Observation{
		FrameIndex:     frame,
		TrackID:        track,
		VehicleBox:     tracker.NewBox(x, 100, x+250, 300),
		PlateBox:       tracker.NewBox(x+80, 250, x+170, 280),
		PlateBoxScore:  0.9,
		PlateText:      text,
		PlateTextScore: score,
	}
}

func TestStoreRowsOrdered(t *testing.T) {
	s := NewStore()

	// recorded out of order on purpose
	s.Record(obs(5, 2, "AB12CDE", 0.5))
	s.Record(obs(3, 7, "XY99ZZZ", 0.4))
	s.Record(obs(5, 1, "CD34EFG", 0.6))
	s.Record(obs(3, 2, "AB12CDE", 0.7))

	want := []Observation{
		obs(3, 2, "AB12CDE", 0.7),
		obs(3, 7, "XY99ZZZ", 0.4),
		obs(5, 1, "CD34EFG", 0.6),
		obs(5, 2, "AB12CDE", 0.5),
	}

	if diff := cmp.Diff(want, s.Rows()); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 4, s.Len())
	assert.Equal(t, []int{2, 7, 1}, []int{s.Rows()[0].TrackID, s.Rows()[1].TrackID, s.Rows()[2].TrackID})
	assert.Equal(t, []int{1, 2, 7}, s.TrackIDs())
	assert.Equal(t, []int{3, 5}, s.Frames())
	assert.Len(t, s.Track(2), 2)
	assert.Empty(t, s.Frame(4))
}

func TestStoreLastWriteWins(t *testing.T) {
	s := NewStore()

	stored, dup := s.Record(obs(1, 1, "FIRST", 0.9))
	assert.True(t, stored)
	assert.False(t, dup)

	stored, dup = s.Record(obs(1, 1, "SECOND", 0.2))
	assert.True(t, stored)
	assert.True(t, dup)

	require.Equal(t, 1, s.Len())
	assert.Equal(t, "SECOND", s.Rows()[0].PlateText)

	track := s.Track(1)
	require.Len(t, track, 1)
	assert.Equal(t, "SECOND", track[0].PlateText)
}

func TestStoreKeepHighest(t *testing.T) {
	s := NewStoreWithPolicy(KeepHighest)

	s.Record(obs(1, 1, "FIRST", 0.9))
	stored, dup := s.Record(obs(1, 1, "LOWER", 0.2))
	assert.False(t, stored)
	assert.True(t, dup)
	assert.Equal(t, "FIRST", s.Frame(1)[0].PlateText)

	// ties keep the earlier record
	s.Record(obs(1, 1, "TIED", 0.9))
	assert.Equal(t, "FIRST", s.Frame(1)[0].PlateText)

	stored, dup = s.Record(obs(1, 1, "HIGHER", 0.95))
	assert.True(t, stored)
	assert.True(t, dup)
	assert.Equal(t, "HIGHER", s.Frame(1)[0].PlateText)
	assert.Equal(t, 1, s.Len())
	assert.Len(t, s.Track(1), 1)
}

func TestStoreEmpty(t *testing.T) {
	s := NewStore()

	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Rows())
	assert.Empty(t, s.TrackIDs())
	assert.Empty(t, s.Track(1))
}

func TestParseWritePolicy(t *testing.T) {
	for in, want := range map[string]WritePolicy{
		"":        LastWriteWins,
		"last":    LastWriteWins,
		"highest": KeepHighest,
	} {
		got, err := ParseWritePolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseWritePolicy("first")
	assert.Error(t, err)

	assert.Equal(t, "highest", KeepHighest.String())
	assert.Equal(t, "last", LastWriteWins.String())
}
