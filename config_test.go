package anpr

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-anpr/plate"
	"github.com/swdee/go-anpr/render"
	"github.com/swdee/go-anpr/results"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.3, cfg.Tracker.IoUThreshold)
	assert.Equal(t, 1, cfg.Tracker.MaxAge)
	assert.Equal(t, 3, cfg.Tracker.MinHits)
	assert.Equal(t, plate.CornerContainment, cfg.Containment)
	assert.Equal(t, results.LastWriteWins, cfg.WritePolicy)
	assert.Equal(t, []int{2, 3, 5, 7}, cfg.VehicleClasses)
	assert.Equal(t, float32(64), cfg.PlateThreshold)
	assert.Equal(t, "XVID", cfg.Render.FourCC)
	// reported frame counts are estimates for many containers
	assert.False(t, cfg.StrictFrameCount)
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, "anpr.json", `{
		"iou_threshold": 0.4,
		"min_hits": 1,
		"containment": "full",
		"write_policy": "highest",
		"vehicle_classes": [2],
		"workers": 2,
		"lookahead": 6,
		"strict_frame_count": true,
		"fourcc": "MJPG",
		"render_style": "simple",
		"trail": true
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 0.4, cfg.Tracker.IoUThreshold)
	assert.Equal(t, 1, cfg.Tracker.MinHits)
	// untouched fields keep their defaults
	assert.Equal(t, 1, cfg.Tracker.MaxAge)
	assert.Equal(t, 50, cfg.ProgressEvery)

	assert.Equal(t, plate.FullContainment, cfg.Containment)
	assert.Equal(t, results.KeepHighest, cfg.WritePolicy)
	assert.Equal(t, []int{2}, cfg.VehicleClasses)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 6, cfg.Lookahead)
	assert.True(t, cfg.StrictFrameCount)
	assert.Equal(t, "MJPG", cfg.Render.FourCC)
	assert.Equal(t, render.StyleSimple, cfg.Render.Style)
	assert.True(t, cfg.Render.Trail)
}

func TestLoadConfigErrors(t *testing.T) {
	for name, tc := range map[string]struct {
		file string
		body string
	}{
		"extension":   {"anpr.yaml", `{}`},
		"syntax":      {"anpr.json", `{"workers": }`},
		"containment": {"anpr.json", `{"containment": "overlap"}`},
		"policy":      {"anpr.json", `{"write_policy": "first"}`},
		"style":       {"anpr.json", `{"render_style": "fancy"}`},
		"workers":     {"anpr.json", `{"workers": 0}`},
		"iou":         {"anpr.json", `{"iou_threshold": 1.5}`},
		"fourcc":      {"anpr.json", `{"fourcc": "MP4"}`},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.file, tc.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
