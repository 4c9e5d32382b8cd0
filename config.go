package anpr

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/swdee/go-anpr/detect"
	"github.com/swdee/go-anpr/plate"
	"github.com/swdee/go-anpr/render"
	"github.com/swdee/go-anpr/results"
	"github.com/swdee/go-anpr/tracker"
)

// Config holds the pipeline policy values
type Config struct {
	// Tracker are the SORT parameters
	Tracker tracker.Params
	// Containment is the plate to vehicle assignment rule
	Containment plate.Containment
	// WritePolicy resolves two plates assigned to one track in a frame
	WritePolicy results.WritePolicy
	// VehicleClasses are the detector classes passed to the tracker
	VehicleClasses []int
	// PlateThreshold is the grey level of the inverse binary threshold
	// applied to plate crops before reading
	PlateThreshold float32
	// Workers is the number of detector sets run in parallel
	Workers int
	// Lookahead is the number of frames detection may run ahead of the
	// tracker
	Lookahead int
	// ProgressEvery logs progress every n frames, 0 disables it
	ProgressEvery int
	// StrictFrameCount treats the source ending before its reported frame
	// count as a read failure. Off by default as many containers only report
	// an estimate
	StrictFrameCount bool
	// Render are the annotator parameters
	Render render.Params
}

// DefaultConfig returns the default pipeline configuration
func DefaultConfig() Config {
	return Config{
		Tracker:          tracker.DefaultParams(),
		Containment:      plate.CornerContainment,
		WritePolicy:      results.LastWriteWins,
		VehicleClasses:   detect.VehicleClasses(),
		PlateThreshold:   64,
		Workers:          1,
		Lookahead:        4,
		ProgressEvery:    50,
		StrictFrameCount: false,
		Render:           render.DefaultParams(),
	}
}

// Validate checks the configuration is usable
func (c Config) Validate() error {

	if err := c.Tracker.Validate(); err != nil {
		return fmt.Errorf("tracker: %w", err)
	}

	if c.PlateThreshold < 0 || c.PlateThreshold > 255 {
		return fmt.Errorf("plate threshold must be in [0,255], got %v", c.PlateThreshold)
	}

	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}

	if c.Lookahead < 1 {
		return errors.New("lookahead must be at least 1")
	}

	if c.ProgressEvery < 0 {
		return errors.New("progress interval must not be negative")
	}

	if len(c.Render.FourCC) != 4 {
		return fmt.Errorf("fourcc must be 4 characters, got %q", c.Render.FourCC)
	}

	return nil
}

// fileConfig is the JSON layout of a configuration file. Omitted fields keep
// their defaults
type fileConfig struct {
	IoUThreshold     *float64 `json:"iou_threshold,omitempty"`
	MaxAge           *int     `json:"max_age,omitempty"`
	MinHits          *int     `json:"min_hits,omitempty"`
	Containment      *string  `json:"containment,omitempty"`
	WritePolicy      *string  `json:"write_policy,omitempty"`
	VehicleClasses   []int    `json:"vehicle_classes,omitempty"`
	PlateThreshold   *float32 `json:"plate_threshold,omitempty"`
	Workers          *int     `json:"workers,omitempty"`
	Lookahead        *int     `json:"lookahead,omitempty"`
	ProgressEvery    *int     `json:"progress_every,omitempty"`
	StrictFrameCount *bool    `json:"strict_frame_count,omitempty"`
	FourCC           *string  `json:"fourcc,omitempty"`
	RenderStyle      *string  `json:"render_style,omitempty"`
	CropHeight       *int     `json:"crop_height,omitempty"`
	AutoScale        *bool    `json:"auto_scale,omitempty"`
	Trail            *bool    `json:"trail,omitempty"`
}

// maxConfigSize is the largest configuration file accepted
const maxConfigSize = 1 << 20

// LoadConfig reads a JSON configuration file over the defaults
func LoadConfig(path string) (Config, error) {

	cfg := DefaultConfig()

	cleanPath := filepath.Clean(path)

	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return cfg, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)

	if err != nil {
		return cfg, fmt.Errorf("failed to stat config file: %w", err)
	}

	if info.Size() > maxConfigSize {
		return cfg, fmt.Errorf("config file too large: %d bytes (max %d)",
			info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(cleanPath)

	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig

	if err := json.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := fc.apply(&cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// apply overlays the fields set in the file onto cfg
func (fc fileConfig) apply(cfg *Config) error {

	if fc.IoUThreshold != nil {
		cfg.Tracker.IoUThreshold = *fc.IoUThreshold
	}
	if fc.MaxAge != nil {
		cfg.Tracker.MaxAge = *fc.MaxAge
	}
	if fc.MinHits != nil {
		cfg.Tracker.MinHits = *fc.MinHits
	}

	if fc.Containment != nil {
		c, err := plate.ParseContainment(*fc.Containment)
		if err != nil {
			return err
		}
		cfg.Containment = c
	}

	if fc.WritePolicy != nil {
		p, err := results.ParseWritePolicy(*fc.WritePolicy)
		if err != nil {
			return err
		}
		cfg.WritePolicy = p
	}

	if fc.VehicleClasses != nil {
		cfg.VehicleClasses = fc.VehicleClasses
	}
	if fc.PlateThreshold != nil {
		cfg.PlateThreshold = *fc.PlateThreshold
	}
	if fc.Workers != nil {
		cfg.Workers = *fc.Workers
	}
	if fc.Lookahead != nil {
		cfg.Lookahead = *fc.Lookahead
	}
	if fc.ProgressEvery != nil {
		cfg.ProgressEvery = *fc.ProgressEvery
	}
	if fc.StrictFrameCount != nil {
		cfg.StrictFrameCount = *fc.StrictFrameCount
	}
	if fc.FourCC != nil {
		cfg.Render.FourCC = *fc.FourCC
	}

	if fc.RenderStyle != nil {
		switch *fc.RenderStyle {
		case "canonical":
			cfg.Render.Style = render.StyleCanonical
		case "simple":
			cfg.Render.Style = render.StyleSimple
		default:
			return fmt.Errorf("unknown render style %q", *fc.RenderStyle)
		}
	}

	if fc.CropHeight != nil {
		cfg.Render.CropHeight = *fc.CropHeight
	}
	if fc.AutoScale != nil {
		cfg.Render.AutoScale = *fc.AutoScale
	}
	if fc.Trail != nil {
		cfg.Render.Trail = *fc.Trail
	}

	return nil
}
