package anpr

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline counters
type Metrics struct {
	Frames            atomic.Uint64
	VehicleDetections atomic.Uint64
	PlateDetections   atomic.Uint64
	// AssignmentMisses counts plates not inside any reported vehicle
	AssignmentMisses atomic.Uint64
	// OCRMisses counts plates read but rejected by the format check
	OCRMisses atomic.Uint64
	// Observations counts rows in the result table
	Observations atomic.Uint64
	// Duplicates counts readings for a frame and track that already had an
	// observation, whether they replaced it or were dropped by the write
	// policy
	Duplicates atomic.Uint64
	// ActiveTracks is the number of tracks reported on the last frame
	ActiveTracks atomic.Int64

	frameSeconds prometheus.Histogram
	registry     *prometheus.Registry
}

// NewMetrics creates a Metrics instance with its own Prometheus registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		frameSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "anpr_frame_seconds",
			Help:    "Time spent tracking, assigning and reading one frame",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}

	m.register()

	return m
}

// register adds all collectors to the registry
func (m *Metrics) register() {

	counters := []struct {
		name string
		help string
		v    *atomic.Uint64
	}{
		{"anpr_frames_total", "Total frames processed", &m.Frames},
		{"anpr_vehicle_detections_total", "Total vehicle detections passed to the tracker", &m.VehicleDetections},
		{"anpr_plate_detections_total", "Total plate detections", &m.PlateDetections},
		{"anpr_assignment_misses_total", "Plates not contained by any tracked vehicle", &m.AssignmentMisses},
		{"anpr_ocr_misses_total", "Plates whose text failed the format check", &m.OCRMisses},
		{"anpr_observations_total", "Observations recorded", &m.Observations},
		{"anpr_duplicate_observations_total", "Observations replacing another in the same frame and track", &m.Duplicates},
	}

	for _, c := range counters {
		v := c.v
		m.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: c.name, Help: c.help},
			func() float64 { return float64(v.Load()) },
		))
	}

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "anpr_active_tracks",
			Help: "Tracks reported on the last processed frame",
		},
		func() float64 { return float64(m.ActiveTracks.Load()) },
	))

	m.registry.MustRegister(m.frameSeconds)
}

// ObserveFrame records the processing time of one frame
func (m *Metrics) ObserveFrame(d time.Duration) {
	m.Frames.Add(1)
	m.frameSeconds.Observe(d.Seconds())
}

// Registry returns the Prometheus registry holding the pipeline metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
