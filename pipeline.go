package anpr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/swdee/go-anpr/detect"
	"github.com/swdee/go-anpr/internal/monitoring"
	"github.com/swdee/go-anpr/plate"
	"github.com/swdee/go-anpr/results"
	"github.com/swdee/go-anpr/tracker"
	"gocv.io/x/gocv"
)

// Result is the outcome of a run. On a fatal error it holds everything
// recorded before the failing frame
type Result struct {
	// RunID identifies the run in exported tables
	RunID uuid.UUID
	// Source is the path of the processed video
	Source string
	// Store holds the recorded observations
	Store *results.Store
	// Summary is the best observation per track
	Summary results.Summary
	// Frames is the number of frames fully processed
	Frames int
	// Tracks is the number of track identities created
	Tracks int
}

// Pipeline runs detection, tracking, plate assignment and reading over a
// video. A Pipeline may be reused for several runs but not concurrently
type Pipeline struct {
	cfg      Config
	pool     *DetectorPool
	reader   PlateReader
	metrics  *Metrics
	assigner *plate.Assigner
}

// NewPipeline returns a Pipeline using the given detectors and plate reader.
// A nil metrics gets a private instance
func NewPipeline(cfg Config, pool *DetectorPool, reader PlateReader,
	metrics *Metrics) (*Pipeline, error) {

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if pool == nil {
		return nil, errors.New("detector pool is required")
	}

	if reader == nil {
		return nil, errors.New("plate reader is required")
	}

	if metrics == nil {
		metrics = NewMetrics()
	}

	return &Pipeline{
		cfg:      cfg,
		pool:     pool,
		reader:   reader,
		metrics:  metrics,
		assigner: plate.NewAssigner(cfg.Containment),
	}, nil
}

// Metrics returns the pipeline metrics
func (p *Pipeline) Metrics() *Metrics {
	return p.metrics
}

// Config returns the pipeline configuration
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run processes the video at path
func (p *Pipeline) Run(ctx context.Context, path string) (*Result, error) {

	src, err := OpenVideo(path)

	if err != nil {
		res := p.newResult(path)
		res.Summary = results.Summarize(res.Store)
		return res, newError(VideoIO, -1, path, err)
	}

	defer src.Close()

	return p.RunSource(ctx, path, src)
}

// newResult returns an empty result for a run over name
func (p *Pipeline) newResult(name string) *Result {
	return &Result{
		RunID:  uuid.New(),
		Source: name,
		Store:  results.NewStoreWithPolicy(p.cfg.WritePolicy),
	}
}

// detection is the detector output for one frame
type detection struct {
	index    int
	frame    gocv.Mat
	vehicles []detect.Result
	plates   []detect.Result
	err      error
}

// RunSource processes the frames of src, name being used in errors and the
// result. Detection runs up to Lookahead frames ahead of the tracker on the
// detector pool while tracking, assignment and reading happen strictly in
// frame order
func (p *Pipeline) RunSource(ctx context.Context, name string,
	src FrameSource) (*Result, error) {

	res := p.newResult(name)
	sortTracker := tracker.NewSORT(p.cfg.Tracker)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := p.detectAhead(runCtx, name, src)

	var runErr error

	for pending := range queue {
		d := <-pending

		if runErr == nil {
			runErr = p.consume(ctx, name, d, sortTracker, res)

			if runErr != nil {
				// stop the reader, the remaining queue is drained below
				cancel()
			}
		}

		d.frame.Close()
	}

	res.Tracks = sortTracker.TrackCount()
	res.Summary = results.Summarize(res.Store)

	if runErr == nil && ctx.Err() != nil {
		// canceled after the final frame was queued
		runErr = newError(Canceled, res.Frames, name, ctx.Err())
	}

	if runErr != nil {
		monitoring.Logf("run %s stopped after %d frames: %v", res.RunID, res.Frames, runErr)
		return res, runErr
	}

	monitoring.Logf("run %s finished: %d frames, %d tracks, %d observations",
		res.RunID, res.Frames, res.Tracks, res.Store.Len())

	return res, nil
}

// consume handles one queued frame
func (p *Pipeline) consume(ctx context.Context, name string, d detection,
	sortTracker *tracker.SORT, res *Result) error {

	if err := ctx.Err(); err != nil {
		return newError(Canceled, d.index, name, err)
	}

	if d.err != nil {
		var e *Error
		if errors.As(d.err, &e) {
			return e
		}
		return newError(Detect, d.index, name, d.err)
	}

	if err := p.processFrame(name, d, sortTracker, res.Store); err != nil {
		return err
	}

	res.Frames++

	if p.cfg.ProgressEvery > 0 && res.Frames%p.cfg.ProgressEvery == 0 {
		monitoring.Logf("processed %d frames, %d tracks, %d observations",
			res.Frames, sortTracker.TrackCount(), res.Store.Len())
	}

	return nil
}

// detectAhead starts the frame reader. Each frame is queued as a channel that
// receives its detections once a detector set has run over it, so the
// consumer sees frames in order while up to Lookahead are in flight. The
// queue is closed at the end of the source, on a read failure (queued as an
// error) or when ctx is done
func (p *Pipeline) detectAhead(ctx context.Context, name string,
	src FrameSource) <-chan chan detection {

	queue := make(chan chan detection, p.cfg.Lookahead)

	go func() {
		defer close(queue)

		total := src.FrameCount()

		for idx := 0; ; idx++ {

			if ctx.Err() != nil {
				return
			}

			frame := gocv.NewMat()
			ok := src.Read(&frame)

			var readErr error

			switch {
			case !ok && p.cfg.StrictFrameCount && total > 0 && idx < total:
				readErr = fmt.Errorf("read failed with %d of %d frames decoded", idx, total)
			case !ok:
				frame.Close()
				return
			case frame.Empty():
				readErr = errors.New("decoded an empty frame")
			}

			pending := make(chan detection, 1)

			select {
			case queue <- pending:
			case <-ctx.Done():
				frame.Close()
				return
			}

			if readErr != nil {
				pending <- detection{index: idx, frame: frame,
					err: newError(VideoIO, idx, name, readErr)}
				return
			}

			go p.detectFrame(idx, frame, pending)
		}
	}()

	return queue
}

// detectFrame runs a detector set from the pool over the frame
func (p *Pipeline) detectFrame(idx int, frame gocv.Mat, out chan<- detection) {

	set := p.pool.Get()
	defer p.pool.Return(set)

	d := detection{index: idx, frame: frame}

	d.vehicles, d.err = set.Vehicles.Detect(frame)

	if d.err != nil {
		d.err = fmt.Errorf("vehicle detector: %w", d.err)
		out <- d
		return
	}

	d.plates, d.err = set.Plates.Detect(frame)

	if d.err != nil {
		d.err = fmt.Errorf("plate detector: %w", d.err)
	}

	out <- d
}

// processFrame tracks the frame's vehicles then assigns and reads its plates
func (p *Pipeline) processFrame(name string, d detection, sortTracker *tracker.SORT,
	store *results.Store) error {

	start := time.Now()

	vehicles := detect.FilterClasses(d.vehicles, p.cfg.VehicleClasses)
	p.metrics.VehicleDetections.Add(uint64(len(vehicles)))

	tracks, err := sortTracker.Update(detect.Boxes(vehicles))

	if err != nil {
		return newError(Track, d.index, name, err)
	}

	p.metrics.ActiveTracks.Store(int64(len(tracks)))

	for _, pl := range d.plates {
		p.metrics.PlateDetections.Add(1)

		vehicle, ok := p.assigner.Assign(pl.Box, tracks)

		if !ok {
			p.metrics.AssignmentMisses.Add(1)
			continue
		}

		crop, err := plateCrop(d.frame, pl.Box, p.cfg.PlateThreshold)

		if err != nil {
			monitoring.Logf("frame %d track %d: skipping plate: %v", d.index, vehicle.ID, err)
			p.metrics.OCRMisses.Add(1)
			continue
		}

		text, score, ok, err := p.reader.Read(crop)
		crop.Close()

		if err != nil {
			return newError(OCR, d.index, name, err)
		}

		if !ok {
			p.metrics.OCRMisses.Add(1)
			continue
		}

		stored, dup := store.Record(results.Observation{
			FrameIndex:     d.index,
			TrackID:        vehicle.ID,
			VehicleBox:     vehicle.Box,
			PlateBox:       pl.Box,
			PlateBoxScore:  pl.Score,
			PlateText:      text,
			PlateTextScore: score,
		})

		// a replacement or a rejected duplicate adds no row
		if stored && !dup {
			p.metrics.Observations.Add(1)
		}

		if dup {
			p.metrics.Duplicates.Add(1)
		}
	}

	p.metrics.ObserveFrame(time.Since(start))

	return nil
}
