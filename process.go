package anpr

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/swdee/go-anpr/internal/monitoring"
	"github.com/swdee/go-anpr/render"
	"github.com/swdee/go-anpr/results"
)

// Outputs names the files a processed run is written to. Empty paths are
// skipped
type Outputs struct {
	// CSV is the result table
	CSV string
	// SQLite is a database the run is appended to
	SQLite string
	// Video is the annotated copy of the source
	Video string
}

// Process runs the pipeline over src and writes the outputs. The CSV table is
// written even when the run fails so the partial results are kept, the
// database and annotated video only for a completed run. A nil annotator is
// built from the configured render parameters
func (p *Pipeline) Process(ctx context.Context, src string, out Outputs,
	annotator *render.Annotator) (*Result, error) {

	res, runErr := p.Run(ctx, src)

	if out.CSV != "" && res != nil {
		if err := WriteCSVFile(out.CSV, res.Store); err != nil {
			if runErr != nil {
				// the run error is the one reported
				monitoring.Logf("writing partial results: %v", err)
			} else {
				return res, newError(Export, -1, out.CSV, err)
			}
		}
	}

	if runErr != nil {
		return res, runErr
	}

	if out.SQLite != "" {
		if err := exportSQLite(ctx, out.SQLite, res); err != nil {
			return res, newError(Export, -1, out.SQLite, err)
		}
	}

	if out.Video == "" {
		return res, nil
	}

	if annotator == nil {
		var err error
		annotator, err = render.NewAnnotator(p.cfg.Render)

		if err != nil {
			return res, newError(VideoIO, -1, out.Video, err)
		}
	}

	stats, err := annotator.Annotate(ctx, src, out.Video, res.Store, res.Summary)

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return res, newError(Canceled, -1, out.Video, err)
		}
		return res, newError(VideoIO, -1, out.Video, err)
	}

	monitoring.Logf("annotated %d frames, %d overlays drawn, %d skipped, %d unplaced",
		stats.Frames, stats.Drawn, stats.Skipped, stats.Unplaced)

	return res, nil
}

// WriteCSVFile writes the store's rows to a CSV file at path
func WriteCSVFile(path string, store *results.Store) error {

	f, err := os.Create(path)

	if err != nil {
		return fmt.Errorf("error creating csv: %w", err)
	}

	if err := results.WriteCSV(f, store); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// ReadCSVFile reads a result table, logging and skipping malformed rows
func ReadCSVFile(path string) (*results.Store, error) {

	f, err := os.Open(path)

	if err != nil {
		return nil, fmt.Errorf("error opening csv: %w", err)
	}

	defer f.Close()

	store, rowErrs, err := results.ReadCSV(f)

	if err != nil {
		return nil, err
	}

	for _, re := range rowErrs {
		monitoring.Logf("%s: skipping row: %v", path, re)
	}

	return store, nil
}

// exportSQLite appends the run to the database at path
func exportSQLite(ctx context.Context, path string, res *Result) error {

	db, err := results.OpenSQLite(path)

	if err != nil {
		return err
	}

	defer db.Close()

	return db.Export(ctx, res.RunID, res.Source, res.Store, res.Summary)
}
