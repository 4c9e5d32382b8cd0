package results

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// schemaSQL creates the run and observation tables
//
//go:embed schema.sql
var schemaSQL string

// SQLiteExporter writes the observations of runs into a SQLite database, one
// run per export keyed by a run UUID
type SQLiteExporter struct {
	*sql.DB
}

// OpenSQLite opens or creates the database at path and applies the schema
func OpenSQLite(path string) (*SQLiteExporter, error) {

	db, err := sql.Open("sqlite", path)

	if err != nil {
		return nil, fmt.Errorf("error opening sqlite database: %w", err)
	}

	// pragmas are per connection so the pool is kept to the one they were
	// applied to
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating sqlite schema: %w", err)
	}

	return &SQLiteExporter{db}, nil
}

// applyPragmas configures the connection
func applyPragmas(db *sql.DB) error {

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("error applying %q: %w", p, err)
		}
	}

	return nil
}

// Export writes all live observations of the store under the run ID in a
// single transaction. Observations that are the canonical observation of
// their track in the summary are flagged
func (e *SQLiteExporter) Export(ctx context.Context, runID uuid.UUID,
	source string, s *Store, sum Summary) error {

	tx, err := e.BeginTx(ctx, nil)

	if err != nil {
		return fmt.Errorf("error starting export transaction: %w", err)
	}

	defer tx.Rollback()

	rows := s.Rows()

	_, err = tx.ExecContext(ctx, `INSERT INTO anpr_run (run_id, source,
		created_unix_nanos, observation_count) VALUES (?, ?, ?, ?)`,
		runID.String(), source, time.Now().UnixNano(), len(rows))

	if err != nil {
		return fmt.Errorf("error inserting run %s: %w", runID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO anpr_observation (run_id,
		frame_nmr, car_id, car_x1, car_y1, car_x2, car_y2, plate_x1, plate_y1,
		plate_x2, plate_y2, license_plate_bbox_score, license_number,
		license_number_score, canonical)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	if err != nil {
		return fmt.Errorf("error preparing observation insert: %w", err)
	}

	defer stmt.Close()

	for _, obs := range rows {
		canonical := 0

		if best, ok := sum[obs.TrackID]; ok && best.FrameIndex == obs.FrameIndex {
			canonical = 1
		}

		_, err := stmt.ExecContext(ctx, runID.String(), obs.FrameIndex, obs.TrackID,
			obs.VehicleBox[0], obs.VehicleBox[1], obs.VehicleBox[2], obs.VehicleBox[3],
			obs.PlateBox[0], obs.PlateBox[1], obs.PlateBox[2], obs.PlateBox[3],
			obs.PlateBoxScore, obs.PlateText, obs.PlateTextScore, canonical)

		if err != nil {
			return fmt.Errorf("error inserting observation frame %d car %d: %w",
				obs.FrameIndex, obs.TrackID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing export: %w", err)
	}

	return nil
}

// Load reads the observations of a run back into a new store
func (e *SQLiteExporter) Load(ctx context.Context, runID uuid.UUID) (*Store, error) {

	rows, err := e.QueryContext(ctx, `SELECT frame_nmr, car_id, car_x1, car_y1,
		car_x2, car_y2, plate_x1, plate_y1, plate_x2, plate_y2,
		license_plate_bbox_score, license_number, license_number_score
		FROM anpr_observation WHERE run_id = ? ORDER BY frame_nmr, car_id`,
		runID.String())

	if err != nil {
		return nil, fmt.Errorf("error querying run %s: %w", runID, err)
	}

	defer rows.Close()

	store := NewStore()

	for rows.Next() {
		var obs Observation
		v, p := &obs.VehicleBox, &obs.PlateBox

		err := rows.Scan(&obs.FrameIndex, &obs.TrackID, &v[0], &v[1], &v[2], &v[3],
			&p[0], &p[1], &p[2], &p[3], &obs.PlateBoxScore, &obs.PlateText,
			&obs.PlateTextScore)

		if err != nil {
			return nil, fmt.Errorf("error scanning observation: %w", err)
		}

		store.Record(obs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading observations: %w", err)
	}

	return store, nil
}

// Canonical returns the observations flagged canonical for a run keyed by
// track ID
func (e *SQLiteExporter) Canonical(ctx context.Context, runID uuid.UUID) (Summary, error) {

	store, err := e.Load(ctx, runID)

	if err != nil {
		return nil, err
	}

	rows, err := e.QueryContext(ctx, `SELECT frame_nmr, car_id FROM anpr_observation
		WHERE run_id = ? AND canonical = 1`, runID.String())

	if err != nil {
		return nil, fmt.Errorf("error querying canonical observations: %w", err)
	}

	defer rows.Close()

	sum := make(Summary)

	for rows.Next() {
		var frame, id int

		if err := rows.Scan(&frame, &id); err != nil {
			return nil, fmt.Errorf("error scanning canonical observation: %w", err)
		}

		for _, obs := range store.Frame(frame) {
			if obs.TrackID == id {
				sum[id] = obs
			}
		}
	}

	return sum, rows.Err()
}
