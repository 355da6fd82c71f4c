package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ironsheep/astro-tools-mcp/internal/detection"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// Store wraps the SQLite database.
type Store struct {
	DB *sql.DB
}

// Run is one pipeline execution.
type Run struct {
	ID         int64     `json:"id"`
	Mode       string    `json:"mode"`
	Reference  string    `json:"reference"`
	Comparison string    `json:"comparison,omitempty"`
	Backend    string    `json:"backend,omitempty"`
	Threshold  int       `json:"threshold"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Regions    int       `json:"regions"`
	Displayed  int       `json:"displayed"`
	MeanDiff   float64   `json:"mean_diff"`
	OutputDir  string    `json:"output_dir"`
	CreatedAt  time.Time `json:"created_at"`
}

// Detection is one recorded box of a run.
type Detection struct {
	RunID int64                 `json:"run_id"`
	Index int                   `json:"index"`
	Box   detection.BoundingBox `json:"box"`
	Area  int                   `json:"area"`
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{DB: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            mode TEXT NOT NULL,
            reference TEXT NOT NULL,
            comparison TEXT,
            backend TEXT,
            threshold INTEGER,
            width INTEGER,
            height INTEGER,
            regions INTEGER NOT NULL DEFAULT 0,
            displayed INTEGER NOT NULL DEFAULT 0,
            mean_diff REAL,
            output_dir TEXT,
            created_at TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS detections (
            run_id INTEGER NOT NULL,
            idx INTEGER NOT NULL,
            x INTEGER NOT NULL,
            y INTEGER NOT NULL,
            width INTEGER NOT NULL,
            height INTEGER NOT NULL,
            area INTEGER,
            PRIMARY KEY (run_id, idx)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_runs_mode ON runs(mode);`,
	}
	for _, stmt := range stmts {
		if _, err := s.DB.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying DB.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// RecordRun stores run and its regions in one transaction and returns the
// new run id. CreatedAt defaults to now.
func (s *Store) RecordRun(ctx context.Context, run Run, regions []detection.Region) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("catalog not initialized")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.Regions = len(regions)

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO runs (mode, reference, comparison, backend, threshold, width, height, regions, displayed, mean_diff, output_dir, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		run.Mode, run.Reference, run.Comparison, run.Backend, run.Threshold, run.Width, run.Height,
		run.Regions, run.Displayed, run.MeanDiff, run.OutputDir, run.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO detections (run_id, idx, x, y, width, height, area) VALUES (?, ?, ?, ?, ?, ?, ?);`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare detection insert: %w", err)
	}
	defer stmt.Close()
	for i, r := range regions {
		b := r.Box
		if _, err := stmt.ExecContext(ctx, id, i, b.X, b.Y, b.Width, b.Height, r.Area); err != nil {
			return 0, fmt.Errorf("failed to insert detection %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

const runColumns = `id, mode, reference, comparison, backend, threshold, width, height, regions, displayed, mean_diff, output_dir, created_at`

// ListRuns returns the most recent runs first. A limit of 0 or less
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("catalog not initialized")
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns a single run.
func (s *Store) GetRun(ctx context.Context, id int64) (Run, error) {
	if s == nil || s.DB == nil {
		return Run{}, errors.New("catalog not initialized")
	}
	row := s.DB.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id=?;`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	return run, err
}

// Detections returns the boxes of a run in the order they were found.
func (s *Store) Detections(ctx context.Context, runID int64) ([]Detection, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT run_id, idx, x, y, width, height, area FROM detections WHERE run_id=? ORDER BY idx;`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	dets := []Detection{}
	for rows.Next() {
		var d Detection
		var area sql.NullInt64
		if err := rows.Scan(&d.RunID, &d.Index, &d.Box.X, &d.Box.Y, &d.Box.Width, &d.Box.Height, &area); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		d.Area = int(area.Int64)
		dets = append(dets, d)
	}
	return dets, rows.Err()
}

// DeleteRun removes a run and its detections.
func (s *Store) DeleteRun(ctx context.Context, id int64) error {
	if s == nil || s.DB == nil {
		return errors.New("catalog not initialized")
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id=?;`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM detections WHERE run_id=?;`, id); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var run Run
	var comparison, backend, outputDir sql.NullString
	var threshold, width, height sql.NullInt64
	var meanDiff sql.NullFloat64
	var created string
	err := sc.Scan(&run.ID, &run.Mode, &run.Reference, &comparison, &backend, &threshold, &width, &height,
		&run.Regions, &run.Displayed, &meanDiff, &outputDir, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}
	run.Comparison = comparison.String
	run.Backend = backend.String
	run.OutputDir = outputDir.String
	run.Threshold = int(threshold.Int64)
	run.Width = int(width.Int64)
	run.Height = int(height.Int64)
	run.MeanDiff = meanDiff.Float64
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		run.CreatedAt = t
	}
	return run, nil
}
