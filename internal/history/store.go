// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records report runs and their updated summary rows in a
// SQLite database so past classifications can be listed and exported.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/openspecy-automation/internal/classify"
	"github.com/pdiddy/openspecy-automation/pkg/types"
)

const (
	// DefaultDir holds history.db when HistoryConfig.Dir is empty.
	DefaultDir = "history"
	dbFile     = "history.db"

	// timeLayout is fixed-width so created_at sorts as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// ErrRunNotFound is returned when no run matches an ID or ID prefix.
var ErrRunNotFound = errors.New("run not found")

// Run describes one workbook written by the report stage.
type Run struct {
	ID          string    `json:"id" yaml:"id"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	OutputPath  string    `json:"output_path" yaml:"output_path"`
	ToolVersion string    `json:"tool_version" yaml:"tool_version"`
	TopN        int       `json:"top_n" yaml:"top_n"`
	FileCount   int       `json:"file_count" yaml:"file_count"`
}

// Store manages the history SQLite database.
type Store struct {
	db  *sql.DB
	dir string
	now func() time.Time
}

// NewStore opens or creates cfg.Dir/history.db and its schema.
func NewStore(cfg types.HistoryConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: dir, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the directory holding the database and exports.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			output_path TEXT NOT NULL,
			tool_version TEXT,
			top_n INTEGER NOT NULL,
			file_count INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS summaries (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			file_name TEXT NOT NULL,
			spectrum_identity TEXT,
			material_class TEXT,
			match_val REAL,
			sn REAL,
			plastic_or_not TEXT,
			matches_checked TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_summaries_run_id ON summaries(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_summaries_file_name ON summaries(file_name)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a run and its updated summary rows in one transaction.
// ID and CreatedAt are filled in when empty; the stored Run is returned.
func (s *Store) Record(ctx context.Context, run Run, rows []classify.Result) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.now()
	}
	run.CreatedAt = run.CreatedAt.UTC()
	if run.FileCount == 0 {
		run.FileCount = len(rows)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, output_path, tool_version, top_n, file_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.Format(timeLayout), run.OutputPath,
		run.ToolVersion, run.TopN, run.FileCount,
	)
	if err != nil {
		return Run{}, fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO summaries (run_id, file_name, spectrum_identity, material_class,
			match_val, sn, plastic_or_not, matches_checked)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Run{}, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		var sn sql.NullFloat64
		if !math.IsNaN(r.SignalQuality) {
			sn = sql.NullFloat64{Float64: r.SignalQuality, Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			run.ID, r.FileID, r.SpectrumIdentity, r.MaterialClass,
			r.MatchValue, sn, string(r.Polymer), r.Note,
		)
		if err != nil {
			return Run{}, fmt.Errorf("inserting summary for %s: %w", r.FileID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("committing run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT id, created_at, output_path, tool_version, top_n, file_count
		FROM runs ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns the run whose ID starts with idPrefix. A prefix matching
// more than one run is an error.
func (s *Store) GetRun(ctx context.Context, idPrefix string) (Run, error) {
	if idPrefix == "" {
		return Run{}, fmt.Errorf("%w: empty run ID", ErrRunNotFound)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, output_path, tool_version, top_n, file_count
		 FROM runs WHERE substr(id, 1, length(?)) = ? LIMIT 2`, idPrefix, idPrefix)
	if err != nil {
		return Run{}, fmt.Errorf("looking up run: %w", err)
	}
	defer rows.Close()

	var found []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}

	switch len(found) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, idPrefix)
	case 1:
		return found[0], nil
	}
	return Run{}, fmt.Errorf("run ID prefix %q is ambiguous", idPrefix)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run       Run
		createdAt string
		version   sql.NullString
	)
	if err := sc.Scan(&run.ID, &createdAt, &run.OutputPath, &version, &run.TopN, &run.FileCount); err != nil {
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("run %s has bad created_at %q: %w", run.ID, createdAt, err)
	}
	run.CreatedAt = t
	run.ToolVersion = version.String
	return run, nil
}
