// Package history keeps an audit log of scrape runs in SQLite. The scrape
// command only writes to it; GetRun and ListRuns are the read side for
// callers inspecting past runs, and nothing in a crawl reads it back.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pevans/repackfed/discovery"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// RunStore records scrape runs using SQLite.
type RunStore struct {
	db *sql.DB
}

// Run summarizes one scrape run.
type Run struct {
	RunID      uuid.UUID     `json:"run_id"`
	Profile    string        `json:"profile"`
	StartPage  int           `json:"start_page"`
	EndPage    int           `json:"end_page"` // exclusive
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Records    int           `json:"records"`
	OutputPath string        `json:"output_path"`
	Failures   []PageFailure `json:"failures"`
}

// PageFailure is one page that could not be fetched or parsed.
type PageFailure struct {
	Page   int    `json:"page"`
	URL    string `json:"url"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// RunFromCrawl builds a Run from a finished crawl.
func RunFromCrawl(result *discovery.CrawlResult, profile, outputPath string) Run {
	run := Run{
		RunID:      result.RunID,
		Profile:    profile,
		StartPage:  result.StartPage,
		EndPage:    result.EndPage,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		Succeeded:  result.Succeeded,
		Failed:     result.Failed,
		Records:    len(result.Records),
		OutputPath: outputPath,
		Failures:   []PageFailure{},
	}

	for _, page := range result.Failures() {
		kind := discovery.RequestError.String()
		var fetchErr *discovery.FetchError
		if errors.As(page.Err, &fetchErr) {
			kind = fetchErr.Kind.String()
		}

		run.Failures = append(run.Failures, PageFailure{
			Page:   page.Page,
			URL:    page.URL,
			Kind:   kind,
			Reason: page.Err.Error(),
		})
	}

	return run
}

// NewRunStore creates a new run store with the given database path.
func NewRunStore(dbPath string) (*RunStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &RunStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the runs and page_failures tables if they don't exist.
func (s *RunStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		profile TEXT NOT NULL,
		start_page INTEGER NOT NULL,
		end_page INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		records INTEGER NOT NULL,
		output_path TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS page_failures (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		page INTEGER NOT NULL,
		url TEXT NOT NULL,
		kind TEXT NOT NULL,
		reason TEXT NOT NULL,
		PRIMARY KEY (run_id, page)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// RecordRun stores a run and its page failures in one transaction.
func (s *RunStore) RecordRun(run Run) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (
			run_id, profile, start_page, end_page, started_at, finished_at,
			succeeded, failed, records, output_path
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.RunID.String(),
		run.Profile,
		run.StartPage,
		run.EndPage,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.Succeeded,
		run.Failed,
		run.Records,
		run.OutputPath,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, failure := range run.Failures {
		_, err := tx.Exec(
			"INSERT INTO page_failures (run_id, page, url, kind, reason) VALUES (?, ?, ?, ?, ?)",
			run.RunID.String(), failure.Page, failure.URL, failure.Kind, failure.Reason,
		)
		if err != nil {
			return fmt.Errorf("failed to insert page failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	return nil
}

// GetRun retrieves a run and its failures by ID.
func (s *RunStore) GetRun(runID uuid.UUID) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, profile, start_page, end_page, started_at, finished_at,
		       succeeded, failed, records, output_path
		FROM runs
		WHERE run_id = ?
	`, runID.String())

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	if run.Failures, err = s.listFailures(run.RunID); err != nil {
		return nil, err
	}

	return run, nil
}

// ListRuns returns the most recent runs first, without their failures. A
// limit of zero returns every run.
func (s *RunStore) ListRuns(limit int) ([]Run, error) {
	query := `
		SELECT run_id, profile, start_page, end_page, started_at, finished_at,
		       succeeded, failed, records, output_path
		FROM runs
		ORDER BY started_at DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(query)
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
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

func (s *RunStore) listFailures(runID uuid.UUID) ([]PageFailure, error) {
	rows, err := s.db.Query(
		"SELECT page, url, kind, reason FROM page_failures WHERE run_id = ? ORDER BY page",
		runID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query page failures: %w", err)
	}
	defer rows.Close()

	failures := []PageFailure{}
	for rows.Next() {
		var f PageFailure
		if err := rows.Scan(&f.Page, &f.URL, &f.Kind, &f.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan page failure: %w", err)
		}
		failures = append(failures, f)
	}

	return failures, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var runIDStr, startedAtStr, finishedAtStr string

	err := row.Scan(
		&runIDStr, &run.Profile, &run.StartPage, &run.EndPage,
		&startedAtStr, &finishedAtStr,
		&run.Succeeded, &run.Failed, &run.Records, &run.OutputPath,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.RunID, err = uuid.Parse(runIDStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run ID: %w", err)
	}
	run.StartedAt = parseTime(startedAtStr)
	run.FinishedAt = parseTime(finishedAtStr)

	return &run, nil
}

// Helper functions for time formatting
func formatTime(t time.Time) string {
	// Strip monotonic clock for consistent storage and comparisons
	return t.Truncate(0).UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}
