// Package journal records pipeline run outcomes in a sqlite database.
//
// Attach a Store to a pipeline and every completed run, successful or
// degraded, is written as one row keyed by its run id:
//
//	store, err := journal.Open("runs.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//	if err := store.Attach(pipeline); err != nil {
//	    return err
//	}
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/zoobzio/nexus"
)

// ErrNotFound is returned by Get for unknown run ids.
var ErrNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	pipeline TEXT NOT NULL,
	kind TEXT NOT NULL,
	status TEXT NOT NULL,
	stages INTEGER NOT NULL,
	elapsed_ns INTEGER NOT NULL,
	result TEXT,
	error TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_pipeline ON runs (pipeline, created_at);
`

// Entry is one journaled run.
type Entry struct {
	RunID     uuid.UUID
	Pipeline  string
	Kind      string
	Status    nexus.Status
	Stages    int
	Elapsed   time.Duration
	Result    string
	Error     string
	CreatedAt time.Time
}

// EntryFromEvent converts a run-complete event into an Entry.
func EntryFromEvent(e nexus.PipelineEvent) Entry {
	entry := Entry{
		RunID:     e.RunID,
		Pipeline:  e.Name,
		Kind:      string(e.Kind),
		Status:    nexus.StatusOK,
		Stages:    e.Completed,
		Elapsed:   e.Duration,
		Result:    fmt.Sprint(e.Value),
		CreatedAt: e.Timestamp,
	}
	if e.Error != nil {
		entry.Status = nexus.StatusDegraded
		entry.Error = e.Error.Error()
	}
	return entry
}

// EntryFromOutcome converts the outcome of a run on a pipeline of kind into
// an Entry stamped with now.
func EntryFromOutcome(o nexus.Outcome, kind nexus.Kind, now time.Time) Entry {
	entry := Entry{
		RunID:     o.RunID,
		Pipeline:  o.Pipeline,
		Kind:      string(kind),
		Status:    o.Status(),
		Stages:    o.Stages,
		Elapsed:   o.Elapsed,
		Result:    fmt.Sprint(o.Value),
		CreatedAt: now,
	}
	if o.Err != nil {
		entry.Error = o.Err.Error()
	}
	return entry
}

// Store is a run journal backed by sqlite. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens or creates the journal at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; a single connection avoids "database is locked".
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Record writes e. Recording the same run id twice keeps the latest entry.
func (s *Store) Record(ctx context.Context, e Entry) error {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	var errText sql.NullString
	if e.Error != "" {
		errText = sql.NullString{String: e.Error, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, pipeline, kind, status, stages, elapsed_ns, result, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID.String(), e.Pipeline, e.Kind, string(e.Status), e.Stages,
		e.Elapsed.Nanoseconds(), e.Result, errText, created.UTC(),
	)
	return err
}

// Attach records every completed run of p.
func (s *Store) Attach(p *nexus.Pipeline) error {
	return p.OnRunComplete(func(ctx context.Context, e nexus.PipelineEvent) error {
		return s.Record(context.WithoutCancel(ctx), EntryFromEvent(e))
	})
}

// Get returns the entry for a run id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, pipeline, kind, status, stages, elapsed_ns, result, error, created_at
		FROM runs WHERE id = ?`, id.String())
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

// List returns the entries for pipeline, oldest first. An empty pipeline
// lists every run. A limit of 0 or less means no limit.
func (s *Store) List(ctx context.Context, pipeline string, limit int) ([]Entry, error) {
	query := `SELECT id, pipeline, kind, status, stages, elapsed_ns, result, error, created_at
		FROM runs WHERE (? = '' OR pipeline = ?) ORDER BY created_at, rowid`
	args := []any{pipeline, pipeline}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats aggregates the journaled runs of pipeline.
func (s *Store) Stats(ctx context.Context, pipeline string) (nexus.Stats, error) {
	var stats nexus.Stats
	var elapsed int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(elapsed_ns), 0)
		FROM runs WHERE pipeline = ?`,
		string(nexus.StatusOK), pipeline,
	).Scan(&stats.Runs, &stats.Successes, &elapsed)
	if err != nil {
		return nexus.Stats{}, err
	}
	stats.Failures = stats.Runs - stats.Successes
	stats.Elapsed = time.Duration(elapsed)
	return stats, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var (
		e         Entry
		id        string
		status    string
		elapsed   int64
		result    sql.NullString
		errText   sql.NullString
		createdAt time.Time
	)
	if err := sc.Scan(&id, &e.Pipeline, &e.Kind, &status, &e.Stages, &elapsed, &result, &errText, &createdAt); err != nil {
		return Entry{}, err
	}
	runID, err := uuid.Parse(id)
	if err != nil {
		return Entry{}, fmt.Errorf("journal row %q: %w", id, err)
	}
	e.RunID = runID
	e.Status = nexus.Status(status)
	e.Elapsed = time.Duration(elapsed)
	e.Result = result.String
	e.Error = errText.String
	e.CreatedAt = createdAt
	return e, nil
}
