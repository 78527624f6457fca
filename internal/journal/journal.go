// Package journal records build task outcomes in SQLite so past runs can be
// inspected after the process exits. It is reporting only; nothing is read
// back to influence a later build.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mattjoyce/accrete/internal/log"
)

const maxOutputBytes = 64 * 1024

// Journal owns the journal database and the current run row.
type Journal struct {
	db     *sql.DB
	runID  string
	logger *slog.Logger
}

// Open opens (and creates if needed) the journal database at path, ensures
// required tables exist, and begins a new run.
func Open(ctx context.Context, path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign_keys: %w", err)
	}
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := bootstrap(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	j := &Journal{
		db:     db,
		runID:  uuid.NewString(),
		logger: log.WithComponent("journal"),
	}
	if err := j.beginRun(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS build_run (
  id          TEXT PRIMARY KEY,
  started_at  TEXT NOT NULL,
  finished_at TEXT
);`,
		`CREATE TABLE IF NOT EXISTS task_log (
  id          TEXT PRIMARY KEY,
  run_id      TEXT NOT NULL REFERENCES build_run(id),
  verb        TEXT NOT NULL,
  name        TEXT NOT NULL,
  state       TEXT NOT NULL,
  output      TEXT,
  began_at    TEXT NOT NULL,
  finished_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS task_log_run_id_idx ON task_log(run_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap journal: %w", err)
		}
	}
	return nil
}

func (j *Journal) beginRun(ctx context.Context) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := j.db.ExecContext(ctx, `
INSERT INTO build_run(id, started_at) VALUES(?, ?);
`, j.runID, now); err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// RunID returns the id of the current run.
func (j *Journal) RunID() string {
	return j.runID
}

// recordTask appends one terminal task outcome to the current run.
func (j *Journal) recordTask(verb, name, state, output string, beganAt time.Time) error {
	if len(output) > maxOutputBytes {
		output = output[:maxOutputBytes]
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := j.db.ExecContext(context.Background(), `
INSERT INTO task_log(id, run_id, verb, name, state, output, began_at, finished_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?);
`, uuid.NewString(), j.runID, verb, name, state, output,
		beganAt.UTC().Format(time.RFC3339Nano), now)
	if err != nil {
		return fmt.Errorf("record task: %w", err)
	}
	return nil
}

// TaskRecord is one row of the task log.
type TaskRecord struct {
	Verb       string
	Name       string
	State      string
	Output     string
	BeganAt    time.Time
	FinishedAt time.Time
}

// Tasks returns the recorded outcomes for a run, oldest-first.
func (j *Journal) Tasks(ctx context.Context, runID string) ([]TaskRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
SELECT verb, name, state, output, began_at, finished_at
FROM task_log
WHERE run_id = ?
ORDER BY finished_at ASC, rowid ASC;
`, runID)
	if err != nil {
		return nil, fmt.Errorf("query task log: %w", err)
	}
	defer rows.Close()

	var out []TaskRecord
	for rows.Next() {
		var (
			rec        TaskRecord
			output     sql.NullString
			beganAtS   string
			finishedAtS string
		)
		if err := rows.Scan(&rec.Verb, &rec.Name, &rec.State, &output, &beganAtS, &finishedAtS); err != nil {
			return nil, fmt.Errorf("scan task log: %w", err)
		}
		if output.Valid {
			rec.Output = output.String
		}
		if ts, err := time.Parse(time.RFC3339Nano, beganAtS); err == nil {
			rec.BeganAt = ts
		}
		if ts, err := time.Parse(time.RFC3339Nano, finishedAtS); err == nil {
			rec.FinishedAt = ts
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close marks the run finished and closes the database.
func (j *Journal) Close() error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := j.db.ExecContext(context.Background(), `
UPDATE build_run SET finished_at = ? WHERE id = ?;
`, now, j.runID); err != nil {
		j.logger.Error("failed to finish run", "run_id", j.runID, "error", err)
	}
	return j.db.Close()
}
