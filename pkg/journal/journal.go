// Package journal persists pathway playback runs in a local SQLite
// database so operators can review what ran, when, and how it ended.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uuid TEXT NOT NULL DEFAULT '',
	pathway TEXT NOT NULL,
	pathway_id TEXT NOT NULL DEFAULT '',
	mode TEXT NOT NULL DEFAULT '',
	is_loop INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'running',
	detail TEXT NOT NULL DEFAULT '',
	waypoints INTEGER NOT NULL DEFAULT 0,
	started_at TEXT NOT NULL,
	finished_at TEXT
);

CREATE INDEX IF NOT EXISTS runs_started_at ON runs(started_at DESC);
`

// Run is one recorded playback attempt. PathwayID keys the row to the
// persisted pathway, surviving renames; UUID identifies the run itself.
// FinishedAt is nil while the run is still in progress (or if the
// process died mid-run).
type Run struct {
	ID         int64
	UUID       string
	Pathway    string
	PathwayID  string
	Mode       string
	Loop       bool
	Status     string
	Detail     string
	Waypoints  int
	StartedAt  time.Time
	FinishedAt *time.Time
}

type Journal struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("chmod journal path: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Begin records the start of a playback run and returns its id.
// It satisfies the player's run log without threading a context
// through the playback worker.
func (j *Journal) Begin(pathway, pathwayID, mode string, loop bool) (int64, error) {
	return j.BeginRun(context.Background(), pathway, pathwayID, mode, loop)
}

func (j *Journal) BeginRun(ctx context.Context, pathway, pathwayID, mode string, loop bool) (int64, error) {
	res, err := j.db.ExecContext(ctx, `
INSERT INTO runs(uuid, pathway, pathway_id, mode, is_loop, status, started_at)
VALUES (?, ?, ?, ?, ?, 'running', ?)
`, uuid.NewString(), pathway, pathwayID, mode, boolToInt(loop), ts(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}
	return id, nil
}

// Finish closes out a run with its outcome and the number of
// waypoints completed before it ended.
func (j *Journal) Finish(id int64, status, detail string, waypoints int) error {
	return j.FinishRun(context.Background(), id, status, detail, waypoints)
}

func (j *Journal) FinishRun(ctx context.Context, id int64, status, detail string, waypoints int) error {
	res, err := j.db.ExecContext(ctx, `
UPDATE runs SET status = ?, detail = ?, waypoints = ?, finished_at = ?
WHERE id = ?
`, status, detail, waypoints, ts(time.Now()), id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (j *Journal) Get(ctx context.Context, id int64) (Run, error) {
	row := j.db.QueryRowContext(ctx, `
SELECT id, uuid, pathway, pathway_id, mode, is_loop, status, detail, waypoints, started_at, finished_at
FROM runs WHERE id = ?
`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return r, err
}

// Recent returns the most recently started runs, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `
SELECT id, uuid, pathway, pathway_id, mode, is_loop, status, detail, waypoints, started_at, finished_at
FROM runs
ORDER BY id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func scanRun(row interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		r        Run
		isLoop   int
		started  string
		finished sql.NullString
	)
	if err := row.Scan(&r.ID, &r.UUID, &r.Pathway, &r.PathwayID, &r.Mode, &isLoop, &r.Status, &r.Detail, &r.Waypoints, &started, &finished); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.Loop = isLoop != 0
	t, err := parseTS(started)
	if err != nil {
		return Run{}, err
	}
	r.StartedAt = t
	if finished.Valid {
		t, err := parseTS(finished.String)
		if err != nil {
			return Run{}, err
		}
		r.FinishedAt = &t
	}
	return r, nil
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTS(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
