// Package history keeps past scan runs in a SQLite database so that
// totals can be compared over time.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // CGO-free SQLite driver

	"github.com/shaneholloman/ultimate-bug-scanner/internal/engine"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/report"
)

// timeLayout has a fixed width so that started_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Run is one recorded scan.
type Run struct {
	ID          uuid.UUID
	StartedAt   time.Time
	Root        string
	Fingerprint string
	Units       int
	Totals      engine.Totals
	Verdicts    map[string]int
}

// Finding is a stored finding row.
type Finding struct {
	Key      string
	Rule     string
	Severity string
	File     string
	Line     uint32
	Col      uint32
	Message  string
}

// Store is the SQLite-backed history.
type Store struct {
	conn *sql.DB
}

// Open opens (and creates if missing) the database at path and ensures
// the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history dir: %w", err)
		}
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{conn: conn}
	if err := s.createSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("history schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.conn.Close() }

func (s *Store) createSchema(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS runs (
  id          TEXT PRIMARY KEY,
  started_at  TEXT NOT NULL,     -- UTC, fixed width
  root        TEXT NOT NULL,
  fingerprint TEXT NOT NULL,
  units       INTEGER NOT NULL,
  critical    INTEGER NOT NULL,
  warning     INTEGER NOT NULL,
  info        INTEGER NOT NULL,
  clean       INTEGER NOT NULL,
  flagged     INTEGER NOT NULL,
  defective   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS findings (
  run_id   TEXT NOT NULL,
  seq      INTEGER NOT NULL,
  key      TEXT NOT NULL,
  rule_id  TEXT NOT NULL,
  severity TEXT NOT NULL,
  file     TEXT NOT NULL,
  line     INTEGER NOT NULL,
  col      INTEGER NOT NULL,
  message  TEXT NOT NULL,
  PRIMARY KEY (run_id, seq),
  FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_findings_rule ON findings(rule_id);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`)
	return err
}

// Record stores a report as a new run and returns it.
func (s *Store) Record(ctx context.Context, doc *report.Document, root, fingerprint string, startedAt time.Time) (*Run, error) {
	run := &Run{
		ID:          uuid.New(),
		StartedAt:   startedAt.UTC(),
		Root:        root,
		Fingerprint: fingerprint,
		Units:       len(doc.Units),
		Totals:      doc.Totals,
		Verdicts:    doc.Verdicts,
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, root, fingerprint, units, critical, warning, info, clean, flagged, defective)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.StartedAt.Format(timeLayout), run.Root, run.Fingerprint, run.Units,
		run.Totals.Critical, run.Totals.Warning, run.Totals.Info,
		run.Verdicts[engine.VerdictClean.String()],
		run.Verdicts[engine.VerdictFlagged.String()],
		run.Verdicts[engine.VerdictDefective.String()],
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	if len(doc.Findings) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO findings (run_id, seq, key, rule_id, severity, file, line, col, message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return nil, err
		}
		defer stmt.Close()
		for i, rec := range doc.Sorted() {
			if _, err := stmt.ExecContext(ctx, run.ID.String(), i, rec.Key, rec.Rule, rec.Severity.String(),
				rec.Location.File, rec.Location.Line, rec.Location.Col, rec.Message); err != nil {
				return nil, fmt.Errorf("insert finding: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return run, nil
}

const runColumns = `id, started_at, root, fingerprint, units, critical, warning, info, clean, flagged, defective`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		id, started               string
		run                       Run
		clean, flagged, defective int
	)
	if err := row.Scan(&id, &started, &run.Root, &run.Fingerprint, &run.Units,
		&run.Totals.Critical, &run.Totals.Warning, &run.Totals.Info,
		&clean, &flagged, &defective); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("run id %q: %w", id, err)
	}
	run.ID = parsed
	if t, err := time.Parse(timeLayout, started); err == nil {
		run.StartedAt = t
	}
	run.Verdicts = map[string]int{
		engine.VerdictClean.String():     clean,
		engine.VerdictFlagged.String():   flagged,
		engine.VerdictDefective.String(): defective,
	}
	return &run, nil
}

// List returns runs newest first. A non-positive limit means no limit.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// Get loads a run by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	run, err := scanRun(s.conn.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return run, err
}

// Findings returns the stored findings of a run in report order.
func (s *Store) Findings(ctx context.Context, id uuid.UUID) ([]Finding, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT key, rule_id, severity, file, line, col, message
		  FROM findings
		 WHERE run_id = ?
		 ORDER BY seq`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Finding
	for rows.Next() {
		var f Finding
		if err := rows.Scan(&f.Key, &f.Rule, &f.Severity, &f.File, &f.Line, &f.Col, &f.Message); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep runs and reports how many went.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := s.conn.ExecContext(ctx, `
		DELETE FROM runs
		 WHERE id NOT IN (SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?)`, max(keep, 0))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
