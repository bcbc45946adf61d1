// Package storage keeps a local history of changelog runs in SQLite, so
// earlier upgrade decisions can be revisited after the packages involved are
// long upgraded.
package storage

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id          INTEGER PRIMARY KEY,
  started_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS run_entries (
  id           INTEGER PRIMARY KEY,
  run_id       INTEGER NOT NULL REFERENCES runs(id),
  package      TEXT NOT NULL,
  version_tag  TEXT NOT NULL,
  release_type TEXT NOT NULL,
  message      TEXT NOT NULL,
  commit_url   TEXT,
  compare_url  TEXT
);
CREATE INDEX IF NOT EXISTS idx_entries_run ON run_entries(run_id);
CREATE INDEX IF NOT EXISTS idx_entries_package ON run_entries(package);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// Entry is one recorded changelog line of a run.
type Entry struct {
	ID          int64
	RunID       int64
	RecordedAt  time.Time
	Package     string
	VersionTag  string
	ReleaseType string
	Message     string
	CommitURL   string
	CompareURL  string
}

// PackageStats summarizes the recorded history of one package.
type PackageStats struct {
	Package    string
	EntryCount int
	RunCount   int
	LastSeen   string
}

// RecordRun stores one run and its entries atomically, returning the run id.
func (d *DB) RecordRun(ctx context.Context, entries []Entry) (int64, error) {
	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, "INSERT INTO runs DEFAULT VALUES")
	if err != nil {
		return 0, err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, e := range entries {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_entries(run_id, package, version_tag, release_type, message, commit_url, compare_url) VALUES(?,?,?,?,?,?,?)`,
			runID, e.Package, e.VersionTag, e.ReleaseType, e.Message, nullIfEmpty(e.CommitURL), nullIfEmpty(e.CompareURL))
		if err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// ListRecentEntries returns the newest recorded entries, most recent run
// first. An empty package filters nothing.
func (d *DB) ListRecentEntries(ctx context.Context, pkg string, limit int) ([]Entry, error) {
	query := `SELECT e.id, e.run_id, r.started_at, e.package, e.version_tag, e.release_type, e.message,
                 COALESCE(e.commit_url, ''), COALESCE(e.compare_url, '')
          FROM run_entries e JOIN runs r ON r.id = e.run_id`
	args := []any{}
	if pkg != "" {
		query += " WHERE e.package = ?"
		args = append(args, pkg)
	}
	query += " ORDER BY e.run_id DESC, e.id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var startedAt string
		if err := rows.Scan(&e.ID, &e.RunID, &startedAt, &e.Package, &e.VersionTag, &e.ReleaseType, &e.Message, &e.CommitURL, &e.CompareURL); err != nil {
			return nil, err
		}
		if t, perr := time.Parse("2006-01-02 15:04:05", startedAt); perr == nil {
			e.RecordedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetStats aggregates the recorded history per package.
func (d *DB) GetStats(ctx context.Context) ([]PackageStats, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT e.package, COUNT(*), COUNT(DISTINCT e.run_id), MAX(r.started_at)
         FROM run_entries e JOIN runs r ON r.id = e.run_id
         GROUP BY e.package ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []PackageStats
	for rows.Next() {
		var s PackageStats
		if err := rows.Scan(&s.Package, &s.EntryCount, &s.RunCount, &s.LastSeen); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
