// Package store provides SQLite-backed verdict history with notification
// cooldown.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/setevik/droidtriage/internal/analyzer"
	"github.com/setevik/droidtriage/internal/heuristic"
)

// timeFormat is fixed width so stored timestamps sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// DB wraps an SQLite connection for verdict storage.
type DB struct {
	db *sql.DB
}

// Run is one stored analysis.
type Run struct {
	ID       string
	Device   string
	Created  time.Time
	Captures []string
	Failed   int
}

// Verdict is one stored heuristic result.
type Verdict struct {
	ID       string
	RunID    string
	Device   string
	Created  time.Time
	Type     string
	Name     string
	Status   heuristic.Status
	Summary  string
	Details  string
	Notified bool
}

// Open opens or creates an SQLite database at the given path.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Single writer connection to avoid SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// InsertReport stores a report and one verdict per result, all or nothing.
// The stored verdicts are returned in result order.
func (d *DB) InsertReport(r *analyzer.Report) ([]*Verdict, error) {
	paths := make([]string, len(r.Captures))
	for i, c := range r.Captures {
		paths[i] = c.Path
	}
	pathsJSON, err := json.Marshal(paths)
	if err != nil {
		return nil, fmt.Errorf("encoding capture paths: %w", err)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	created := r.Created.UTC().Format(timeFormat)
	_, err = tx.Exec(`
		INSERT INTO runs (id, device, created, captures, failed)
		VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Device, created, string(pathsJSON), len(r.Failures()),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}

	verdicts := make([]*Verdict, len(r.Results))
	for i, res := range r.Results {
		v := &Verdict{
			ID:      uuid.NewString(),
			RunID:   r.ID,
			Device:  r.Device,
			Created: r.Created,
			Type:    res.Type,
			Name:    res.Name,
			Status:  res.Status,
			Summary: res.Summary,
			Details: res.Details,
		}
		_, err := tx.Exec(`
			INSERT INTO verdicts (id, run_id, device, created, type, name, status, summary, details, notified)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			v.ID, v.RunID, v.Device, created, v.Type, v.Name, string(v.Status), v.Summary, v.Details, false,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting verdict: %w", err)
		}
		verdicts[i] = v
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing report: %w", err)
	}
	return verdicts, nil
}

// MarkNotified marks a verdict as having been sent to ntfy.
func (d *DB) MarkNotified(id string) error {
	_, err := d.db.Exec(`UPDATE verdicts SET notified = TRUE WHERE id = ?`, id)
	return err
}

// QueryFilter controls which verdicts are returned by Query.
type QueryFilter struct {
	Since  time.Time
	Until  time.Time
	Status heuristic.Status
	Type   string
	Device string
	Limit  int
}

// Query returns verdicts matching the filter, newest first.
func (d *DB) Query(f QueryFilter) ([]*Verdict, error) {
	query := `SELECT id, run_id, device, created, type, name, status, summary, details, notified
		FROM verdicts WHERE 1=1`
	var args []interface{}

	if !f.Since.IsZero() {
		query += " AND created >= ?"
		args = append(args, f.Since.UTC().Format(timeFormat))
	}
	if !f.Until.IsZero() {
		query += " AND created <= ?"
		args = append(args, f.Until.UTC().Format(timeFormat))
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	if f.Type != "" {
		query += " AND type = ?"
		args = append(args, f.Type)
	}
	if f.Device != "" {
		query += " AND device = ?"
		args = append(args, f.Device)
	}

	query += " ORDER BY created DESC, rowid"

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying verdicts: %w", err)
	}
	defer rows.Close()

	var verdicts []*Verdict
	for rows.Next() {
		v, err := scanVerdict(rows)
		if err != nil {
			return nil, err
		}
		verdicts = append(verdicts, v)
	}
	return verdicts, rows.Err()
}

// Runs returns the most recent runs, newest first. A limit of 0 returns all.
func (d *DB) Runs(limit int) ([]*Run, error) {
	query := `SELECT id, device, created, captures, failed FROM runs ORDER BY created DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		var created, captures string
		if err := rows.Scan(&r.ID, &r.Device, &created, &captures, &r.Failed); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		r.Created, _ = time.Parse(timeFormat, created)
		_ = json.Unmarshal([]byte(captures), &r.Captures)
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// Count returns the number of stored runs.
func (d *DB) Count() (int, error) {
	var n int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting runs: %w", err)
	}
	return n, nil
}

// Purge deletes runs and their verdicts older than the given retention
// duration. It returns the number of runs removed.
func (d *DB) Purge(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().Format(timeFormat)

	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM verdicts WHERE created < ?`, cutoff); err != nil {
		return 0, fmt.Errorf("purging old verdicts: %w", err)
	}
	result, err := tx.Exec(`DELETE FROM runs WHERE created < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging old runs: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing purge: %w", err)
	}
	return result.RowsAffected()
}

func scanVerdict(rows *sql.Rows) (*Verdict, error) {
	var v Verdict
	var created string
	var summary, details sql.NullString

	err := rows.Scan(
		&v.ID,
		&v.RunID,
		&v.Device,
		&created,
		&v.Type,
		&v.Name,
		&v.Status,
		&summary,
		&details,
		&v.Notified,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning verdict row: %w", err)
	}

	v.Created, _ = time.Parse(timeFormat, created)
	v.Summary = summary.String
	v.Details = details.String
	return &v, nil
}

func migrate(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id       TEXT PRIMARY KEY,
			device   TEXT NOT NULL,
			created  TEXT NOT NULL,
			captures TEXT NOT NULL,
			failed   INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS verdicts (
			id       TEXT PRIMARY KEY,
			run_id   TEXT NOT NULL REFERENCES runs(id),
			device   TEXT NOT NULL,
			created  TEXT NOT NULL,
			type     TEXT NOT NULL,
			name     TEXT NOT NULL,
			status   TEXT NOT NULL,
			summary  TEXT,
			details  TEXT,
			notified BOOLEAN DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created)`,
		`CREATE INDEX IF NOT EXISTS idx_verdicts_created ON verdicts(created)`,
		`CREATE INDEX IF NOT EXISTS idx_verdicts_cooldown ON verdicts(device, type, status, created)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	slog.Debug("database schema up to date")
	return nil
}
