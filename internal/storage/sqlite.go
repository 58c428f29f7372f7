package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sketchscan/internal/analysis"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			path TEXT,
			hash TEXT,
			created_at INTEGER,
			sites INTEGER,
			conditions INTEGER,
			pass_errors INTEGER,
			diagnostics INTEGER,
			body JSON
		);`,
		`CREATE INDEX IF NOT EXISTS idx_reports_hash ON reports(hash);`,
		`CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveReport(ctx context.Context, r *analysis.Report) error {
	if r == nil || r.ID == "" {
		return errors.New("report has no id")
	}
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report %s: %w", r.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (id, path, hash, created_at, sites, conditions, pass_errors, diagnostics, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path=excluded.path,
			hash=excluded.hash,
			created_at=excluded.created_at,
			sites=excluded.sites,
			conditions=excluded.conditions,
			pass_errors=excluded.pass_errors,
			diagnostics=excluded.diagnostics,
			body=excluded.body
	`, r.ID, r.Path, r.Hash, r.CreatedAt.UnixNano(), len(r.Sites), len(r.Conditions), len(r.PassErrors), len(r.Diagnostics), body)

	return err
}

func (s *SQLiteStore) GetReport(ctx context.Context, id string) (*analysis.Report, error) {
	row := s.db.QueryRowContext(ctx, "SELECT body FROM reports WHERE id = ?", id)
	return scanReport(row)
}

func (s *SQLiteStore) FindByHash(ctx context.Context, hash string) (*analysis.Report, error) {
	row := s.db.QueryRowContext(ctx, "SELECT body FROM reports WHERE hash = ? ORDER BY created_at DESC LIMIT 1", hash)
	return scanReport(row)
}

func (s *SQLiteStore) ListReports(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, hash, created_at, sites, conditions, pass_errors, diagnostics
		FROM reports ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var created int64
		if err := rows.Scan(&sum.ID, &sum.Path, &sum.Hash, &created, &sum.Sites, &sum.Conditions, &sum.PassErrors, &sum.Diagnostics); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		sum.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

func scanReport(row *sql.Row) (*analysis.Report, error) {
	var body []byte
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var r analysis.Report
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &r, nil
}
