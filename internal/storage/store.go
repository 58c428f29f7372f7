package storage

import (
	"context"
	"errors"
	"time"

	"sketchscan/internal/analysis"
)

// ErrNotFound is returned when no archived report matches the lookup.
var ErrNotFound = errors.New("report not found")

// Store is the report archive.
type Store interface {
	ReportStore
	Close() error
}

// ReportStore defines operations for persisting analysis reports.
type ReportStore interface {
	// SaveReport upserts a report keyed by its ID.
	SaveReport(ctx context.Context, r *analysis.Report) error

	// GetReport retrieves a report by its ID.
	GetReport(ctx context.Context, id string) (*analysis.Report, error)

	// ListReports returns the newest summaries first.
	ListReports(ctx context.Context, limit int) ([]Summary, error)

	// FindByHash returns the newest report for identical script text.
	FindByHash(ctx context.Context, hash string) (*analysis.Report, error)
}

// Summary is the archive's index row for one report.
type Summary struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	Hash        string    `json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
	Sites       int       `json:"sites"`
	Conditions  int       `json:"conditions"`
	PassErrors  int       `json:"pass_errors"`
	Diagnostics int       `json:"diagnostics"`
}
