package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Guizzs26/attendance_poll_bot/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS report (
    id TEXT PRIMARY KEY,
    closed_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_report_closed_at ON report(closed_at);

CREATE TABLE IF NOT EXISTS report_count (
    report_id TEXT NOT NULL REFERENCES report(id) ON DELETE CASCADE,
    category TEXT NOT NULL,
    votes INTEGER NOT NULL,
    PRIMARY KEY (report_id, category)
);
`

type SQLiteArchive struct {
	db *sql.DB
}

// NewSQLiteArchive opens (or creates) the database at path and ensures the
// schema exists. Safe to call on an existing database.
func NewSQLiteArchive(ctx context.Context, path string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer at a time; sqlite serializes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteArchive{db: db}, nil
}

func (sa *SQLiteArchive) SaveReport(ctx context.Context, report model.Report) error {
	tx, err := sa.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin report tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO report (id, closed_at) VALUES (?, ?)`,
		report.ID, report.ClosedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("insert report %s: %w", report.ID, err)
	}

	for c, n := range report.Counts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO report_count (report_id, category, votes) VALUES (?, ?, ?)`,
			report.ID, string(c), n,
		); err != nil {
			return fmt.Errorf("insert count %s/%s: %w", report.ID, c, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report %s: %w", report.ID, err)
	}
	return nil
}

func (sa *SQLiteArchive) RecentReports(ctx context.Context, limit int) ([]model.Report, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := sa.db.QueryContext(ctx,
		`SELECT id, closed_at FROM report ORDER BY closed_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}

	var reports []model.Report
	for rows.Next() {
		var id string
		var closedAt int64
		if err := rows.Scan(&id, &closedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, model.Report{
			ID:       id,
			ClosedAt: time.UnixMilli(closedAt).UTC(),
			Counts:   make(map[model.Category]int),
		})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	rows.Close()

	for i := range reports {
		if err := sa.loadCounts(ctx, &reports[i]); err != nil {
			return nil, err
		}
	}
	return reports, nil
}

func (sa *SQLiteArchive) loadCounts(ctx context.Context, report *model.Report) error {
	rows, err := sa.db.QueryContext(ctx,
		`SELECT category, votes FROM report_count WHERE report_id = ?`, report.ID)
	if err != nil {
		return fmt.Errorf("query counts for %s: %w", report.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var votes int
		if err := rows.Scan(&category, &votes); err != nil {
			return fmt.Errorf("scan count for %s: %w", report.ID, err)
		}
		report.Counts[model.Category(category)] = votes
	}
	return rows.Err()
}

func (sa *SQLiteArchive) Close() error {
	if err := sa.db.Close(); err != nil {
		return fmt.Errorf("error closing sqlite: %w", err)
	}
	return nil
}
