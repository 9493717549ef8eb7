package store

import (
	"context"

	"github.com/Guizzs26/attendance_poll_bot/internal/model"
)

// ReportArchive keeps the closed tallies of past poll cycles.
type ReportArchive interface {
	SaveReport(ctx context.Context, report model.Report) error
	// RecentReports returns up to limit reports, newest first.
	RecentReports(ctx context.Context, limit int) ([]model.Report, error)
	Close() error
}

// NopArchive keeps nothing. It is used when no archive backend is configured.
type NopArchive struct{}

func (NopArchive) SaveReport(context.Context, model.Report) error { return nil }
func (NopArchive) RecentReports(context.Context, int) ([]model.Report, error) {
	return nil, nil
}
func (NopArchive) Close() error { return nil }
