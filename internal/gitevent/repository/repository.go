package repository

import (
	"context"
	"time"

	"pollux-backend/internal/gitevent/domain"
	"pollux-backend/internal/gitevent/dto"
)

// ProjectDetailFunc resolves a project's name, url and visibility against the
// platform API. A (nil, nil) result means the project is not discoverable.
type ProjectDetailFunc func(ctx context.Context, externalProjectID int64) (*domain.ProjectDetail, error)

// GitEventRepository defines data access for the sync engine. All writes happen
// through Reconcile; everything else is read-only.
type GitEventRepository interface {
	// Reconcile writes one batch of normalized events inside a single
	// transaction: resolves/creates project and action rows, discards
	// duplicates, inserts the rest and advances the platform watermark.
	// Per-event data issues are skipped; an infrastructure error rolls the
	// whole batch back.
	Reconcile(ctx context.Context, platform string, events []domain.NormalizedEvent, detail ProjectDetailFunc) (*domain.SyncSummary, error)

	// Watermark returns the platform's last successful sync instant, or nil
	// if the platform has never completed a sync
	Watermark(platform string) (*time.Time, error)

	// FindEventsSince returns all stored events at or after the given
	// instant, newest first
	FindEventsSince(since time.Time) ([]dto.GitEventRecord, error)
}
