package usecase

import (
	"context"
	"time"

	"pollux-backend/internal/gitevent/domain"
	"pollux-backend/internal/gitevent/dto"
)

// PlatformAdapter speaks one platform's REST dialect and yields normalized
// events. The coordinator and persistence engine depend only on this interface.
type PlatformAdapter interface {
	// Name returns the platform identifier stored with its rows ("Github",
	// "Gitlab")
	Name() string

	// FetchEvents returns all events the platform reports for the window.
	// Adapters without a window parameter upstream may return the full
	// backlog; the persistence engine discards rows it already holds.
	FetchEvents(ctx context.Context, window domain.SyncWindow) ([]domain.NormalizedEvent, error)

	// FetchProjectDetail resolves name, url and visibility of a project.
	// Returns (nil, nil) when the platform does not disclose the project.
	FetchProjectDetail(ctx context.Context, externalProjectID int64) (*domain.ProjectDetail, error)
}

// SyncUsecase drives fetch+reconcile cycles for the registered platforms
type SyncUsecase interface {
	// SyncPlatform runs one full cycle for a single platform. Concurrent
	// calls for the same platform serialize; the second caller blocks.
	SyncPlatform(ctx context.Context, platform string) (*domain.SyncSummary, error)

	// SyncAll runs one cycle for every registered platform concurrently and
	// waits for all of them
	SyncAll(ctx context.Context) error

	// Platforms lists the registered platform names
	Platforms() []string

	// EventsSince returns stored events at or after the given instant,
	// newest first
	EventsSince(since time.Time) ([]dto.GitEventRecord, error)
}
