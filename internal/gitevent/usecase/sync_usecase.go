package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pollux-backend/internal/gitevent/domain"
	"pollux-backend/internal/gitevent/dto"
	"pollux-backend/internal/gitevent/repository"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// defaultLookback bounds the first window when a platform has never synced
const defaultLookback = 90 * 24 * time.Hour

// platformState pairs an adapter with the lock serializing its cycles. The
// lock covers the whole fetch+reconcile span, so a scheduled tick and a manual
// force-sync can never race on the adapter's ETag cache or double-insert the
// same window.
type platformState struct {
	adapter PlatformAdapter
	mu      sync.Mutex
}

type syncUsecase struct {
	repo      repository.GitEventRepository
	platforms map[string]*platformState
	order     []string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewSyncUsecase builds the coordinator over an explicit adapter registry.
// timeout bounds one full cycle so a slow upstream cannot stall the loop.
func NewSyncUsecase(repo repository.GitEventRepository, adapters []PlatformAdapter, timeout time.Duration, logger *zap.Logger) SyncUsecase {
	platforms := make(map[string]*platformState, len(adapters))
	order := make([]string, 0, len(adapters))
	for _, adapter := range adapters {
		platforms[adapter.Name()] = &platformState{adapter: adapter}
		order = append(order, adapter.Name())
	}

	return &syncUsecase{
		repo:      repo,
		platforms: platforms,
		order:     order,
		timeout:   timeout,
		logger:    logger,
	}
}

func (u *syncUsecase) Platforms() []string {
	return append([]string(nil), u.order...)
}

func (u *syncUsecase) SyncPlatform(ctx context.Context, platform string) (*domain.SyncSummary, error) {
	state, ok := u.platforms[platform]
	if !ok {
		return nil, fmt.Errorf("unknown platform %q", platform)
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	window, err := u.window(platform)
	if err != nil {
		return nil, fmt.Errorf("computing sync window for %s: %w", platform, err)
	}

	u.logger.Info("starting sync cycle",
		zap.String("platform", platform),
		zap.Time("after", window.After),
		zap.Time("before", window.Before))

	events, err := state.adapter.FetchEvents(ctx, window)
	if err != nil {
		// Watermark untouched: the next cycle retries the same window
		u.logger.Error("fetch failed, cycle aborted",
			zap.String("platform", platform),
			zap.Error(err))
		return nil, fmt.Errorf("fetching events from %s: %w", platform, err)
	}

	summary, err := u.repo.Reconcile(ctx, platform, events, state.adapter.FetchProjectDetail)
	if err != nil {
		u.logger.Error("reconcile failed, batch rolled back",
			zap.String("platform", platform),
			zap.Error(err))
		return nil, fmt.Errorf("reconciling %s events: %w", platform, err)
	}

	u.logger.Info("sync cycle finished",
		zap.String("platform", platform),
		zap.Int("total_seen", summary.TotalSeen),
		zap.Int("newly_inserted", summary.NewlyInserted),
		zap.Int("skipped", summary.Skipped))

	return summary, nil
}

func (u *syncUsecase) SyncAll(ctx context.Context) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)

	for _, platform := range u.order {
		wg.Add(1)
		go func(platform string) {
			defer wg.Done()
			if _, err := u.SyncPlatform(ctx, platform); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
		}(platform)
	}
	wg.Wait()

	return errs
}

func (u *syncUsecase) EventsSince(since time.Time) ([]dto.GitEventRecord, error) {
	return u.repo.FindEventsSince(since)
}

// window computes [watermark or now-90d, now] for the next cycle
func (u *syncUsecase) window(platform string) (domain.SyncWindow, error) {
	now := time.Now().UTC()

	watermark, err := u.repo.Watermark(platform)
	if err != nil {
		return domain.SyncWindow{}, err
	}

	after := now.Add(-defaultLookback)
	if watermark != nil {
		after = *watermark
	}

	return domain.SyncWindow{After: after, Before: now}, nil
}
