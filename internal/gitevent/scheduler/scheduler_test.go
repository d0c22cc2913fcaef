package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"pollux-backend/internal/gitevent/domain"
	"pollux-backend/internal/gitevent/dto"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingSyncUsecase struct {
	calls   atomic.Int32
	blockMs int
}

func (c *countingSyncUsecase) SyncPlatform(ctx context.Context, platform string) (*domain.SyncSummary, error) {
	return &domain.SyncSummary{Platform: platform}, nil
}

func (c *countingSyncUsecase) SyncAll(ctx context.Context) error {
	c.calls.Add(1)
	if c.blockMs > 0 {
		time.Sleep(time.Duration(c.blockMs) * time.Millisecond)
	}
	return nil
}

func (c *countingSyncUsecase) Platforms() []string {
	return []string{"Github", "Gitlab"}
}

func (c *countingSyncUsecase) EventsSince(since time.Time) ([]dto.GitEventRecord, error) {
	return nil, nil
}

func TestSchedulerRunsImmediatelyAndOnInterval(t *testing.T) {
	uc := &countingSyncUsecase{}
	s := NewSyncScheduler(uc, 20*time.Millisecond, zap.NewNop())

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return uc.calls.Load() >= 3 },
		time.Second, 5*time.Millisecond)
}

func TestSchedulerDoesNotOverlapTicks(t *testing.T) {
	// One cycle takes far longer than the interval; the interval must only
	// start counting after the cycle finished
	uc := &countingSyncUsecase{blockMs: 60}
	s := NewSyncScheduler(uc, time.Millisecond, zap.NewNop())

	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	assert.LessOrEqual(t, uc.calls.Load(), int32(2))
}

func TestSchedulerStops(t *testing.T) {
	uc := &countingSyncUsecase{}
	s := NewSyncScheduler(uc, 10*time.Millisecond, zap.NewNop())

	s.Start()
	time.Sleep(25 * time.Millisecond)
	s.Stop()

	stopped := uc.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, uc.calls.Load())
}
