package scheduler

import (
	"context"
	"time"

	"pollux-backend/internal/gitevent/usecase"

	"go.uber.org/zap"
)

// SyncScheduler fires one sync cycle for all platforms on a fixed cadence. The
// interval only starts counting after the previous tick fully completed, so
// ticks never overlap and worst-case staleness is bounded by cycle duration
// plus the interval.
type SyncScheduler struct {
	syncUsecase usecase.SyncUsecase
	interval    time.Duration
	logger      *zap.Logger
	stopChan    chan struct{}
}

// NewSyncScheduler creates a new scheduler
func NewSyncScheduler(syncUsecase usecase.SyncUsecase, interval time.Duration, logger *zap.Logger) *SyncScheduler {
	return &SyncScheduler{
		syncUsecase: syncUsecase,
		interval:    interval,
		logger:      logger,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *SyncScheduler) Start() {
	s.logger.Info("starting sync scheduler",
		zap.Duration("interval", s.interval),
		zap.Strings("platforms", s.syncUsecase.Platforms()))

	go func() {
		for {
			s.runCycle()

			select {
			case <-s.stopChan:
				s.logger.Info("sync scheduler stopped")
				return
			case <-time.After(s.interval):
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *SyncScheduler) Stop() {
	close(s.stopChan)
}

func (s *SyncScheduler) runCycle() {
	if err := s.syncUsecase.SyncAll(context.Background()); err != nil {
		s.logger.Error("scheduled sync finished with failures", zap.Error(err))
	}
}
