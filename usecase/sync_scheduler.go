package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SyncScheduler drives the two sync triggers: a one-time asynchronous run at
// startup and a fixed-rate timer. The timer re-arms regardless of whether the
// previous firing is still running; overlaps collapse inside SyncService.
type SyncScheduler struct {
	sync         *SyncService
	interval     time.Duration
	runOnStartup bool
	logger       *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSyncScheduler creates a new scheduler.
func NewSyncScheduler(syncService *SyncService, interval time.Duration, runOnStartup bool, logger *zap.Logger) *SyncScheduler {
	return &SyncScheduler{
		sync:         syncService,
		interval:     interval,
		runOnStartup: runOnStartup,
		logger:       logger,
		stop:         make(chan struct{}),
	}
}

// Start launches the startup trigger and the fixed-rate timer.
func (s *SyncScheduler) Start(ctx context.Context) {
	if s.runOnStartup {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.logger.Info("Running initial sync")
			s.sync.Sync(ctx)
		}()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.logger.Info("Starting scheduled sync")
				s.wg.Add(1)
				go func() {
					defer s.wg.Done()
					s.sync.Sync(ctx)
				}()
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the timer and waits for in-flight cycles to finish. A running
// cycle is never cancelled; it runs to completion.
func (s *SyncScheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
}
