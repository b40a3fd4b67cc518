package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper evicts expired rate limit records
type Sweeper interface {
	Sweep(now time.Time) int
}

// CleanupManager periodically sweeps expired rate limit records so that
// one-off clients don't accumulate between sampled sweeps
type CleanupManager struct {
	sweeper  Sweeper
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(sweeper Sweeper, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		sweeper:  sweeper,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task and blocks until stopped
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cm.runCleanup()
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// runCleanup removes expired rate limit records
func (cm *CleanupManager) runCleanup() {
	evicted := cm.sweeper.Sweep(time.Now())
	if evicted > 0 {
		cm.logger.Info("expired rate limit records swept", slog.Int("evicted", evicted))
	}
}

// Stop signals the cleanup manager to stop; safe to call more than once
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
