package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/payin/backend/internal/application/reconciliation"
	"github.com/payin/backend/internal/infrastructure/config"
)

// Sweeper executes one stale-payin sweep pass
type Sweeper interface {
	SweepStale(ctx context.Context) (*reconciliation.SweepStats, error)
}

// SweepRunner drives the stale-payin sweep on a fixed interval. Each pass
// runs under its own timeout so a slow database never wedges the loop.
type SweepRunner struct {
	cfg     config.SweepConfig
	sweeper Sweeper
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	lastRunAt   *time.Time
	lastStats   *reconciliation.SweepStats
	lastRunErr  error
	totalPasses int64
}

// NewSweepRunner creates a runner for the given sweep service
func NewSweepRunner(cfg config.SweepConfig, sweeper Sweeper, logger *zap.Logger) *SweepRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepRunner{
		cfg:     cfg,
		sweeper: sweeper,
		logger:  logger.Named("sweep_runner"),
	}
}

// Start launches the sweep loop. A disabled runner starts as a no-op.
func (r *SweepRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = true
	r.mu.Unlock()

	if !r.cfg.Enabled {
		r.logger.Info("Sweep runner disabled by configuration")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go r.loop(ctx)

	r.logger.Info("Sweep runner started",
		zap.Duration("check_interval", r.cfg.CheckInterval),
		zap.Int("batch_size", r.cfg.BatchSize),
	)
	return nil
}

// Stop stops the sweep loop, waiting for an in-flight pass to finish
func (r *SweepRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("Sweep runner stopped")
		return nil
	case <-ctx.Done():
		r.logger.Warn("Sweep runner stop timed out")
		return ctx.Err()
	}
}

func (r *SweepRunner) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runPass(ctx)
		}
	}
}

// runPass executes a single sweep under the configured job timeout
func (r *SweepRunner) runPass(ctx context.Context) {
	passCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
	defer cancel()

	now := time.Now()
	stats, err := r.sweeper.SweepStale(passCtx)

	r.mu.Lock()
	r.lastRunAt = &now
	r.lastStats = stats
	r.lastRunErr = err
	r.totalPasses++
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("Sweep pass failed", zap.Error(err))
	}
}

// TriggerManualRun runs one sweep pass outside the ticker schedule
func (r *SweepRunner) TriggerManualRun(ctx context.Context) (*reconciliation.SweepStats, error) {
	passCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
	defer cancel()

	now := time.Now()
	stats, err := r.sweeper.SweepStale(passCtx)

	r.mu.Lock()
	r.lastRunAt = &now
	r.lastStats = stats
	r.lastRunErr = err
	r.totalPasses++
	r.mu.Unlock()

	return stats, err
}

// GetStatus returns a snapshot of the runner state for operational endpoints
func (r *SweepRunner) GetStatus() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := map[string]any{
		"enabled":        r.cfg.Enabled,
		"running":        r.isRunning,
		"check_interval": r.cfg.CheckInterval.String(),
		"total_passes":   r.totalPasses,
	}
	if r.lastRunAt != nil {
		status["last_run_at"] = r.lastRunAt.Format(time.RFC3339)
	}
	if r.lastStats != nil {
		status["last_scanned"] = r.lastStats.Scanned
		status["last_dropped"] = r.lastStats.Dropped
		status["last_errors"] = r.lastStats.Errors
	}
	if r.lastRunErr != nil {
		status["last_error"] = r.lastRunErr.Error()
	}
	return status
}
