package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/payin/backend/internal/domain/shared"
)

// sweepBatchSize is the default bound on how many stale requests one sweep
// pass touches.
const sweepBatchSize = 500

// SweepService drops payment requests that idled past their expiry window.
// The sweep is idempotent: requests already in a terminal state are never
// returned by the stale query, so re-running a pass is harmless.
type SweepService struct {
	txScope        TransactionScope
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	batchSize      int
}

// NewSweepService creates a sweep service.
func NewSweepService(txScope TransactionScope, eventPublisher shared.EventPublisher, logger *zap.Logger) *SweepService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepService{
		txScope:        txScope,
		eventPublisher: eventPublisher,
		logger:         logger,
		batchSize:      sweepBatchSize,
	}
}

// WithBatchSize overrides how many stale requests one pass touches
func (s *SweepService) WithBatchSize(n int) *SweepService {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// SweepStale expires every stale request found before now, one transaction per
// request so a single conflict never rolls back the whole pass.
func (s *SweepService) SweepStale(ctx context.Context) (*SweepStats, error) {
	started := time.Now()
	stats := &SweepStats{StartedAt: started}

	var staleIDs []sweepTarget
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		stale, err := repos.PayInRepo().FindStale(ctx, started, s.batchSize)
		if err != nil {
			return err
		}
		for _, p := range stale {
			staleIDs = append(staleIDs, sweepTarget{companyID: p.CompanyID, payInID: p.ID})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stats.Scanned = len(staleIDs)
	for _, target := range staleIDs {
		if err := s.dropOne(ctx, target); err != nil {
			stats.Errors++
			s.logger.Warn("Failed to drop stale payin",
				zap.String("payin_id", target.payInID.String()),
				zap.Error(err))
			continue
		}
		stats.Dropped++
	}

	stats.Duration = time.Since(started).String()
	s.logger.Info("Stale payin sweep completed",
		zap.Int("scanned", stats.Scanned),
		zap.Int("dropped", stats.Dropped),
		zap.Int("errors", stats.Errors),
		zap.String("duration", stats.Duration))
	return stats, nil
}

type sweepTarget struct {
	companyID, payInID uuid.UUID
}

func (s *SweepService) dropOne(ctx context.Context, target sweepTarget) error {
	var events []shared.DomainEvent
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.PayInRepo().FindByID(ctx, target.companyID, target.payInID)
		if err != nil {
			return err
		}
		if !p.IsStale(time.Now()) {
			// Settled between the scan and this transaction.
			return nil
		}
		if err := p.MarkDropped(); err != nil {
			return err
		}
		events = p.GetDomainEvents()
		return repos.PayInRepo().SaveWithLock(ctx, p)
	})
	if err != nil {
		return err
	}
	if s.eventPublisher != nil && len(events) > 0 {
		if err := s.eventPublisher.Publish(ctx, events...); err != nil {
			s.logger.Warn("Failed to publish sweep events", zap.Error(err))
		}
	}
	return nil
}
