package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/payin/backend/internal/domain/ledger"
	"github.com/payin/backend/internal/domain/payin"
	"github.com/payin/backend/internal/domain/shared"
)

// settlementLockTTL bounds how long a crashed instance can hold a settlement
// lock before it expires.
const settlementLockTTL = 30 * time.Second

// SettlementService matches a stored bank credit line against the open payment
// requests and executes the verdict: at most one settlement per credit line,
// with all balance and ledger writes in one transaction.
type SettlementService struct {
	txScope        TransactionScope
	locker         ExclusiveLocker
	lockTTL        time.Duration
	matcher        *payin.Matcher
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewSettlementService creates a settlement service.
func NewSettlementService(
	txScope TransactionScope,
	locker ExclusiveLocker,
	eventPublisher shared.EventPublisher,
	logger *zap.Logger,
) *SettlementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NoOpLocker{}
	}
	return &SettlementService{
		txScope:        txScope,
		locker:         locker,
		lockTTL:        settlementLockTTL,
		matcher:        payin.NewMatcher(),
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// WithLockTTL overrides the default settlement lock duration.
func (s *SettlementService) WithLockTTL(ttl time.Duration) *SettlementService {
	if ttl > 0 {
		s.lockTTL = ttl
	}
	return s
}

// SettlePayIn attempts to settle the stored credit line against the newest
// matching open request. The whole attempt runs under an exclusive lock named
// after the credit line's account and UTR, so two instances processing the
// same credit serialize and the loser finds the line already consumed.
func (s *SettlementService) SettlePayIn(ctx context.Context, companyID, responseID uuid.UUID) (*SettlementResult, error) {
	var lockTarget *payin.BankResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		lockTarget, err = repos.BankResponseRepo().FindByID(ctx, companyID, responseID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load bank response: %w", err)
	}

	lock, err := s.locker.Acquire(ctx, settlementLockKey(lockTarget.BankAccountID, lockTarget.UTR), s.lockTTL)
	if err != nil {
		if errors.Is(err, shared.ErrLockHeld) {
			s.logger.Info("Settlement already in progress for credit line",
				zap.String("response_id", responseID.String()))
			return nil, shared.ErrLockHeld
		}
		return nil, fmt.Errorf("failed to acquire settlement lock: %w", err)
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Failed to release settlement lock", zap.Error(err))
		}
	}()

	var (
		result  *SettlementResult
		settled []shared.AggregateRoot
	)
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result, settled, err = s.settleInTx(ctx, repos, companyID, responseID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, settled)
	return result, nil
}

// settleInTx is the transactional body of a settlement attempt. It returns the
// verdict plus the aggregates whose events should be published after commit.
func (s *SettlementService) settleInTx(
	ctx context.Context,
	repos TransactionalRepositories,
	companyID, responseID uuid.UUID,
) (*SettlementResult, []shared.AggregateRoot, error) {
	response, err := repos.BankResponseRepo().FindByID(ctx, companyID, responseID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load bank response: %w", err)
	}

	candidate, err := s.findCandidate(ctx, repos, companyID, response)
	if err != nil {
		return nil, nil, err
	}

	utrClaimed := false
	if response.UTR != "" {
		utrClaimed, err = repos.PayInRepo().ExistsClaimedWithUTR(ctx, companyID, response.UTR)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check UTR claims: %w", err)
		}
	}

	decision, err := s.matcher.Decide(payin.MatchContext{
		Candidate:  response,
		Request:    candidate,
		UTRClaimed: utrClaimed,
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Settlement decision",
		zap.String("company_id", companyID.String()),
		zap.String("response_id", responseID.String()),
		zap.String("outcome", string(decision.Outcome)),
		zap.String("message", decision.Message))

	result := &SettlementResult{Outcome: decision.Outcome, Message: decision.Message}
	if candidate != nil {
		id := candidate.ID
		result.PayInID = &id
	}

	switch decision.Outcome {
	case payin.OutcomeRepeated, payin.OutcomeNoMatch:
		return result, nil, nil

	case payin.OutcomeBankMismatch:
		if err := candidate.MarkBankMismatch(response.ID, response.BankAccountID); err != nil {
			return nil, nil, err
		}
		if err := response.MarkUsed(); err != nil {
			return nil, nil, err
		}
		if err := repos.BankResponseRepo().SaveWithLock(ctx, response); err != nil {
			return nil, nil, err
		}
		if err := repos.PayInRepo().SaveWithLock(ctx, candidate); err != nil {
			return nil, nil, err
		}
		return result, []shared.AggregateRoot{candidate}, nil

	case payin.OutcomeDuplicate:
		if err := candidate.MarkDuplicate(response.UTR); err != nil {
			return nil, nil, err
		}
		if err := repos.PayInRepo().SaveWithLock(ctx, candidate); err != nil {
			return nil, nil, err
		}
		return result, []shared.AggregateRoot{candidate}, nil

	case payin.OutcomeSuccess:
		if err := s.applySuccess(ctx, repos, companyID, candidate, response); err != nil {
			return nil, nil, err
		}
		return result, []shared.AggregateRoot{candidate}, nil

	case payin.OutcomeDispute:
		if err := s.applyDispute(ctx, repos, companyID, candidate, response); err != nil {
			return nil, nil, err
		}
		return result, []shared.AggregateRoot{candidate}, nil
	}

	return nil, nil, shared.NewDomainError("INVALID_STATE",
		fmt.Sprintf("Unhandled match outcome %s", decision.Outcome))
}

// findCandidate looks up the newest open request for the credit line, by short
// code first and UTR second, scoped to the company.
func (s *SettlementService) findCandidate(
	ctx context.Context,
	repos TransactionalRepositories,
	companyID uuid.UUID,
	response *payin.BankResponse,
) (*payin.PayIn, error) {
	if response.ShortCode != "" {
		candidate, err := repos.PayInRepo().FindOpenByShortCode(ctx, companyID, response.ShortCode)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("failed to match by short code: %w", err)
		}
	}
	if response.UTR != "" {
		candidate, err := repos.PayInRepo().FindOpenByUTR(ctx, companyID, response.UTR)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("failed to match by UTR: %w", err)
		}
	}
	return nil, nil
}

// applySuccess settles the request: commissions from both partners' configured
// rates, merchant balance credited net of merchant commission, merchant ledger
// accumulated, credit line consumed.
func (s *SettlementService) applySuccess(
	ctx context.Context,
	repos TransactionalRepositories,
	companyID uuid.UUID,
	candidate *payin.PayIn,
	response *payin.BankResponse,
) error {
	merchant, err := repos.MerchantRepo().FindByID(ctx, companyID, candidate.MerchantID)
	if err != nil {
		return fmt.Errorf("failed to load merchant: %w", err)
	}
	account, err := repos.BankAccountRepo().FindByID(ctx, companyID, response.BankAccountID)
	if err != nil {
		return fmt.Errorf("failed to load bank account: %w", err)
	}
	vendor, err := repos.VendorRepo().FindByID(ctx, companyID, account.VendorID)
	if err != nil {
		return fmt.Errorf("failed to load vendor: %w", err)
	}

	commissions, err := payin.ComputeCommissions(response.Amount, merchant.CommissionRate, vendor.CommissionRate)
	if err != nil {
		return err
	}

	if err := candidate.MarkSuccess(response.ID, commissions.Merchant, commissions.Vendor, response.UTR); err != nil {
		return err
	}
	if err := response.MarkUsed(); err != nil {
		return err
	}

	merchant.Credit(response.Amount.Sub(commissions.Merchant))

	now := time.Now()
	if err := creditOwnerLedger(ctx, repos, companyID, merchant.ID, ledger.OwnerTypeMerchant,
		response.Amount, commissions.Merchant, now); err != nil {
		return err
	}

	if err := repos.BankResponseRepo().SaveWithLock(ctx, response); err != nil {
		return err
	}
	if err := repos.MerchantRepo().SaveWithLock(ctx, merchant); err != nil {
		return err
	}
	return repos.PayInRepo().SaveWithLock(ctx, candidate)
}

// applyDispute records an amount mismatch. The credit line is consumed so it
// cannot settle anything else, but no merchant money moves until an operator
// resolves the dispute.
func (s *SettlementService) applyDispute(
	ctx context.Context,
	repos TransactionalRepositories,
	companyID uuid.UUID,
	candidate *payin.PayIn,
	response *payin.BankResponse,
) error {
	merchant, err := repos.MerchantRepo().FindByID(ctx, companyID, candidate.MerchantID)
	if err != nil {
		return fmt.Errorf("failed to load merchant: %w", err)
	}
	account, err := repos.BankAccountRepo().FindByID(ctx, companyID, response.BankAccountID)
	if err != nil {
		return fmt.Errorf("failed to load bank account: %w", err)
	}
	vendor, err := repos.VendorRepo().FindByID(ctx, companyID, account.VendorID)
	if err != nil {
		return fmt.Errorf("failed to load vendor: %w", err)
	}

	commissions, err := payin.ComputeCommissions(response.Amount, merchant.CommissionRate, vendor.CommissionRate)
	if err != nil {
		return err
	}

	if err := candidate.MarkDispute(response.ID, commissions.Merchant, commissions.Vendor, response.Amount); err != nil {
		return err
	}
	if err := response.MarkUsed(); err != nil {
		return err
	}

	if err := repos.BankResponseRepo().SaveWithLock(ctx, response); err != nil {
		return err
	}
	return repos.PayInRepo().SaveWithLock(ctx, candidate)
}

// publishEvents drains and publishes the aggregates' pending domain events.
// Publishing happens after commit; failures are logged, never propagated.
func (s *SettlementService) publishEvents(ctx context.Context, aggregates []shared.AggregateRoot) {
	if s.eventPublisher == nil {
		return
	}
	for _, agg := range aggregates {
		events := agg.GetDomainEvents()
		if len(events) == 0 {
			continue
		}
		if err := s.eventPublisher.Publish(ctx, events...); err != nil {
			s.logger.Warn("Failed to publish domain events",
				zap.String("aggregate_id", agg.GetID().String()),
				zap.Error(err))
			continue
		}
		agg.ClearDomainEvents()
	}
}
