package reconciliation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/payin/backend/internal/domain/ledger"
	"github.com/payin/backend/internal/domain/payin"
	"github.com/payin/backend/internal/domain/shared"
)

// DisputeService resolves requests parked in a mismatch state. An operator can
// accept the credited amount, reject the request outright, or retarget the
// credit to a different merchant order before settling it.
type DisputeService struct {
	txScope        TransactionScope
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewDisputeService creates a dispute service.
func NewDisputeService(txScope TransactionScope, eventPublisher shared.EventPublisher, logger *zap.Logger) *DisputeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DisputeService{
		txScope:        txScope,
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// ResolveDispute executes an operator verdict on a mismatched request.
func (s *DisputeService) ResolveDispute(ctx context.Context, req ResolveDisputeRequest) (*CorrectionResult, error) {
	if req.Operator == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Operator is required for corrections")
	}
	if req.Action != ResolutionAccept && req.Action != ResolutionReject {
		return nil, shared.NewDomainError("INVALID_INPUT", "Unknown dispute resolution action")
	}

	var (
		result *CorrectionResult
		events []shared.DomainEvent
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.PayInRepo().FindByID(ctx, req.CompanyID, req.PayInID)
		if err != nil {
			return fmt.Errorf("failed to load payin: %w", err)
		}
		if !p.Status.IsCorrectable() {
			return shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("Cannot resolve payin in %s state", p.Status))
		}

		switch req.Action {
		case ResolutionReject:
			result, events, err = s.reject(ctx, repos, p, req)
		case ResolutionAccept:
			if req.TargetMerchantOrderID != "" {
				result, events, err = s.retarget(ctx, repos, p, req)
			} else {
				result, events, err = s.accept(ctx, repos, p, req)
			}
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)
	s.logger.Info("Dispute resolved",
		zap.String("payin_id", req.PayInID.String()),
		zap.String("action", string(req.Action)),
		zap.String("operator", req.Operator))
	return result, nil
}

// accept settles the disputed request at the credited amount. The vendor side
// was already credited at ingestion; only the merchant side moves here.
func (s *DisputeService) accept(
	ctx context.Context,
	repos TransactionalRepositories,
	p *payin.PayIn,
	req ResolveDisputeRequest,
) (*CorrectionResult, []shared.DomainEvent, error) {
	if p.BankResponseID == nil {
		return nil, nil, shared.NewDomainError("INVALID_STATE",
			"Payin has no linked credit line to accept")
	}
	response, err := repos.BankResponseRepo().FindByID(ctx, req.CompanyID, *p.BankResponseID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load linked bank response: %w", err)
	}

	merchant, err := repos.MerchantRepo().FindByID(ctx, req.CompanyID, p.MerchantID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load merchant: %w", err)
	}
	account, err := repos.BankAccountRepo().FindByID(ctx, req.CompanyID, response.BankAccountID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load bank account: %w", err)
	}
	vendor, err := repos.VendorRepo().FindByID(ctx, req.CompanyID, account.VendorID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load vendor: %w", err)
	}

	commissions, err := payin.ComputeCommissions(response.Amount, merchant.CommissionRate, vendor.CommissionRate)
	if err != nil {
		return nil, nil, err
	}

	before := payin.SnapshotOf(p)
	// The operator accepts the credited amount as the settled amount.
	p.Amount = response.Amount
	if err := p.PromoteToSuccess(commissions.Merchant, commissions.Vendor, req.Operator); err != nil {
		return nil, nil, err
	}

	merchant.Credit(response.Amount.Sub(commissions.Merchant))
	if err := creditOwnerLedger(ctx, repos, req.CompanyID, merchant.ID, ledger.OwnerTypeMerchant,
		response.Amount, commissions.Merchant, time.Now()); err != nil {
		return nil, nil, err
	}

	if err := repos.MerchantRepo().SaveWithLock(ctx, merchant); err != nil {
		return nil, nil, err
	}
	return s.finish(ctx, repos, p, req, before)
}

// retarget moves the claimed credit to the open request of another merchant
// order. The original request terminates as FAILED. The target settles only
// when it sits on the account the credit arrived on; otherwise it parks as
// BANK_MISMATCH and no money moves.
func (s *DisputeService) retarget(
	ctx context.Context,
	repos TransactionalRepositories,
	p *payin.PayIn,
	req ResolveDisputeRequest,
) (*CorrectionResult, []shared.DomainEvent, error) {
	if p.BankResponseID == nil {
		return nil, nil, shared.NewDomainError("INVALID_STATE",
			"Payin has no linked credit line to retarget")
	}
	response, err := repos.BankResponseRepo().FindByID(ctx, req.CompanyID, *p.BankResponseID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load linked bank response: %w", err)
	}

	target, err := repos.PayInRepo().FindOpenByOrderID(ctx, req.CompanyID, req.TargetMerchantOrderID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find open payin for order %q: %w", req.TargetMerchantOrderID, err)
	}

	before := payin.SnapshotOf(p)

	// The original request gives up its claim for good.
	if err := p.MarkFailed(fmt.Sprintf("Credit retargeted to order %s", req.TargetMerchantOrderID)); err != nil {
		return nil, nil, err
	}

	if target.BankAccountID == nil || *target.BankAccountID != response.BankAccountID {
		if err := target.MarkBankMismatch(response.ID, response.BankAccountID); err != nil {
			return nil, nil, err
		}
	} else {
		merchant, err := repos.MerchantRepo().FindByID(ctx, req.CompanyID, target.MerchantID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load merchant: %w", err)
		}
		account, err := repos.BankAccountRepo().FindByID(ctx, req.CompanyID, response.BankAccountID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load bank account: %w", err)
		}
		vendor, err := repos.VendorRepo().FindByID(ctx, req.CompanyID, account.VendorID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load vendor: %w", err)
		}

		commissions, err := payin.ComputeCommissions(response.Amount, merchant.CommissionRate, vendor.CommissionRate)
		if err != nil {
			return nil, nil, err
		}

		target.Amount = response.Amount
		if err := target.MarkSuccess(response.ID, commissions.Merchant, commissions.Vendor, response.UTR); err != nil {
			return nil, nil, err
		}

		merchant.Credit(response.Amount.Sub(commissions.Merchant))
		if err := creditOwnerLedger(ctx, repos, req.CompanyID, merchant.ID, ledger.OwnerTypeMerchant,
			response.Amount, commissions.Merchant, time.Now()); err != nil {
			return nil, nil, err
		}
		if err := repos.MerchantRepo().SaveWithLock(ctx, merchant); err != nil {
			return nil, nil, err
		}
	}

	if err := repos.PayInRepo().SaveWithLock(ctx, target); err != nil {
		return nil, nil, err
	}

	result, events, err := s.finish(ctx, repos, p, req, before)
	if err != nil {
		return nil, nil, err
	}
	events = append(events, target.GetDomainEvents()...)
	return result, events, nil
}

// reject terminates the request and releases the linked credit line so it can
// match another request.
func (s *DisputeService) reject(
	ctx context.Context,
	repos TransactionalRepositories,
	p *payin.PayIn,
	req ResolveDisputeRequest,
) (*CorrectionResult, []shared.DomainEvent, error) {
	before := payin.SnapshotOf(p)

	if p.BankResponseID != nil {
		response, err := repos.BankResponseRepo().FindByID(ctx, req.CompanyID, *p.BankResponseID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load linked bank response: %w", err)
		}
		response.Release()
		if err := repos.BankResponseRepo().SaveWithLock(ctx, response); err != nil {
			return nil, nil, err
		}
	}

	reason := req.Reason
	if reason == "" {
		reason = "Rejected by operator"
	}
	if err := p.MarkFailed(reason); err != nil {
		return nil, nil, err
	}
	return s.finish(ctx, repos, p, req, before)
}

// finish appends the audit record, saves the request and returns its events.
func (s *DisputeService) finish(
	ctx context.Context,
	repos TransactionalRepositories,
	p *payin.PayIn,
	req ResolveDisputeRequest,
	before payin.ResetSnapshot,
) (*CorrectionResult, []shared.DomainEvent, error) {
	history, err := payin.NewResetHistory(req.CompanyID, p.ID, req.Operator, req.Reason, before, payin.SnapshotOf(p))
	if err != nil {
		return nil, nil, err
	}
	if err := repos.ResetHistoryRepo().Append(ctx, history); err != nil {
		return nil, nil, err
	}
	if err := repos.PayInRepo().SaveWithLock(ctx, p); err != nil {
		return nil, nil, err
	}
	return &CorrectionResult{PayInID: p.ID, Status: p.Status, HistoryID: history.ID},
		p.GetDomainEvents(), nil
}

func (s *DisputeService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish dispute events", zap.Error(err))
	}
}
