package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/payin/backend/internal/domain/ledger"
	"github.com/payin/backend/internal/domain/partner"
	"github.com/payin/backend/internal/domain/payin"
	"github.com/payin/backend/internal/domain/shared"
)

// CorrectionService executes manual operator corrections: resetting a
// mismatched request back to open, fixing a settled amount, and moving a
// settlement to the account it actually arrived on. Every correction appends a
// before/after audit record and never rewrites history.
type CorrectionService struct {
	txScope        TransactionScope
	locker         ExclusiveLocker
	lockTTL        time.Duration
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewCorrectionService creates a correction service.
func NewCorrectionService(
	txScope TransactionScope,
	locker ExclusiveLocker,
	eventPublisher shared.EventPublisher,
	logger *zap.Logger,
) *CorrectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NoOpLocker{}
	}
	return &CorrectionService{
		txScope:        txScope,
		locker:         locker,
		lockTTL:        settlementLockTTL,
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// ResetPayIn reopens a mismatched request so it can match again: the linked
// credit line is released, the request returns to ASSIGNED (or DROPPED when
// already past its window) and a reset record captures both states. Settled
// requests refuse the reset; money that already moved needs an amount or
// account correction instead.
func (s *CorrectionService) ResetPayIn(ctx context.Context, companyID, payInID uuid.UUID, operator, reason string) (*CorrectionResult, error) {
	// Resets contend with settlement on the same credit-line lock, so a reset
	// cannot interleave with a concurrent settlement of the same UTR.
	var (
		lockAccount uuid.UUID
		lockUTR     string
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.PayInRepo().FindByID(ctx, companyID, payInID)
		if err != nil {
			return fmt.Errorf("failed to load payin: %w", err)
		}
		lockUTR = p.UserSubmittedUTR
		if p.BankAccountID != nil {
			lockAccount = *p.BankAccountID
		}
		if p.BankResponseID != nil {
			response, err := repos.BankResponseRepo().FindByID(ctx, companyID, *p.BankResponseID)
			if err != nil {
				return fmt.Errorf("failed to load linked bank response: %w", err)
			}
			lockAccount = response.BankAccountID
			lockUTR = response.UTR
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	lock, err := s.locker.Acquire(ctx, settlementLockKey(lockAccount, lockUTR), s.lockTTL)
	if err != nil {
		if errors.Is(err, shared.ErrLockHeld) {
			s.logger.Info("Reset contends with a settlement in progress",
				zap.String("payin_id", payInID.String()))
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
		result *CorrectionResult
		events []shared.DomainEvent
	)
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.PayInRepo().FindByID(ctx, companyID, payInID)
		if err != nil {
			return fmt.Errorf("failed to load payin: %w", err)
		}
		if p.Status == payin.StatusSuccess {
			return shared.NewDomainError("ALREADY_SETTLED",
				"A settled payin cannot be reset; correct the amount or account instead")
		}

		before := payin.SnapshotOf(p)

		var response *payin.BankResponse
		utr := p.UserSubmittedUTR
		if p.BankResponseID != nil {
			response, err = repos.BankResponseRepo().FindByID(ctx, companyID, *p.BankResponseID)
			if err != nil {
				return fmt.Errorf("failed to load linked bank response: %w", err)
			}
			if response.UTR != "" {
				utr = response.UTR
			}
		}

		if utr != "" {
			settled, err := repos.PayInRepo().ExistsSettledWithUTR(ctx, companyID, utr)
			if err != nil {
				return fmt.Errorf("failed to check settled claims: %w", err)
			}
			if settled {
				return shared.NewDomainError("ALREADY_SETTLED",
					"The UTR already settled another payin and cannot be reset")
			}
		}

		if response != nil {
			claims, err := repos.BankResponseRepo().CountClaimsOn(ctx, companyID, response.ID)
			if err != nil {
				return fmt.Errorf("failed to count credit-line claims: %w", err)
			}
			// Another request still holds the credit line; only this
			// request's linkage clears.
			if claims <= 1 {
				response.Release()
				if err := repos.BankResponseRepo().SaveWithLock(ctx, response); err != nil {
					return err
				}
			}
		}

		if err := p.Reopen(operator); err != nil {
			return err
		}

		history, err := payin.NewResetHistory(companyID, p.ID, operator, reason, before, payin.SnapshotOf(p))
		if err != nil {
			return err
		}
		if err := repos.ResetHistoryRepo().Append(ctx, history); err != nil {
			return err
		}
		if err := repos.PayInRepo().SaveWithLock(ctx, p); err != nil {
			return err
		}

		events = p.GetDomainEvents()
		result = &CorrectionResult{PayInID: p.ID, Status: p.Status, HistoryID: history.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)
	s.logger.Info("PayIn reset",
		zap.String("payin_id", payInID.String()),
		zap.String("operator", operator),
		zap.String("status", string(result.Status)))
	return result, nil
}

// CorrectAmount fixes the recorded amount of a settled request. The signed
// difference propagates through both owners' ledgers from the settlement day
// forward, the collection account balance shifts by the same difference and
// its daily-limit flag is re-evaluated.
func (s *CorrectionService) CorrectAmount(ctx context.Context, companyID, payInID uuid.UUID, newAmount decimal.Decimal, operator, reason string) (*CorrectionResult, error) {
	if newAmount.LessThan(payin.MinCreditAmount) || newAmount.GreaterThan(payin.MaxCreditAmount) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Corrected amount must be between 1 and 500000")
	}
	if operator == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Operator is required for corrections")
	}

	var result *CorrectionResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.PayInRepo().FindByID(ctx, companyID, payInID)
		if err != nil {
			return fmt.Errorf("failed to load payin: %w", err)
		}
		if p.Status != payin.StatusSuccess {
			return shared.NewDomainError("INVALID_STATE", "Only a settled payin can have its amount corrected")
		}
		if p.BankAccountID == nil || p.ApprovedAt == nil {
			return shared.NewDomainError("INVALID_STATE", "Settled payin is missing its settlement linkage")
		}
		if newAmount.Equal(p.Amount) {
			return shared.NewDomainError("INVALID_AMOUNT", "Corrected amount equals the current amount")
		}

		before := payin.SnapshotOf(p)
		amountDelta := newAmount.Sub(p.Amount)
		now := time.Now()

		merchant, err := repos.MerchantRepo().FindByID(ctx, companyID, p.MerchantID)
		if err != nil {
			return fmt.Errorf("failed to load merchant: %w", err)
		}
		account, err := repos.BankAccountRepo().FindByID(ctx, companyID, *p.BankAccountID)
		if err != nil {
			return fmt.Errorf("failed to load bank account: %w", err)
		}
		vendor, err := repos.VendorRepo().FindByID(ctx, companyID, account.VendorID)
		if err != nil {
			return fmt.Errorf("failed to load vendor: %w", err)
		}

		newMerchantCommission := merchant.CommissionOn(newAmount)
		newVendorCommission := vendor.CommissionOn(newAmount)
		merchantDelta := ledger.CorrectionDelta{
			Amount:     amountDelta,
			Commission: newMerchantCommission.Sub(commissionOr(p.MerchantCommission)),
		}
		vendorDelta := ledger.CorrectionDelta{
			Amount:     amountDelta,
			Commission: newVendorCommission.Sub(commissionOr(p.VendorCommission)),
		}

		adjustBalance(merchant.Credit, merchant.Debit, merchantDelta.Net())
		adjustBalance(vendor.Credit, vendor.Debit, vendorDelta.Net())
		account.AdjustBy(amountDelta)

		originAt := *p.ApprovedAt
		if err := propagateCorrection(ctx, repos, companyID, merchant.ID, ledger.OwnerTypeMerchant,
			originAt, merchantDelta, now); err != nil {
			return err
		}
		if err := propagateCorrection(ctx, repos, companyID, vendor.ID, ledger.OwnerTypeVendor,
			originAt, vendorDelta, now); err != nil {
			return err
		}

		p.Amount = newAmount
		p.MerchantCommission = &newMerchantCommission
		p.VendorCommission = &newVendorCommission
		p.AppendChange(payin.ChangeHistoryEntry{
			At:       now,
			Message:  fmt.Sprintf("Amount corrected from %s to %s", before.Amount, newAmount),
			Operator: operator,
		})

		history, err := payin.NewResetHistory(companyID, p.ID, operator, reason, before, payin.SnapshotOf(p))
		if err != nil {
			return err
		}
		if err := repos.ResetHistoryRepo().Append(ctx, history); err != nil {
			return err
		}

		if err := repos.MerchantRepo().SaveWithLock(ctx, merchant); err != nil {
			return err
		}
		if err := repos.VendorRepo().SaveWithLock(ctx, vendor); err != nil {
			return err
		}
		if err := repos.BankAccountRepo().SaveWithLock(ctx, account); err != nil {
			return err
		}
		if err := repos.PayInRepo().SaveWithLock(ctx, p); err != nil {
			return err
		}

		result = &CorrectionResult{PayInID: p.ID, Status: p.Status, HistoryID: history.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("PayIn amount corrected",
		zap.String("payin_id", payInID.String()),
		zap.String("new_amount", newAmount.String()),
		zap.String("operator", operator))
	return result, nil
}

// ReassignBankAccount moves a settlement to the collection account the money
// actually arrived on. The old account and its vendor give the credit back,
// the new account and its vendor receive it, and both vendors' ledgers carry
// the signed corrections from the settlement day forward.
func (s *CorrectionService) ReassignBankAccount(ctx context.Context, companyID, payInID, newAccountID uuid.UUID, operator, reason string) (*CorrectionResult, error) {
	if operator == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Operator is required for corrections")
	}

	var result *CorrectionResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.PayInRepo().FindByID(ctx, companyID, payInID)
		if err != nil {
			return fmt.Errorf("failed to load payin: %w", err)
		}
		if p.Status != payin.StatusSuccess {
			return shared.NewDomainError("INVALID_STATE", "Only a settled payin can be reassigned")
		}
		if p.BankAccountID == nil || p.ApprovedAt == nil {
			return shared.NewDomainError("INVALID_STATE", "Settled payin is missing its settlement linkage")
		}
		if *p.BankAccountID == newAccountID {
			return shared.NewDomainError("INVALID_ACCOUNT", "Payin is already attributed to this account")
		}

		oldAccount, err := repos.BankAccountRepo().FindByID(ctx, companyID, *p.BankAccountID)
		if err != nil {
			return fmt.Errorf("failed to load current bank account: %w", err)
		}
		newAccount, err := repos.BankAccountRepo().FindByID(ctx, companyID, newAccountID)
		if err != nil {
			return fmt.Errorf("failed to load target bank account: %w", err)
		}
		oldVendor, err := repos.VendorRepo().FindByID(ctx, companyID, oldAccount.VendorID)
		if err != nil {
			return fmt.Errorf("failed to load current vendor: %w", err)
		}
		newVendor, err := repos.VendorRepo().FindByID(ctx, companyID, newAccount.VendorID)
		if err != nil {
			return fmt.Errorf("failed to load target vendor: %w", err)
		}

		before := payin.SnapshotOf(p)
		amount := p.Amount
		now := time.Now()
		originAt := *p.ApprovedAt

		oldCommission := commissionOr(p.VendorCommission)
		if oldCommission.IsZero() {
			oldCommission = oldVendor.CommissionOn(amount)
		}
		newCommission := newVendor.CommissionOn(amount)

		if err := oldAccount.Debit(amount); err != nil {
			return err
		}
		oldVendor.Debit(amount.Sub(oldCommission))
		if err := propagateCorrection(ctx, repos, companyID, oldVendor.ID, ledger.OwnerTypeVendor,
			originAt, ledger.CorrectionDelta{Amount: amount, Commission: oldCommission}.Negate(), now); err != nil {
			return err
		}

		if err := newAccount.Credit(amount); err != nil {
			return err
		}
		newVendor.Credit(amount.Sub(newCommission))
		if err := propagateCorrection(ctx, repos, companyID, newVendor.ID, ledger.OwnerTypeVendor,
			originAt, ledger.CorrectionDelta{Amount: amount, Commission: newCommission}, now); err != nil {
			return err
		}

		p.BankAccountID = &newAccountID
		p.VendorCommission = &newCommission
		p.AppendChange(payin.ChangeHistoryEntry{
			At:       now,
			Message:  fmt.Sprintf("Settlement moved from account %s to %s", oldAccount.ID, newAccountID),
			Operator: operator,
		})

		history, err := payin.NewResetHistory(companyID, p.ID, operator, reason, before, payin.SnapshotOf(p))
		if err != nil {
			return err
		}
		if err := repos.ResetHistoryRepo().Append(ctx, history); err != nil {
			return err
		}

		for _, account := range []*partner.BankAccount{oldAccount, newAccount} {
			if err := repos.BankAccountRepo().SaveWithLock(ctx, account); err != nil {
				return err
			}
		}
		for _, vendor := range []*partner.Vendor{oldVendor, newVendor} {
			if err := repos.VendorRepo().SaveWithLock(ctx, vendor); err != nil {
				return err
			}
		}
		if err := repos.PayInRepo().SaveWithLock(ctx, p); err != nil {
			return err
		}

		result = &CorrectionResult{PayInID: p.ID, Status: p.Status, HistoryID: history.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("PayIn settlement reassigned",
		zap.String("payin_id", payInID.String()),
		zap.String("new_account_id", newAccountID.String()),
		zap.String("operator", operator))
	return result, nil
}

func (s *CorrectionService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish correction events", zap.Error(err))
	}
}

// commissionOr returns the stored commission or zero when none was recorded.
func commissionOr(c *decimal.Decimal) decimal.Decimal {
	if c == nil {
		return decimal.Zero
	}
	return *c
}

// adjustBalance applies a signed delta through a credit/debit pair.
func adjustBalance(credit, debit func(decimal.Decimal), delta decimal.Decimal) {
	switch {
	case delta.IsPositive():
		credit(delta)
	case delta.IsNegative():
		debit(delta.Neg())
	}
}
