package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/payin/backend/internal/domain/ledger"
	"github.com/payin/backend/internal/domain/partner"
	"github.com/payin/backend/internal/domain/payin"
	"github.com/payin/backend/internal/domain/shared"
)

// IngestionService stores incoming bank credit lines. Every line is persisted
// exactly once per company: a line whose short code or UTR was seen before is
// recorded as repeated and never touches any balance. A fresh line credits the
// vendor side immediately (the money has physically arrived) and then triggers
// a settlement attempt.
type IngestionService struct {
	txScope        TransactionScope
	settlement     *SettlementService
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewIngestionService creates an ingestion service.
func NewIngestionService(
	txScope TransactionScope,
	settlement *SettlementService,
	eventPublisher shared.EventPublisher,
	logger *zap.Logger,
) *IngestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestionService{
		txScope:        txScope,
		settlement:     settlement,
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// CreateBankResponse validates, dedupes and stores one bank credit line, then
// attempts settlement for fresh lines.
func (s *IngestionService) CreateBankResponse(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if req.CompanyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	input := payin.IngestionInput{
		Amount:        req.Amount,
		UTR:           req.UTR,
		ShortCode:     req.ShortCode,
		BankAccountID: req.BankAccountID,
		UISubmitted:   req.UISubmitted,
	}
	return s.ingest(ctx, req.CompanyID, input)
}

// CreateFromBotLine parses a free-text monitoring-bot report and stores it.
func (s *IngestionService) CreateFromBotLine(ctx context.Context, companyID uuid.UUID, line string) (*IngestResult, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	input, err := payin.ParseBotLine(line)
	if err != nil {
		return nil, err
	}
	return s.ingest(ctx, companyID, input)
}

func (s *IngestionService) ingest(ctx context.Context, companyID uuid.UUID, input payin.IngestionInput) (*IngestResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var (
		response *payin.BankResponse
		events   []shared.DomainEvent
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		response, events, err = s.storeInTx(ctx, repos, companyID, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)

	result := &IngestResult{
		ResponseID: response.ID,
		Repeated:   response.Status == payin.ResponseStatusRepeated,
	}
	if result.Repeated {
		s.logger.Info("Repeated bank credit line recorded",
			zap.String("company_id", companyID.String()),
			zap.String("utr", input.UTR))
		return result, nil
	}

	if s.settlement != nil {
		settlement, err := s.settlement.SettlePayIn(ctx, companyID, response.ID)
		if err != nil {
			// The credit line is stored; a failed settlement attempt can be
			// retried without re-ingesting.
			s.logger.Error("Settlement attempt failed after ingestion",
				zap.String("response_id", response.ID.String()),
				zap.Error(err))
			return result, nil
		}
		result.Settlement = settlement
	}
	return result, nil
}

// storeInTx dedupes and persists the credit line, crediting the vendor side
// for fresh lines. Returns the events to publish after commit.
func (s *IngestionService) storeInTx(
	ctx context.Context,
	repos TransactionalRepositories,
	companyID uuid.UUID,
	input payin.IngestionInput,
) (*payin.BankResponse, []shared.DomainEvent, error) {
	response, err := payin.NewBankResponse(companyID, input.BankAccountID, input.Amount, input.UTR, input.ShortCode)
	if err != nil {
		return nil, nil, err
	}

	seen, err := s.seenBefore(ctx, repos, companyID, input)
	if err != nil {
		return nil, nil, err
	}
	if seen {
		response.MarkRepeated()
		if err := repos.BankResponseRepo().Save(ctx, response); err != nil {
			return nil, nil, fmt.Errorf("failed to store repeated credit line: %w", err)
		}
		return response, []shared.DomainEvent{payin.NewBankResponseStoredEvent(response)}, nil
	}

	if err := repos.BankResponseRepo().Save(ctx, response); err != nil {
		return nil, nil, fmt.Errorf("failed to store credit line: %w", err)
	}

	account, err := repos.BankAccountRepo().FindByID(ctx, companyID, input.BankAccountID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load bank account: %w", err)
	}
	vendor, err := repos.VendorRepo().FindByID(ctx, companyID, account.VendorID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load vendor: %w", err)
	}

	wasEnabled := account.IsEnabled
	if err := account.Credit(input.Amount); err != nil {
		return nil, nil, err
	}

	vendorCommission := vendor.CommissionOn(input.Amount)
	vendor.Credit(input.Amount.Sub(vendorCommission))

	if err := creditOwnerLedger(ctx, repos, companyID, vendor.ID, ledger.OwnerTypeVendor,
		input.Amount, vendorCommission, time.Now()); err != nil {
		return nil, nil, err
	}

	if err := repos.BankAccountRepo().SaveWithLock(ctx, account); err != nil {
		return nil, nil, err
	}
	if err := repos.VendorRepo().SaveWithLock(ctx, vendor); err != nil {
		return nil, nil, err
	}

	events := []shared.DomainEvent{
		payin.NewBankResponseStoredEvent(response),
		partner.NewBankAccountCreditedEvent(account, input.Amount),
	}
	if wasEnabled && !account.IsEnabled {
		events = append(events, partner.NewBankAccountDisabledEvent(account))
	}
	return response, events, nil
}

// seenBefore applies the company-scoped dedupe rule: by short code when the
// line carries one, by UTR otherwise.
func (s *IngestionService) seenBefore(
	ctx context.Context,
	repos TransactionalRepositories,
	companyID uuid.UUID,
	input payin.IngestionInput,
) (bool, error) {
	if input.ShortCode != "" {
		_, err := repos.BankResponseRepo().FindByShortCode(ctx, companyID, input.ShortCode)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return false, fmt.Errorf("failed to dedupe by short code: %w", err)
		}
		return false, nil
	}
	_, err := repos.BankResponseRepo().FindByUTR(ctx, companyID, input.UTR)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return false, fmt.Errorf("failed to dedupe by UTR: %w", err)
	}
	return false, nil
}

func (s *IngestionService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish ingestion events", zap.Error(err))
	}
}
