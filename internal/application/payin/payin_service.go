package payin

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/payin/backend/internal/application/reconciliation"
	"github.com/payin/backend/internal/domain/partner"
	"github.com/payin/backend/internal/domain/payin"
	"github.com/payin/backend/internal/domain/shared"
)

// ErrNoAccountAvailable is returned when no enabled collection account
// supports the requested payment method.
var ErrNoAccountAvailable = shared.NewDomainError("NO_ACCOUNT_AVAILABLE",
	"No enabled collection account supports this payment method")

// PayInService manages the lifecycle of payment requests: opening them,
// allocating a collection account, and recording end-user UTR submissions.
type PayInService struct {
	payInRepo        payin.PayInRepository
	bankResponseRepo payin.BankResponseRepository
	merchantRepo     partner.MerchantRepository
	bankAccountRepo  partner.BankAccountRepository
	settlement       *reconciliation.SettlementService
	eventPublisher   shared.EventPublisher
	logger           *zap.Logger
}

// PayInServiceConfig holds the service dependencies.
type PayInServiceConfig struct {
	PayInRepo        payin.PayInRepository
	BankResponseRepo payin.BankResponseRepository
	MerchantRepo     partner.MerchantRepository
	BankAccountRepo  partner.BankAccountRepository
	Settlement       *reconciliation.SettlementService
	EventPublisher   shared.EventPublisher
	Logger           *zap.Logger
}

// NewPayInService creates a payin service.
func NewPayInService(config PayInServiceConfig) *PayInService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayInService{
		payInRepo:        config.PayInRepo,
		bankResponseRepo: config.BankResponseRepo,
		merchantRepo:     config.MerchantRepo,
		bankAccountRepo:  config.BankAccountRepo,
		settlement:       config.Settlement,
		eventPublisher:   config.EventPublisher,
		logger:           logger,
	}
}

// CreatePayIn opens a request for a merchant order and allocates a collection
// account at random from the enabled pool for the payment method. The merchant
// order ID must not already have an open request.
func (s *PayInService) CreatePayIn(ctx context.Context, req CreatePayInRequest) (*PayInView, error) {
	if req.Amount.LessThan(payin.MinCreditAmount) || req.Amount.GreaterThan(payin.MaxCreditAmount) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Requested amount must be between 1 and 500000")
	}
	if !req.Method.IsValid() {
		return nil, shared.NewDomainError("INVALID_METHOD", "Unknown payment method")
	}

	merchant, err := s.merchantRepo.FindByID(ctx, req.CompanyID, req.MerchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load merchant: %w", err)
	}
	if !merchant.IsEnabled {
		return nil, shared.NewDomainError("MERCHANT_DISABLED", "Merchant is disabled")
	}

	if _, err := s.payInRepo.FindOpenByOrderID(ctx, req.CompanyID, req.MerchantOrderID); err == nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS",
			fmt.Sprintf("Merchant order %s already has an open payin", req.MerchantOrderID))
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to check open orders: %w", err)
	}

	urls := payin.NotificationURLs{NotifyURL: req.NotifyURL, ReturnURL: req.ReturnURL}
	if urls.NotifyURL == "" {
		urls.NotifyURL = merchant.NotifyURL
	}
	if urls.ReturnURL == "" {
		urls.ReturnURL = merchant.ReturnURL
	}

	p, err := payin.NewPayIn(req.CompanyID, merchant.ID, req.MerchantOrderID, urls)
	if err != nil {
		return nil, err
	}

	account, err := s.pickAccount(ctx, req.CompanyID, req.Method)
	if err != nil {
		return nil, err
	}
	if err := p.Assign(account.ID, req.Amount); err != nil {
		return nil, err
	}

	if err := s.payInRepo.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save payin: %w", err)
	}
	s.publishEvents(ctx, p)

	s.logger.Info("PayIn created",
		zap.String("payin_id", p.ID.String()),
		zap.String("merchant_order_id", p.MerchantOrderID),
		zap.String("short_code", p.ShortCode),
		zap.String("amount", p.Amount.String()))

	view := Project(p, RoleAdmin)
	return &view, nil
}

// pickAccount draws a random enabled account for the method so collections
// spread across the vendor pool.
func (s *PayInService) pickAccount(ctx context.Context, companyID uuid.UUID, method partner.PaymentMethod) (*partner.BankAccount, error) {
	pool, err := s.bankAccountRepo.FindEnabledByMethod(ctx, companyID, method)
	if err != nil {
		return nil, fmt.Errorf("failed to load account pool: %w", err)
	}
	if len(pool) == 0 {
		return nil, ErrNoAccountAvailable
	}
	return &pool[rand.Intn(len(pool))], nil
}

// SubmitUTR records an end-user UTR claim and parks the request in PENDING
// until the matching credit line arrives. If the credit line is already
// stored, a settlement attempt runs immediately.
func (s *PayInService) SubmitUTR(ctx context.Context, req SubmitUTRRequest) (*PayInView, error) {
	p, err := s.payInRepo.FindByID(ctx, req.CompanyID, req.PayInID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payin: %w", err)
	}

	if err := p.SubmitUTR(req.UTR); err != nil {
		return nil, err
	}
	if p.Status == payin.StatusAssigned {
		if err := p.MarkPending(); err != nil {
			return nil, err
		}
	}
	if err := s.payInRepo.SaveWithLock(ctx, p); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, p)

	if s.settlement != nil {
		if response, err := s.bankResponseRepo.FindByUTR(ctx, req.CompanyID, req.UTR); err == nil && response.IsSettleable() {
			if _, err := s.settlement.SettlePayIn(ctx, req.CompanyID, response.ID); err != nil {
				s.logger.Warn("Settlement attempt after UTR submission failed",
					zap.String("payin_id", p.ID.String()),
					zap.Error(err))
			}
			// Reload to reflect whatever the settlement decided.
			if settled, err := s.payInRepo.FindByID(ctx, req.CompanyID, req.PayInID); err == nil {
				p = settled
			}
		}
	}

	view := Project(p, RoleAdmin)
	return &view, nil
}

// GetPayIn returns the role-projected view of one request.
func (s *PayInService) GetPayIn(ctx context.Context, companyID, payInID uuid.UUID, role Role) (*PayInView, error) {
	p, err := s.payInRepo.FindByID(ctx, companyID, payInID)
	if err != nil {
		return nil, err
	}
	view := Project(p, role)
	return &view, nil
}

// ListPayIns returns a page of requests projected for the caller's role,
// newest first unless the request orders otherwise.
func (s *PayInService) ListPayIns(ctx context.Context, req ListPayInsRequest) (*shared.Paginated[PayInView], error) {
	if req.Status != "" && !req.Status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATE", "Unknown payin status")
	}

	filter := shared.DefaultFilter()
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}
	if req.OrderBy != "" {
		filter.OrderBy = req.OrderBy
	}
	if req.OrderDir != "" {
		filter.OrderDir = req.OrderDir
	}
	if req.Status != "" {
		filter.Filters["status"] = req.Status
	}
	if req.MerchantID != uuid.Nil {
		filter.Filters["merchant_id"] = req.MerchantID
	}

	page, err := s.payInRepo.List(ctx, req.CompanyID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list payins: %w", err)
	}

	views := make([]PayInView, 0, len(page.Items))
	for i := range page.Items {
		views = append(views, Project(&page.Items[i], req.Role))
	}
	result := shared.Paginated[PayInView]{
		Items:      views,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}
	return &result, nil
}

// GetByShortCode returns the open request behind a payment link.
func (s *PayInService) GetByShortCode(ctx context.Context, companyID uuid.UUID, shortCode string) (*PayInView, error) {
	if !payin.IsValidShortCode(shortCode) {
		return nil, shared.NewDomainError("INVALID_SHORT_CODE", "Short code must be exactly 5 characters")
	}
	p, err := s.payInRepo.FindOpenByShortCode(ctx, companyID, shortCode)
	if err != nil {
		return nil, err
	}
	// The payment page is anonymous; expose only what the payer needs.
	view := PayInView{
		ID:        p.ID,
		Amount:    p.Amount,
		Status:    p.Status,
		ShortCode: p.ShortCode,
		CreatedAt: p.CreatedAt,
		ExpiresAt: p.ExpiresAt,
	}
	return &view, nil
}

func (s *PayInService) publishEvents(ctx context.Context, agg shared.AggregateRoot) {
	if s.eventPublisher == nil {
		return
	}
	events := agg.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish payin events",
			zap.String("aggregate_id", agg.GetID().String()),
			zap.Error(err))
		return
	}
	agg.ClearDomainEvents()
}
