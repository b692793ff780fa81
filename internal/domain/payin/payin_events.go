package payin

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payin/backend/internal/domain/shared"
)

// Event types for the PayIn lifecycle
const (
	EventTypePayInCreated       = "payin.created"
	EventTypePayInStatusChanged = "payin.status_changed"
	EventTypeBankResponseStored = "payin.bank_response_stored"
)

// PayInCreatedEvent is raised when a merchant opens a new payment request
type PayInCreatedEvent struct {
	shared.BaseDomainEvent
	MerchantID      uuid.UUID `json:"merchant_id"`
	MerchantOrderID string    `json:"merchant_order_id"`
	ShortCode       string    `json:"short_code"`
}

// NewPayInCreatedEvent creates a created event for the request
func NewPayInCreatedEvent(p *PayIn) *PayInCreatedEvent {
	return &PayInCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePayInCreated, "PayIn", p.ID, p.CompanyID),
		MerchantID:      p.MerchantID,
		MerchantOrderID: p.MerchantOrderID,
		ShortCode:       p.ShortCode,
	}
}

// PayInStatusChangedEvent is raised on every state machine transition. The
// merchant notifier and the live-update feed both consume it.
type PayInStatusChangedEvent struct {
	shared.BaseDomainEvent
	MerchantID      uuid.UUID       `json:"merchant_id"`
	MerchantOrderID string          `json:"merchant_order_id"`
	From            PayInStatus     `json:"from"`
	To              PayInStatus     `json:"to"`
	Amount          decimal.Decimal `json:"amount"`
	UTR             string          `json:"utr,omitempty"`
	Message         string          `json:"message"`
}

// NewPayInStatusChangedEvent creates a status-changed event for the request
func NewPayInStatusChangedEvent(p *PayIn, from PayInStatus) *PayInStatusChangedEvent {
	return &PayInStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePayInStatusChanged, "PayIn", p.ID, p.CompanyID),
		MerchantID:      p.MerchantID,
		MerchantOrderID: p.MerchantOrderID,
		From:            from,
		To:              p.Status,
		Amount:          p.Amount,
		UTR:             p.UserSubmittedUTR,
		Message:         p.StatusMessage,
	}
}

// BankResponseStoredEvent is raised when an ingested bank credit line is
// persisted, whether fresh or repeated.
type BankResponseStoredEvent struct {
	shared.BaseDomainEvent
	BankAccountID uuid.UUID       `json:"bank_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	UTR           string          `json:"utr"`
	Repeated      bool            `json:"repeated"`
}

// NewBankResponseStoredEvent creates a stored event for the bank response
func NewBankResponseStoredEvent(r *BankResponse) *BankResponseStoredEvent {
	return &BankResponseStoredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBankResponseStored, "BankResponse", r.ID, r.CompanyID),
		BankAccountID:   r.BankAccountID,
		Amount:          r.Amount,
		UTR:             r.UTR,
		Repeated:        r.Status == ResponseStatusRepeated,
	}
}
