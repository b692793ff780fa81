package payin

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payin/backend/internal/domain/shared"
)

// IdleWindow is how long an unsettled request may sit in INITIATED or an open
// state before the sweep force-drops it.
const IdleWindow = 10 * time.Minute

// NotificationURLs holds the merchant-facing URLs configured per request.
type NotificationURLs struct {
	NotifyURL string `json:"notify_url,omitempty"`
	ReturnURL string `json:"return_url,omitempty"`
}

// ChangeHistoryEntry is one append-only record of a mutation applied to the
// request. History is never rewritten; corrections append new entries.
type ChangeHistoryEntry struct {
	At       time.Time   `json:"at"`
	From     PayInStatus `json:"from,omitempty"`
	To       PayInStatus `json:"to,omitempty"`
	Message  string      `json:"message"`
	Operator string      `json:"operator,omitempty"`
}

// PayIn is a merchant's open request to receive a payment from an end user.
// It is never physically deleted; terminal records stay for audit.
type PayIn struct {
	shared.CompanyAggregateRoot
	MerchantID      uuid.UUID
	MerchantOrderID string
	Amount          decimal.Decimal
	BankAccountID   *uuid.UUID
	ShortCode       string
	Status          PayInStatus
	StatusMessage   string

	UserSubmittedUTR string
	BankResponseID   *uuid.UUID

	MerchantCommission *decimal.Decimal
	VendorCommission   *decimal.Decimal
	ApprovedAt         *time.Time
	DurationToSettle   time.Duration

	// OneTimeUsed marks the payment link as consumed. It is persisted and
	// checked inside the same transaction as the status check so enforcement
	// survives restarts and multiple instances.
	OneTimeUsed bool
	ExpiresAt   time.Time

	URLs          NotificationURLs
	ChangeHistory []ChangeHistoryEntry
}

// NewPayIn creates a request in INITIATED state with a fresh short code and an
// expiry one idle window out.
func NewPayIn(companyID, merchantID uuid.UUID, merchantOrderID string, urls NotificationURLs) (*PayIn, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	if merchantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MERCHANT", "Merchant ID cannot be empty")
	}
	if merchantOrderID == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_ID", "Merchant order ID cannot be empty")
	}

	code, err := GenerateShortCode()
	if err != nil {
		return nil, err
	}

	p := &PayIn{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		MerchantID:           merchantID,
		MerchantOrderID:      merchantOrderID,
		Amount:               decimal.Zero,
		ShortCode:            code,
		Status:               StatusInitiated,
		ExpiresAt:            time.Now().Add(IdleWindow),
		URLs:                 urls,
		ChangeHistory:        []ChangeHistoryEntry{},
	}
	p.AddDomainEvent(NewPayInCreatedEvent(p))
	return p, nil
}

// transition validates the move against the state machine, records a history
// entry and raises the status-changed event.
func (p *PayIn) transition(target PayInStatus, message string) error {
	if !p.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot transition payin from %s to %s", p.Status, target))
	}
	from := p.Status
	p.Status = target
	p.StatusMessage = message
	p.AppendChange(ChangeHistoryEntry{At: time.Now(), From: from, To: target, Message: message})
	p.AddDomainEvent(NewPayInStatusChangedEvent(p, from))
	return nil
}

// AppendChange appends to the request's history. Existing entries are never
// modified or removed.
func (p *PayIn) AppendChange(entry ChangeHistoryEntry) {
	p.ChangeHistory = append(p.ChangeHistory, entry)
}

// Assign allocates a collection account and writes the requested amount.
func (p *PayIn) Assign(bankAccountID uuid.UUID, amount decimal.Decimal) error {
	if bankAccountID == uuid.Nil {
		return shared.NewDomainError("INVALID_ACCOUNT", "Bank account ID cannot be empty")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Requested amount must be positive")
	}
	if err := p.transition(StatusAssigned, fmt.Sprintf("Assigned to bank account %s", bankAccountID)); err != nil {
		return err
	}
	p.BankAccountID = &bankAccountID
	p.Amount = amount
	return nil
}

// SubmitUTR records the UTR the end user claims to have paid with. Allowed
// while the request is open.
func (p *PayIn) SubmitUTR(utr string) error {
	if !p.Status.IsOpen() {
		return shared.NewDomainError("INVALID_STATE", "UTR can only be submitted on an open request")
	}
	if !IsValidUTR(utr) {
		return shared.NewDomainError("INVALID_UTR", "UTR must be alphanumeric")
	}
	p.UserSubmittedUTR = utr
	return nil
}

// MarkSuccess settles the request: links the bank response, stores both
// commissions, stamps approval time and settlement duration.
func (p *PayIn) MarkSuccess(responseID uuid.UUID, merchantCommission, vendorCommission decimal.Decimal, utr string) error {
	if err := p.transition(StatusSuccess, "Payment received and matched"); err != nil {
		return err
	}
	now := time.Now()
	p.BankResponseID = &responseID
	p.MerchantCommission = &merchantCommission
	p.VendorCommission = &vendorCommission
	p.ApprovedAt = &now
	p.DurationToSettle = now.Sub(p.CreatedAt)
	p.OneTimeUsed = true
	if utr != "" {
		p.UserSubmittedUTR = utr
	}
	return nil
}

// MarkDispute records a credit that matched on account but not amount. Same
// bookkeeping as success, without approval.
func (p *PayIn) MarkDispute(responseID uuid.UUID, merchantCommission, vendorCommission decimal.Decimal, credited decimal.Decimal) error {
	msg := fmt.Sprintf("Amount mismatch: requested %s, credited %s", p.Amount, credited)
	if err := p.transition(StatusDispute, msg); err != nil {
		return err
	}
	p.BankResponseID = &responseID
	p.MerchantCommission = &merchantCommission
	p.VendorCommission = &vendorCommission
	p.OneTimeUsed = true
	return nil
}

// MarkBankMismatch records a credit that matched by UTR or short code but on a
// different account than assigned.
func (p *PayIn) MarkBankMismatch(responseID uuid.UUID, creditedAccount uuid.UUID) error {
	msg := fmt.Sprintf("Bank mismatch: credit arrived on account %s", creditedAccount)
	if err := p.transition(StatusBankMismatch, msg); err != nil {
		return err
	}
	p.BankResponseID = &responseID
	return nil
}

// MarkDuplicate records that the submitted UTR is already claimed elsewhere.
func (p *PayIn) MarkDuplicate(utr string) error {
	return p.transition(StatusDuplicate, fmt.Sprintf("UTR %s already exists", utr))
}

// MarkPending parks the request awaiting an ingestion source confirmation.
func (p *PayIn) MarkPending() error {
	return p.transition(StatusPending, "Awaiting bank confirmation")
}

// MarkImgPending parks the request awaiting payment-proof extraction.
func (p *PayIn) MarkImgPending() error {
	return p.transition(StatusImgPending, "Awaiting proof extraction")
}

// MarkDropped expires the request; invoked by the sweep.
func (p *PayIn) MarkDropped() error {
	return p.transition(StatusDropped, "Request expired without settlement")
}

// MarkFailed terminates the request.
func (p *PayIn) MarkFailed(reason string) error {
	return p.transition(StatusFailed, reason)
}

// PromoteToSuccess moves a correctable state to SUCCESS during dispute
// resolution.
func (p *PayIn) PromoteToSuccess(merchantCommission, vendorCommission decimal.Decimal, operator string) error {
	if !p.Status.IsCorrectable() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot resolve payin in %s state", p.Status))
	}
	if err := p.transition(StatusSuccess, "Resolved to success by operator"); err != nil {
		return err
	}
	now := time.Now()
	p.MerchantCommission = &merchantCommission
	p.VendorCommission = &vendorCommission
	p.ApprovedAt = &now
	p.DurationToSettle = now.Sub(p.CreatedAt)
	p.OneTimeUsed = true
	if operator != "" {
		p.ChangeHistory[len(p.ChangeHistory)-1].Operator = operator
	}
	return nil
}

// Reopen clears the settlement linkage and returns the request to ASSIGNED, or
// to DROPPED when the idle window has already passed. Used by the reset
// workflow; SUCCESS and FAILED records cannot be reopened.
func (p *PayIn) Reopen(operator string) error {
	if !p.Status.IsCorrectable() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot reset payin in %s state", p.Status))
	}
	target := StatusAssigned
	if time.Now().After(p.ExpiresAt) {
		target = StatusDropped
	}
	if err := p.transition(target, "Reset by operator"); err != nil {
		return err
	}
	p.UserSubmittedUTR = ""
	p.BankResponseID = nil
	p.MerchantCommission = nil
	p.VendorCommission = nil
	p.OneTimeUsed = false
	if operator != "" {
		p.ChangeHistory[len(p.ChangeHistory)-1].Operator = operator
	}
	return nil
}

// IsStale reports whether the request sat unsettled past the idle window.
func (p *PayIn) IsStale(now time.Time) bool {
	if p.Status.IsTerminal() || p.Status.IsCorrectable() {
		return false
	}
	return now.After(p.ExpiresAt)
}
