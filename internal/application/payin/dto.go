package payin

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payin/backend/internal/domain/partner"
	"github.com/payin/backend/internal/domain/payin"
)

// CreatePayInRequest opens a new payment request for a merchant order.
type CreatePayInRequest struct {
	CompanyID       uuid.UUID             `json:"company_id"`
	MerchantID      uuid.UUID             `json:"merchant_id"`
	MerchantOrderID string                `json:"merchant_order_id" binding:"required"`
	Amount          decimal.Decimal       `json:"amount" binding:"required"`
	Method          partner.PaymentMethod `json:"method" binding:"required"`
	// NotifyURL and ReturnURL override the merchant's configured defaults.
	NotifyURL string `json:"notify_url,omitempty"`
	ReturnURL string `json:"return_url,omitempty"`
}

// ListPayInsRequest pages through a company's payment requests.
type ListPayInsRequest struct {
	CompanyID  uuid.UUID
	Page       int
	PageSize   int
	OrderBy    string
	OrderDir   string
	Status     payin.PayInStatus // empty means all statuses
	MerchantID uuid.UUID         // uuid.Nil means all merchants
	Role       Role
}

// SubmitUTRRequest records the UTR an end user claims to have paid with.
type SubmitUTRRequest struct {
	CompanyID uuid.UUID `json:"company_id"`
	PayInID   uuid.UUID `json:"payin_id"`
	UTR       string    `json:"utr" binding:"required"`
}

// PayInView is the role-projected read model of a payment request. Fields a
// role must not see are left at their zero value and omitted from JSON.
type PayInView struct {
	ID              uuid.UUID         `json:"id"`
	MerchantOrderID string            `json:"merchant_order_id,omitempty"`
	Amount          decimal.Decimal   `json:"amount"`
	Status          payin.PayInStatus `json:"status"`
	StatusMessage   string            `json:"status_message,omitempty"`
	ShortCode       string            `json:"short_code,omitempty"`
	UTR             string            `json:"utr,omitempty"`
	BankAccountID   *uuid.UUID        `json:"bank_account_id,omitempty"`

	MerchantCommission *decimal.Decimal `json:"merchant_commission,omitempty"`
	VendorCommission   *decimal.Decimal `json:"vendor_commission,omitempty"`

	NotifyURL string `json:"notify_url,omitempty"`
	ReturnURL string `json:"return_url,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	ExpiresAt  time.Time  `json:"expires_at"`
}
