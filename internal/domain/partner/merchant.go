package partner

import (
	"net/url"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payin/backend/internal/domain/shared"
)

// Merchant is an account holder that creates payment requests and receives
// settled amounts net of its commission.
type Merchant struct {
	shared.CompanyAggregateRoot
	Code           string
	Name           string
	CommissionRate decimal.Decimal // percent, e.g. 2.5 means 2.5%
	NotifyURL      string          // default callback URL for settlement notifications
	ReturnURL      string
	Balance        decimal.Decimal
	IsEnabled      bool
}

// NewMerchant creates a new merchant with a validated commission rate.
func NewMerchant(companyID uuid.UUID, code, name string, commissionRate decimal.Decimal) (*Merchant, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Merchant code cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Merchant name cannot be empty")
	}
	if commissionRate.IsNegative() || commissionRate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewDomainError("INVALID_COMMISSION_RATE", "Commission rate must be between 0 and 100")
	}

	return &Merchant{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Code:                 code,
		Name:                 name,
		CommissionRate:       commissionRate,
		Balance:              decimal.Zero,
		IsEnabled:            true,
	}, nil
}

// SetNotifyURL sets the default merchant callback URL
func (m *Merchant) SetNotifyURL(raw string) error {
	if raw != "" {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return shared.NewDomainError("INVALID_URL", "Notify URL is not a valid URL")
		}
	}
	m.NotifyURL = raw
	return nil
}

// SetReturnURL sets the default merchant return URL
func (m *Merchant) SetReturnURL(raw string) error {
	if raw != "" {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return shared.NewDomainError("INVALID_URL", "Return URL is not a valid URL")
		}
	}
	m.ReturnURL = raw
	return nil
}

// CommissionOn returns the merchant commission for a settled amount.
// The rate is required; callers must not substitute zero for a missing rate.
func (m *Merchant) CommissionOn(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(m.CommissionRate).Div(decimal.NewFromInt(100))
}

// Credit adds a settled net amount to the merchant balance
func (m *Merchant) Credit(amount decimal.Decimal) {
	m.Balance = m.Balance.Add(amount)
}

// Debit removes an amount from the merchant balance
func (m *Merchant) Debit(amount decimal.Decimal) {
	m.Balance = m.Balance.Sub(amount)
}
