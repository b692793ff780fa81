package partner

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payin/backend/internal/domain/shared"
)

// Vendor owns one or more physical collection bank accounts and earns a
// commission on amounts credited to them.
type Vendor struct {
	shared.CompanyAggregateRoot
	Code           string
	Name           string
	CommissionRate decimal.Decimal // percent
	Balance        decimal.Decimal
	IsEnabled      bool
}

// NewVendor creates a new vendor with a validated commission rate.
func NewVendor(companyID uuid.UUID, code, name string, commissionRate decimal.Decimal) (*Vendor, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Vendor code cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Vendor name cannot be empty")
	}
	if commissionRate.IsNegative() || commissionRate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewDomainError("INVALID_COMMISSION_RATE", "Commission rate must be between 0 and 100")
	}

	return &Vendor{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Code:                 code,
		Name:                 name,
		CommissionRate:       commissionRate,
		Balance:              decimal.Zero,
		IsEnabled:            true,
	}, nil
}

// CommissionOn returns the vendor commission for a credited amount
func (v *Vendor) CommissionOn(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(v.CommissionRate).Div(decimal.NewFromInt(100))
}

// Credit adds to the vendor balance
func (v *Vendor) Credit(amount decimal.Decimal) {
	v.Balance = v.Balance.Add(amount)
}

// Debit removes from the vendor balance
func (v *Vendor) Debit(amount decimal.Decimal) {
	v.Balance = v.Balance.Sub(amount)
}
