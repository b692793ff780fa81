package partner

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payin/backend/internal/domain/shared"
)

// PaymentMethod identifies how an end user pays into a collection account.
type PaymentMethod string

const (
	PaymentMethodUPI  PaymentMethod = "UPI"
	PaymentMethodIMPS PaymentMethod = "IMPS"
	PaymentMethodNEFT PaymentMethod = "NEFT"
)

// String returns the string representation of the payment method
func (m PaymentMethod) String() string {
	return string(m)
}

// IsValid returns true if the payment method is known
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodUPI, PaymentMethodIMPS, PaymentMethodNEFT:
		return true
	}
	return false
}

// BankAccount is a physical collection account owned by a vendor. Its balance
// and today-balance mirror the sum of bank credits currently attributed to it.
type BankAccount struct {
	shared.CompanyAggregateRoot
	VendorID      uuid.UUID
	AccountName   string
	AccountNumber string
	UPIID         string
	Method        PaymentMethod
	Balance       decimal.Decimal
	TodayBalance  decimal.Decimal
	PayInCount    int64
	MaxDailyLimit decimal.Decimal // zero means unlimited
	IsEnabled     bool
}

// NewBankAccount creates a new collection account for a vendor.
func NewBankAccount(companyID, vendorID uuid.UUID, accountName, accountNumber string, method PaymentMethod) (*BankAccount, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	if vendorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VENDOR", "Vendor ID cannot be empty")
	}
	if accountName == "" || accountNumber == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account name and number cannot be empty")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_METHOD", "Unknown payment method")
	}

	return &BankAccount{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		VendorID:             vendorID,
		AccountName:          accountName,
		AccountNumber:        accountNumber,
		Method:               method,
		Balance:              decimal.Zero,
		TodayBalance:         decimal.Zero,
		IsEnabled:            true,
	}, nil
}

// SetMaxDailyLimit configures the daily collection cap for the account
func (a *BankAccount) SetMaxDailyLimit(limit decimal.Decimal) error {
	if limit.IsNegative() {
		return shared.NewDomainError("INVALID_LIMIT", "Daily limit cannot be negative")
	}
	a.MaxDailyLimit = limit
	return nil
}

// Credit applies an incoming bank credit to the account balances and bumps the
// payin counter. The account auto-disables once today's balance crosses the
// configured daily limit.
func (a *BankAccount) Credit(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Credit amount must be positive")
	}
	a.Balance = a.Balance.Add(amount)
	a.TodayBalance = a.TodayBalance.Add(amount)
	a.PayInCount++
	a.checkDailyLimit()
	return nil
}

// Debit reverses a previously applied credit, e.g. during a correction.
func (a *BankAccount) Debit(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Debit amount must be positive")
	}
	a.Balance = a.Balance.Sub(amount)
	a.TodayBalance = a.TodayBalance.Sub(amount)
	if a.PayInCount > 0 {
		a.PayInCount--
	}
	a.checkDailyLimit()
	return nil
}

// AdjustBy applies a signed correction delta without touching the payin counter.
func (a *BankAccount) AdjustBy(delta decimal.Decimal) {
	a.Balance = a.Balance.Add(delta)
	a.TodayBalance = a.TodayBalance.Add(delta)
	a.checkDailyLimit()
}

// checkDailyLimit flips the enabled flag based on today's balance against the
// configured cap. Accounts under the cap are re-enabled so corrections that
// lower today's balance bring the account back into rotation.
func (a *BankAccount) checkDailyLimit() {
	if a.MaxDailyLimit.IsZero() {
		return
	}
	if a.TodayBalance.GreaterThanOrEqual(a.MaxDailyLimit) {
		a.IsEnabled = false
	} else {
		a.IsEnabled = true
	}
}

// ResetToday clears the today-balance bucket; invoked by the daily rollover.
func (a *BankAccount) ResetToday() {
	a.TodayBalance = decimal.Zero
	a.checkDailyLimit()
}

// Disable takes the account out of the assignment pool
func (a *BankAccount) Disable() {
	a.IsEnabled = false
}

// Enable puts the account back into the assignment pool
func (a *BankAccount) Enable() {
	a.IsEnabled = true
}
