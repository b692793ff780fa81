package partner

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payin/backend/internal/domain/shared"
)

// Event types for bank account lifecycle
const (
	EventTypeBankAccountDisabled = "partner.bank_account.disabled"
	EventTypeBankAccountCredited = "partner.bank_account.credited"
)

// BankAccountDisabledEvent is raised when an account leaves the assignment pool,
// either manually or because its daily limit was crossed.
type BankAccountDisabledEvent struct {
	shared.BaseDomainEvent
	VendorID     uuid.UUID       `json:"vendor_id"`
	TodayBalance decimal.Decimal `json:"today_balance"`
	DailyLimit   decimal.Decimal `json:"daily_limit"`
}

// NewBankAccountDisabledEvent creates a disabled event for the account
func NewBankAccountDisabledEvent(account *BankAccount) *BankAccountDisabledEvent {
	return &BankAccountDisabledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBankAccountDisabled, "BankAccount", account.ID, account.CompanyID),
		VendorID:        account.VendorID,
		TodayBalance:    account.TodayBalance,
		DailyLimit:      account.MaxDailyLimit,
	}
}

// BankAccountCreditedEvent is raised when a bank credit is applied to an account
type BankAccountCreditedEvent struct {
	shared.BaseDomainEvent
	VendorID uuid.UUID       `json:"vendor_id"`
	Amount   decimal.Decimal `json:"amount"`
	Balance  decimal.Decimal `json:"balance"`
}

// NewBankAccountCreditedEvent creates a credited event for the account
func NewBankAccountCreditedEvent(account *BankAccount, amount decimal.Decimal) *BankAccountCreditedEvent {
	return &BankAccountCreditedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBankAccountCredited, "BankAccount", account.ID, account.CompanyID),
		VendorID:        account.VendorID,
		Amount:          amount,
		Balance:         account.Balance,
	}
}
