package payin

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payin/backend/internal/domain/shared"
)

// Credited amount bounds accepted from any ingestion source.
var (
	MinCreditAmount = decimal.NewFromInt(1)
	MaxCreditAmount = decimal.NewFromInt(500000)
)

// ResponseStatus classifies an ingested bank credit line.
type ResponseStatus string

const (
	// ResponseStatusSuccess is a first-time credit line, eligible to settle a request.
	ResponseStatusSuccess ResponseStatus = "/success"
	// ResponseStatusRepeated is a credit line whose UTR or short code was seen
	// before. It is recorded for audit but never mutates balances.
	ResponseStatusRepeated ResponseStatus = "/repeated"
)

// BankResponse is a single ingested bank credit line, candidate to settle a
// payment request.
type BankResponse struct {
	shared.CompanyAggregateRoot
	Amount        decimal.Decimal
	UTR           string
	ShortCode     string // optional alternative matching key
	BankAccountID uuid.UUID
	IsUsed        bool
	Status        ResponseStatus
}

// NewBankResponse validates and creates a bank credit line record.
func NewBankResponse(companyID, bankAccountID uuid.UUID, amount decimal.Decimal, utr, shortCode string) (*BankResponse, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	if bankAccountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Bank account ID cannot be empty")
	}
	if amount.LessThan(MinCreditAmount) || amount.GreaterThan(MaxCreditAmount) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Credited amount must be between 1 and 500000")
	}
	if utr == "" && shortCode == "" {
		return nil, shared.NewDomainError("INVALID_UTR", "A UTR or short code is required")
	}
	if utr != "" && !IsValidUTR(utr) {
		return nil, shared.NewDomainError("INVALID_UTR", "UTR must be alphanumeric")
	}
	if shortCode != "" && !IsValidShortCode(shortCode) {
		return nil, shared.NewDomainError("INVALID_SHORT_CODE", "Short code must be exactly 5 characters")
	}

	r := &BankResponse{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Amount:               amount,
		UTR:                  utr,
		ShortCode:            shortCode,
		BankAccountID:        bankAccountID,
		Status:               ResponseStatusSuccess,
	}
	return r, nil
}

// MarkRepeated flags the line as a duplicate of an earlier ingestion. Repeated
// lines short-circuit the engine and never touch balances.
func (r *BankResponse) MarkRepeated() {
	r.Status = ResponseStatusRepeated
}

// MarkUsed consumes the line for exactly one settlement.
func (r *BankResponse) MarkUsed() error {
	if r.IsUsed {
		return shared.NewDomainError("ALREADY_USED", "Bank response is already consumed")
	}
	r.IsUsed = true
	return nil
}

// Release reverts consumption during a reset, making the line matchable again.
func (r *BankResponse) Release() {
	r.IsUsed = false
}

// IsSettleable reports whether the line can still be matched to a request.
func (r *BankResponse) IsSettleable() bool {
	return !r.IsUsed && r.Status == ResponseStatusSuccess
}

// IsValidUTR reports whether a UTR string is acceptable: alphanumeric, or a
// list of alphanumeric segments separated by commas, semicolons or pipes.
func IsValidUTR(utr string) bool {
	if utr == "" {
		return false
	}
	segments := strings.FieldsFunc(utr, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	if len(segments) == 0 {
		return false
	}
	for _, seg := range segments {
		if seg == "" || !isAlphanumeric(seg) {
			return false
		}
	}
	return true
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}
