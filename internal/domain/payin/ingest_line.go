package payin

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payin/backend/internal/domain/shared"
)

// IngestionInput is the normalized shape every ingestion source produces:
// structured API calls pass it directly; bot reports and OCR extraction are
// parsed into it.
type IngestionInput struct {
	Amount        decimal.Decimal
	UTR           string
	ShortCode     string
	BankAccountID uuid.UUID
	// UISubmitted marks UTRs typed by an end user; these get the strict
	// alphanumeric validation.
	UISubmitted bool
}

// ParseBotLine parses a free-text bot report of the form
//
//	amount shortcode utr bank_id flag
//
// where shortcode may be a dash or a serialized null when absent, and flag is
// "ui" for user-submitted lines.
func ParseBotLine(line string) (IngestionInput, error) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) < 4 {
		return IngestionInput{}, shared.NewDomainError("INVALID_LINE",
			"Bot line must contain amount, short code, UTR and bank account")
	}

	amount, err := decimal.NewFromString(fields[0])
	if err != nil {
		return IngestionInput{}, shared.NewDomainError("INVALID_AMOUNT", "Amount is not a number")
	}

	shortCode := fields[1]
	if shortCode == "-" || shortCode == "nil" || shortCode == "undefined" {
		shortCode = ""
	}

	utr := fields[2]
	if utr == "-" {
		utr = ""
	}

	bankAccountID, err := uuid.Parse(fields[3])
	if err != nil {
		return IngestionInput{}, shared.NewDomainError("INVALID_ACCOUNT", "Bank account ID is not a valid UUID")
	}

	input := IngestionInput{
		Amount:        amount,
		UTR:           utr,
		ShortCode:     shortCode,
		BankAccountID: bankAccountID,
	}
	if len(fields) >= 5 && strings.EqualFold(fields[4], "ui") {
		input.UISubmitted = true
	}
	return input, nil
}

// Validate applies the ingestion bounds and key validation rules.
func (in IngestionInput) Validate() error {
	if in.Amount.LessThan(MinCreditAmount) || in.Amount.GreaterThan(MaxCreditAmount) {
		return shared.NewDomainError("INVALID_AMOUNT", "Credited amount must be between 1 and 500000")
	}
	if in.BankAccountID == uuid.Nil {
		return shared.NewDomainError("INVALID_ACCOUNT", "Bank account ID cannot be empty")
	}
	if in.UTR == "" && in.ShortCode == "" {
		return shared.NewDomainError("INVALID_UTR", "A UTR or short code is required")
	}
	if in.UISubmitted && in.UTR != "" && !IsValidUTR(in.UTR) {
		return shared.NewDomainError("INVALID_UTR", "UTR must be alphanumeric")
	}
	if in.ShortCode != "" && !IsValidShortCode(in.ShortCode) {
		return shared.NewDomainError("INVALID_SHORT_CODE", "Short code must be exactly 5 characters")
	}
	return nil
}
