package payin

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/payin/backend/internal/domain/shared"
)

// MatchOutcome classifies the result of matching a bank credit line against a
// payment request.
type MatchOutcome string

const (
	OutcomeSuccess      MatchOutcome = "SUCCESS"
	OutcomeDispute      MatchOutcome = "DISPUTE"
	OutcomeBankMismatch MatchOutcome = "BANK_MISMATCH"
	OutcomeDuplicate    MatchOutcome = "DUPLICATE"
	OutcomeNoMatch      MatchOutcome = "NO_MATCH"
	OutcomeRepeated     MatchOutcome = "REPEATED"
)

// MatchContext carries everything the matcher needs to decide an outcome. The
// candidate lookup (newest open request by short code, else UTR, scoped to the
// company) is repository work; the decision itself is pure.
type MatchContext struct {
	Candidate *BankResponse
	// Request is the newest open request matching the candidate's key, nil
	// when nothing matched.
	Request *PayIn
	// UTRClaimed is true when another request has already settled with this
	// UTR, or the candidate itself is already consumed.
	UTRClaimed bool
}

// Decision is the matcher verdict the settlement engine executes inside one
// transaction.
type Decision struct {
	Outcome MatchOutcome
	// ConsumeResponse marks the candidate used even on mismatch, preventing
	// the same credit line from matching again.
	ConsumeResponse bool
	Message         string
}

// Matcher decides settlement outcomes. It holds no state and performs no IO.
type Matcher struct{}

// NewMatcher creates a matcher
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Decide applies the classification rules in order, first applicable wins:
//
//  1. repeated lines short-circuit (recorded, never settled)
//  2. no open request found
//  3. wrong account: BANK_MISMATCH, candidate consumed anyway
//  4. UTR already claimed: DUPLICATE, nothing consumed
//  5. exact amount: SUCCESS
//  6. otherwise: DISPUTE
func (m *Matcher) Decide(mc MatchContext) (Decision, error) {
	if mc.Candidate == nil {
		return Decision{}, shared.NewDomainError("INVALID_INPUT", "Match candidate cannot be nil")
	}

	if mc.Candidate.Status == ResponseStatusRepeated {
		return Decision{
			Outcome: OutcomeRepeated,
			Message: "repeated",
		}, nil
	}

	if mc.Request == nil {
		return Decision{
			Outcome: OutcomeNoMatch,
			Message: "No open payin found for this credit line",
		}, nil
	}

	if mc.Request.BankAccountID == nil {
		return Decision{}, shared.NewDomainError("INVALID_STATE", "Matched payin has no assigned bank account")
	}

	if *mc.Request.BankAccountID != mc.Candidate.BankAccountID {
		return Decision{
			Outcome:         OutcomeBankMismatch,
			ConsumeResponse: true,
			Message: fmt.Sprintf("Credit on account %s but payin assigned to %s",
				mc.Candidate.BankAccountID, *mc.Request.BankAccountID),
		}, nil
	}

	if mc.UTRClaimed || mc.Candidate.IsUsed {
		return Decision{
			Outcome: OutcomeDuplicate,
			Message: "UTR already exists",
		}, nil
	}

	if mc.Request.Amount.Equal(mc.Candidate.Amount) {
		return Decision{
			Outcome:         OutcomeSuccess,
			ConsumeResponse: true,
			Message:         "Payment received and matched",
		}, nil
	}

	return Decision{
		Outcome:         OutcomeDispute,
		ConsumeResponse: true,
		Message: fmt.Sprintf("Amount mismatch: requested %s, credited %s",
			mc.Request.Amount, mc.Candidate.Amount),
	}, nil
}

// CommissionPair holds the two commissions computed for a settlement.
type CommissionPair struct {
	Merchant decimal.Decimal
	Vendor   decimal.Decimal
}

// ComputeCommissions derives both commissions from required percentage rates.
// Rates are mandatory; a caller holding no rate must fail validation upstream
// rather than pass zero.
func ComputeCommissions(amount, merchantRate, vendorRate decimal.Decimal) (CommissionPair, error) {
	if merchantRate.IsNegative() || vendorRate.IsNegative() {
		return CommissionPair{}, shared.NewDomainError("INVALID_COMMISSION_RATE", "Commission rates cannot be negative")
	}
	hundred := decimal.NewFromInt(100)
	return CommissionPair{
		Merchant: amount.Mul(merchantRate).Div(hundred),
		Vendor:   amount.Mul(vendorRate).Div(hundred),
	}, nil
}
