package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/payin/backend/internal/domain/shared"
)

// CorrectionDelta is the signed change a correction applies to an owner's
// ledger: the amount delta and the commission delta it carries.
type CorrectionDelta struct {
	Amount     decimal.Decimal
	Commission decimal.Decimal
}

// Net returns the signed net-balance effect of the delta.
func (d CorrectionDelta) Net() decimal.Decimal {
	return d.Amount.Sub(d.Commission)
}

// Negate returns the inverse delta.
func (d CorrectionDelta) Negate() CorrectionDelta {
	return CorrectionDelta{Amount: d.Amount.Neg(), Commission: d.Commission.Neg()}
}

// PropagationService applies a correction delta across an owner's ledger rows
// using the two-tier rule: the row of the original settlement day receives the
// full delta; every later row receives only a net-balance shift, so historical
// daily totals are never rewritten. When the compensation lands on today's
// row, today's adjustment counters are bumped as well.
//
// The service mutates rows in memory; persisting them (in one transaction,
// order-independent) is the caller's job.
type PropagationService struct{}

// NewPropagationService creates a propagation service
func NewPropagationService() *PropagationService {
	return &PropagationService{}
}

// Propagate applies delta to the origin-day row and later rows.
// originDay must be the owner's row whose day matches the original
// settlement's date; laterRows are all of the owner's rows created after it,
// in any order.
func (s *PropagationService) Propagate(originDay *Calculation, laterRows []*Calculation, delta CorrectionDelta, now time.Time) error {
	if originDay == nil {
		return shared.ErrNotFound
	}

	originDay.ApplyAdjustment(delta.Amount, delta.Commission)

	net := delta.Net()
	for _, row := range laterRows {
		if row == nil {
			return shared.ErrNotFound
		}
		if row.OwnerID != originDay.OwnerID {
			return shared.NewDomainError("INVALID_OWNER", "Later row belongs to a different owner")
		}
		if row.SameDayAs(now) {
			// Compensation landing on today also shows up in today's
			// adjustment totals, but its current balance stays put.
			row.RecordAdjustment(delta.Amount, delta.Commission)
			continue
		}
		row.ApplyNetDelta(net)
	}
	return nil
}
