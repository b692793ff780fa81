package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payin/backend/internal/domain/shared"
)

// OwnerType identifies which kind of account holder a ledger row belongs to.
type OwnerType string

const (
	OwnerTypeMerchant OwnerType = "MERCHANT"
	OwnerTypeVendor   OwnerType = "VENDOR"
)

// String returns the string representation of the owner type
func (t OwnerType) String() string {
	return string(t)
}

// IsValid returns true for a known owner type
func (t OwnerType) IsValid() bool {
	return t == OwnerTypeMerchant || t == OwnerTypeVendor
}

// Calculation is one running-totals row for an account holder. At most one row
// exists per owner per day; intra-day activity accumulates into that row via
// additive updates, and rows are append-only across days for audit.
//
// CurrentBalance and NetBalance always derive from the most recent prior row:
// every mutation reads the predecessor first, never blind-increments.
type Calculation struct {
	shared.CompanyAggregateRoot
	OwnerID   uuid.UUID
	OwnerType OwnerType

	TotalPayInCount      int64
	TotalPayInAmount     decimal.Decimal
	TotalPayInCommission decimal.Decimal

	TotalChargebackCount      int64
	TotalChargebackAmount     decimal.Decimal
	TotalChargebackCommission decimal.Decimal

	TotalAdjustmentCount      int64
	TotalAdjustmentAmount     decimal.Decimal
	TotalAdjustmentCommission decimal.Decimal

	TotalReversePayoutCount  int64
	TotalReversePayoutAmount decimal.Decimal

	CurrentBalance decimal.Decimal
	NetBalance     decimal.Decimal
}

// NewCalculation seeds a fresh day row for an owner. When prev is non-nil the
// net balance carries forward; day counters start at zero.
func NewCalculation(companyID, ownerID uuid.UUID, ownerType OwnerType, prev *Calculation) (*Calculation, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner ID cannot be empty")
	}
	if !ownerType.IsValid() {
		return nil, shared.NewDomainError("INVALID_OWNER_TYPE", "Unknown ledger owner type")
	}

	c := &Calculation{
		CompanyAggregateRoot:      shared.NewCompanyAggregateRoot(companyID),
		OwnerID:                   ownerID,
		OwnerType:                 ownerType,
		TotalPayInAmount:          decimal.Zero,
		TotalPayInCommission:      decimal.Zero,
		TotalChargebackAmount:     decimal.Zero,
		TotalChargebackCommission: decimal.Zero,
		TotalAdjustmentAmount:     decimal.Zero,
		TotalAdjustmentCommission: decimal.Zero,
		TotalReversePayoutAmount:  decimal.Zero,
		CurrentBalance:            decimal.Zero,
		NetBalance:                decimal.Zero,
	}
	if prev != nil {
		if prev.OwnerID != ownerID {
			return nil, shared.NewDomainError("INVALID_OWNER", "Predecessor row belongs to a different owner")
		}
		c.NetBalance = prev.NetBalance
	}
	return c, nil
}

// Day returns the bucket date of the row.
func (c *Calculation) Day() time.Time {
	y, m, d := c.CreatedAt.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.CreatedAt.Location())
}

// SameDayAs reports whether t falls in the row's day bucket.
func (c *Calculation) SameDayAs(t time.Time) bool {
	cy, cm, cd := c.CreatedAt.Date()
	ty, tm, td := t.Date()
	return cy == ty && cm == tm && cd == td
}

// ApplyPayIn accumulates one settled payin: the owner is credited amount minus
// commission on both running balances.
func (c *Calculation) ApplyPayIn(amount, commission decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Settled amount must be positive")
	}
	if commission.IsNegative() {
		return shared.NewDomainError("INVALID_COMMISSION", "Commission cannot be negative")
	}
	net := amount.Sub(commission)
	c.TotalPayInCount++
	c.TotalPayInAmount = c.TotalPayInAmount.Add(amount)
	c.TotalPayInCommission = c.TotalPayInCommission.Add(commission)
	c.CurrentBalance = c.CurrentBalance.Add(net)
	c.NetBalance = c.NetBalance.Add(net)
	return nil
}

// ApplyChargeback accumulates one chargeback against the owner.
func (c *Calculation) ApplyChargeback(amount, commission decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Chargeback amount must be positive")
	}
	net := amount.Sub(commission)
	c.TotalChargebackCount++
	c.TotalChargebackAmount = c.TotalChargebackAmount.Add(amount)
	c.TotalChargebackCommission = c.TotalChargebackCommission.Add(commission)
	c.CurrentBalance = c.CurrentBalance.Sub(net)
	c.NetBalance = c.NetBalance.Sub(net)
	return nil
}

// ApplyAdjustment accumulates a signed correction delta into the row's
// adjustment counters and both balances.
func (c *Calculation) ApplyAdjustment(amount, commission decimal.Decimal) {
	net := amount.Sub(commission)
	c.TotalAdjustmentCount++
	c.TotalAdjustmentAmount = c.TotalAdjustmentAmount.Add(amount)
	c.TotalAdjustmentCommission = c.TotalAdjustmentCommission.Add(commission)
	c.CurrentBalance = c.CurrentBalance.Add(net)
	c.NetBalance = c.NetBalance.Add(net)
}

// RecordAdjustment accumulates a signed correction delta into the row's
// adjustment counters and the carried net balance. Unlike ApplyAdjustment the
// current balance stays put: the money moved on the settlement day, a later
// row only accounts for it.
func (c *Calculation) RecordAdjustment(amount, commission decimal.Decimal) {
	c.TotalAdjustmentCount++
	c.TotalAdjustmentAmount = c.TotalAdjustmentAmount.Add(amount)
	c.TotalAdjustmentCommission = c.TotalAdjustmentCommission.Add(commission)
	c.NetBalance = c.NetBalance.Add(amount.Sub(commission))
}

// ApplyNetDelta shifts only the carried-forward net balance. Used when a
// historical correction propagates through later days without rewriting their
// daily totals.
func (c *Calculation) ApplyNetDelta(delta decimal.Decimal) {
	c.NetBalance = c.NetBalance.Add(delta)
}

// ApplyReversePayout accumulates a reversed payout credited back to the owner.
func (c *Calculation) ApplyReversePayout(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Reverse payout amount must be positive")
	}
	c.TotalReversePayoutCount++
	c.TotalReversePayoutAmount = c.TotalReversePayoutAmount.Add(amount)
	c.CurrentBalance = c.CurrentBalance.Add(amount)
	c.NetBalance = c.NetBalance.Add(amount)
	return nil
}
