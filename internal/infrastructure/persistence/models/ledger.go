package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payin/backend/internal/domain/ledger"
)

// CalculationModel is the persistence model for the daily ledger row.
// One row exists per owner per day; created_at carries the day bucket.
type CalculationModel struct {
	CompanyAggregateModel
	OwnerID   uuid.UUID        `gorm:"type:uuid;not null;index:idx_calculations_owner,priority:1"`
	OwnerType ledger.OwnerType `gorm:"type:varchar(10);not null;index:idx_calculations_owner,priority:2"`

	TotalPayInCount      int64           `gorm:"not null;default:0"`
	TotalPayInAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalPayInCommission decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`

	TotalChargebackCount      int64           `gorm:"not null;default:0"`
	TotalChargebackAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalChargebackCommission decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`

	TotalAdjustmentCount      int64           `gorm:"not null;default:0"`
	TotalAdjustmentAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalAdjustmentCommission decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`

	TotalReversePayoutCount  int64           `gorm:"not null;default:0"`
	TotalReversePayoutAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`

	CurrentBalance decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	NetBalance     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (CalculationModel) TableName() string {
	return "calculations"
}

// ToDomain converts the persistence model to a domain Calculation aggregate.
func (m *CalculationModel) ToDomain() *ledger.Calculation {
	c := &ledger.Calculation{
		OwnerID:   m.OwnerID,
		OwnerType: m.OwnerType,

		TotalPayInCount:      m.TotalPayInCount,
		TotalPayInAmount:     m.TotalPayInAmount,
		TotalPayInCommission: m.TotalPayInCommission,

		TotalChargebackCount:      m.TotalChargebackCount,
		TotalChargebackAmount:     m.TotalChargebackAmount,
		TotalChargebackCommission: m.TotalChargebackCommission,

		TotalAdjustmentCount:      m.TotalAdjustmentCount,
		TotalAdjustmentAmount:     m.TotalAdjustmentAmount,
		TotalAdjustmentCommission: m.TotalAdjustmentCommission,

		TotalReversePayoutCount:  m.TotalReversePayoutCount,
		TotalReversePayoutAmount: m.TotalReversePayoutAmount,

		CurrentBalance: m.CurrentBalance,
		NetBalance:     m.NetBalance,
	}
	m.PopulateCompanyAggregateRoot(&c.CompanyAggregateRoot)
	return c
}

// FromDomain populates the persistence model from a domain Calculation aggregate.
func (m *CalculationModel) FromDomain(c *ledger.Calculation) {
	m.FromDomainCompanyAggregateRoot(c.CompanyAggregateRoot)
	m.OwnerID = c.OwnerID
	m.OwnerType = c.OwnerType

	m.TotalPayInCount = c.TotalPayInCount
	m.TotalPayInAmount = c.TotalPayInAmount
	m.TotalPayInCommission = c.TotalPayInCommission

	m.TotalChargebackCount = c.TotalChargebackCount
	m.TotalChargebackAmount = c.TotalChargebackAmount
	m.TotalChargebackCommission = c.TotalChargebackCommission

	m.TotalAdjustmentCount = c.TotalAdjustmentCount
	m.TotalAdjustmentAmount = c.TotalAdjustmentAmount
	m.TotalAdjustmentCommission = c.TotalAdjustmentCommission

	m.TotalReversePayoutCount = c.TotalReversePayoutCount
	m.TotalReversePayoutAmount = c.TotalReversePayoutAmount

	m.CurrentBalance = c.CurrentBalance
	m.NetBalance = c.NetBalance
}

// CalculationModelFromDomain creates a new persistence model from a domain Calculation.
func CalculationModelFromDomain(c *ledger.Calculation) *CalculationModel {
	m := &CalculationModel{}
	m.FromDomain(c)
	return m
}
