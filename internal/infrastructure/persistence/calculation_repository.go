package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/payin/backend/internal/domain/ledger"
	"github.com/payin/backend/internal/domain/shared"
	"github.com/payin/backend/internal/infrastructure/persistence/models"
)

// GormCalculationRepository implements CalculationRepository using GORM
type GormCalculationRepository struct {
	db *gorm.DB
}

// NewGormCalculationRepository creates a new GormCalculationRepository
func NewGormCalculationRepository(db *gorm.DB) *GormCalculationRepository {
	return &GormCalculationRepository{db: db}
}

// FindLatestByOwner returns the most recent ledger row for an owner
func (r *GormCalculationRepository) FindLatestByOwner(ctx context.Context, companyID, ownerID uuid.UUID, ownerType ledger.OwnerType) (*ledger.Calculation, error) {
	var model models.CalculationModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND owner_id = ? AND owner_type = ?", companyID, ownerID, ownerType).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOwnerAndDay returns the owner's row for the given day bucket
func (r *GormCalculationRepository) FindByOwnerAndDay(ctx context.Context, companyID, ownerID uuid.UUID, ownerType ledger.OwnerType, day time.Time) (*ledger.Calculation, error) {
	dayStart := startOfDay(day)
	dayEnd := dayStart.AddDate(0, 0, 1)

	var model models.CalculationModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND owner_id = ? AND owner_type = ? AND created_at >= ? AND created_at < ?",
			companyID, ownerID, ownerType, dayStart, dayEnd).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAfterDay returns the owner's rows created after the given day, ascending
func (r *GormCalculationRepository) FindAfterDay(ctx context.Context, companyID, ownerID uuid.UUID, ownerType ledger.OwnerType, day time.Time) ([]ledger.Calculation, error) {
	dayEnd := startOfDay(day).AddDate(0, 0, 1)

	var rows []models.CalculationModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND owner_id = ? AND owner_type = ? AND created_at >= ?",
			companyID, ownerID, ownerType, dayEnd).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]ledger.Calculation, 0, len(rows))
	for i := range rows {
		result = append(result, *rows[i].ToDomain())
	}
	return result, nil
}

// Save creates or updates a ledger row
func (r *GormCalculationRepository) Save(ctx context.Context, c *ledger.Calculation) error {
	return r.db.WithContext(ctx).Save(models.CalculationModelFromDomain(c)).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormCalculationRepository) SaveWithLock(ctx context.Context, c *ledger.Calculation) error {
	currentVersion := c.Version
	c.IncrementVersion()
	c.UpdatedAt = time.Now()

	model := models.CalculationModelFromDomain(c)
	result := r.db.WithContext(ctx).
		Model(&models.CalculationModel{}).
		Where("id = ? AND version = ?", model.ID, currentVersion).
		Updates(map[string]interface{}{
			"total_pay_in_count":          model.TotalPayInCount,
			"total_pay_in_amount":         model.TotalPayInAmount,
			"total_pay_in_commission":     model.TotalPayInCommission,
			"total_chargeback_count":      model.TotalChargebackCount,
			"total_chargeback_amount":     model.TotalChargebackAmount,
			"total_chargeback_commission": model.TotalChargebackCommission,
			"total_adjustment_count":      model.TotalAdjustmentCount,
			"total_adjustment_amount":     model.TotalAdjustmentAmount,
			"total_adjustment_commission": model.TotalAdjustmentCommission,
			"total_reverse_payout_count":  model.TotalReversePayoutCount,
			"total_reverse_payout_amount": model.TotalReversePayoutAmount,
			"current_balance":             model.CurrentBalance,
			"net_balance":                 model.NetBalance,
			"version":                     model.Version,
			"updated_at":                  model.UpdatedAt,
		})

	if result.Error != nil {
		c.Version = currentVersion
		return result.Error
	}
	if result.RowsAffected == 0 {
		c.Version = currentVersion
		return shared.ErrConcurrencyConflict
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Ensure GormCalculationRepository implements CalculationRepository
var _ ledger.CalculationRepository = (*GormCalculationRepository)(nil)
