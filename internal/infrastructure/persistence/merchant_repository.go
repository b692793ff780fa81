package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/payin/backend/internal/domain/partner"
	"github.com/payin/backend/internal/domain/shared"
	"github.com/payin/backend/internal/infrastructure/persistence/models"
)

// GormMerchantRepository implements MerchantRepository using GORM
type GormMerchantRepository struct {
	db *gorm.DB
}

// NewGormMerchantRepository creates a new GormMerchantRepository
func NewGormMerchantRepository(db *gorm.DB) *GormMerchantRepository {
	return &GormMerchantRepository{db: db}
}

// FindByID finds a merchant by ID within a company
func (r *GormMerchantRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*partner.Merchant, error) {
	var model models.MerchantModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds a merchant by code within a company
func (r *GormMerchantRepository) FindByCode(ctx context.Context, companyID uuid.UUID, code string) (*partner.Merchant, error) {
	var model models.MerchantModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND code = ?", companyID, strings.ToUpper(code)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a merchant
func (r *GormMerchantRepository) Save(ctx context.Context, merchant *partner.Merchant) error {
	return r.db.WithContext(ctx).Save(models.MerchantModelFromDomain(merchant)).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormMerchantRepository) SaveWithLock(ctx context.Context, merchant *partner.Merchant) error {
	currentVersion := merchant.Version
	merchant.IncrementVersion()
	merchant.UpdatedAt = time.Now()

	model := models.MerchantModelFromDomain(merchant)
	result := r.db.WithContext(ctx).
		Model(&models.MerchantModel{}).
		Where("id = ? AND version = ?", model.ID, currentVersion).
		Updates(map[string]interface{}{
			"name":            model.Name,
			"commission_rate": model.CommissionRate,
			"notify_url":      model.NotifyURL,
			"return_url":      model.ReturnURL,
			"balance":         model.Balance,
			"is_enabled":      model.IsEnabled,
			"version":         model.Version,
			"updated_at":      model.UpdatedAt,
		})

	if result.Error != nil {
		merchant.Version = currentVersion
		return result.Error
	}
	if result.RowsAffected == 0 {
		merchant.Version = currentVersion
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormMerchantRepository implements MerchantRepository
var _ partner.MerchantRepository = (*GormMerchantRepository)(nil)
