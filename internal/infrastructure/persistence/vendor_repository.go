package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/payin/backend/internal/domain/partner"
	"github.com/payin/backend/internal/domain/shared"
	"github.com/payin/backend/internal/infrastructure/persistence/models"
)

// GormVendorRepository implements VendorRepository using GORM
type GormVendorRepository struct {
	db *gorm.DB
}

// NewGormVendorRepository creates a new GormVendorRepository
func NewGormVendorRepository(db *gorm.DB) *GormVendorRepository {
	return &GormVendorRepository{db: db}
}

// FindByID finds a vendor by ID within a company
func (r *GormVendorRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*partner.Vendor, error) {
	var model models.VendorModel
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

// Save creates or updates a vendor
func (r *GormVendorRepository) Save(ctx context.Context, vendor *partner.Vendor) error {
	return r.db.WithContext(ctx).Save(models.VendorModelFromDomain(vendor)).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormVendorRepository) SaveWithLock(ctx context.Context, vendor *partner.Vendor) error {
	currentVersion := vendor.Version
	vendor.IncrementVersion()
	vendor.UpdatedAt = time.Now()

	model := models.VendorModelFromDomain(vendor)
	result := r.db.WithContext(ctx).
		Model(&models.VendorModel{}).
		Where("id = ? AND version = ?", model.ID, currentVersion).
		Updates(map[string]interface{}{
			"name":            model.Name,
			"commission_rate": model.CommissionRate,
			"balance":         model.Balance,
			"is_enabled":      model.IsEnabled,
			"version":         model.Version,
			"updated_at":      model.UpdatedAt,
		})

	if result.Error != nil {
		vendor.Version = currentVersion
		return result.Error
	}
	if result.RowsAffected == 0 {
		vendor.Version = currentVersion
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormVendorRepository implements VendorRepository
var _ partner.VendorRepository = (*GormVendorRepository)(nil)
