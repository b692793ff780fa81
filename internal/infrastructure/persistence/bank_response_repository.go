package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/payin/backend/internal/domain/payin"
	"github.com/payin/backend/internal/domain/shared"
	"github.com/payin/backend/internal/infrastructure/persistence/models"
)

// GormBankResponseRepository implements BankResponseRepository using GORM
type GormBankResponseRepository struct {
	db *gorm.DB
}

// NewGormBankResponseRepository creates a new GormBankResponseRepository
func NewGormBankResponseRepository(db *gorm.DB) *GormBankResponseRepository {
	return &GormBankResponseRepository{db: db}
}

// FindByID finds a bank response by ID within a company
func (r *GormBankResponseRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*payin.BankResponse, error) {
	var model models.BankResponseModel
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

// FindByShortCode finds the earliest stored line carrying the short code
func (r *GormBankResponseRepository) FindByShortCode(ctx context.Context, companyID uuid.UUID, shortCode string) (*payin.BankResponse, error) {
	var model models.BankResponseModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND short_code = ?", companyID, shortCode).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUTR finds the earliest stored line carrying the UTR
func (r *GormBankResponseRepository) FindByUTR(ctx context.Context, companyID uuid.UUID, utr string) (*payin.BankResponse, error) {
	var model models.BankResponseModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND utr = ?", companyID, utr).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// CountClaimsOn counts payins currently linked to the response
func (r *GormBankResponseRepository) CountClaimsOn(ctx context.Context, companyID, responseID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PayInModel{}).
		Where("company_id = ? AND bank_response_id = ?", companyID, responseID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a bank response
func (r *GormBankResponseRepository) Save(ctx context.Context, resp *payin.BankResponse) error {
	return r.db.WithContext(ctx).Save(models.BankResponseModelFromDomain(resp)).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormBankResponseRepository) SaveWithLock(ctx context.Context, resp *payin.BankResponse) error {
	currentVersion := resp.Version
	resp.IncrementVersion()
	resp.UpdatedAt = time.Now()

	model := models.BankResponseModelFromDomain(resp)
	result := r.db.WithContext(ctx).
		Model(&models.BankResponseModel{}).
		Where("id = ? AND version = ?", model.ID, currentVersion).
		Updates(map[string]interface{}{
			"is_used":    model.IsUsed,
			"status":     model.Status,
			"version":    model.Version,
			"updated_at": model.UpdatedAt,
		})

	if result.Error != nil {
		resp.Version = currentVersion
		return result.Error
	}
	if result.RowsAffected == 0 {
		resp.Version = currentVersion
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormBankResponseRepository implements BankResponseRepository
var _ payin.BankResponseRepository = (*GormBankResponseRepository)(nil)
