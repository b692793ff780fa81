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

// GormBankAccountRepository implements BankAccountRepository using GORM
type GormBankAccountRepository struct {
	db *gorm.DB
}

// NewGormBankAccountRepository creates a new GormBankAccountRepository
func NewGormBankAccountRepository(db *gorm.DB) *GormBankAccountRepository {
	return &GormBankAccountRepository{db: db}
}

// FindByID finds a bank account by ID within a company
func (r *GormBankAccountRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*partner.BankAccount, error) {
	var model models.BankAccountModel
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

// FindEnabledByMethod returns the assignment pool for a payment method
func (r *GormBankAccountRepository) FindEnabledByMethod(ctx context.Context, companyID uuid.UUID, method partner.PaymentMethod) ([]partner.BankAccount, error) {
	var rows []models.BankAccountModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND method = ? AND is_enabled = ?", companyID, method, true).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]partner.BankAccount, 0, len(rows))
	for i := range rows {
		result = append(result, *rows[i].ToDomain())
	}
	return result, nil
}

// Save creates or updates a bank account
func (r *GormBankAccountRepository) Save(ctx context.Context, account *partner.BankAccount) error {
	return r.db.WithContext(ctx).Save(models.BankAccountModelFromDomain(account)).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormBankAccountRepository) SaveWithLock(ctx context.Context, account *partner.BankAccount) error {
	currentVersion := account.Version
	account.IncrementVersion()
	account.UpdatedAt = time.Now()

	model := models.BankAccountModelFromDomain(account)
	result := r.db.WithContext(ctx).
		Model(&models.BankAccountModel{}).
		Where("id = ? AND version = ?", model.ID, currentVersion).
		Updates(map[string]interface{}{
			"account_name":    model.AccountName,
			"account_number":  model.AccountNumber,
			"upi_id":          model.UPIID,
			"balance":         model.Balance,
			"today_balance":   model.TodayBalance,
			"pay_in_count":    model.PayInCount,
			"max_daily_limit": model.MaxDailyLimit,
			"is_enabled":      model.IsEnabled,
			"version":         model.Version,
			"updated_at":      model.UpdatedAt,
		})

	if result.Error != nil {
		account.Version = currentVersion
		return result.Error
	}
	if result.RowsAffected == 0 {
		account.Version = currentVersion
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormBankAccountRepository implements BankAccountRepository
var _ partner.BankAccountRepository = (*GormBankAccountRepository)(nil)
