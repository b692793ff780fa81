package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/payin/backend/internal/domain/payin"
	"github.com/payin/backend/internal/infrastructure/persistence/models"
)

// GormResetHistoryRepository implements ResetHistoryRepository using GORM.
// The table is append-only; records are never updated or deleted.
type GormResetHistoryRepository struct {
	db *gorm.DB
}

// NewGormResetHistoryRepository creates a new GormResetHistoryRepository
func NewGormResetHistoryRepository(db *gorm.DB) *GormResetHistoryRepository {
	return &GormResetHistoryRepository{db: db}
}

// Append stores a new correction record
func (r *GormResetHistoryRepository) Append(ctx context.Context, h *payin.ResetHistory) error {
	return r.db.WithContext(ctx).Create(models.ResetHistoryModelFromDomain(h)).Error
}

// ListByPayIn returns all correction records for a payin, oldest first
func (r *GormResetHistoryRepository) ListByPayIn(ctx context.Context, companyID, payInID uuid.UUID) ([]payin.ResetHistory, error) {
	var rows []models.ResetHistoryModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND pay_in_id = ?", companyID, payInID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]payin.ResetHistory, 0, len(rows))
	for i := range rows {
		result = append(result, *rows[i].ToDomain())
	}
	return result, nil
}

// Ensure GormResetHistoryRepository implements ResetHistoryRepository
var _ payin.ResetHistoryRepository = (*GormResetHistoryRepository)(nil)
