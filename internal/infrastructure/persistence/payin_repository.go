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

// openStatuses are the states FindOpenBy* and FindStale consider live.
var openStatuses = []payin.PayInStatus{
	payin.StatusAssigned, payin.StatusPending, payin.StatusImgPending,
}

// GormPayInRepository implements PayInRepository using GORM
type GormPayInRepository struct {
	db *gorm.DB
}

// NewGormPayInRepository creates a new GormPayInRepository
func NewGormPayInRepository(db *gorm.DB) *GormPayInRepository {
	return &GormPayInRepository{db: db}
}

// FindByID finds a payin by ID within a company
func (r *GormPayInRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*payin.PayIn, error) {
	var model models.PayInModel
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

// FindOpenByShortCode finds the newest open payin carrying the short code
func (r *GormPayInRepository) FindOpenByShortCode(ctx context.Context, companyID uuid.UUID, shortCode string) (*payin.PayIn, error) {
	var model models.PayInModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND short_code = ? AND status IN ?", companyID, shortCode, openStatuses).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOpenByUTR finds the newest open payin carrying the submitted UTR
func (r *GormPayInRepository) FindOpenByUTR(ctx context.Context, companyID uuid.UUID, utr string) (*payin.PayIn, error) {
	var model models.PayInModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND user_submitted_utr = ? AND status IN ?", companyID, utr, openStatuses).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOpenByOrderID finds the newest open payin for a merchant order
func (r *GormPayInRepository) FindOpenByOrderID(ctx context.Context, companyID uuid.UUID, merchantOrderID string) (*payin.PayIn, error) {
	var model models.PayInModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND merchant_order_id = ? AND status IN ?", companyID, merchantOrderID, openStatuses).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsSettledWithUTR reports whether any payin already settled with the UTR
func (r *GormPayInRepository) ExistsSettledWithUTR(ctx context.Context, companyID uuid.UUID, utr string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PayInModel{}).
		Where("company_id = ? AND user_submitted_utr = ? AND status = ?", companyID, utr, payin.StatusSuccess).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistsClaimedWithUTR reports whether any consumed payin holds the UTR
func (r *GormPayInRepository) ExistsClaimedWithUTR(ctx context.Context, companyID uuid.UUID, utr string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PayInModel{}).
		Where("company_id = ? AND user_submitted_utr = ? AND one_time_used = ?", companyID, utr, true).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindStale returns expired live payins across all companies, oldest first
func (r *GormPayInRepository) FindStale(ctx context.Context, cutoff time.Time, limit int) ([]payin.PayIn, error) {
	staleStatuses := append([]payin.PayInStatus{payin.StatusInitiated}, openStatuses...)

	var rows []models.PayInModel
	query := r.db.WithContext(ctx).
		Where("status IN ? AND expires_at < ?", staleStatuses, cutoff).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]payin.PayIn, 0, len(rows))
	for i := range rows {
		result = append(result, *rows[i].ToDomain())
	}
	return result, nil
}

// listSortColumns are the columns List accepts for ordering. Anything
// else falls back to created_at so callers cannot probe the schema.
var listSortColumns = map[string]bool{
	"created_at": true,
	"expires_at": true,
	"amount":     true,
	"status":     true,
}

// List returns a page of payins for back-office review
func (r *GormPayInRepository) List(ctx context.Context, companyID uuid.UUID, filter shared.Filter) (shared.Paginated[payin.PayIn], error) {
	var empty shared.Paginated[payin.PayIn]

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}

	query := r.db.WithContext(ctx).
		Model(&models.PayInModel{}).
		Where("company_id = ?", companyID)
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	if merchantID, ok := filter.Filters["merchant_id"]; ok {
		query = query.Where("merchant_id = ?", merchantID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return empty, err
	}

	orderBy := filter.OrderBy
	if !listSortColumns[orderBy] {
		orderBy = "created_at"
	}
	direction := "DESC"
	if filter.OrderDir == "asc" {
		direction = "ASC"
	}

	var rows []models.PayInModel
	if err := query.
		Order(orderBy + " " + direction).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return empty, err
	}

	items := make([]payin.PayIn, 0, len(rows))
	for i := range rows {
		items = append(items, *rows[i].ToDomain())
	}
	return shared.NewPaginated(items, total, page, pageSize), nil
}

// Save creates or updates a payin
func (r *GormPayInRepository) Save(ctx context.Context, p *payin.PayIn) error {
	return r.db.WithContext(ctx).Save(models.PayInModelFromDomain(p)).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormPayInRepository) SaveWithLock(ctx context.Context, p *payin.PayIn) error {
	currentVersion := p.Version
	p.IncrementVersion()
	p.UpdatedAt = time.Now()

	model := models.PayInModelFromDomain(p)
	result := r.db.WithContext(ctx).
		Model(&models.PayInModel{}).
		Where("id = ? AND version = ?", model.ID, currentVersion).
		Updates(map[string]interface{}{
			"merchant_order_id":   model.MerchantOrderID,
			"amount":              model.Amount,
			"bank_account_id":     model.BankAccountID,
			"status":              model.Status,
			"status_message":      model.StatusMessage,
			"user_submitted_utr":  model.UserSubmittedUTR,
			"bank_response_id":    model.BankResponseID,
			"merchant_commission": model.MerchantCommission,
			"vendor_commission":   model.VendorCommission,
			"approved_at":         model.ApprovedAt,
			"duration_to_settle":  model.DurationToSettle,
			"one_time_used":       model.OneTimeUsed,
			"expires_at":          model.ExpiresAt,
			"urls":                model.URLsJSON,
			"change_history":      model.ChangeHistoryJSON,
			"version":             model.Version,
			"updated_at":          model.UpdatedAt,
		})

	if result.Error != nil {
		p.Version = currentVersion
		return result.Error
	}
	if result.RowsAffected == 0 {
		p.Version = currentVersion
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormPayInRepository implements PayInRepository
var _ payin.PayInRepository = (*GormPayInRepository)(nil)
