package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/payin/backend/internal/domain/payin"
	"github.com/payin/backend/internal/domain/shared"
)

// logger for model conversion errors (silent failures are logged for debugging)
var modelLogger = zap.L().Named("payin.models")

// PayInModel is the persistence model for the PayIn aggregate root.
type PayInModel struct {
	CompanyAggregateModel
	MerchantID      uuid.UUID         `gorm:"type:uuid;not null;index"`
	MerchantOrderID string            `gorm:"type:varchar(100);not null;index:idx_payins_company_order,priority:2"`
	Amount          decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	BankAccountID   *uuid.UUID        `gorm:"type:uuid;index"`
	ShortCode       string            `gorm:"type:varchar(5);index"`
	Status          payin.PayInStatus `gorm:"type:varchar(20);not null;index"`
	StatusMessage   string            `gorm:"type:text"`

	UserSubmittedUTR string     `gorm:"type:varchar(100);index"`
	BankResponseID   *uuid.UUID `gorm:"type:uuid;index"`

	MerchantCommission *decimal.Decimal `gorm:"type:decimal(18,4)"`
	VendorCommission   *decimal.Decimal `gorm:"type:decimal(18,4)"`
	ApprovedAt         *time.Time
	DurationToSettle   time.Duration `gorm:"type:bigint;not null;default:0"`

	OneTimeUsed bool      `gorm:"not null;default:false"`
	ExpiresAt   time.Time `gorm:"not null;index"`

	URLsJSON          string `gorm:"column:urls;type:jsonb;default:'{}'"`
	ChangeHistoryJSON string `gorm:"column:change_history;type:jsonb;default:'[]'"`
}

// TableName returns the table name for GORM
func (PayInModel) TableName() string {
	return "payins"
}

// ToDomain converts the persistence model to a domain PayIn aggregate.
func (m *PayInModel) ToDomain() *payin.PayIn {
	p := &payin.PayIn{
		MerchantID:         m.MerchantID,
		MerchantOrderID:    m.MerchantOrderID,
		Amount:             m.Amount,
		BankAccountID:      m.BankAccountID,
		ShortCode:          m.ShortCode,
		Status:             m.Status,
		StatusMessage:      m.StatusMessage,
		UserSubmittedUTR:   m.UserSubmittedUTR,
		BankResponseID:     m.BankResponseID,
		MerchantCommission: m.MerchantCommission,
		VendorCommission:   m.VendorCommission,
		ApprovedAt:         m.ApprovedAt,
		DurationToSettle:   m.DurationToSettle,
		OneTimeUsed:        m.OneTimeUsed,
		ExpiresAt:          m.ExpiresAt,
		ChangeHistory:      make([]payin.ChangeHistoryEntry, 0),
	}
	m.PopulateCompanyAggregateRoot(&p.CompanyAggregateRoot)

	if m.URLsJSON != "" && m.URLsJSON != "{}" {
		if err := json.Unmarshal([]byte(m.URLsJSON), &p.URLs); err != nil {
			modelLogger.Warn("failed to parse urls JSON",
				zap.String("payin_id", m.ID.String()),
				zap.Error(err))
		}
	}
	if m.ChangeHistoryJSON != "" && m.ChangeHistoryJSON != "[]" {
		if err := json.Unmarshal([]byte(m.ChangeHistoryJSON), &p.ChangeHistory); err != nil {
			modelLogger.Warn("failed to parse change_history JSON",
				zap.String("payin_id", m.ID.String()),
				zap.Error(err))
		}
	}

	return p
}

// FromDomain populates the persistence model from a domain PayIn aggregate.
func (m *PayInModel) FromDomain(p *payin.PayIn) {
	m.FromDomainCompanyAggregateRoot(p.CompanyAggregateRoot)
	m.MerchantID = p.MerchantID
	m.MerchantOrderID = p.MerchantOrderID
	m.Amount = p.Amount
	m.BankAccountID = p.BankAccountID
	m.ShortCode = p.ShortCode
	m.Status = p.Status
	m.StatusMessage = p.StatusMessage
	m.UserSubmittedUTR = p.UserSubmittedUTR
	m.BankResponseID = p.BankResponseID
	m.MerchantCommission = p.MerchantCommission
	m.VendorCommission = p.VendorCommission
	m.ApprovedAt = p.ApprovedAt
	m.DurationToSettle = p.DurationToSettle
	m.OneTimeUsed = p.OneTimeUsed
	m.ExpiresAt = p.ExpiresAt

	if jsonBytes, err := json.Marshal(p.URLs); err == nil {
		m.URLsJSON = string(jsonBytes)
	} else {
		m.URLsJSON = "{}"
	}
	if len(p.ChangeHistory) > 0 {
		if jsonBytes, err := json.Marshal(p.ChangeHistory); err == nil {
			m.ChangeHistoryJSON = string(jsonBytes)
		} else {
			m.ChangeHistoryJSON = "[]"
		}
	} else {
		m.ChangeHistoryJSON = "[]"
	}
}

// PayInModelFromDomain creates a new persistence model from a domain PayIn.
func PayInModelFromDomain(p *payin.PayIn) *PayInModel {
	m := &PayInModel{}
	m.FromDomain(p)
	return m
}

// BankResponseModel is the persistence model for the BankResponse aggregate root.
type BankResponseModel struct {
	CompanyAggregateModel
	Amount        decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	UTR           string               `gorm:"column:utr;type:varchar(100);index:idx_bank_responses_company_utr,priority:2"`
	ShortCode     string               `gorm:"type:varchar(5);index"`
	BankAccountID uuid.UUID            `gorm:"type:uuid;not null;index"`
	IsUsed        bool                 `gorm:"not null;default:false"`
	Status        payin.ResponseStatus `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (BankResponseModel) TableName() string {
	return "bank_responses"
}

// ToDomain converts the persistence model to a domain BankResponse aggregate.
func (m *BankResponseModel) ToDomain() *payin.BankResponse {
	r := &payin.BankResponse{
		Amount:        m.Amount,
		UTR:           m.UTR,
		ShortCode:     m.ShortCode,
		BankAccountID: m.BankAccountID,
		IsUsed:        m.IsUsed,
		Status:        m.Status,
	}
	m.PopulateCompanyAggregateRoot(&r.CompanyAggregateRoot)
	return r
}

// FromDomain populates the persistence model from a domain BankResponse aggregate.
func (m *BankResponseModel) FromDomain(r *payin.BankResponse) {
	m.FromDomainCompanyAggregateRoot(r.CompanyAggregateRoot)
	m.Amount = r.Amount
	m.UTR = r.UTR
	m.ShortCode = r.ShortCode
	m.BankAccountID = r.BankAccountID
	m.IsUsed = r.IsUsed
	m.Status = r.Status
}

// BankResponseModelFromDomain creates a new persistence model from a domain BankResponse.
func BankResponseModelFromDomain(r *payin.BankResponse) *BankResponseModel {
	m := &BankResponseModel{}
	m.FromDomain(r)
	return m
}

// ResetHistoryModel is the persistence model for the append-only correction log.
type ResetHistoryModel struct {
	BaseModel
	CompanyID  uuid.UUID `gorm:"type:uuid;not null;index"`
	PayInID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Operator   string    `gorm:"type:varchar(100);not null"`
	Reason     string    `gorm:"type:text"`
	BeforeJSON string    `gorm:"column:before_state;type:jsonb;not null"`
	AfterJSON  string    `gorm:"column:after_state;type:jsonb;not null"`
}

// TableName returns the table name for GORM
func (ResetHistoryModel) TableName() string {
	return "reset_histories"
}

// ToDomain converts the persistence model to a domain ResetHistory record.
func (m *ResetHistoryModel) ToDomain() *payin.ResetHistory {
	h := &payin.ResetHistory{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		CompanyID: m.CompanyID,
		PayInID:   m.PayInID,
		Operator:  m.Operator,
		Reason:    m.Reason,
	}

	if m.BeforeJSON != "" {
		if err := json.Unmarshal([]byte(m.BeforeJSON), &h.Before); err != nil {
			modelLogger.Warn("failed to parse before_state JSON",
				zap.String("history_id", m.ID.String()),
				zap.Error(err))
		}
	}
	if m.AfterJSON != "" {
		if err := json.Unmarshal([]byte(m.AfterJSON), &h.After); err != nil {
			modelLogger.Warn("failed to parse after_state JSON",
				zap.String("history_id", m.ID.String()),
				zap.Error(err))
		}
	}

	return h
}

// FromDomain populates the persistence model from a domain ResetHistory record.
func (m *ResetHistoryModel) FromDomain(h *payin.ResetHistory) {
	m.FromDomainBaseEntity(h.BaseEntity)
	m.CompanyID = h.CompanyID
	m.PayInID = h.PayInID
	m.Operator = h.Operator
	m.Reason = h.Reason

	if jsonBytes, err := json.Marshal(h.Before); err == nil {
		m.BeforeJSON = string(jsonBytes)
	} else {
		m.BeforeJSON = "{}"
	}
	if jsonBytes, err := json.Marshal(h.After); err == nil {
		m.AfterJSON = string(jsonBytes)
	} else {
		m.AfterJSON = "{}"
	}
}

// ResetHistoryModelFromDomain creates a new persistence model from a domain ResetHistory.
func ResetHistoryModelFromDomain(h *payin.ResetHistory) *ResetHistoryModel {
	m := &ResetHistoryModel{}
	m.FromDomain(h)
	return m
}
