package payin

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payin/backend/internal/domain/shared"
)

// ResetSnapshot captures the correctable fields of a request at one instant.
type ResetSnapshot struct {
	Amount        decimal.Decimal  `json:"amount"`
	UTR           string           `json:"utr,omitempty"`
	BankAccountID *uuid.UUID       `json:"bank_account_id,omitempty"`
	Status        PayInStatus      `json:"status"`
	URLs          NotificationURLs `json:"urls"`
}

// SnapshotOf captures a request's correctable fields.
func SnapshotOf(p *PayIn) ResetSnapshot {
	return ResetSnapshot{
		Amount:        p.Amount,
		UTR:           p.UserSubmittedUTR,
		BankAccountID: p.BankAccountID,
		Status:        p.Status,
		URLs:          p.URLs,
	}
}

// ResetHistory is one append-only record of a manual correction: the state
// before and after, plus who did it and why.
type ResetHistory struct {
	shared.BaseEntity
	CompanyID uuid.UUID
	PayInID   uuid.UUID
	Operator  string
	Reason    string
	Before    ResetSnapshot
	After     ResetSnapshot
}

// NewResetHistory records a correction applied to a request.
func NewResetHistory(companyID, payInID uuid.UUID, operator, reason string, before, after ResetSnapshot) (*ResetHistory, error) {
	if companyID == uuid.Nil || payInID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Company and payin IDs are required")
	}
	if operator == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Operator is required for corrections")
	}
	return &ResetHistory{
		BaseEntity: shared.NewBaseEntity(),
		CompanyID:  companyID,
		PayInID:    payInID,
		Operator:   operator,
		Reason:     reason,
		Before:     before,
		After:      after,
	}, nil
}
