package reconciliation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payin/backend/internal/domain/payin"
)

// IngestRequest carries one bank credit line from any ingestion source.
type IngestRequest struct {
	CompanyID     uuid.UUID       `json:"company_id"`
	BankAccountID uuid.UUID       `json:"bank_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	UTR           string          `json:"utr"`
	ShortCode     string          `json:"short_code,omitempty"`
	// UISubmitted marks UTRs typed by an end user, which get strict validation.
	UISubmitted bool `json:"ui_submitted,omitempty"`
}

// IngestResult reports what happened to one ingested credit line.
type IngestResult struct {
	ResponseID uuid.UUID `json:"response_id"`
	// Repeated is true when the line duplicated an earlier ingestion and was
	// recorded without touching any balance.
	Repeated bool `json:"repeated"`
	// Settlement is the outcome of the settlement attempt that followed a
	// fresh line, nil for repeated lines.
	Settlement *SettlementResult `json:"settlement,omitempty"`
}

// SettlementResult reports the verdict of one settlement attempt.
type SettlementResult struct {
	Outcome payin.MatchOutcome `json:"outcome"`
	PayInID *uuid.UUID         `json:"payin_id,omitempty"`
	Message string             `json:"message,omitempty"`
}

// SweepStats summarizes one pass of the stale-request sweep.
type SweepStats struct {
	Scanned   int       `json:"scanned"`
	Dropped   int       `json:"dropped"`
	Failed    int       `json:"failed"`
	Errors    int       `json:"errors"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
}

// CorrectionResult reports the state of a request after a manual correction.
type CorrectionResult struct {
	PayInID   uuid.UUID         `json:"payin_id"`
	Status    payin.PayInStatus `json:"status"`
	HistoryID uuid.UUID         `json:"history_id"`
}

// DisputeResolution names the operator's verdict on a disputed request.
type DisputeResolution string

const (
	// ResolutionAccept settles the request at the credited amount.
	ResolutionAccept DisputeResolution = "ACCEPT"
	// ResolutionReject terminates the request as failed.
	ResolutionReject DisputeResolution = "REJECT"
)

// ResolveDisputeRequest carries an operator's dispute verdict.
type ResolveDisputeRequest struct {
	CompanyID uuid.UUID         `json:"company_id"`
	PayInID   uuid.UUID         `json:"payin_id"`
	Action    DisputeResolution `json:"action"`
	// TargetMerchantOrderID optionally retargets the credit to a different
	// merchant order before settling.
	TargetMerchantOrderID string `json:"target_merchant_order_id,omitempty"`
	Operator              string `json:"operator"`
	Reason                string `json:"reason,omitempty"`
}
