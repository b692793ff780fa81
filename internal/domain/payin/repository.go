package payin

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/payin/backend/internal/domain/shared"
)

// PayInRepository provides access to payment requests
type PayInRepository interface {
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*PayIn, error)
	// FindOpenByShortCode returns the newest open request carrying the short
	// code, or shared.ErrNotFound.
	FindOpenByShortCode(ctx context.Context, companyID uuid.UUID, shortCode string) (*PayIn, error)
	// FindOpenByUTR returns the newest open request carrying the submitted
	// UTR, or shared.ErrNotFound.
	FindOpenByUTR(ctx context.Context, companyID uuid.UUID, utr string) (*PayIn, error)
	// FindOpenByOrderID returns the newest open request for a merchant order,
	// used when a dispute resolution retargets.
	FindOpenByOrderID(ctx context.Context, companyID uuid.UUID, merchantOrderID string) (*PayIn, error)
	// ExistsSettledWithUTR reports whether any request already holds the UTR
	// in SUCCESS state.
	ExistsSettledWithUTR(ctx context.Context, companyID uuid.UUID, utr string) (bool, error)
	// ExistsClaimedWithUTR reports whether any consumed request (one-time-used)
	// holds the UTR, regardless of final state.
	ExistsClaimedWithUTR(ctx context.Context, companyID uuid.UUID, utr string) (bool, error)
	// FindStale returns open or initiated requests whose expiry passed before
	// the cutoff, for the sweep.
	FindStale(ctx context.Context, cutoff time.Time, limit int) ([]PayIn, error)
	// List returns a page of requests for back-office review. Supported
	// filter keys: status, merchant_id.
	List(ctx context.Context, companyID uuid.UUID, filter shared.Filter) (shared.Paginated[PayIn], error)
	Save(ctx context.Context, p *PayIn) error
	SaveWithLock(ctx context.Context, p *PayIn) error
}

// BankResponseRepository provides access to ingested bank credit lines
type BankResponseRepository interface {
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*BankResponse, error)
	// FindByShortCode returns the earliest stored line carrying the short
	// code, used for company-scoped dedupe.
	FindByShortCode(ctx context.Context, companyID uuid.UUID, shortCode string) (*BankResponse, error)
	// FindByUTR returns the earliest stored line carrying the UTR.
	FindByUTR(ctx context.Context, companyID uuid.UUID, utr string) (*BankResponse, error)
	// CountClaimsOn reports how many requests currently link to the response.
	CountClaimsOn(ctx context.Context, companyID, responseID uuid.UUID) (int64, error)
	Save(ctx context.Context, r *BankResponse) error
	SaveWithLock(ctx context.Context, r *BankResponse) error
}

// ResetHistoryRepository appends and lists correction audit records
type ResetHistoryRepository interface {
	Append(ctx context.Context, h *ResetHistory) error
	ListByPayIn(ctx context.Context, companyID, payInID uuid.UUID) ([]ResetHistory, error)
}
