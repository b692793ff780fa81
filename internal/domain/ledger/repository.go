package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CalculationRepository provides access to ledger rows. Implementations must
// scope every query by company.
type CalculationRepository interface {
	// FindLatestByOwner returns the most recent row for the owner
	// (ORDER BY created_at DESC LIMIT 1), or shared.ErrNotFound.
	FindLatestByOwner(ctx context.Context, companyID, ownerID uuid.UUID, ownerType OwnerType) (*Calculation, error)
	// FindByOwnerAndDay returns the owner's row whose created_at date equals
	// day, or shared.ErrNotFound.
	FindByOwnerAndDay(ctx context.Context, companyID, ownerID uuid.UUID, ownerType OwnerType, day time.Time) (*Calculation, error)
	// FindAfterDay returns all of the owner's rows created after day,
	// ascending by created_at.
	FindAfterDay(ctx context.Context, companyID, ownerID uuid.UUID, ownerType OwnerType, day time.Time) ([]Calculation, error)
	Save(ctx context.Context, c *Calculation) error
	SaveWithLock(ctx context.Context, c *Calculation) error
}
