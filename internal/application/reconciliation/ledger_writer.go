package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payin/backend/internal/domain/ledger"
	"github.com/payin/backend/internal/domain/shared"
)

// ensureDayRow returns the owner's ledger row for today, lazily seeding one
// from the owner's latest row when today has no activity yet. Seeded rows are
// persisted immediately so later queries inside the same transaction see them.
func ensureDayRow(
	ctx context.Context,
	repos TransactionalRepositories,
	companyID, ownerID uuid.UUID,
	ownerType ledger.OwnerType,
	now time.Time,
) (*ledger.Calculation, error) {
	calcRepo := repos.CalculationRepo()

	latest, err := calcRepo.FindLatestByOwner(ctx, companyID, ownerID, ownerType)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to load latest ledger row: %w", err)
	}
	if latest != nil && latest.SameDayAs(now) {
		return latest, nil
	}

	row, err := ledger.NewCalculation(companyID, ownerID, ownerType, latest)
	if err != nil {
		return nil, err
	}
	if err := calcRepo.Save(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to seed ledger row: %w", err)
	}
	return row, nil
}

// creditOwnerLedger accumulates one settled payin into the owner's today row.
func creditOwnerLedger(
	ctx context.Context,
	repos TransactionalRepositories,
	companyID, ownerID uuid.UUID,
	ownerType ledger.OwnerType,
	amount, commission decimal.Decimal,
	now time.Time,
) error {
	row, err := ensureDayRow(ctx, repos, companyID, ownerID, ownerType, now)
	if err != nil {
		return err
	}
	if err := row.ApplyPayIn(amount, commission); err != nil {
		return err
	}
	return repos.CalculationRepo().SaveWithLock(ctx, row)
}

// propagateCorrection applies a signed correction delta to the owner's ledger:
// the row of the original settlement day takes the full adjustment and every
// later row (today's included, seeded if absent) takes the carried net shift.
func propagateCorrection(
	ctx context.Context,
	repos TransactionalRepositories,
	companyID, ownerID uuid.UUID,
	ownerType ledger.OwnerType,
	originAt time.Time,
	delta ledger.CorrectionDelta,
	now time.Time,
) error {
	calcRepo := repos.CalculationRepo()

	origin, err := calcRepo.FindByOwnerAndDay(ctx, companyID, ownerID, ownerType, originAt)
	if errors.Is(err, shared.ErrNotFound) {
		// The origin day never traded for this owner; the adjustment lands on
		// today's row instead so nothing is lost.
		origin, err = ensureDayRow(ctx, repos, companyID, ownerID, ownerType, now)
	}
	if err != nil {
		return fmt.Errorf("failed to load origin ledger row: %w", err)
	}

	if !origin.SameDayAs(now) {
		// Make sure today's row exists so the correction shows up in today's
		// adjustment counters as well.
		if _, err := ensureDayRow(ctx, repos, companyID, ownerID, ownerType, now); err != nil {
			return err
		}
	}

	laterRows, err := calcRepo.FindAfterDay(ctx, companyID, ownerID, ownerType, origin.Day())
	if err != nil {
		return fmt.Errorf("failed to load ledger rows after origin day: %w", err)
	}
	later := make([]*ledger.Calculation, len(laterRows))
	for i := range laterRows {
		later[i] = &laterRows[i]
	}

	if err := ledger.NewPropagationService().Propagate(origin, later, delta, now); err != nil {
		return err
	}

	if err := calcRepo.SaveWithLock(ctx, origin); err != nil {
		return err
	}
	for _, row := range later {
		if err := calcRepo.SaveWithLock(ctx, row); err != nil {
			return err
		}
	}
	return nil
}
