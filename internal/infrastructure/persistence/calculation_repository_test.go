package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/payin/backend/internal/domain/ledger"
	"github.com/payin/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockCalculationRepository creates a GormCalculationRepository with a mocked SQL connection
func newMockCalculationRepository(t *testing.T) (*GormCalculationRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormCalculationRepository(gormDB), mock, mockDB
}

func calculationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "company_id", "version", "created_at", "owner_id", "owner_type",
		"total_pay_in_count", "total_pay_in_amount", "total_pay_in_commission",
		"current_balance", "net_balance",
	})
}

func TestGormCalculationRepository_FindLatestByOwner(t *testing.T) {
	t.Run("returns newest ledger row for owner", func(t *testing.T) {
		repo, mock, mockDB := newMockCalculationRepository(t)
		defer mockDB.Close()

		companyID := uuid.New()
		ownerID := uuid.New()

		rows := calculationRows().AddRow(
			uuid.New(), companyID, 1, time.Now(), ownerID, ledger.OwnerTypeMerchant,
			int64(3), decimal.NewFromInt(900), decimal.NewFromInt(27),
			decimal.NewFromInt(873), decimal.NewFromInt(873))

		mock.ExpectQuery(`SELECT \* FROM "calculations" WHERE company_id = \$1 AND owner_id = \$2 AND owner_type = \$3 ORDER BY created_at DESC,.* LIMIT .*`).
			WithArgs(companyID, ownerID, ledger.OwnerTypeMerchant, 1).
			WillReturnRows(rows)

		calc, err := repo.FindLatestByOwner(context.Background(), companyID, ownerID, ledger.OwnerTypeMerchant)

		assert.NoError(t, err)
		require.NotNil(t, calc)
		assert.Equal(t, ownerID, calc.OwnerID)
		assert.Equal(t, int64(3), calc.TotalPayInCount)
		assert.True(t, calc.CurrentBalance.Equal(decimal.NewFromInt(873)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for owner without ledger", func(t *testing.T) {
		repo, mock, mockDB := newMockCalculationRepository(t)
		defer mockDB.Close()

		companyID := uuid.New()
		ownerID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "calculations" WHERE company_id = \$1 AND owner_id = \$2 AND owner_type = \$3 ORDER BY created_at DESC,.* LIMIT .*`).
			WithArgs(companyID, ownerID, ledger.OwnerTypeVendor, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		calc, err := repo.FindLatestByOwner(context.Background(), companyID, ownerID, ledger.OwnerTypeVendor)

		assert.Nil(t, calc)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCalculationRepository_FindByOwnerAndDay(t *testing.T) {
	t.Run("queries the day bucket by created_at range", func(t *testing.T) {
		repo, mock, mockDB := newMockCalculationRepository(t)
		defer mockDB.Close()

		companyID := uuid.New()
		ownerID := uuid.New()
		day := time.Date(2026, 3, 15, 13, 45, 0, 0, time.UTC)
		dayStart := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
		dayEnd := dayStart.AddDate(0, 0, 1)

		rows := calculationRows().AddRow(
			uuid.New(), companyID, 1, dayStart.Add(9*time.Hour), ownerID, ledger.OwnerTypeMerchant,
			int64(1), decimal.NewFromInt(100), decimal.NewFromInt(3),
			decimal.NewFromInt(97), decimal.NewFromInt(97))

		mock.ExpectQuery(`SELECT \* FROM "calculations" WHERE company_id = \$1 AND owner_id = \$2 AND owner_type = \$3 AND created_at >= \$4 AND created_at < \$5 ORDER BY .* LIMIT .*`).
			WithArgs(companyID, ownerID, ledger.OwnerTypeMerchant, dayStart, dayEnd, 1).
			WillReturnRows(rows)

		calc, err := repo.FindByOwnerAndDay(context.Background(), companyID, ownerID, ledger.OwnerTypeMerchant, day)

		assert.NoError(t, err)
		require.NotNil(t, calc)
		assert.Equal(t, int64(1), calc.TotalPayInCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for a day without a row", func(t *testing.T) {
		repo, mock, mockDB := newMockCalculationRepository(t)
		defer mockDB.Close()

		companyID := uuid.New()
		ownerID := uuid.New()
		day := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery(`SELECT \* FROM "calculations" WHERE company_id = \$1 AND owner_id = \$2 AND owner_type = \$3 AND created_at >= \$4 AND created_at < \$5 ORDER BY .* LIMIT .*`).
			WithArgs(companyID, ownerID, ledger.OwnerTypeMerchant, day, day.AddDate(0, 0, 1), 1).
			WillReturnError(gorm.ErrRecordNotFound)

		calc, err := repo.FindByOwnerAndDay(context.Background(), companyID, ownerID, ledger.OwnerTypeMerchant, day)

		assert.Nil(t, calc)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCalculationRepository_FindAfterDay(t *testing.T) {
	t.Run("returns later rows excluding the origin day", func(t *testing.T) {
		repo, mock, mockDB := newMockCalculationRepository(t)
		defer mockDB.Close()

		companyID := uuid.New()
		ownerID := uuid.New()
		day := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
		dayEnd := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)

		rows := calculationRows().
			AddRow(uuid.New(), companyID, 1, dayEnd.Add(2*time.Hour), ownerID, ledger.OwnerTypeMerchant,
				int64(2), decimal.NewFromInt(400), decimal.NewFromInt(12),
				decimal.NewFromInt(388), decimal.NewFromInt(388)).
			AddRow(uuid.New(), companyID, 1, dayEnd.Add(26*time.Hour), ownerID, ledger.OwnerTypeMerchant,
				int64(1), decimal.NewFromInt(50), decimal.NewFromInt(1),
				decimal.NewFromInt(437), decimal.NewFromInt(437))

		mock.ExpectQuery(`SELECT \* FROM "calculations" WHERE company_id = \$1 AND owner_id = \$2 AND owner_type = \$3 AND created_at >= \$4 ORDER BY created_at ASC`).
			WithArgs(companyID, ownerID, ledger.OwnerTypeMerchant, dayEnd).
			WillReturnRows(rows)

		calcs, err := repo.FindAfterDay(context.Background(), companyID, ownerID, ledger.OwnerTypeMerchant, day)

		assert.NoError(t, err)
		assert.Len(t, calcs, 2)
		assert.Equal(t, int64(2), calcs[0].TotalPayInCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns empty slice when no later days exist", func(t *testing.T) {
		repo, mock, mockDB := newMockCalculationRepository(t)
		defer mockDB.Close()

		companyID := uuid.New()
		ownerID := uuid.New()
		day := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery(`SELECT \* FROM "calculations" WHERE company_id = \$1 AND owner_id = \$2 AND owner_type = \$3 AND created_at >= \$4 ORDER BY created_at ASC`).
			WithArgs(companyID, ownerID, ledger.OwnerTypeVendor, day.AddDate(0, 0, 1)).
			WillReturnRows(calculationRows())

		calcs, err := repo.FindAfterDay(context.Background(), companyID, ownerID, ledger.OwnerTypeVendor, day)

		assert.NoError(t, err)
		assert.Empty(t, calcs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCalculationRepository_SaveWithLock(t *testing.T) {
	t.Run("updates and increments version on match", func(t *testing.T) {
		repo, mock, mockDB := newMockCalculationRepository(t)
		defer mockDB.Close()

		calc, err := ledger.NewCalculation(uuid.New(), uuid.New(), ledger.OwnerTypeMerchant, nil)
		require.NoError(t, err)
		require.Equal(t, 1, calc.Version)

		mock.ExpectExec(`UPDATE "calculations" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.SaveWithLock(context.Background(), calc)

		assert.NoError(t, err)
		assert.Equal(t, 2, calc.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns concurrency conflict when version is stale", func(t *testing.T) {
		repo, mock, mockDB := newMockCalculationRepository(t)
		defer mockDB.Close()

		calc, err := ledger.NewCalculation(uuid.New(), uuid.New(), ledger.OwnerTypeVendor, nil)
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "calculations" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.SaveWithLock(context.Background(), calc)

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Equal(t, 1, calc.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStartOfDay(t *testing.T) {
	t.Run("truncates to midnight in the time's location", func(t *testing.T) {
		ts := time.Date(2026, 7, 4, 18, 30, 45, 123, time.UTC)
		got := startOfDay(ts)

		assert.Equal(t, time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("midnight is a fixed point", func(t *testing.T) {
		midnight := time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, midnight, startOfDay(midnight))
	})
}
