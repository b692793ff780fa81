package reconciliation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/payin/backend/internal/domain/ledger"
	"github.com/payin/backend/internal/domain/partner"
	"github.com/payin/backend/internal/domain/payin"
)

// world wires the in-memory repositories with one company, one merchant
// (2% commission), one vendor (1% commission) and one enabled UPI account.
type world struct {
	companyID uuid.UUID

	payins    *fakePayInRepo
	responses *fakeBankResponseRepo
	history   *fakeResetHistoryRepo
	merchants *fakeMerchantRepo
	vendors   *fakeVendorRepo
	accounts  *fakeBankAccountRepo
	calcs     *fakeCalculationRepo

	scope TransactionScope

	merchant *partner.Merchant
	vendor   *partner.Vendor
	account  *partner.BankAccount
}

func newWorld(t *testing.T) *world {
	t.Helper()

	w := &world{
		companyID: uuid.New(),
		payins:    newFakePayInRepo(),
		responses: newFakeBankResponseRepo(),
		history:   &fakeResetHistoryRepo{},
		merchants: newFakeMerchantRepo(),
		vendors:   newFakeVendorRepo(),
		accounts:  newFakeBankAccountRepo(),
		calcs:     newFakeCalculationRepo(),
	}
	w.responses.payins = w.payins
	w.scope = NewNoOpTransactionScope(
		w.payins, w.responses, w.history,
		w.merchants, w.vendors, w.accounts, w.calcs,
	)

	var err error
	w.merchant, err = partner.NewMerchant(w.companyID, "M001", "Acme Store", decimal.NewFromInt(2))
	require.NoError(t, err)
	w.merchants.put(w.merchant)

	w.vendor, err = partner.NewVendor(w.companyID, "V001", "Collections Ltd", decimal.NewFromInt(1))
	require.NoError(t, err)
	w.vendors.put(w.vendor)

	w.account, err = partner.NewBankAccount(w.companyID, w.vendor.ID, "Collections Ltd", "9876543210", partner.PaymentMethodUPI)
	require.NoError(t, err)
	w.accounts.put(w.account)

	return w
}

func (w *world) settlementService() *SettlementService {
	return NewSettlementService(w.scope, NoOpLocker{}, nil, nil)
}

func (w *world) ingestionService() *IngestionService {
	return NewIngestionService(w.scope, w.settlementService(), nil, nil)
}

// addVendor adds another vendor with the given commission rate.
func (w *world) addVendor(t *testing.T, code string, rate decimal.Decimal) *partner.Vendor {
	t.Helper()
	v, err := partner.NewVendor(w.companyID, code, code, rate)
	require.NoError(t, err)
	w.vendors.put(v)
	return v
}

// addAccountFor adds an enabled UPI account for the given vendor.
func (w *world) addAccountFor(t *testing.T, vendorID uuid.UUID, number string) *partner.BankAccount {
	t.Helper()
	a, err := partner.NewBankAccount(w.companyID, vendorID, "Other Collections", number, partner.PaymentMethodUPI)
	require.NoError(t, err)
	w.accounts.put(a)
	return a
}

// addAccount adds another enabled UPI account owned by the world's vendor.
func (w *world) addAccount(t *testing.T, number string) *partner.BankAccount {
	t.Helper()
	a, err := partner.NewBankAccount(w.companyID, w.vendor.ID, "Collections Ltd", number, partner.PaymentMethodUPI)
	require.NoError(t, err)
	w.accounts.put(a)
	return a
}

// newAssignedPayIn opens a request, assigns it to the world's account and
// optionally records the user's UTR claim.
func (w *world) newAssignedPayIn(t *testing.T, orderID string, amount decimal.Decimal, utr string) *payin.PayIn {
	t.Helper()
	p, err := payin.NewPayIn(w.companyID, w.merchant.ID, orderID, payin.NotificationURLs{})
	require.NoError(t, err)
	require.NoError(t, p.Assign(w.account.ID, amount))
	if utr != "" {
		require.NoError(t, p.SubmitUTR(utr))
	}
	w.payins.put(p)
	return p
}

// storeResponse persists a fresh credit line without running ingestion.
func (w *world) storeResponse(t *testing.T, accountID uuid.UUID, amount decimal.Decimal, utr, shortCode string) *payin.BankResponse {
	t.Helper()
	r, err := payin.NewBankResponse(w.companyID, accountID, amount, utr, shortCode)
	require.NoError(t, err)
	w.responses.put(r)
	return r
}

func (w *world) reloadPayIn(t *testing.T, id uuid.UUID) *payin.PayIn {
	t.Helper()
	p, err := w.payins.FindByID(context.Background(), w.companyID, id)
	require.NoError(t, err)
	return p
}

func (w *world) reloadResponse(t *testing.T, id uuid.UUID) *payin.BankResponse {
	t.Helper()
	r, err := w.responses.FindByID(context.Background(), w.companyID, id)
	require.NoError(t, err)
	return r
}

func (w *world) reloadMerchant(t *testing.T) *partner.Merchant {
	t.Helper()
	m, err := w.merchants.FindByID(context.Background(), w.companyID, w.merchant.ID)
	require.NoError(t, err)
	return m
}

func (w *world) reloadVendor(t *testing.T, id uuid.UUID) *partner.Vendor {
	t.Helper()
	v, err := w.vendors.FindByID(context.Background(), w.companyID, id)
	require.NoError(t, err)
	return v
}

func (w *world) reloadAccount(t *testing.T, id uuid.UUID) *partner.BankAccount {
	t.Helper()
	a, err := w.accounts.FindByID(context.Background(), w.companyID, id)
	require.NoError(t, err)
	return a
}

// latestLedger returns the owner's most recent ledger row, or nil.
func (w *world) latestLedger(t *testing.T, ownerID uuid.UUID, ownerType ledger.OwnerType) *ledger.Calculation {
	t.Helper()
	row, err := w.calcs.FindLatestByOwner(context.Background(), w.companyID, ownerID, ownerType)
	if err != nil {
		return nil
	}
	return row
}
