package reconciliation

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/payin/backend/internal/domain/ledger"
	"github.com/payin/backend/internal/domain/partner"
	"github.com/payin/backend/internal/domain/payin"
	"github.com/payin/backend/internal/domain/shared"
)

// In-memory repositories backing the service tests. They copy on read and
// write like a real store, so a mutation that is never saved is never seen.

var _ payin.PayInRepository = (*fakePayInRepo)(nil)

type fakePayInRepo struct {
	rows map[uuid.UUID]*payin.PayIn
}

func newFakePayInRepo() *fakePayInRepo {
	return &fakePayInRepo{rows: make(map[uuid.UUID]*payin.PayIn)}
}

func (f *fakePayInRepo) put(p *payin.PayIn) {
	cp := *p
	f.rows[p.ID] = &cp
}

func (f *fakePayInRepo) FindByID(_ context.Context, companyID, id uuid.UUID) (*payin.PayIn, error) {
	p, ok := f.rows[id]
	if !ok || p.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePayInRepo) findOpen(companyID uuid.UUID, match func(*payin.PayIn) bool) (*payin.PayIn, error) {
	var newest *payin.PayIn
	for _, p := range f.rows {
		if p.CompanyID != companyID || !p.Status.IsOpen() || !match(p) {
			continue
		}
		if newest == nil || p.CreatedAt.After(newest.CreatedAt) {
			newest = p
		}
	}
	if newest == nil {
		return nil, shared.ErrNotFound
	}
	cp := *newest
	return &cp, nil
}

func (f *fakePayInRepo) FindOpenByShortCode(_ context.Context, companyID uuid.UUID, shortCode string) (*payin.PayIn, error) {
	return f.findOpen(companyID, func(p *payin.PayIn) bool { return p.ShortCode == shortCode })
}

func (f *fakePayInRepo) FindOpenByUTR(_ context.Context, companyID uuid.UUID, utr string) (*payin.PayIn, error) {
	return f.findOpen(companyID, func(p *payin.PayIn) bool { return p.UserSubmittedUTR == utr })
}

func (f *fakePayInRepo) FindOpenByOrderID(_ context.Context, companyID uuid.UUID, merchantOrderID string) (*payin.PayIn, error) {
	return f.findOpen(companyID, func(p *payin.PayIn) bool { return p.MerchantOrderID == merchantOrderID })
}

func (f *fakePayInRepo) ExistsSettledWithUTR(_ context.Context, companyID uuid.UUID, utr string) (bool, error) {
	for _, p := range f.rows {
		if p.CompanyID == companyID && p.Status == payin.StatusSuccess && p.UserSubmittedUTR == utr {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePayInRepo) ExistsClaimedWithUTR(_ context.Context, companyID uuid.UUID, utr string) (bool, error) {
	for _, p := range f.rows {
		if p.CompanyID == companyID && p.OneTimeUsed && p.UserSubmittedUTR == utr {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePayInRepo) FindStale(_ context.Context, cutoff time.Time, limit int) ([]payin.PayIn, error) {
	var out []payin.PayIn
	for _, p := range f.rows {
		if p.IsStale(cutoff) {
			out = append(out, *p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakePayInRepo) List(_ context.Context, companyID uuid.UUID, filter shared.Filter) (shared.Paginated[payin.PayIn], error) {
	var out []payin.PayIn
	for _, p := range f.rows {
		if p.CompanyID == companyID {
			out = append(out, *p)
		}
	}
	return shared.NewPaginated(out, int64(len(out)), filter.Page, filter.PageSize), nil
}

func (f *fakePayInRepo) Save(_ context.Context, p *payin.PayIn) error {
	f.put(p)
	return nil
}

func (f *fakePayInRepo) SaveWithLock(_ context.Context, p *payin.PayIn) error {
	f.put(p)
	return nil
}

type fakeBankResponseRepo struct {
	rows   map[uuid.UUID]*payin.BankResponse
	payins *fakePayInRepo
}

func newFakeBankResponseRepo() *fakeBankResponseRepo {
	return &fakeBankResponseRepo{rows: make(map[uuid.UUID]*payin.BankResponse)}
}

func (f *fakeBankResponseRepo) put(r *payin.BankResponse) {
	cp := *r
	f.rows[r.ID] = &cp
}

func (f *fakeBankResponseRepo) FindByID(_ context.Context, companyID, id uuid.UUID) (*payin.BankResponse, error) {
	r, ok := f.rows[id]
	if !ok || r.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeBankResponseRepo) findEarliest(companyID uuid.UUID, match func(*payin.BankResponse) bool) (*payin.BankResponse, error) {
	var earliest *payin.BankResponse
	for _, r := range f.rows {
		if r.CompanyID != companyID || !match(r) {
			continue
		}
		if earliest == nil || r.CreatedAt.Before(earliest.CreatedAt) {
			earliest = r
		}
	}
	if earliest == nil {
		return nil, shared.ErrNotFound
	}
	cp := *earliest
	return &cp, nil
}

func (f *fakeBankResponseRepo) FindByShortCode(_ context.Context, companyID uuid.UUID, shortCode string) (*payin.BankResponse, error) {
	return f.findEarliest(companyID, func(r *payin.BankResponse) bool { return r.ShortCode == shortCode })
}

func (f *fakeBankResponseRepo) FindByUTR(_ context.Context, companyID uuid.UUID, utr string) (*payin.BankResponse, error) {
	return f.findEarliest(companyID, func(r *payin.BankResponse) bool { return r.UTR == utr })
}

func (f *fakeBankResponseRepo) CountClaimsOn(_ context.Context, companyID, responseID uuid.UUID) (int64, error) {
	if f.payins == nil {
		return 0, nil
	}
	var n int64
	for _, p := range f.payins.rows {
		if p.CompanyID == companyID && p.BankResponseID != nil && *p.BankResponseID == responseID {
			n++
		}
	}
	return n, nil
}

func (f *fakeBankResponseRepo) Save(_ context.Context, r *payin.BankResponse) error {
	f.put(r)
	return nil
}

func (f *fakeBankResponseRepo) SaveWithLock(_ context.Context, r *payin.BankResponse) error {
	f.put(r)
	return nil
}

type fakeResetHistoryRepo struct {
	entries []payin.ResetHistory
}

func (f *fakeResetHistoryRepo) Append(_ context.Context, h *payin.ResetHistory) error {
	f.entries = append(f.entries, *h)
	return nil
}

func (f *fakeResetHistoryRepo) ListByPayIn(_ context.Context, companyID, payInID uuid.UUID) ([]payin.ResetHistory, error) {
	var out []payin.ResetHistory
	for _, h := range f.entries {
		if h.CompanyID == companyID && h.PayInID == payInID {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeMerchantRepo struct {
	rows map[uuid.UUID]*partner.Merchant
}

func newFakeMerchantRepo() *fakeMerchantRepo {
	return &fakeMerchantRepo{rows: make(map[uuid.UUID]*partner.Merchant)}
}

func (f *fakeMerchantRepo) put(m *partner.Merchant) {
	cp := *m
	f.rows[m.ID] = &cp
}

func (f *fakeMerchantRepo) FindByID(_ context.Context, companyID, id uuid.UUID) (*partner.Merchant, error) {
	m, ok := f.rows[id]
	if !ok || m.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMerchantRepo) FindByCode(_ context.Context, companyID uuid.UUID, code string) (*partner.Merchant, error) {
	for _, m := range f.rows {
		if m.CompanyID == companyID && m.Code == code {
			cp := *m
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeMerchantRepo) Save(_ context.Context, m *partner.Merchant) error {
	f.put(m)
	return nil
}

func (f *fakeMerchantRepo) SaveWithLock(_ context.Context, m *partner.Merchant) error {
	f.put(m)
	return nil
}

type fakeVendorRepo struct {
	rows map[uuid.UUID]*partner.Vendor
}

func newFakeVendorRepo() *fakeVendorRepo {
	return &fakeVendorRepo{rows: make(map[uuid.UUID]*partner.Vendor)}
}

func (f *fakeVendorRepo) put(v *partner.Vendor) {
	cp := *v
	f.rows[v.ID] = &cp
}

func (f *fakeVendorRepo) FindByID(_ context.Context, companyID, id uuid.UUID) (*partner.Vendor, error) {
	v, ok := f.rows[id]
	if !ok || v.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeVendorRepo) Save(_ context.Context, v *partner.Vendor) error {
	f.put(v)
	return nil
}

func (f *fakeVendorRepo) SaveWithLock(_ context.Context, v *partner.Vendor) error {
	f.put(v)
	return nil
}

type fakeBankAccountRepo struct {
	rows map[uuid.UUID]*partner.BankAccount
}

func newFakeBankAccountRepo() *fakeBankAccountRepo {
	return &fakeBankAccountRepo{rows: make(map[uuid.UUID]*partner.BankAccount)}
}

func (f *fakeBankAccountRepo) put(a *partner.BankAccount) {
	cp := *a
	f.rows[a.ID] = &cp
}

func (f *fakeBankAccountRepo) FindByID(_ context.Context, companyID, id uuid.UUID) (*partner.BankAccount, error) {
	a, ok := f.rows[id]
	if !ok || a.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeBankAccountRepo) FindEnabledByMethod(_ context.Context, companyID uuid.UUID, method partner.PaymentMethod) ([]partner.BankAccount, error) {
	var out []partner.BankAccount
	for _, a := range f.rows {
		if a.CompanyID == companyID && a.IsEnabled && a.Method == method {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeBankAccountRepo) Save(_ context.Context, a *partner.BankAccount) error {
	f.put(a)
	return nil
}

func (f *fakeBankAccountRepo) SaveWithLock(_ context.Context, a *partner.BankAccount) error {
	f.put(a)
	return nil
}

type fakeCalculationRepo struct {
	rows map[uuid.UUID]*ledger.Calculation
}

func newFakeCalculationRepo() *fakeCalculationRepo {
	return &fakeCalculationRepo{rows: make(map[uuid.UUID]*ledger.Calculation)}
}

func (f *fakeCalculationRepo) put(c *ledger.Calculation) {
	cp := *c
	f.rows[c.ID] = &cp
}

func (f *fakeCalculationRepo) ownerRows(companyID, ownerID uuid.UUID, ownerType ledger.OwnerType) []*ledger.Calculation {
	var out []*ledger.Calculation
	for _, c := range f.rows {
		if c.CompanyID == companyID && c.OwnerID == ownerID && c.OwnerType == ownerType {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (f *fakeCalculationRepo) FindLatestByOwner(_ context.Context, companyID, ownerID uuid.UUID, ownerType ledger.OwnerType) (*ledger.Calculation, error) {
	rows := f.ownerRows(companyID, ownerID, ownerType)
	if len(rows) == 0 {
		return nil, shared.ErrNotFound
	}
	cp := *rows[len(rows)-1]
	return &cp, nil
}

func (f *fakeCalculationRepo) FindByOwnerAndDay(_ context.Context, companyID, ownerID uuid.UUID, ownerType ledger.OwnerType, day time.Time) (*ledger.Calculation, error) {
	for _, c := range f.ownerRows(companyID, ownerID, ownerType) {
		if c.SameDayAs(day) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeCalculationRepo) FindAfterDay(_ context.Context, companyID, ownerID uuid.UUID, ownerType ledger.OwnerType, day time.Time) ([]ledger.Calculation, error) {
	var out []ledger.Calculation
	for _, c := range f.ownerRows(companyID, ownerID, ownerType) {
		if c.Day().After(day) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCalculationRepo) Save(_ context.Context, c *ledger.Calculation) error {
	f.put(c)
	return nil
}

func (f *fakeCalculationRepo) SaveWithLock(_ context.Context, c *ledger.Calculation) error {
	f.put(c)
	return nil
}

// heldLocker refuses every acquisition, simulating a concurrent holder.
type heldLocker struct{}

func (heldLocker) Acquire(context.Context, string, time.Duration) (LockHandle, error) {
	return nil, shared.ErrLockHeld
}

// recordingLocker grants every acquisition and remembers the keys.
type recordingLocker struct {
	keys []string
}

func (l *recordingLocker) Acquire(_ context.Context, key string, _ time.Duration) (LockHandle, error) {
	l.keys = append(l.keys, key)
	return noopLockHandle{}, nil
}
