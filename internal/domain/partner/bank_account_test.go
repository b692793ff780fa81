package partner

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount(t *testing.T) *BankAccount {
	t.Helper()
	account, err := NewBankAccount(uuid.New(), uuid.New(), "Collections A", "100200300", PaymentMethodUPI)
	require.NoError(t, err)
	return account
}

func TestNewBankAccount_Validation(t *testing.T) {
	companyID := uuid.New()
	vendorID := uuid.New()

	tests := []struct {
		name      string
		companyID uuid.UUID
		vendorID  uuid.UUID
		accName   string
		accNumber string
		method    PaymentMethod
		wantErr   bool
	}{
		{"valid", companyID, vendorID, "Collections A", "100200300", PaymentMethodUPI, false},
		{"missing company", uuid.Nil, vendorID, "Collections A", "100200300", PaymentMethodUPI, true},
		{"missing vendor", companyID, uuid.Nil, "Collections A", "100200300", PaymentMethodUPI, true},
		{"empty account number", companyID, vendorID, "Collections A", "", PaymentMethodUPI, true},
		{"unknown method", companyID, vendorID, "Collections A", "100200300", PaymentMethod("CARD"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBankAccount(tt.companyID, tt.vendorID, tt.accName, tt.accNumber, tt.method)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBankAccount_CreditUpdatesBalancesAndCount(t *testing.T) {
	account := newTestAccount(t)

	require.NoError(t, account.Credit(decimal.NewFromInt(500)))
	require.NoError(t, account.Credit(decimal.NewFromInt(250)))

	assert.True(t, account.Balance.Equal(decimal.NewFromInt(750)))
	assert.True(t, account.TodayBalance.Equal(decimal.NewFromInt(750)))
	assert.Equal(t, int64(2), account.PayInCount)
	assert.True(t, account.IsEnabled)
}

func TestBankAccount_CreditRejectsNonPositive(t *testing.T) {
	account := newTestAccount(t)

	assert.Error(t, account.Credit(decimal.Zero))
	assert.Error(t, account.Credit(decimal.NewFromInt(-10)))
}

func TestBankAccount_AutoDisableOnDailyLimit(t *testing.T) {
	account := newTestAccount(t)
	require.NoError(t, account.SetMaxDailyLimit(decimal.NewFromInt(1000)))

	require.NoError(t, account.Credit(decimal.NewFromInt(999)))
	assert.True(t, account.IsEnabled)

	require.NoError(t, account.Credit(decimal.NewFromInt(1)))
	assert.False(t, account.IsEnabled, "account must disable once today balance reaches limit")

	// A downward correction below the limit re-enables the account.
	account.AdjustBy(decimal.NewFromInt(-200))
	assert.True(t, account.IsEnabled)
}

func TestBankAccount_DebitReversesCredit(t *testing.T) {
	account := newTestAccount(t)
	require.NoError(t, account.Credit(decimal.NewFromInt(500)))

	require.NoError(t, account.Debit(decimal.NewFromInt(500)))
	assert.True(t, account.Balance.IsZero())
	assert.True(t, account.TodayBalance.IsZero())
	assert.Equal(t, int64(0), account.PayInCount)
}

func TestBankAccount_ResetToday(t *testing.T) {
	account := newTestAccount(t)
	require.NoError(t, account.SetMaxDailyLimit(decimal.NewFromInt(100)))
	require.NoError(t, account.Credit(decimal.NewFromInt(150)))
	require.False(t, account.IsEnabled)

	account.ResetToday()

	assert.True(t, account.TodayBalance.IsZero())
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(150)), "lifetime balance survives rollover")
	assert.True(t, account.IsEnabled)
}

func TestVendor_CommissionOn(t *testing.T) {
	vendor, err := NewVendor(uuid.New(), "V1", "Vendor One", decimal.NewFromFloat(1.5))
	require.NoError(t, err)

	commission := vendor.CommissionOn(decimal.NewFromInt(1000))
	assert.True(t, commission.Equal(decimal.NewFromInt(15)))
}

func TestMerchant_CommissionOn(t *testing.T) {
	merchant, err := NewMerchant(uuid.New(), "M1", "Merchant One", decimal.NewFromFloat(2.5))
	require.NoError(t, err)

	commission := merchant.CommissionOn(decimal.NewFromInt(500))
	assert.True(t, commission.Equal(decimal.NewFromFloat(12.5)))
}

func TestMerchant_RejectsInvalidCommissionRate(t *testing.T) {
	_, err := NewMerchant(uuid.New(), "M1", "Merchant One", decimal.NewFromInt(-1))
	assert.Error(t, err)

	_, err = NewMerchant(uuid.New(), "M1", "Merchant One", decimal.NewFromInt(101))
	assert.Error(t, err)
}

func TestMerchant_SetNotifyURL(t *testing.T) {
	merchant, err := NewMerchant(uuid.New(), "M1", "Merchant One", decimal.NewFromInt(2))
	require.NoError(t, err)

	assert.NoError(t, merchant.SetNotifyURL("https://merchant.example.com/callback"))
	assert.Error(t, merchant.SetNotifyURL("not a url"))
	assert.NoError(t, merchant.SetNotifyURL(""), "clearing the URL is allowed")
}
