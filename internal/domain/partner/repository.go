package partner

import (
	"context"

	"github.com/google/uuid"
)

// MerchantRepository provides access to merchants
type MerchantRepository interface {
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*Merchant, error)
	FindByCode(ctx context.Context, companyID uuid.UUID, code string) (*Merchant, error)
	Save(ctx context.Context, merchant *Merchant) error
	// SaveWithLock saves the merchant with optimistic concurrency control
	SaveWithLock(ctx context.Context, merchant *Merchant) error
}

// VendorRepository provides access to vendors
type VendorRepository interface {
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*Vendor, error)
	Save(ctx context.Context, vendor *Vendor) error
	SaveWithLock(ctx context.Context, vendor *Vendor) error
}

// BankAccountRepository provides access to collection bank accounts
type BankAccountRepository interface {
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*BankAccount, error)
	// FindEnabledByMethod returns the pool of enabled accounts supporting the
	// given payment method, used for random assignment.
	FindEnabledByMethod(ctx context.Context, companyID uuid.UUID, method PaymentMethod) ([]BankAccount, error)
	Save(ctx context.Context, account *BankAccount) error
	SaveWithLock(ctx context.Context, account *BankAccount) error
}
