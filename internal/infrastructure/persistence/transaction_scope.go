package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/payin/backend/internal/application/reconciliation"
	"github.com/payin/backend/internal/domain/ledger"
	"github.com/payin/backend/internal/domain/partner"
	"github.com/payin/backend/internal/domain/payin"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos reconciliation.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// PayInRepo returns the payment request repository scoped to the current transaction.
func (r *gormTransactionalRepositories) PayInRepo() payin.PayInRepository {
	return NewGormPayInRepository(r.tx)
}

// BankResponseRepo returns the bank credit line repository scoped to the current transaction.
func (r *gormTransactionalRepositories) BankResponseRepo() payin.BankResponseRepository {
	return NewGormBankResponseRepository(r.tx)
}

// ResetHistoryRepo returns the correction audit repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ResetHistoryRepo() payin.ResetHistoryRepository {
	return NewGormResetHistoryRepository(r.tx)
}

// MerchantRepo returns the merchant repository scoped to the current transaction.
func (r *gormTransactionalRepositories) MerchantRepo() partner.MerchantRepository {
	return NewGormMerchantRepository(r.tx)
}

// VendorRepo returns the vendor repository scoped to the current transaction.
func (r *gormTransactionalRepositories) VendorRepo() partner.VendorRepository {
	return NewGormVendorRepository(r.tx)
}

// BankAccountRepo returns the collection account repository scoped to the current transaction.
func (r *gormTransactionalRepositories) BankAccountRepo() partner.BankAccountRepository {
	return NewGormBankAccountRepository(r.tx)
}

// CalculationRepo returns the ledger repository scoped to the current transaction.
func (r *gormTransactionalRepositories) CalculationRepo() ledger.CalculationRepository {
	return NewGormCalculationRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ reconciliation.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ reconciliation.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
