package reconciliation

import (
	"context"

	"github.com/payin/backend/internal/domain/ledger"
	"github.com/payin/backend/internal/domain/partner"
	"github.com/payin/backend/internal/domain/payin"
)

// TransactionScope provides transactional access to the reconciliation
// repositories. When a function is executed within a transaction scope, all
// repository operations are part of the same database transaction and commit
// or roll back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to every repository a settlement
// or correction touches within one transaction: the payment request, the bank
// credit line, the vendor-side balances and both owners' ledger rows all move
// together or not at all.
type TransactionalRepositories interface {
	PayInRepo() payin.PayInRepository
	BankResponseRepo() payin.BankResponseRepository
	ResetHistoryRepo() payin.ResetHistoryRepository
	MerchantRepo() partner.MerchantRepository
	VendorRepo() partner.VendorRepository
	BankAccountRepo() partner.BankAccountRepository
	CalculationRepo() ledger.CalculationRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for tests.
type NoOpTransactionScope struct {
	payInRepo        payin.PayInRepository
	bankResponseRepo payin.BankResponseRepository
	resetHistoryRepo payin.ResetHistoryRepository
	merchantRepo     partner.MerchantRepository
	vendorRepo       partner.VendorRepository
	bankAccountRepo  partner.BankAccountRepository
	calculationRepo  ledger.CalculationRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given repositories.
func NewNoOpTransactionScope(
	payInRepo payin.PayInRepository,
	bankResponseRepo payin.BankResponseRepository,
	resetHistoryRepo payin.ResetHistoryRepository,
	merchantRepo partner.MerchantRepository,
	vendorRepo partner.VendorRepository,
	bankAccountRepo partner.BankAccountRepository,
	calculationRepo ledger.CalculationRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		payInRepo:        payInRepo,
		bankResponseRepo: bankResponseRepo,
		resetHistoryRepo: resetHistoryRepo,
		merchantRepo:     merchantRepo,
		vendorRepo:       vendorRepo,
		bankAccountRepo:  bankAccountRepo,
		calculationRepo:  calculationRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// PayInRepo returns the payment request repository.
func (s *NoOpTransactionScope) PayInRepo() payin.PayInRepository { return s.payInRepo }

// BankResponseRepo returns the bank credit line repository.
func (s *NoOpTransactionScope) BankResponseRepo() payin.BankResponseRepository {
	return s.bankResponseRepo
}

// ResetHistoryRepo returns the correction audit repository.
func (s *NoOpTransactionScope) ResetHistoryRepo() payin.ResetHistoryRepository {
	return s.resetHistoryRepo
}

// MerchantRepo returns the merchant repository.
func (s *NoOpTransactionScope) MerchantRepo() partner.MerchantRepository { return s.merchantRepo }

// VendorRepo returns the vendor repository.
func (s *NoOpTransactionScope) VendorRepo() partner.VendorRepository { return s.vendorRepo }

// BankAccountRepo returns the collection account repository.
func (s *NoOpTransactionScope) BankAccountRepo() partner.BankAccountRepository {
	return s.bankAccountRepo
}

// CalculationRepo returns the ledger repository.
func (s *NoOpTransactionScope) CalculationRepo() ledger.CalculationRepository {
	return s.calculationRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
