package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payin/backend/internal/domain/partner"
)

// MerchantModel is the persistence model for the Merchant aggregate root.
type MerchantModel struct {
	CompanyAggregateModel
	Code           string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_merchants_company_code,priority:2"`
	Name           string          `gorm:"type:varchar(200);not null"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0"`
	NotifyURL      string          `gorm:"type:varchar(500)"`
	ReturnURL      string          `gorm:"type:varchar(500)"`
	Balance        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	IsEnabled      bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (MerchantModel) TableName() string {
	return "merchants"
}

// ToDomain converts the persistence model to a domain Merchant aggregate.
func (m *MerchantModel) ToDomain() *partner.Merchant {
	merchant := &partner.Merchant{
		Code:           m.Code,
		Name:           m.Name,
		CommissionRate: m.CommissionRate,
		NotifyURL:      m.NotifyURL,
		ReturnURL:      m.ReturnURL,
		Balance:        m.Balance,
		IsEnabled:      m.IsEnabled,
	}
	m.PopulateCompanyAggregateRoot(&merchant.CompanyAggregateRoot)
	return merchant
}

// FromDomain populates the persistence model from a domain Merchant aggregate.
func (m *MerchantModel) FromDomain(merchant *partner.Merchant) {
	m.FromDomainCompanyAggregateRoot(merchant.CompanyAggregateRoot)
	m.Code = merchant.Code
	m.Name = merchant.Name
	m.CommissionRate = merchant.CommissionRate
	m.NotifyURL = merchant.NotifyURL
	m.ReturnURL = merchant.ReturnURL
	m.Balance = merchant.Balance
	m.IsEnabled = merchant.IsEnabled
}

// MerchantModelFromDomain creates a new persistence model from a domain Merchant.
func MerchantModelFromDomain(merchant *partner.Merchant) *MerchantModel {
	m := &MerchantModel{}
	m.FromDomain(merchant)
	return m
}

// VendorModel is the persistence model for the Vendor aggregate root.
type VendorModel struct {
	CompanyAggregateModel
	Code           string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_vendors_company_code,priority:2"`
	Name           string          `gorm:"type:varchar(200);not null"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0"`
	Balance        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	IsEnabled      bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (VendorModel) TableName() string {
	return "vendors"
}

// ToDomain converts the persistence model to a domain Vendor aggregate.
func (m *VendorModel) ToDomain() *partner.Vendor {
	vendor := &partner.Vendor{
		Code:           m.Code,
		Name:           m.Name,
		CommissionRate: m.CommissionRate,
		Balance:        m.Balance,
		IsEnabled:      m.IsEnabled,
	}
	m.PopulateCompanyAggregateRoot(&vendor.CompanyAggregateRoot)
	return vendor
}

// FromDomain populates the persistence model from a domain Vendor aggregate.
func (m *VendorModel) FromDomain(vendor *partner.Vendor) {
	m.FromDomainCompanyAggregateRoot(vendor.CompanyAggregateRoot)
	m.Code = vendor.Code
	m.Name = vendor.Name
	m.CommissionRate = vendor.CommissionRate
	m.Balance = vendor.Balance
	m.IsEnabled = vendor.IsEnabled
}

// VendorModelFromDomain creates a new persistence model from a domain Vendor.
func VendorModelFromDomain(vendor *partner.Vendor) *VendorModel {
	m := &VendorModel{}
	m.FromDomain(vendor)
	return m
}

// BankAccountModel is the persistence model for the BankAccount aggregate root.
type BankAccountModel struct {
	CompanyAggregateModel
	VendorID      uuid.UUID             `gorm:"type:uuid;not null;index"`
	AccountName   string                `gorm:"type:varchar(200);not null"`
	AccountNumber string                `gorm:"type:varchar(50);not null;index"`
	UPIID         string                `gorm:"column:upi_id;type:varchar(100)"`
	Method        partner.PaymentMethod `gorm:"type:varchar(10);not null;index"`
	Balance       decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	TodayBalance  decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	PayInCount    int64                 `gorm:"not null;default:0"`
	MaxDailyLimit decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	IsEnabled     bool                  `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (BankAccountModel) TableName() string {
	return "bank_accounts"
}

// ToDomain converts the persistence model to a domain BankAccount aggregate.
func (m *BankAccountModel) ToDomain() *partner.BankAccount {
	account := &partner.BankAccount{
		VendorID:      m.VendorID,
		AccountName:   m.AccountName,
		AccountNumber: m.AccountNumber,
		UPIID:         m.UPIID,
		Method:        m.Method,
		Balance:       m.Balance,
		TodayBalance:  m.TodayBalance,
		PayInCount:    m.PayInCount,
		MaxDailyLimit: m.MaxDailyLimit,
		IsEnabled:     m.IsEnabled,
	}
	m.PopulateCompanyAggregateRoot(&account.CompanyAggregateRoot)
	return account
}

// FromDomain populates the persistence model from a domain BankAccount aggregate.
func (m *BankAccountModel) FromDomain(account *partner.BankAccount) {
	m.FromDomainCompanyAggregateRoot(account.CompanyAggregateRoot)
	m.VendorID = account.VendorID
	m.AccountName = account.AccountName
	m.AccountNumber = account.AccountNumber
	m.UPIID = account.UPIID
	m.Method = account.Method
	m.Balance = account.Balance
	m.TodayBalance = account.TodayBalance
	m.PayInCount = account.PayInCount
	m.MaxDailyLimit = account.MaxDailyLimit
	m.IsEnabled = account.IsEnabled
}

// BankAccountModelFromDomain creates a new persistence model from a domain BankAccount.
func BankAccountModelFromDomain(account *partner.BankAccount) *BankAccountModel {
	m := &BankAccountModel{}
	m.FromDomain(account)
	return m
}
