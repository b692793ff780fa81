package payin

import (
	"github.com/payin/backend/internal/domain/payin"
)

// Role scopes what a caller may see of a payment request.
type Role string

const (
	// RoleAdmin sees everything.
	RoleAdmin Role = "ADMIN"
	// RoleMerchant sees its own orders but not the collection side.
	RoleMerchant Role = "MERCHANT"
	// RoleVendor sees the collection side but not the merchant's commercials.
	RoleVendor Role = "VENDOR"
)

// Project builds the read model of a request for the given role.
func Project(p *payin.PayIn, role Role) PayInView {
	view := PayInView{
		ID:            p.ID,
		Amount:        p.Amount,
		Status:        p.Status,
		StatusMessage: p.StatusMessage,
		ShortCode:     p.ShortCode,
		UTR:           p.UserSubmittedUTR,
		CreatedAt:     p.CreatedAt,
		ApprovedAt:    p.ApprovedAt,
		ExpiresAt:     p.ExpiresAt,
	}

	switch role {
	case RoleMerchant:
		view.MerchantOrderID = p.MerchantOrderID
		view.MerchantCommission = p.MerchantCommission
		view.NotifyURL = p.URLs.NotifyURL
		view.ReturnURL = p.URLs.ReturnURL
	case RoleVendor:
		view.BankAccountID = p.BankAccountID
		view.VendorCommission = p.VendorCommission
	case RoleAdmin:
		view.MerchantOrderID = p.MerchantOrderID
		view.MerchantCommission = p.MerchantCommission
		view.VendorCommission = p.VendorCommission
		view.BankAccountID = p.BankAccountID
		view.NotifyURL = p.URLs.NotifyURL
		view.ReturnURL = p.URLs.ReturnURL
	}
	return view
}
