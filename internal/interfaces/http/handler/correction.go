package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/payin/backend/internal/application/reconciliation"
)

// CorrectionHandler handles operator correction and dispute endpoints
type CorrectionHandler struct {
	BaseHandler
	correctionService *reconciliation.CorrectionService
	disputeService    *reconciliation.DisputeService
}

// NewCorrectionHandler creates a new CorrectionHandler
func NewCorrectionHandler(
	correctionService *reconciliation.CorrectionService,
	disputeService *reconciliation.DisputeService,
) *CorrectionHandler {
	return &CorrectionHandler{
		correctionService: correctionService,
		disputeService:    disputeService,
	}
}

// ResetPayInRequest represents an operator reset of a settled request
// @Description Request body for unwinding a settled payment request
type ResetPayInRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// CorrectAmountRequest represents an operator amount correction
// @Description Request body for correcting the expected amount of an open request
type CorrectAmountRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Reason string  `json:"reason" binding:"required,min=1,max=500"`
}

// ReassignRequest represents an operator account reassignment
// @Description Request body for moving an open request to another collection account
type ReassignRequest struct {
	BankAccountID string `json:"bank_account_id" binding:"required,uuid"`
	Reason        string `json:"reason" binding:"required,min=1,max=500"`
}

// ResolveDisputeRequest represents an operator dispute verdict
// @Description Request body for resolving a disputed payment request
type ResolveDisputeRequest struct {
	Action                string `json:"action" binding:"required,oneof=ACCEPT REJECT"`
	TargetMerchantOrderID string `json:"target_merchant_order_id" binding:"omitempty,max=100"`
	Reason                string `json:"reason" binding:"omitempty,max=500"`
}

// Reset unwinds a settled request back to an open state
func (h *CorrectionHandler) Reset(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	payInID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payin ID")
		return
	}

	operator, err := getOperator(c)
	if err != nil {
		h.BadRequest(c, "Missing operator")
		return
	}

	var req ResetPayInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.correctionService.ResetPayIn(c.Request.Context(), companyID, payInID, operator, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// CorrectAmount changes the expected amount of an open request
func (h *CorrectionHandler) CorrectAmount(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	payInID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payin ID")
		return
	}

	operator, err := getOperator(c)
	if err != nil {
		h.BadRequest(c, "Missing operator")
		return
	}

	var req CorrectAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.correctionService.CorrectAmount(
		c.Request.Context(), companyID, payInID, toDecimal(req.Amount), operator, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Reassign moves an open request to a different collection account
func (h *CorrectionHandler) Reassign(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	payInID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payin ID")
		return
	}

	operator, err := getOperator(c)
	if err != nil {
		h.BadRequest(c, "Missing operator")
		return
	}

	var req ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	accountID, err := uuid.Parse(req.BankAccountID)
	if err != nil {
		h.BadRequest(c, "Invalid bank account ID")
		return
	}

	result, err := h.correctionService.ReassignBankAccount(
		c.Request.Context(), companyID, payInID, accountID, operator, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// ResolveDispute applies an operator verdict to a disputed request
func (h *CorrectionHandler) ResolveDispute(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	payInID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payin ID")
		return
	}

	operator, err := getOperator(c)
	if err != nil {
		h.BadRequest(c, "Missing operator")
		return
	}

	var req ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.disputeService.ResolveDispute(c.Request.Context(), reconciliation.ResolveDisputeRequest{
		CompanyID:             companyID,
		PayInID:               payInID,
		Action:                reconciliation.DisputeResolution(req.Action),
		TargetMerchantOrderID: req.TargetMerchantOrderID,
		Operator:              operator,
		Reason:                req.Reason,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// RegisterRoutes registers all correction routes
func (h *CorrectionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payins := rg.Group("/payins")
	{
		payins.POST("/:id/reset", h.Reset)
		payins.POST("/:id/amount", h.CorrectAmount)
		payins.POST("/:id/reassign", h.Reassign)
		payins.POST("/:id/dispute", h.ResolveDispute)
	}
}
