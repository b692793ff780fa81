package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	payinapp "github.com/payin/backend/internal/application/payin"
	"github.com/payin/backend/internal/domain/partner"
	"github.com/payin/backend/internal/domain/payin"
	"github.com/payin/backend/internal/interfaces/http/dto"
)

// PayInHandler handles payment request API endpoints
type PayInHandler struct {
	BaseHandler
	payinService *payinapp.PayInService
}

// NewPayInHandler creates a new PayInHandler
func NewPayInHandler(payinService *payinapp.PayInService) *PayInHandler {
	return &PayInHandler{
		payinService: payinService,
	}
}

// CreatePayInRequest represents a request to open a payment request
// @Description Request body for opening a new payment request
type CreatePayInRequest struct {
	MerchantID      string  `json:"merchant_id" binding:"required,uuid"`
	MerchantOrderID string  `json:"merchant_order_id" binding:"required,min=1,max=100"`
	Amount          float64 `json:"amount" binding:"required,gt=0"`
	Method          string  `json:"method" binding:"required,oneof=UPI IMPS NEFT"`
	NotifyURL       string  `json:"notify_url" binding:"omitempty,url,max=500"`
	ReturnURL       string  `json:"return_url" binding:"omitempty,url,max=500"`
}

// SubmitUTRRequest represents an end user's UTR submission
// @Description Request body for submitting the UTR of a completed transfer
type SubmitUTRRequest struct {
	UTR string `json:"utr" binding:"required,max=100,utr"`
}

// Create opens a new payment request and assigns a collection account
func (h *PayInHandler) Create(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var req CreatePayInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	merchantID, err := uuid.Parse(req.MerchantID)
	if err != nil {
		h.BadRequest(c, "Invalid merchant ID")
		return
	}

	view, err := h.payinService.CreatePayIn(c.Request.Context(), payinapp.CreatePayInRequest{
		CompanyID:       companyID,
		MerchantID:      merchantID,
		MerchantOrderID: req.MerchantOrderID,
		Amount:          toDecimal(req.Amount),
		Method:          partner.PaymentMethod(req.Method),
		NotifyURL:       req.NotifyURL,
		ReturnURL:       req.ReturnURL,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, view)
}

// SubmitUTR records the UTR an end user claims to have paid with
func (h *PayInHandler) SubmitUTR(c *gin.Context) {
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

	var req SubmitUTRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	view, err := h.payinService.SubmitUTR(c.Request.Context(), payinapp.SubmitUTRRequest{
		CompanyID: companyID,
		PayInID:   payInID,
		UTR:       req.UTR,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, view)
}

// List returns a page of payment requests for back-office review
func (h *PayInHandler) List(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	role := payinapp.Role(c.DefaultQuery("role", string(payinapp.RoleAdmin)))
	switch role {
	case payinapp.RoleAdmin, payinapp.RoleMerchant, payinapp.RoleVendor:
	default:
		h.BadRequest(c, "Invalid role")
		return
	}

	var merchantID uuid.UUID
	if raw := c.Query("merchant_id"); raw != "" {
		merchantID, err = uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid merchant ID")
			return
		}
	}

	result, err := h.payinService.ListPayIns(c.Request.Context(), payinapp.ListPayInsRequest{
		CompanyID:  companyID,
		Page:       page,
		PageSize:   pageSize,
		OrderBy:    c.Query("order_by"),
		OrderDir:   c.Query("order_dir"),
		Status:     payin.PayInStatus(c.Query("status")),
		MerchantID: merchantID,
		Role:       role,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(result.Items, result.Total, result.Page, result.PageSize))
}

// Get returns one payment request projected for the caller's role
func (h *PayInHandler) Get(c *gin.Context) {
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

	role := payinapp.Role(c.DefaultQuery("role", string(payinapp.RoleAdmin)))
	switch role {
	case payinapp.RoleAdmin, payinapp.RoleMerchant, payinapp.RoleVendor:
	default:
		h.BadRequest(c, "Invalid role")
		return
	}

	view, err := h.payinService.GetPayIn(c.Request.Context(), companyID, payInID, role)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, view)
}

// GetByShortCode returns the open payment request carrying a short code
func (h *PayInHandler) GetByShortCode(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	shortCode := c.Param("code")
	view, err := h.payinService.GetByShortCode(c.Request.Context(), companyID, shortCode)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, view)
}

// RegisterRoutes registers all payment request routes
func (h *PayInHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payins := rg.Group("/payins")
	{
		payins.POST("", h.Create)
		payins.GET("", h.List)
		payins.GET("/:id", h.Get)
		payins.POST("/:id/utr", h.SubmitUTR)
		payins.GET("/short-code/:code", h.GetByShortCode)
	}
}
