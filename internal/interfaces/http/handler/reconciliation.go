package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/payin/backend/internal/application/reconciliation"
)

// ReconciliationHandler handles bank credit ingestion and settlement endpoints
type ReconciliationHandler struct {
	BaseHandler
	ingestionService  *reconciliation.IngestionService
	settlementService *reconciliation.SettlementService
}

// NewReconciliationHandler creates a new ReconciliationHandler
func NewReconciliationHandler(
	ingestionService *reconciliation.IngestionService,
	settlementService *reconciliation.SettlementService,
) *ReconciliationHandler {
	return &ReconciliationHandler{
		ingestionService:  ingestionService,
		settlementService: settlementService,
	}
}

// IngestBankResponseRequest represents a structured bank credit line
// @Description Request body for ingesting one structured bank credit
type IngestBankResponseRequest struct {
	BankAccountID string  `json:"bank_account_id" binding:"required,uuid"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	UTR           string  `json:"utr" binding:"required,max=100,utr"`
	ShortCode     string  `json:"short_code" binding:"omitempty,max=20"`
	UISubmitted   bool    `json:"ui_submitted"`
}

// IngestBotLineRequest represents a raw bot-forwarded SMS line
// @Description Request body for ingesting one raw bank notification line
type IngestBotLineRequest struct {
	Line string `json:"line" binding:"required,min=1,max=1000"`
}

// CreateBankResponse ingests one structured bank credit and settles it
func (h *ReconciliationHandler) CreateBankResponse(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var req IngestBankResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	bankAccountID, err := uuid.Parse(req.BankAccountID)
	if err != nil {
		h.BadRequest(c, "Invalid bank account ID")
		return
	}

	result, err := h.ingestionService.CreateBankResponse(c.Request.Context(), reconciliation.IngestRequest{
		CompanyID:     companyID,
		BankAccountID: bankAccountID,
		Amount:        toDecimal(req.Amount),
		UTR:           req.UTR,
		ShortCode:     req.ShortCode,
		UISubmitted:   req.UISubmitted,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// IngestBotLine parses one raw bank notification line and settles it
func (h *ReconciliationHandler) IngestBotLine(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var req IngestBotLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.ingestionService.CreateFromBotLine(c.Request.Context(), companyID, req.Line)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// Settle re-runs settlement for a stored bank response
func (h *ReconciliationHandler) Settle(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	responseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid bank response ID")
		return
	}

	result, err := h.settlementService.SettlePayIn(c.Request.Context(), companyID, responseID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// RegisterRoutes registers all reconciliation routes
func (h *ReconciliationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	responses := rg.Group("/bank-responses")
	{
		responses.POST("", h.CreateBankResponse)
		responses.POST("/bot-line", h.IngestBotLine)
		responses.POST("/:id/settle", h.Settle)
	}
}
