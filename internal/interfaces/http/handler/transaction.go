package handler

import (
	"github.com/gin-gonic/gin"

	appstock "github.com/wms/backend/internal/application/stock"
)

// TransactionHandler handles inbound and outbound stock transactions
type TransactionHandler struct {
	BaseHandler
	txService *appstock.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(txService *appstock.TransactionService) *TransactionHandler {
	return &TransactionHandler{txService: txService}
}

// RegisterRoutes registers all transaction routes
func (h *TransactionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	txs := rg.Group("/transactions")
	txs.GET("", h.List)
	txs.POST("", h.Create)
	txs.POST("/documents/upload-url", h.CreateDocumentUploadURL)
	txs.GET("/:id", h.GetByID)
	txs.PUT("/:id", h.Update)
	txs.DELETE("/:id", h.Delete)
}

// List godoc
// @Summary      List transactions
// @Description  Paginated transaction list, newest first by default. from and to are dates (YYYY-MM-DD); to is inclusive.
// @Tags         transactions
// @Produce      json
// @Param        search query string false "Matches id, notes, supplier, PO number and line SKU or name"
// @Param        type query string false "Transaction type" Enums(inbound, outbound)
// @Param        from query string false "First day" format(date)
// @Param        to query string false "Last day" format(date)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]appstock.TransactionResponse}
// @Security     BearerAuth
// @Router       /transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	var filter appstock.TransactionListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	txs, total, err := h.txService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, txs, total, filter.Page, filter.PageSize)
}

// Create godoc
// @Summary      Record a transaction
// @Description  Converts every line to base units and applies the stock movement atomically. Outbound lines may not take stock below zero.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Replays the stored response of a retried request"
// @Param        request body appstock.TransactionInput true "Transaction"
// @Success      201 {object} dto.Response{data=appstock.TransactionResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response "Insufficient stock"
// @Security     BearerAuth
// @Router       /transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	var input appstock.TransactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BindError(c, err)
		return
	}

	tx, err := h.txService.Create(c.Request.Context(), actor(c), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, tx)
}

// GetByID returns one transaction with its lines
func (h *TransactionHandler) GetByID(c *gin.Context) {
	tx, err := h.txService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tx)
}

// Update godoc
// @Summary      Replace a transaction
// @Description  Reverses the stored movement and applies the new one in the same database transaction.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        id path string true "Transaction ID"
// @Param        request body appstock.TransactionInput true "Transaction"
// @Success      200 {object} dto.Response{data=appstock.TransactionResponse}
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /transactions/{id} [put]
func (h *TransactionHandler) Update(c *gin.Context) {
	var input appstock.TransactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BindError(c, err)
		return
	}

	tx, err := h.txService.Update(c.Request.Context(), c.Param("id"), actor(c), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tx)
}

// Delete reverses the movement of a transaction and removes it
func (h *TransactionHandler) Delete(c *gin.Context) {
	if err := h.txService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// CreateDocumentUploadURL returns a presigned URL for a delivery document
func (h *TransactionHandler) CreateDocumentUploadURL(c *gin.Context) {
	var req appstock.DocumentUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.txService.CreateDocumentUploadURL(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}
