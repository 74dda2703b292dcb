package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appinventory "github.com/wms/backend/internal/application/inventory"
	"github.com/wms/backend/internal/infrastructure/logger"
	"github.com/wms/backend/internal/interfaces/http/dto"
)

// ItemHandler handles inventory item endpoints
type ItemHandler struct {
	BaseHandler
	itemService   *appinventory.ItemService
	maxUploadSize int64
}

// NewItemHandler creates a new ItemHandler. maxUploadSize bounds the CSV
// import file; zero means 10 MiB.
func NewItemHandler(itemService *appinventory.ItemService, maxUploadSize int64) *ItemHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = 10 << 20
	}
	return &ItemHandler{itemService: itemService, maxUploadSize: maxUploadSize}
}

// RegisterRoutes registers all item routes
func (h *ItemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	items := rg.Group("/items")
	items.GET("", h.List)
	items.POST("", h.Create)
	items.PUT("", h.Upsert)
	items.GET("/stats", h.Stats)
	items.POST("/import", h.Import)
	items.GET("/import/template", h.ImportTemplate)
	items.GET("/sku/:sku", h.GetBySKU)
	items.GET("/:id", h.GetByID)
	items.PUT("/:id", h.Update)
	items.DELETE("/:id", h.Delete)
	items.PUT("/:id/stock", h.SetStock)
	items.POST("/:id/activate", h.Activate)
	items.POST("/:id/deactivate", h.Deactivate)

	rg.POST("/conversions/resolve", h.ResolveConversion)
}

// List godoc
// @Summary      List inventory items
// @Description  Paginated item list. search matches SKU, name, category and location.
// @Tags         items
// @Produce      json
// @Param        search query string false "Search term"
// @Param        category query string false "Exact category"
// @Param        active query boolean false "Filter by active flag"
// @Param        low_stock query boolean false "Only items at or below min level"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(500)
// @Param        order_by query string false "Order by field" default(sku)
// @Param        order_dir query string false "Order direction" Enums(asc, desc) default(asc)
// @Success      200 {object} dto.Response{data=[]appinventory.ItemResponse}
// @Security     BearerAuth
// @Router       /items [get]
func (h *ItemHandler) List(c *gin.Context) {
	var filter appinventory.ItemListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	items, total, err := h.itemService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// Create godoc
// @Summary      Create inventory item
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        request body appinventory.ItemRequest true "Item"
// @Success      201 {object} dto.Response{data=appinventory.ItemResponse}
// @Failure      400 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Security     BearerAuth
// @Router       /items [post]
func (h *ItemHandler) Create(c *gin.Context) {
	var req appinventory.ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	item, err := h.itemService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// Upsert creates the item, or updates the one with the same SKU.
// It answers 201 when a new item was created.
func (h *ItemHandler) Upsert(c *gin.Context) {
	var req appinventory.ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	item, created, err := h.itemService.Upsert(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if created {
		h.Created(c, item)
		return
	}
	h.Success(c, item)
}

// GetByID godoc
// @Summary      Get inventory item by ID
// @Tags         items
// @Produce      json
// @Param        id path string true "Item ID" format(uuid)
// @Success      200 {object} dto.Response{data=appinventory.ItemResponse}
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /items/{id} [get]
func (h *ItemHandler) GetByID(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	item, err := h.itemService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// GetBySKU looks an item up by its SKU
func (h *ItemHandler) GetBySKU(c *gin.Context) {
	item, err := h.itemService.GetBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// Update replaces the master data of an item. Stock is left unchanged.
func (h *ItemHandler) Update(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req appinventory.ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	item, err := h.itemService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// Delete removes an item
func (h *ItemHandler) Delete(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.itemService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// SetStock godoc
// @Summary      Correct item stock
// @Description  Overwrites the stock of an item, e.g. after a stocktake. The change is logged with the operator.
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        id path string true "Item ID" format(uuid)
// @Param        request body appinventory.SetStockRequest true "New stock"
// @Success      200 {object} dto.Response{data=appinventory.ItemResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /items/{id}/stock [put]
func (h *ItemHandler) SetStock(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req appinventory.SetStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	item, err := h.itemService.SetStock(c.Request.Context(), id, actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// Activate marks an item active
func (h *ItemHandler) Activate(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	item, err := h.itemService.Activate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// Deactivate marks an item inactive
func (h *ItemHandler) Deactivate(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	item, err := h.itemService.Deactivate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// Stats returns the inventory snapshot
func (h *ItemHandler) Stats(c *gin.Context) {
	stats, err := h.itemService.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// ResolveConversion godoc
// @Summary      Resolve a quantity to base units
// @Description  Converts a quantity typed in any unit of the item into its base unit
// @Tags         conversions
// @Accept       json
// @Produce      json
// @Param        request body appinventory.ResolveConversionRequest true "Quantity and unit"
// @Success      200 {object} dto.Response{data=appinventory.ConversionResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /conversions/resolve [post]
func (h *ItemHandler) ResolveConversion(c *gin.Context) {
	var req appinventory.ResolveConversionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	res, err := h.itemService.ResolveConversion(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Import godoc
// @Summary      Bulk import items from CSV
// @Description  Upserts every valid row by SKU. Invalid rows are reported with their line number.
// @Tags         items
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "CSV file"
// @Success      200 {object} dto.Response{data=appinventory.ImportResult}
// @Failure      400 {object} dto.Response
// @Failure      413 {object} dto.Response
// @Security     BearerAuth
// @Router       /items/import [post]
func (h *ItemHandler) Import(c *gin.Context) {
	if c.Request.ContentLength > h.maxUploadSize {
		h.ErrorWithCode(c, dto.ErrCodeRequestTooLarge, "Import file exceeds maximum allowed size")
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.ErrorWithCode(c, dto.ErrCodeRequestTooLarge, "Import file exceeds maximum allowed size")
			return
		}
		h.BadRequest(c, "A CSV file is required in the 'file' field")
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".csv") {
		h.BadRequest(c, "Only .csv files can be imported")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.BadRequest(c, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	result, err := h.itemService.ImportCSV(c.Request.Context(), file)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	logger.L(c.Request.Context()).Info("Item import finished",
		zap.String("file", fileHeader.Filename),
		zap.Int("rows", result.TotalRows),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("error_rows", result.ErrorRows),
	)
	h.Success(c, result)
}

// ImportTemplate serves a header-only CSV
func (h *ItemHandler) ImportTemplate(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="items_import_template.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(appinventory.ImportTemplate()))
}
