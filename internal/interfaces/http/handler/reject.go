package handler

import (
	"github.com/gin-gonic/gin"

	appreject "github.com/wms/backend/internal/application/reject"
)

// RejectHandler handles reject master data and reject logs
type RejectHandler struct {
	BaseHandler
	rejectService *appreject.RejectService
}

// NewRejectHandler creates a new RejectHandler
func NewRejectHandler(rejectService *appreject.RejectService) *RejectHandler {
	return &RejectHandler{rejectService: rejectService}
}

// RegisterRoutes registers reject item and reject log routes
func (h *RejectHandler) RegisterRoutes(rg *gin.RouterGroup) {
	items := rg.Group("/reject-items")
	items.GET("", h.ListItems)
	items.POST("", h.CreateItem)
	items.GET("/:id", h.GetItem)
	items.PUT("/:id", h.UpdateItem)
	items.DELETE("/:id", h.DeleteItem)

	logs := rg.Group("/reject-logs")
	logs.GET("", h.ListLogs)
	logs.POST("", h.CreateLog)
	logs.GET("/:id", h.GetLog)
	logs.PUT("/:id", h.UpdateLog)
	logs.DELETE("/:id", h.DeleteLog)
}

func (h *RejectHandler) ListItems(c *gin.Context) {
	var filter appreject.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	items, total, err := h.rejectService.ListItems(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

func (h *RejectHandler) CreateItem(c *gin.Context) {
	var req appreject.RejectItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	item, err := h.rejectService.CreateItem(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

func (h *RejectHandler) GetItem(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	item, err := h.rejectService.GetItem(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

func (h *RejectHandler) UpdateItem(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req appreject.RejectItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	item, err := h.rejectService.UpdateItem(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

func (h *RejectHandler) DeleteItem(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.rejectService.DeleteItem(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListLogs lists reject logs, newest first
func (h *RejectHandler) ListLogs(c *gin.Context) {
	var filter appreject.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	logs, total, err := h.rejectService.ListLogs(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, logs, total, filter.Page, filter.PageSize)
}

// CreateLog records rejected goods. Lines snapshot the reject item so
// later master data edits do not rewrite history.
func (h *RejectHandler) CreateLog(c *gin.Context) {
	var input appreject.RejectLogInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BindError(c, err)
		return
	}
	log, err := h.rejectService.CreateLog(c.Request.Context(), actor(c), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, log)
}

func (h *RejectHandler) GetLog(c *gin.Context) {
	log, err := h.rejectService.GetLog(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, log)
}

func (h *RejectHandler) UpdateLog(c *gin.Context) {
	var input appreject.RejectLogInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BindError(c, err)
		return
	}
	log, err := h.rejectService.UpdateLog(c.Request.Context(), c.Param("id"), actor(c), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, log)
}

func (h *RejectHandler) DeleteLog(c *gin.Context) {
	if err := h.rejectService.DeleteLog(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
