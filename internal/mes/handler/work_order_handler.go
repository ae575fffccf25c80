package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

type WorkOrderHandler struct {
	svc *service.WorkOrderService
}

func NewWorkOrderHandler(svc *service.WorkOrderService) *WorkOrderHandler {
	return &WorkOrderHandler{svc: svc}
}

// Create POST /work-orders
func (h *WorkOrderHandler) Create(c *gin.Context) {
	var req service.CreateWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	wo, err := h.svc.Create(c.Request.Context(), GetTenantID(c), GetUserID(c), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, wo)
}

// Get GET /work-orders/:id
func (h *WorkOrderHandler) Get(c *gin.Context) {
	wo, err := h.svc.Get(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, wo)
}

// List GET /work-orders
func (h *WorkOrderHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.WorkOrderListParams{
		Status:  c.Query("status"),
		ItemID:  c.Query("item_id"),
		Keyword: c.Query("keyword"),
		Page:    page,
		Size:    pageSize,
	}

	items, total, err := h.svc.List(c.Request.Context(), GetTenantID(c), params)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": items, "total": total})
}

// Release POST /work-orders/:id/release
func (h *WorkOrderHandler) Release(c *gin.Context) {
	wo, err := h.svc.Release(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, wo)
}

// Start POST /work-orders/:id/start
func (h *WorkOrderHandler) Start(c *gin.Context) {
	wo, err := h.svc.Start(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, wo)
}

// Complete POST /work-orders/:id/complete
func (h *WorkOrderHandler) Complete(c *gin.Context) {
	wo, err := h.svc.Complete(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, wo)
}

// Cancel POST /work-orders/:id/cancel
func (h *WorkOrderHandler) Cancel(c *gin.Context) {
	wo, err := h.svc.Cancel(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, wo)
}

// StartOperation POST /work-orders/:id/operations/:opId/start
func (h *WorkOrderHandler) StartOperation(c *gin.Context) {
	var req service.StartOperationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "Invalid request: "+err.Error())
			return
		}
	}

	op, err := h.svc.StartOperation(c.Request.Context(), GetTenantID(c), c.Param("id"), c.Param("opId"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, op)
}

// CompleteOperation POST /work-orders/:id/operations/:opId/complete
func (h *WorkOrderHandler) CompleteOperation(c *gin.Context) {
	var req service.CompleteOperationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "Invalid request: "+err.Error())
			return
		}
	}

	op, err := h.svc.CompleteOperation(c.Request.Context(), GetTenantID(c), c.Param("id"), c.Param("opId"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, op)
}

// IssueMaterial POST /work-orders/:id/materials/:materialId/issue
func (h *WorkOrderHandler) IssueMaterial(c *gin.Context) {
	var req service.MaterialEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	material, err := h.svc.IssueMaterial(c.Request.Context(), GetTenantID(c), GetUserID(c), c.Param("id"), c.Param("materialId"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, material)
}

// ReturnMaterial POST /work-orders/:id/materials/:materialId/return
func (h *WorkOrderHandler) ReturnMaterial(c *gin.Context) {
	var req service.MaterialEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	material, err := h.svc.ReturnMaterial(c.Request.Context(), GetTenantID(c), GetUserID(c), c.Param("id"), c.Param("materialId"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, material)
}

// RecordOutput POST /work-orders/:id/record-output
func (h *WorkOrderHandler) RecordOutput(c *gin.Context) {
	var req service.OutputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	wo, err := h.svc.RecordOutput(c.Request.Context(), GetTenantID(c), GetUserID(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, wo)
}

// RecordScrap POST /work-orders/:id/record-scrap
func (h *WorkOrderHandler) RecordScrap(c *gin.Context) {
	var req service.ScrapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	wo, err := h.svc.RecordScrap(c.Request.Context(), GetTenantID(c), GetUserID(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, wo)
}
