package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

type RoutingHandler struct {
	svc *service.RoutingService
}

func NewRoutingHandler(svc *service.RoutingService) *RoutingHandler {
	return &RoutingHandler{svc: svc}
}

// Create POST /routings
func (h *RoutingHandler) Create(c *gin.Context) {
	var req service.CreateRoutingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	routing, err := h.svc.Create(c.Request.Context(), GetTenantID(c), GetUserID(c), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, routing)
}

// Get GET /routings/:id
func (h *RoutingHandler) Get(c *gin.Context) {
	routing, err := h.svc.Get(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, routing)
}

// List GET /routings
func (h *RoutingHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.RoutingListParams{
		ItemID: c.Query("item_id"),
		Status: c.Query("status"),
		Page:   page,
		Size:   pageSize,
	}

	items, total, err := h.svc.List(c.Request.Context(), GetTenantID(c), params)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": items, "total": total})
}

// ListVersions GET /routings/versions?item_id=xxx
func (h *RoutingHandler) ListVersions(c *gin.Context) {
	itemID := c.Query("item_id")
	if itemID == "" {
		BadRequest(c, "item_id is required")
		return
	}

	versions, err := h.svc.ListVersions(c.Request.Context(), GetTenantID(c), itemID)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": versions})
}

// Update PUT /routings/:id
func (h *RoutingHandler) Update(c *gin.Context) {
	var req service.UpdateRoutingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	routing, err := h.svc.Update(c.Request.Context(), GetTenantID(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, routing)
}

// Approve POST /routings/:id/approve
func (h *RoutingHandler) Approve(c *gin.Context) {
	routing, err := h.svc.Approve(c.Request.Context(), GetTenantID(c), c.Param("id"), GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, routing)
}

// Obsolete POST /routings/:id/obsolete
func (h *RoutingHandler) Obsolete(c *gin.Context) {
	routing, err := h.svc.Obsolete(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, routing)
}

// Delete DELETE /routings/:id
func (h *RoutingHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), GetTenantID(c), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}

// NewVersion POST /routings/:id/new-version
func (h *RoutingHandler) NewVersion(c *gin.Context) {
	routing, err := h.svc.CreateNewVersion(c.Request.Context(), GetTenantID(c), c.Param("id"), GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, routing)
}

// AddOperation POST /routings/:id/operations
func (h *RoutingHandler) AddOperation(c *gin.Context) {
	var in service.CreateRoutingOperationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	op, err := h.svc.AddOperation(c.Request.Context(), GetTenantID(c), c.Param("id"), &in)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, op)
}

// UpdateOperation PUT /routings/:id/operations/:opId
func (h *RoutingHandler) UpdateOperation(c *gin.Context) {
	var req service.UpdateRoutingOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	op, err := h.svc.UpdateOperation(c.Request.Context(), GetTenantID(c), c.Param("id"), c.Param("opId"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, op)
}

// DeleteOperation DELETE /routings/:id/operations/:opId
func (h *RoutingHandler) DeleteOperation(c *gin.Context) {
	if err := h.svc.DeleteOperation(c.Request.Context(), GetTenantID(c), c.Param("id"), c.Param("opId")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}
