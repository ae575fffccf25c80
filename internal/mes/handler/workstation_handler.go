package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

type WorkstationHandler struct {
	svc *service.WorkstationService
}

func NewWorkstationHandler(svc *service.WorkstationService) *WorkstationHandler {
	return &WorkstationHandler{svc: svc}
}

// Create POST /workstations
func (h *WorkstationHandler) Create(c *gin.Context) {
	var req service.CreateWorkstationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	ws, err := h.svc.Create(c.Request.Context(), GetTenantID(c), GetUserID(c), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, ws)
}

// Get GET /workstations/:id
func (h *WorkstationHandler) Get(c *gin.Context) {
	ws, err := h.svc.Get(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, ws)
}

// List GET /workstations
func (h *WorkstationHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.WorkstationListParams{
		Status:  c.Query("status"),
		Type:    c.Query("type"),
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

// Update PUT /workstations/:id
func (h *WorkstationHandler) Update(c *gin.Context) {
	var req service.UpdateWorkstationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	ws, err := h.svc.Update(c.Request.Context(), GetTenantID(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, ws)
}

// Delete DELETE /workstations/:id
func (h *WorkstationHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), GetTenantID(c), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}
