package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

type BOMHandler struct {
	svc *service.BOMService
}

func NewBOMHandler(svc *service.BOMService) *BOMHandler {
	return &BOMHandler{svc: svc}
}

// Create POST /boms
func (h *BOMHandler) Create(c *gin.Context) {
	var req service.CreateBOMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	bom, err := h.svc.Create(c.Request.Context(), GetTenantID(c), GetUserID(c), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, bom)
}

// Get GET /boms/:id
func (h *BOMHandler) Get(c *gin.Context) {
	bom, err := h.svc.Get(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, bom)
}

// List GET /boms
func (h *BOMHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.BOMListParams{
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

// ListVersions GET /boms/versions?item_id=xxx
func (h *BOMHandler) ListVersions(c *gin.Context) {
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

// Update PUT /boms/:id
func (h *BOMHandler) Update(c *gin.Context) {
	var req service.UpdateBOMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	bom, err := h.svc.Update(c.Request.Context(), GetTenantID(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, bom)
}

// Submit POST /boms/:id/submit
func (h *BOMHandler) Submit(c *gin.Context) {
	bom, err := h.svc.Submit(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, bom)
}

// Approve POST /boms/:id/approve
func (h *BOMHandler) Approve(c *gin.Context) {
	bom, err := h.svc.Approve(c.Request.Context(), GetTenantID(c), c.Param("id"), GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, bom)
}

// Obsolete POST /boms/:id/obsolete
func (h *BOMHandler) Obsolete(c *gin.Context) {
	bom, err := h.svc.Obsolete(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, bom)
}

// Delete DELETE /boms/:id
func (h *BOMHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), GetTenantID(c), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}

// NewVersion POST /boms/:id/new-version
func (h *BOMHandler) NewVersion(c *gin.Context) {
	bom, err := h.svc.CreateNewVersion(c.Request.Context(), GetTenantID(c), c.Param("id"), GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, bom)
}

// Compare GET /boms/:id/compare/:otherId
func (h *BOMHandler) Compare(c *gin.Context) {
	result, err := h.svc.Compare(c.Request.Context(), GetTenantID(c), c.Param("id"), c.Param("otherId"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, result)
}

// AddLine POST /boms/:id/lines
func (h *BOMHandler) AddLine(c *gin.Context) {
	var in service.CreateBOMLineInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	line, err := h.svc.AddLine(c.Request.Context(), GetTenantID(c), c.Param("id"), &in)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, line)
}

// UpdateLine PUT /boms/:id/lines/:lineId
func (h *BOMHandler) UpdateLine(c *gin.Context) {
	var req service.UpdateBOMLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	line, err := h.svc.UpdateLine(c.Request.Context(), GetTenantID(c), c.Param("id"), c.Param("lineId"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, line)
}

// DeleteLine DELETE /boms/:id/lines/:lineId
func (h *BOMHandler) DeleteLine(c *gin.Context) {
	if err := h.svc.DeleteLine(c.Request.Context(), GetTenantID(c), c.Param("id"), c.Param("lineId")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}
