package handler

import (
	"net/http"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

type LedgerHandler struct {
	svc *service.LedgerService
}

func NewLedgerHandler(svc *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{svc: svc}
}

func parseDate(c *gin.Context, key string) *time.Time {
	v := c.Query(key)
	if v == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil
	}
	return &t
}

// List GET /production-ledger
func (h *LedgerHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.LedgerListParams{
		WorkOrderID: c.Query("work_order_id"),
		ItemID:      c.Query("item_id"),
		EntryType:   c.Query("entry_type"),
		DateFrom:    parseDate(c, "date_from"),
		DateTo:      parseDate(c, "date_to"),
		Page:        page,
		Size:        pageSize,
	}

	entries, total, err := h.svc.List(c.Request.Context(), GetTenantID(c), params)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": entries, "total": total})
}

// SummaryByWorkOrder GET /production-ledger/summary/work-orders
func (h *LedgerHandler) SummaryByWorkOrder(c *gin.Context) {
	rows, err := h.svc.SummaryByWorkOrder(c.Request.Context(), GetTenantID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": rows})
}

// SummaryByItem GET /production-ledger/summary/items
func (h *LedgerHandler) SummaryByItem(c *gin.Context) {
	rows, err := h.svc.SummaryByItem(c.Request.Context(), GetTenantID(c), parseDate(c, "date_from"), parseDate(c, "date_to"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": rows})
}

// Export GET /production-ledger/export
func (h *LedgerHandler) Export(c *gin.Context) {
	data, filename, err := h.svc.ExportWorkOrderSummary(c.Request.Context(), GetTenantID(c))
	if err != nil {
		HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
