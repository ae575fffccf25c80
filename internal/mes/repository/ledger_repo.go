package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// LedgerRepository 生产台账仓库（只追加）
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Create 追加一条台账分录
func (r *LedgerRepository) Create(ctx context.Context, tx *gorm.DB, e *entity.ProductionLedgerEntry) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(e).Error
}

// LedgerListParams 台账查询参数
type LedgerListParams struct {
	WorkOrderID string
	ItemID      string
	EntryType   string
	DateFrom    *time.Time
	DateTo      *time.Time
	Page        int
	Size        int
}

// FindAll 查询台账分录
func (r *LedgerRepository) FindAll(ctx context.Context, tenantID string, params LedgerListParams) ([]entity.ProductionLedgerEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.ProductionLedgerEntry{}).
		Where("tenant_id = ?", tenantID)

	if params.WorkOrderID != "" {
		query = query.Where("work_order_id = ?", params.WorkOrderID)
	}
	if params.ItemID != "" {
		query = query.Where("item_id = ?", params.ItemID)
	}
	if params.EntryType != "" {
		query = query.Where("entry_type = ?", params.EntryType)
	}
	if params.DateFrom != nil {
		query = query.Where("created_at >= ?", *params.DateFrom)
	}
	if params.DateTo != nil {
		query = query.Where("created_at <= ?", *params.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}

	var entries []entity.ProductionLedgerEntry
	err := query.Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).
		Limit(params.Size).
		Find(&entries).Error
	return entries, total, err
}

// WorkOrderSummary 工单维度汇总
type WorkOrderSummary struct {
	WorkOrderID  string  `json:"work_order_id"`
	WorkOrderNo  string  `json:"work_order_no"`
	ItemID       string  `json:"item_id"`
	Status       string  `json:"status"`
	QtyOrdered   float64 `json:"qty_ordered"`
	TotalIssued  float64 `json:"total_issued"`
	TotalOutput  float64 `json:"total_output"`
	TotalScrap   float64 `json:"total_scrap"`
}

// SummaryByWorkOrder 按工单汇总进行中/已完工工单的领用、产出、报废
func (r *LedgerRepository) SummaryByWorkOrder(ctx context.Context, tenantID string) ([]WorkOrderSummary, error) {
	var rows []WorkOrderSummary
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			wo.id AS work_order_id,
			wo.work_order_no,
			wo.item_id,
			wo.status,
			wo.qty_ordered,
			COALESCE(SUM(CASE WHEN l.entry_type = 'MATERIAL_ISSUE' THEN ABS(l.qty) ELSE 0 END), 0) AS total_issued,
			COALESCE(SUM(CASE WHEN l.entry_type = 'PRODUCTION_OUTPUT' THEN l.qty ELSE 0 END), 0) AS total_output,
			COALESCE(SUM(CASE WHEN l.entry_type = 'SCRAP' THEN ABS(l.qty) ELSE 0 END), 0) AS total_scrap
		FROM mes_work_orders wo
		LEFT JOIN mes_production_ledger l ON l.work_order_id = wo.id
		WHERE wo.tenant_id = ? AND wo.status IN ('IN_PROGRESS', 'COMPLETED')
		GROUP BY wo.id, wo.work_order_no, wo.item_id, wo.status, wo.qty_ordered
		ORDER BY wo.work_order_no
	`, tenantID).Scan(&rows).Error
	return rows, err
}

// ItemSummary 物料维度汇总
type ItemSummary struct {
	ItemID      string  `json:"item_id"`
	TotalIssued float64 `json:"total_issued"`
	TotalReturn float64 `json:"total_return"`
	TotalOutput float64 `json:"total_output"`
	TotalScrap  float64 `json:"total_scrap"`
}

// SummaryByItem 按物料汇总指定时间段内所有工单的数量
func (r *LedgerRepository) SummaryByItem(ctx context.Context, tenantID string, dateFrom, dateTo *time.Time) ([]ItemSummary, error) {
	query := r.db.WithContext(ctx).
		Model(&entity.ProductionLedgerEntry{}).
		Select(`
			item_id,
			COALESCE(SUM(CASE WHEN entry_type = 'MATERIAL_ISSUE' THEN ABS(qty) ELSE 0 END), 0) AS total_issued,
			COALESCE(SUM(CASE WHEN entry_type = 'MATERIAL_RETURN' THEN qty ELSE 0 END), 0) AS total_return,
			COALESCE(SUM(CASE WHEN entry_type = 'PRODUCTION_OUTPUT' THEN qty ELSE 0 END), 0) AS total_output,
			COALESCE(SUM(CASE WHEN entry_type = 'SCRAP' THEN ABS(qty) ELSE 0 END), 0) AS total_scrap
		`).
		Where("tenant_id = ?", tenantID)

	if dateFrom != nil {
		query = query.Where("created_at >= ?", *dateFrom)
	}
	if dateTo != nil {
		query = query.Where("created_at <= ?", *dateTo)
	}

	var rows []ItemSummary
	err := query.Group("item_id").Order("item_id").Scan(&rows).Error
	return rows, err
}
