package entity

import "time"

// 生产台账分录类型
const (
	LedgerMaterialIssue    = "MATERIAL_ISSUE"    // 领料，数量为负
	LedgerMaterialReturn   = "MATERIAL_RETURN"   // 退料，数量为正
	LedgerProductionOutput = "PRODUCTION_OUTPUT" // 产出，数量为正
	LedgerScrap            = "SCRAP"             // 报废，数量为负
)

// ProductionLedgerEntry 生产台账分录（只追加，不更新不删除）
type ProductionLedgerEntry struct {
	ID                   string    `json:"id" gorm:"primaryKey;size:32"`
	TenantID             string    `json:"tenant_id" gorm:"size:32;not null;index"`
	WorkOrderID          string    `json:"work_order_id" gorm:"size:32;not null;index"`
	WorkOrderOperationID *string   `json:"work_order_operation_id" gorm:"size:32"`
	EntryType            string    `json:"entry_type" gorm:"size:20;not null;index"`
	ItemID               string    `json:"item_id" gorm:"size:32;not null;index"`
	WarehouseID          string    `json:"warehouse_id" gorm:"size:32"`
	BinID                string    `json:"bin_id" gorm:"size:32"`
	BatchNo              string    `json:"batch_no" gorm:"size:50"`
	Qty                  float64   `json:"qty" gorm:"type:decimal(12,4);not null"` // 符号约定为聚合的唯一依据
	UOM                  string    `json:"uom" gorm:"size:20;not null;default:pcs"`
	WorkstationID        *string   `json:"workstation_id" gorm:"size:32"`
	OperatorID           string    `json:"operator_id" gorm:"size:32"`
	ReasonCode           string    `json:"reason_code" gorm:"size:32"`
	Notes                string    `json:"notes" gorm:"type:text"`
	CreatedBy            string    `json:"created_by" gorm:"size:32;not null"`
	CreatedAt            time.Time `json:"created_at" gorm:"index"`
}

func (ProductionLedgerEntry) TableName() string {
	return "mes_production_ledger"
}
