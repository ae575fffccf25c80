package entity

import (
	"time"

	"gorm.io/gorm"
)

// 库存移动原因
const (
	ReasonWOConsume = "WO_CONSUME" // 工单领料
	ReasonWOProduce = "WO_PRODUCE" // 工单入库（产出/退料）
	ReasonIBTIn     = "IBT_IN"     // 调拨入库
	ReasonIBTOut    = "IBT_OUT"    // 调拨出库
	ReasonReturn    = "RETURN"     // 退货
	ReasonScrap     = "SCRAP"      // 报废
	ReasonTransfer  = "TRANSFER"   // 移库
)

// StockBalance 现存量（按物料+库位+批次）
type StockBalance struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	TenantID    string     `json:"tenant_id" gorm:"size:32;not null;uniqueIndex:idx_balance_key"`
	ItemID      string     `json:"item_id" gorm:"size:32;not null;uniqueIndex:idx_balance_key"`
	BinID       string     `json:"bin_id" gorm:"size:32;not null;uniqueIndex:idx_balance_key"`
	BatchNo     string     `json:"batch_no" gorm:"size:50;uniqueIndex:idx_balance_key"`
	Qty         float64    `json:"qty" gorm:"type:decimal(12,4);not null;default:0"`
	LastMovedAt *time.Time `json:"last_moved_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (StockBalance) TableName() string {
	return "stock_balances"
}

// StockMovement 库存流水（只追加）
type StockMovement struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	TenantID  string    `json:"tenant_id" gorm:"size:32;not null;index"`
	SiteID    string    `json:"site_id" gorm:"size:32"`
	ItemID    string    `json:"item_id" gorm:"size:32;not null;index"`
	FromBinID *string   `json:"from_bin_id" gorm:"size:32"`
	ToBinID   *string   `json:"to_bin_id" gorm:"size:32"`
	Qty       float64   `json:"qty" gorm:"type:decimal(12,4);not null"`
	Reason    string    `json:"reason" gorm:"size:20;not null"`
	RefType   string    `json:"ref_type" gorm:"size:20;not null"` // WO, IBT, SO...
	RefID     string    `json:"ref_id" gorm:"size:64;not null;index"`
	BatchNo   string    `json:"batch_no" gorm:"size:50"`
	CreatedBy string    `json:"created_by" gorm:"size:32;not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (StockMovement) TableName() string {
	return "stock_movements"
}

// AutoMigrate 自动迁移库存表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Warehouse{},
		&Bin{},
		&StockBalance{},
		&StockMovement{},
	)
}
