package entity

import "time"

// 仓库状态
const (
	WarehouseStatusActive   = "ACTIVE"
	WarehouseStatusInactive = "INACTIVE"
)

// Warehouse 仓库
type Warehouse struct {
	ID        string     `json:"id" gorm:"primaryKey;size:32"`
	TenantID  string     `json:"tenant_id" gorm:"size:32;not null;uniqueIndex:idx_warehouse_tenant_code"`
	SiteID    string     `json:"site_id" gorm:"size:32"`
	Code      string     `json:"code" gorm:"size:50;not null;uniqueIndex:idx_warehouse_tenant_code"`
	Name      string     `json:"name" gorm:"size:128;not null"`
	Address   string     `json:"address" gorm:"size:500"`
	Status    string     `json:"status" gorm:"size:20;not null;default:ACTIVE"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at" gorm:"index"`

	Bins []Bin `json:"bins,omitempty" gorm:"foreignKey:WarehouseID"`
}

func (Warehouse) TableName() string {
	return "stock_warehouses"
}

// Bin 库位
type Bin struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	WarehouseID string     `json:"warehouse_id" gorm:"size:32;not null;index"`
	Code        string     `json:"code" gorm:"size:50;not null"`
	Name        string     `json:"name" gorm:"size:128"`
	BinType     string     `json:"bin_type" gorm:"size:20"` // RAW, WIP, FG
	Status      string     `json:"status" gorm:"size:20;not null;default:ACTIVE"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at" gorm:"index"`

	Warehouse *Warehouse `json:"warehouse,omitempty" gorm:"foreignKey:WarehouseID"`
}

func (Bin) TableName() string {
	return "stock_bins"
}
