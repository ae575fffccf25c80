package repository

import (
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
)

// Repositories MES 仓库集合
type Repositories struct {
	Workstation *WorkstationRepository
	BOM         *BOMRepository
	Routing     *RoutingRepository
	WorkOrder   *WorkOrderRepository
	Ledger      *LedgerRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Workstation: NewWorkstationRepository(db),
		BOM:         NewBOMRepository(db),
		Routing:     NewRoutingRepository(db),
		WorkOrder:   NewWorkOrderRepository(db),
		Ledger:      NewLedgerRepository(db),
	}
}
