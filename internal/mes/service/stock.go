package service

import (
	"context"

	stockentity "github.com/bitfantasy/nimo-mes/internal/stock/entity"
	stocksvc "github.com/bitfantasy/nimo-mes/internal/stock/service"
)

// StockLedger 库存账接口：现存量的唯一事实，每次实物移动都必须同步记录。
// 生产台账只做生产历史与报表，绝不充当库存数量来源。
type StockLedger interface {
	RecordMovement(ctx context.Context, req stocksvc.MovementRequest) (*stockentity.StockMovement, error)
}

// MasterData 仓库/库位主数据接口，移动前校验库位归属
type MasterData interface {
	GetWarehouse(ctx context.Context, id string) (*stockentity.Warehouse, error)
	GetBin(ctx context.Context, id string) (*stockentity.Bin, error)
}
