package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 库存仓库集合
type Repositories struct {
	Warehouse *WarehouseRepository
	Stock     *StockRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Warehouse: NewWarehouseRepository(db),
		Stock:     NewStockRepository(db),
	}
}
