package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mes/internal/stock/entity"
	"gorm.io/gorm"
)

// WarehouseRepository 仓库/库位主数据
type WarehouseRepository struct {
	db *gorm.DB
}

func NewWarehouseRepository(db *gorm.DB) *WarehouseRepository {
	return &WarehouseRepository{db: db}
}

// Create 创建仓库
func (r *WarehouseRepository) Create(ctx context.Context, w *entity.Warehouse) error {
	return r.db.WithContext(ctx).Create(w).Error
}

// FindByID 根据ID查找仓库
func (r *WarehouseRepository) FindByID(ctx context.Context, id string) (*entity.Warehouse, error) {
	var w entity.Warehouse
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

// CreateBin 创建库位
func (r *WarehouseRepository) CreateBin(ctx context.Context, b *entity.Bin) error {
	return r.db.WithContext(ctx).Create(b).Error
}

// FindBinByID 根据ID查找库位
func (r *WarehouseRepository) FindBinByID(ctx context.Context, id string) (*entity.Bin, error) {
	var b entity.Bin
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// ListBins 获取仓库的库位列表
func (r *WarehouseRepository) ListBins(ctx context.Context, warehouseID string) ([]entity.Bin, error) {
	var bins []entity.Bin
	err := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND deleted_at IS NULL", warehouseID).
		Order("code ASC").
		Find(&bins).Error
	return bins, err
}
