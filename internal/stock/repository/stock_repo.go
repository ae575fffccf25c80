package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mes/internal/stock/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockRepository 现存量与库存流水仓库
type StockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) *StockRepository {
	return &StockRepository{db: db}
}

// LockBalance 在事务内以 FOR UPDATE 锁定现存量行，不存在返回 ErrNotFound
func (r *StockRepository) LockBalance(ctx context.Context, tx *gorm.DB, tenantID, itemID, binID, batchNo string) (*entity.StockBalance, error) {
	var bal entity.StockBalance
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND item_id = ? AND bin_id = ? AND batch_no = ?", tenantID, itemID, binID, batchNo).
		First(&bal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &bal, nil
}

// GetBalance 查询现存量
func (r *StockRepository) GetBalance(ctx context.Context, tenantID, itemID, binID, batchNo string) (*entity.StockBalance, error) {
	var bal entity.StockBalance
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND item_id = ? AND bin_id = ? AND batch_no = ?", tenantID, itemID, binID, batchNo).
		First(&bal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &bal, nil
}

// GetOnHand 查询物料在库位的总现存量（跨批次）
func (r *StockRepository) GetOnHand(ctx context.Context, tenantID, itemID, binID string) (float64, error) {
	var result struct{ Total float64 }
	err := r.db.WithContext(ctx).
		Model(&entity.StockBalance{}).
		Select("COALESCE(SUM(qty), 0) AS total").
		Where("tenant_id = ? AND item_id = ? AND bin_id = ?", tenantID, itemID, binID).
		Scan(&result).Error
	return result.Total, err
}

// ListMovements 查询参照单据的库存流水
func (r *StockRepository) ListMovements(ctx context.Context, tenantID, refType, refID string) ([]entity.StockMovement, error) {
	var moves []entity.StockMovement
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND ref_type = ? AND ref_id = ?", tenantID, refType, refID).
		Order("created_at ASC").
		Find(&moves).Error
	return moves, err
}

// DB 返回底层db用于事务
func (r *StockRepository) DB() *gorm.DB {
	return r.db
}
