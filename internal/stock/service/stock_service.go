package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/stock/entity"
	"github.com/bitfantasy/nimo-mes/internal/stock/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrInsufficientStock 出库库位现存量不足
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidBin 库位不存在或已停用
	ErrInvalidBin = errors.New("invalid bin")
	// ErrInvalidQuantity 移动数量必须为正
	ErrInvalidQuantity = errors.New("movement quantity must be positive")
)

// StockService 库存账服务，持有料/位/批维度现存量的唯一事实
type StockService struct {
	stockRepo     *repository.StockRepository
	warehouseRepo *repository.WarehouseRepository
	db            *gorm.DB
}

func NewStockService(stockRepo *repository.StockRepository, warehouseRepo *repository.WarehouseRepository, db *gorm.DB) *StockService {
	return &StockService{stockRepo: stockRepo, warehouseRepo: warehouseRepo, db: db}
}

// MovementRequest 一次库存移动
type MovementRequest struct {
	TenantID  string
	SiteID    string
	ItemID    string
	FromBinID *string
	ToBinID   *string
	Qty       float64
	Reason    string
	RefType   string
	RefID     string
	BatchNo   string
	CreatedBy string
}

// RecordMovement 记录一次库存移动：扣减fromBin、增加toBin并追加一条不可变流水，单事务执行
func (s *StockService) RecordMovement(ctx context.Context, req MovementRequest) (*entity.StockMovement, error) {
	if req.Qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if req.FromBinID == nil && req.ToBinID == nil {
		return nil, fmt.Errorf("%w: movement needs a from bin or a to bin", ErrInvalidBin)
	}

	move := &entity.StockMovement{
		ID:        generateID(),
		TenantID:  req.TenantID,
		SiteID:    req.SiteID,
		ItemID:    req.ItemID,
		FromBinID: req.FromBinID,
		ToBinID:   req.ToBinID,
		Qty:       req.Qty,
		Reason:    req.Reason,
		RefType:   req.RefType,
		RefID:     req.RefID,
		BatchNo:   req.BatchNo,
		CreatedBy: req.CreatedBy,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		if req.FromBinID != nil {
			if _, err := s.warehouseRepo.FindBinByID(ctx, *req.FromBinID); err != nil {
				return fmt.Errorf("%w: from bin %s", ErrInvalidBin, *req.FromBinID)
			}
			bal, err := s.stockRepo.LockBalance(ctx, tx, req.TenantID, req.ItemID, *req.FromBinID, req.BatchNo)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("%w: item %s has no stock in bin %s", ErrInsufficientStock, req.ItemID, *req.FromBinID)
				}
				return err
			}
			if bal.Qty < req.Qty {
				return fmt.Errorf("%w: item %s in bin %s: need %.4f, on hand %.4f",
					ErrInsufficientStock, req.ItemID, *req.FromBinID, req.Qty, bal.Qty)
			}
			bal.Qty -= req.Qty
			bal.LastMovedAt = &now
			if err := tx.Save(bal).Error; err != nil {
				return fmt.Errorf("decrease balance: %w", err)
			}
		}

		if req.ToBinID != nil {
			if _, err := s.warehouseRepo.FindBinByID(ctx, *req.ToBinID); err != nil {
				return fmt.Errorf("%w: to bin %s", ErrInvalidBin, *req.ToBinID)
			}
			bal, err := s.stockRepo.LockBalance(ctx, tx, req.TenantID, req.ItemID, *req.ToBinID, req.BatchNo)
			if err != nil {
				if !errors.Is(err, repository.ErrNotFound) {
					return err
				}
				bal = &entity.StockBalance{
					ID:       generateID(),
					TenantID: req.TenantID,
					ItemID:   req.ItemID,
					BinID:    *req.ToBinID,
					BatchNo:  req.BatchNo,
				}
			}
			bal.Qty += req.Qty
			bal.LastMovedAt = &now
			if err := tx.Save(bal).Error; err != nil {
				return fmt.Errorf("increase balance: %w", err)
			}
		}

		if err := tx.Create(move).Error; err != nil {
			return fmt.Errorf("append movement: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return move, nil
}

// GetWarehouse 查询仓库主数据
func (s *StockService) GetWarehouse(ctx context.Context, id string) (*entity.Warehouse, error) {
	return s.warehouseRepo.FindByID(ctx, id)
}

// GetBin 查询库位主数据
func (s *StockService) GetBin(ctx context.Context, id string) (*entity.Bin, error) {
	return s.warehouseRepo.FindBinByID(ctx, id)
}

// GetOnHand 查询物料在库位的现存量（跨批次合计）
func (s *StockService) GetOnHand(ctx context.Context, tenantID, itemID, binID string) (float64, error) {
	return s.stockRepo.GetOnHand(ctx, tenantID, itemID, binID)
}

func generateID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:32]
}
