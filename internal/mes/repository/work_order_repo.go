package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WorkOrderRepository 工单仓库
type WorkOrderRepository struct {
	db *gorm.DB
}

func NewWorkOrderRepository(db *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

// GenerateWorkOrderNo 生成工单号 WO-{year}-{4位}，按租户独立递增
func (r *WorkOrderRepository) GenerateWorkOrderNo(ctx context.Context, tx *gorm.DB, tenantID string) (string, error) {
	if tx == nil {
		tx = r.db
	}
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("WO-%s-", year)

	var maxNo string
	err := tx.WithContext(ctx).
		Model(&entity.WorkOrder{}).
		Select("COALESCE(MAX(work_order_no), '')").
		Where("tenant_id = ? AND work_order_no LIKE ?", tenantID, prefix+"%").
		Scan(&maxNo).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxNo != "" {
		fmt.Sscanf(maxNo, "WO-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("WO-%s-%04d", year, seq), nil
}

// Create 创建工单（头+物料+工序批量插入，单事务）
func (r *WorkOrderRepository) Create(ctx context.Context, wo *entity.WorkOrder) error {
	return r.db.WithContext(ctx).Create(wo).Error
}

// FindByID 根据ID查找工单（含物料与工序）
func (r *WorkOrderRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.WorkOrder, error) {
	var wo entity.WorkOrder
	err := r.db.WithContext(ctx).
		Preload("Operations", func(db *gorm.DB) *gorm.DB {
			return db.Order("operation_no ASC")
		}).
		Preload("Materials", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&wo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &wo, nil
}

// LockByID 在事务内以 FOR UPDATE 锁定工单行（不带关联）
func (r *WorkOrderRepository) LockByID(ctx context.Context, tx *gorm.DB, tenantID, id string) (*entity.WorkOrder, error) {
	var wo entity.WorkOrder
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&wo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &wo, nil
}

// LockMaterial 在事务内以 FOR UPDATE 锁定工单物料行
func (r *WorkOrderRepository) LockMaterial(ctx context.Context, tx *gorm.DB, workOrderID, materialID string) (*entity.WorkOrderMaterial, error) {
	var m entity.WorkOrderMaterial
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("work_order_id = ? AND id = ?", workOrderID, materialID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// LockOperation 在事务内以 FOR UPDATE 锁定工单工序行
func (r *WorkOrderRepository) LockOperation(ctx context.Context, tx *gorm.DB, workOrderID, opID string) (*entity.WorkOrderOperation, error) {
	var op entity.WorkOrderOperation
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("work_order_id = ? AND id = ?", workOrderID, opID).
		First(&op).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &op, nil
}

// ListOperations 获取工单的全部工序（按工序号排序）
func (r *WorkOrderRepository) ListOperations(ctx context.Context, tx *gorm.DB, workOrderID string) ([]entity.WorkOrderOperation, error) {
	if tx == nil {
		tx = r.db
	}
	var ops []entity.WorkOrderOperation
	err := tx.WithContext(ctx).
		Where("work_order_id = ?", workOrderID).
		Order("operation_no ASC").
		Find(&ops).Error
	return ops, err
}

// ListMaterials 获取工单的全部物料需求
func (r *WorkOrderRepository) ListMaterials(ctx context.Context, workOrderID string) ([]entity.WorkOrderMaterial, error) {
	var materials []entity.WorkOrderMaterial
	err := r.db.WithContext(ctx).
		Where("work_order_id = ?", workOrderID).
		Order("created_at ASC").
		Find(&materials).Error
	return materials, err
}

// WorkOrderListParams 工单列表查询参数
type WorkOrderListParams struct {
	Status  string
	ItemID  string
	Keyword string
	Page    int
	Size    int
}

// FindAll 查询工单列表
func (r *WorkOrderRepository) FindAll(ctx context.Context, tenantID string, params WorkOrderListParams) ([]entity.WorkOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.WorkOrder{}).
		Where("tenant_id = ?", tenantID)

	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.ItemID != "" {
		query = query.Where("item_id = ?", params.ItemID)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("work_order_no ILIKE ? OR notes ILIKE ?", kw, kw)
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

	var wos []entity.WorkOrder
	err := query.Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).
		Limit(params.Size).
		Find(&wos).Error
	return wos, total, err
}

// Update 更新工单
func (r *WorkOrderRepository) Update(ctx context.Context, wo *entity.WorkOrder) error {
	return r.db.WithContext(ctx).Save(wo).Error
}

// DB 返回底层db用于事务
func (r *WorkOrderRepository) DB() *gorm.DB {
	return r.db
}
