package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// RoutingRepository 工艺路线仓库
type RoutingRepository struct {
	db *gorm.DB
}

func NewRoutingRepository(db *gorm.DB) *RoutingRepository {
	return &RoutingRepository{db: db}
}

// NextVersion 取租户+产品下一个版本号
func (r *RoutingRepository) NextVersion(ctx context.Context, tx *gorm.DB, tenantID, itemID string) (int, error) {
	if tx == nil {
		tx = r.db
	}
	var maxVersion int
	err := tx.WithContext(ctx).
		Model(&entity.Routing{}).
		Select("COALESCE(MAX(version), 0)").
		Where("tenant_id = ? AND item_id = ?", tenantID, itemID).
		Scan(&maxVersion).Error
	if err != nil {
		return 0, err
	}
	return maxVersion + 1, nil
}

// Create 创建工艺路线（含工序）
func (r *RoutingRepository) Create(ctx context.Context, routing *entity.Routing) error {
	return r.db.WithContext(ctx).Create(routing).Error
}

// FindByID 根据ID查找工艺路线（含工序，按工序号排序）
func (r *RoutingRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.Routing, error) {
	var routing entity.Routing
	err := r.db.WithContext(ctx).
		Preload("Operations", func(db *gorm.DB) *gorm.DB {
			return db.Order("operation_no ASC")
		}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&routing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &routing, nil
}

// ListVersions 获取产品的工艺路线版本列表
func (r *RoutingRepository) ListVersions(ctx context.Context, tenantID, itemID string) ([]entity.Routing, error) {
	var routings []entity.Routing
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND item_id = ?", tenantID, itemID).
		Order("version DESC").
		Find(&routings).Error
	return routings, err
}

// RoutingListParams 工艺路线列表查询参数
type RoutingListParams struct {
	ItemID string
	Status string
	Page   int
	Size   int
}

// FindAll 查询工艺路线列表
func (r *RoutingRepository) FindAll(ctx context.Context, tenantID string, params RoutingListParams) ([]entity.Routing, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Routing{}).
		Where("tenant_id = ?", tenantID)

	if params.ItemID != "" {
		query = query.Where("item_id = ?", params.ItemID)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
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

	var routings []entity.Routing
	err := query.Order("item_id ASC, version DESC").
		Offset((params.Page - 1) * params.Size).
		Limit(params.Size).
		Find(&routings).Error
	return routings, total, err
}

// Update 更新工艺路线
func (r *RoutingRepository) Update(ctx context.Context, routing *entity.Routing) error {
	return r.db.WithContext(ctx).Save(routing).Error
}

// Delete 删除工艺路线及其工序（仅草稿，状态由服务层把关）
func (r *RoutingRepository) Delete(ctx context.Context, tenantID, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("routing_id = ?", id).Delete(&entity.RoutingOperation{}).Error; err != nil {
			return err
		}
		return tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&entity.Routing{}).Error
	})
}

// FindOperation 获取工序
func (r *RoutingRepository) FindOperation(ctx context.Context, opID string) (*entity.RoutingOperation, error) {
	var op entity.RoutingOperation
	err := r.db.WithContext(ctx).Where("id = ?", opID).First(&op).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &op, nil
}

// ListOperations 获取工艺路线的所有工序
func (r *RoutingRepository) ListOperations(ctx context.Context, routingID string) ([]entity.RoutingOperation, error) {
	var ops []entity.RoutingOperation
	err := r.db.WithContext(ctx).
		Where("routing_id = ?", routingID).
		Order("operation_no ASC").
		Find(&ops).Error
	return ops, err
}

// NextOperationNo 取下一个工序号（当前最大值+10）
func (r *RoutingRepository) NextOperationNo(ctx context.Context, routingID string) (int, error) {
	var maxNo int
	err := r.db.WithContext(ctx).
		Model(&entity.RoutingOperation{}).
		Select("COALESCE(MAX(operation_no), 0)").
		Where("routing_id = ?", routingID).
		Scan(&maxNo).Error
	if err != nil {
		return 0, err
	}
	return maxNo + 10, nil
}

// CreateOperation 创建工序
func (r *RoutingRepository) CreateOperation(ctx context.Context, op *entity.RoutingOperation) error {
	return r.db.WithContext(ctx).Create(op).Error
}

// UpdateOperation 更新工序
func (r *RoutingRepository) UpdateOperation(ctx context.Context, op *entity.RoutingOperation) error {
	return r.db.WithContext(ctx).Save(op).Error
}

// DeleteOperation 删除工序
func (r *RoutingRepository) DeleteOperation(ctx context.Context, opID string) error {
	return r.db.WithContext(ctx).Where("id = ?", opID).Delete(&entity.RoutingOperation{}).Error
}

// DB 返回底层db用于事务
func (r *RoutingRepository) DB() *gorm.DB {
	return r.db
}
