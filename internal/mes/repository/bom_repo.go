package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// BOMRepository BOM仓库
type BOMRepository struct {
	db *gorm.DB
}

func NewBOMRepository(db *gorm.DB) *BOMRepository {
	return &BOMRepository{db: db}
}

// NextVersion 取租户+产品下一个版本号（在调用方事务内使用）
func (r *BOMRepository) NextVersion(ctx context.Context, tx *gorm.DB, tenantID, itemID string) (int, error) {
	if tx == nil {
		tx = r.db
	}
	var maxVersion int
	err := tx.WithContext(ctx).
		Model(&entity.BOMHeader{}).
		Select("COALESCE(MAX(version), 0)").
		Where("tenant_id = ? AND item_id = ?", tenantID, itemID).
		Scan(&maxVersion).Error
	if err != nil {
		return 0, err
	}
	return maxVersion + 1, nil
}

// Create 创建BOM头（含行项，单事务）
func (r *BOMRepository) Create(ctx context.Context, bom *entity.BOMHeader) error {
	return r.db.WithContext(ctx).Create(bom).Error
}

// FindByID 根据ID查找BOM（含行项，按行号排序）
func (r *BOMRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.BOMHeader, error) {
	var bom entity.BOMHeader
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("line_no ASC")
		}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&bom).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &bom, nil
}

// ListVersions 获取产品的BOM版本列表
func (r *BOMRepository) ListVersions(ctx context.Context, tenantID, itemID string) ([]entity.BOMHeader, error) {
	var boms []entity.BOMHeader
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND item_id = ?", tenantID, itemID).
		Order("version DESC").
		Find(&boms).Error
	return boms, err
}

// BOMListParams BOM列表查询参数
type BOMListParams struct {
	ItemID string
	Status string
	Page   int
	Size   int
}

// FindAll 查询BOM列表
func (r *BOMRepository) FindAll(ctx context.Context, tenantID string, params BOMListParams) ([]entity.BOMHeader, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.BOMHeader{}).
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

	var boms []entity.BOMHeader
	err := query.Order("item_id ASC, version DESC").
		Offset((params.Page - 1) * params.Size).
		Limit(params.Size).
		Find(&boms).Error
	return boms, total, err
}

// Update 更新BOM头
func (r *BOMRepository) Update(ctx context.Context, bom *entity.BOMHeader) error {
	return r.db.WithContext(ctx).Save(bom).Error
}

// Delete 删除BOM头及其行项（仅草稿，状态由服务层把关）
func (r *BOMRepository) Delete(ctx context.Context, tenantID, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bom_header_id = ?", id).Delete(&entity.BOMLine{}).Error; err != nil {
			return err
		}
		return tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&entity.BOMHeader{}).Error
	})
}

// FindLine 获取BOM行项
func (r *BOMRepository) FindLine(ctx context.Context, lineID string) (*entity.BOMLine, error) {
	var line entity.BOMLine
	err := r.db.WithContext(ctx).Where("id = ?", lineID).First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &line, nil
}

// ListLines 获取BOM的所有行项
func (r *BOMRepository) ListLines(ctx context.Context, bomHeaderID string) ([]entity.BOMLine, error) {
	var lines []entity.BOMLine
	err := r.db.WithContext(ctx).
		Where("bom_header_id = ?", bomHeaderID).
		Order("line_no ASC").
		Find(&lines).Error
	return lines, err
}

// NextLineNo 取下一个行号（当前最大值+10）
func (r *BOMRepository) NextLineNo(ctx context.Context, bomHeaderID string) (int, error) {
	var maxNo int
	err := r.db.WithContext(ctx).
		Model(&entity.BOMLine{}).
		Select("COALESCE(MAX(line_no), 0)").
		Where("bom_header_id = ?", bomHeaderID).
		Scan(&maxNo).Error
	if err != nil {
		return 0, err
	}
	return maxNo + 10, nil
}

// CreateLine 创建BOM行项
func (r *BOMRepository) CreateLine(ctx context.Context, line *entity.BOMLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

// UpdateLine 更新BOM行项
func (r *BOMRepository) UpdateLine(ctx context.Context, line *entity.BOMLine) error {
	return r.db.WithContext(ctx).Save(line).Error
}

// DeleteLine 删除BOM行项
func (r *BOMRepository) DeleteLine(ctx context.Context, lineID string) error {
	return r.db.WithContext(ctx).Where("id = ?", lineID).Delete(&entity.BOMLine{}).Error
}

// DB 返回底层db用于事务
func (r *BOMRepository) DB() *gorm.DB {
	return r.db
}
