package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// WorkstationRepository 工作中心仓库
type WorkstationRepository struct {
	db *gorm.DB
}

func NewWorkstationRepository(db *gorm.DB) *WorkstationRepository {
	return &WorkstationRepository{db: db}
}

// Create 创建工作中心
func (r *WorkstationRepository) Create(ctx context.Context, ws *entity.Workstation) error {
	return r.db.WithContext(ctx).Create(ws).Error
}

// FindByID 根据ID查找工作中心
func (r *WorkstationRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.Workstation, error) {
	var ws entity.Workstation
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ? AND deleted_at IS NULL", tenantID, id).
		First(&ws).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ws, nil
}

// FindByCode 根据编码查找工作中心
func (r *WorkstationRepository) FindByCode(ctx context.Context, tenantID, code string) (*entity.Workstation, error) {
	var ws entity.Workstation
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND code = ? AND deleted_at IS NULL", tenantID, code).
		First(&ws).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ws, nil
}

// WorkstationListParams 工作中心列表查询参数
type WorkstationListParams struct {
	Status  string
	Type    string
	Keyword string
	Page    int
	Size    int
}

// FindAll 查询工作中心列表
func (r *WorkstationRepository) FindAll(ctx context.Context, tenantID string, params WorkstationListParams) ([]entity.Workstation, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Workstation{}).
		Where("tenant_id = ? AND deleted_at IS NULL", tenantID)

	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Type != "" {
		query = query.Where("type = ?", params.Type)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("code ILIKE ? OR name ILIKE ?", kw, kw)
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

	var items []entity.Workstation
	err := query.Order("code ASC").
		Offset((params.Page - 1) * params.Size).
		Limit(params.Size).
		Find(&items).Error
	return items, total, err
}

// Update 更新工作中心
func (r *WorkstationRepository) Update(ctx context.Context, ws *entity.Workstation) error {
	return r.db.WithContext(ctx).Save(ws).Error
}

// Delete 软删除工作中心
func (r *WorkstationRepository) Delete(ctx context.Context, tenantID, id string) error {
	return r.db.WithContext(ctx).
		Model(&entity.Workstation{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("deleted_at", gorm.Expr("NOW()")).Error
}
