package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"gorm.io/gorm"
)

// BOMService BOM版本管理服务
type BOMService struct {
	repo *repository.BOMRepository
}

func NewBOMService(repo *repository.BOMRepository) *BOMService {
	return &BOMService{repo: repo}
}

// CreateBOMLineInput BOM行项输入
type CreateBOMLineInput struct {
	ComponentItemID string  `json:"component_item_id" binding:"required"`
	QtyPer          float64 `json:"qty_per" binding:"required,gt=0"`
	UOM             string  `json:"uom"`
	ScrapPct        float64 `json:"scrap_pct" binding:"gte=0,lte=100"`
	IsCritical      bool    `json:"is_critical"`
	Notes           string  `json:"notes"`
}

// CreateBOMRequest 创建BOM请求
type CreateBOMRequest struct {
	ItemID        string               `json:"item_id" binding:"required"`
	Revision      string               `json:"revision"`
	BaseQty       float64              `json:"base_qty" binding:"required,gt=0"`
	UOM           string               `json:"uom"`
	EffectiveFrom *time.Time           `json:"effective_from"`
	EffectiveTo   *time.Time           `json:"effective_to"`
	Notes         string               `json:"notes"`
	Lines         []CreateBOMLineInput `json:"lines"`
}

// Create 创建BOM（草稿状态，版本号 = 租户+产品当前最大版本 + 1）
func (s *BOMService) Create(ctx context.Context, tenantID, userID string, req *CreateBOMRequest) (*entity.BOMHeader, error) {
	var bom *entity.BOMHeader
	createTx := func(tx *gorm.DB) error {
		version, err := s.repo.NextVersion(ctx, tx, tenantID, req.ItemID)
		if err != nil {
			return fmt.Errorf("next version: %w", err)
		}

		now := time.Now()
		revision := req.Revision
		if revision == "" {
			revision = "A"
		}
		uom := req.UOM
		if uom == "" {
			uom = "pcs"
		}

		bom = &entity.BOMHeader{
			ID:            generateID(),
			TenantID:      tenantID,
			ItemID:        req.ItemID,
			Version:       version,
			Revision:      revision,
			Status:        entity.BOMStatusDraft,
			EffectiveFrom: req.EffectiveFrom,
			EffectiveTo:   req.EffectiveTo,
			BaseQty:       req.BaseQty,
			UOM:           uom,
			Notes:         req.Notes,
			CreatedBy:     userID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		for i, in := range req.Lines {
			lineUOM := in.UOM
			if lineUOM == "" {
				lineUOM = "pcs"
			}
			bom.Lines = append(bom.Lines, entity.BOMLine{
				ID:              generateID(),
				BOMHeaderID:     bom.ID,
				LineNo:          (i + 1) * 10,
				ComponentItemID: in.ComponentItemID,
				QtyPer:          in.QtyPer,
				UOM:             lineUOM,
				ScrapPct:        in.ScrapPct,
				IsCritical:      in.IsCritical,
				Notes:           in.Notes,
				CreatedAt:       now,
				UpdatedAt:       now,
			})
		}

		return tx.Create(bom).Error
	}
	err := retryOnDuplicate(func() error {
		return s.repo.DB().WithContext(ctx).Transaction(createTx)
	})
	if err != nil {
		return nil, fmt.Errorf("create bom: %w", err)
	}
	return bom, nil
}

// Get 获取BOM详情（含行项）
func (s *BOMService) Get(ctx context.Context, tenantID, id string) (*entity.BOMHeader, error) {
	return s.repo.FindByID(ctx, tenantID, id)
}

// List 获取BOM列表
func (s *BOMService) List(ctx context.Context, tenantID string, params repository.BOMListParams) ([]entity.BOMHeader, int64, error) {
	return s.repo.FindAll(ctx, tenantID, params)
}

// ListVersions 获取产品的BOM版本列表
func (s *BOMService) ListVersions(ctx context.Context, tenantID, itemID string) ([]entity.BOMHeader, error) {
	return s.repo.ListVersions(ctx, tenantID, itemID)
}

// UpdateBOMRequest 更新BOM头请求（仅草稿可改）
type UpdateBOMRequest struct {
	Revision      string     `json:"revision"`
	BaseQty       *float64   `json:"base_qty"`
	UOM           string     `json:"uom"`
	EffectiveFrom *time.Time `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to"`
	Notes         string     `json:"notes"`
}

// Update 更新BOM头（仅草稿状态可改）
func (s *BOMService) Update(ctx context.Context, tenantID, id string, req *UpdateBOMRequest) (*entity.BOMHeader, error) {
	bom, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("bom not found: %w", err)
	}
	if bom.Status != entity.BOMStatusDraft {
		return nil, fmt.Errorf("%w: cannot modify bom in status %s", ErrInvalidTransition, bom.Status)
	}

	if req.Revision != "" {
		bom.Revision = req.Revision
	}
	if req.BaseQty != nil {
		if *req.BaseQty <= 0 {
			return nil, fmt.Errorf("%w: base qty", ErrInvalidQuantity)
		}
		bom.BaseQty = *req.BaseQty
	}
	if req.UOM != "" {
		bom.UOM = req.UOM
	}
	if req.EffectiveFrom != nil {
		bom.EffectiveFrom = req.EffectiveFrom
	}
	if req.EffectiveTo != nil {
		bom.EffectiveTo = req.EffectiveTo
	}
	if req.Notes != "" {
		bom.Notes = req.Notes
	}
	bom.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, bom); err != nil {
		return nil, fmt.Errorf("update bom: %w", err)
	}
	return bom, nil
}

// Submit 提交审批（草稿 → 待审批，至少一条行项）
func (s *BOMService) Submit(ctx context.Context, tenantID, id string) (*entity.BOMHeader, error) {
	bom, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("bom not found: %w", err)
	}
	if !entity.CanTransitionBOM(bom.Status, entity.BOMStatusPendingApproval) {
		return nil, fmt.Errorf("%w: bom %s → %s", ErrInvalidTransition, bom.Status, entity.BOMStatusPendingApproval)
	}
	if len(bom.Lines) == 0 {
		return nil, fmt.Errorf("bom has no lines")
	}

	bom.Status = entity.BOMStatusPendingApproval
	bom.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, bom); err != nil {
		return nil, fmt.Errorf("submit bom: %w", err)
	}
	return bom, nil
}

// Approve 审批通过（待审批 → 已批准，记录审批人与时间）
func (s *BOMService) Approve(ctx context.Context, tenantID, id, userID string) (*entity.BOMHeader, error) {
	bom, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("bom not found: %w", err)
	}
	if !entity.CanTransitionBOM(bom.Status, entity.BOMStatusApproved) {
		return nil, fmt.Errorf("%w: bom %s → %s", ErrInvalidTransition, bom.Status, entity.BOMStatusApproved)
	}

	now := time.Now()
	bom.Status = entity.BOMStatusApproved
	bom.ApprovedBy = &userID
	bom.ApprovedAt = &now
	bom.UpdatedAt = now
	if err := s.repo.Update(ctx, bom); err != nil {
		return nil, fmt.Errorf("approve bom: %w", err)
	}
	return bom, nil
}

// Obsolete 作废（任意非作废状态 → 作废）
func (s *BOMService) Obsolete(ctx context.Context, tenantID, id string) (*entity.BOMHeader, error) {
	bom, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("bom not found: %w", err)
	}
	if !entity.CanTransitionBOM(bom.Status, entity.BOMStatusObsolete) {
		return nil, fmt.Errorf("%w: bom %s → %s", ErrInvalidTransition, bom.Status, entity.BOMStatusObsolete)
	}

	bom.Status = entity.BOMStatusObsolete
	bom.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, bom); err != nil {
		return nil, fmt.Errorf("obsolete bom: %w", err)
	}
	return bom, nil
}

// Delete 删除BOM（仅草稿可删，连带行项）
func (s *BOMService) Delete(ctx context.Context, tenantID, id string) error {
	bom, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return fmt.Errorf("bom not found: %w", err)
	}
	if bom.Status != entity.BOMStatusDraft {
		return fmt.Errorf("%w: cannot delete bom in status %s", ErrInvalidTransition, bom.Status)
	}
	return s.repo.Delete(ctx, tenantID, id)
}

// CreateNewVersion 基于现有版本克隆出新草稿（版本号+1，修订号重置为A）
func (s *BOMService) CreateNewVersion(ctx context.Context, tenantID, sourceID, userID string) (*entity.BOMHeader, error) {
	source, err := s.repo.FindByID(ctx, tenantID, sourceID)
	if err != nil {
		return nil, fmt.Errorf("source bom not found: %w", err)
	}

	var clone *entity.BOMHeader
	cloneTx := func(tx *gorm.DB) error {
		version, err := s.repo.NextVersion(ctx, tx, tenantID, source.ItemID)
		if err != nil {
			return fmt.Errorf("next version: %w", err)
		}

		now := time.Now()
		clone = &entity.BOMHeader{
			ID:        generateID(),
			TenantID:  tenantID,
			ItemID:    source.ItemID,
			Version:   version,
			Revision:  "A",
			Status:    entity.BOMStatusDraft,
			BaseQty:   source.BaseQty,
			UOM:       source.UOM,
			Notes:     source.Notes,
			CreatedBy: userID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		for _, line := range source.Lines {
			clone.Lines = append(clone.Lines, entity.BOMLine{
				ID:              generateID(),
				BOMHeaderID:     clone.ID,
				LineNo:          line.LineNo,
				ComponentItemID: line.ComponentItemID,
				QtyPer:          line.QtyPer,
				UOM:             line.UOM,
				ScrapPct:        line.ScrapPct,
				IsCritical:      line.IsCritical,
				Notes:           line.Notes,
				CreatedAt:       now,
				UpdatedAt:       now,
			})
		}
		return tx.Create(clone).Error
	}
	err = retryOnDuplicate(func() error {
		return s.repo.DB().WithContext(ctx).Transaction(cloneTx)
	})
	if err != nil {
		return nil, fmt.Errorf("create new version: %w", err)
	}
	return clone, nil
}

// BOMLineChange 对比结果中的变更项
type BOMLineChange struct {
	ComponentItemID string         `json:"component_item_id"`
	ChangedFields   []string       `json:"changed_fields"`
	Left            entity.BOMLine `json:"left"`
	Right           entity.BOMLine `json:"right"`
}

// BOMCompareResult BOM对比结果：以componentItemId做集合差
type BOMCompareResult struct {
	LeftID  string           `json:"left_id"`
	RightID string           `json:"right_id"`
	Added   []entity.BOMLine `json:"added"`   // 仅右侧存在
	Removed []entity.BOMLine `json:"removed"` // 仅左侧存在
	Changed []BOMLineChange  `json:"changed"`
}

// Compare 对比两个BOM的行项集合
func (s *BOMService) Compare(ctx context.Context, tenantID, leftID, rightID string) (*BOMCompareResult, error) {
	left, err := s.repo.FindByID(ctx, tenantID, leftID)
	if err != nil {
		return nil, fmt.Errorf("left bom not found: %w", err)
	}
	right, err := s.repo.FindByID(ctx, tenantID, rightID)
	if err != nil {
		return nil, fmt.Errorf("right bom not found: %w", err)
	}

	leftMap := make(map[string]entity.BOMLine)
	for _, line := range left.Lines {
		leftMap[line.ComponentItemID] = line
	}
	rightMap := make(map[string]entity.BOMLine)
	for _, line := range right.Lines {
		rightMap[line.ComponentItemID] = line
	}

	result := &BOMCompareResult{LeftID: leftID, RightID: rightID}

	for componentID, rightLine := range rightMap {
		leftLine, exists := leftMap[componentID]
		if !exists {
			result.Added = append(result.Added, rightLine)
			continue
		}
		var fields []string
		if leftLine.QtyPer != rightLine.QtyPer {
			fields = append(fields, "qty_per")
		}
		if leftLine.ScrapPct != rightLine.ScrapPct {
			fields = append(fields, "scrap_pct")
		}
		if leftLine.IsCritical != rightLine.IsCritical {
			fields = append(fields, "is_critical")
		}
		if leftLine.UOM != rightLine.UOM {
			fields = append(fields, "uom")
		}
		if len(fields) > 0 {
			result.Changed = append(result.Changed, BOMLineChange{
				ComponentItemID: componentID,
				ChangedFields:   fields,
				Left:            leftLine,
				Right:           rightLine,
			})
		}
	}
	for componentID, leftLine := range leftMap {
		if _, exists := rightMap[componentID]; !exists {
			result.Removed = append(result.Removed, leftLine)
		}
	}

	return result, nil
}

// AddLine 添加BOM行项（仅草稿，行号自动+10）
func (s *BOMService) AddLine(ctx context.Context, tenantID, bomID string, in *CreateBOMLineInput) (*entity.BOMLine, error) {
	bom, err := s.repo.FindByID(ctx, tenantID, bomID)
	if err != nil {
		return nil, fmt.Errorf("bom not found: %w", err)
	}
	if bom.Status != entity.BOMStatusDraft {
		return nil, fmt.Errorf("%w: cannot modify bom in status %s", ErrInvalidTransition, bom.Status)
	}

	lineNo, err := s.repo.NextLineNo(ctx, bomID)
	if err != nil {
		return nil, fmt.Errorf("next line no: %w", err)
	}

	uom := in.UOM
	if uom == "" {
		uom = "pcs"
	}
	now := time.Now()
	line := &entity.BOMLine{
		ID:              generateID(),
		BOMHeaderID:     bomID,
		LineNo:          lineNo,
		ComponentItemID: in.ComponentItemID,
		QtyPer:          in.QtyPer,
		UOM:             uom,
		ScrapPct:        in.ScrapPct,
		IsCritical:      in.IsCritical,
		Notes:           in.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.CreateLine(ctx, line); err != nil {
		return nil, fmt.Errorf("create line: %w", err)
	}
	return line, nil
}

// UpdateBOMLineRequest 更新BOM行项请求
type UpdateBOMLineRequest struct {
	QtyPer     *float64 `json:"qty_per"`
	UOM        string   `json:"uom"`
	ScrapPct   *float64 `json:"scrap_pct"`
	IsCritical *bool    `json:"is_critical"`
	Notes      string   `json:"notes"`
}

// UpdateLine 更新BOM行项（仅草稿）
func (s *BOMService) UpdateLine(ctx context.Context, tenantID, bomID, lineID string, req *UpdateBOMLineRequest) (*entity.BOMLine, error) {
	bom, err := s.repo.FindByID(ctx, tenantID, bomID)
	if err != nil {
		return nil, fmt.Errorf("bom not found: %w", err)
	}
	if bom.Status != entity.BOMStatusDraft {
		return nil, fmt.Errorf("%w: cannot modify bom in status %s", ErrInvalidTransition, bom.Status)
	}

	line, err := s.repo.FindLine(ctx, lineID)
	if err != nil || line.BOMHeaderID != bomID {
		return nil, fmt.Errorf("bom line not found: %w", repository.ErrNotFound)
	}

	if req.QtyPer != nil {
		if *req.QtyPer <= 0 {
			return nil, fmt.Errorf("%w: qty per", ErrInvalidQuantity)
		}
		line.QtyPer = *req.QtyPer
	}
	if req.UOM != "" {
		line.UOM = req.UOM
	}
	if req.ScrapPct != nil {
		if *req.ScrapPct < 0 || *req.ScrapPct > 100 {
			return nil, fmt.Errorf("scrap pct must be between 0 and 100")
		}
		line.ScrapPct = *req.ScrapPct
	}
	if req.IsCritical != nil {
		line.IsCritical = *req.IsCritical
	}
	if req.Notes != "" {
		line.Notes = req.Notes
	}
	line.UpdatedAt = time.Now()

	if err := s.repo.UpdateLine(ctx, line); err != nil {
		return nil, fmt.Errorf("update line: %w", err)
	}
	return line, nil
}

// DeleteLine 删除BOM行项（仅草稿）
func (s *BOMService) DeleteLine(ctx context.Context, tenantID, bomID, lineID string) error {
	bom, err := s.repo.FindByID(ctx, tenantID, bomID)
	if err != nil {
		return fmt.Errorf("bom not found: %w", err)
	}
	if bom.Status != entity.BOMStatusDraft {
		return fmt.Errorf("%w: cannot modify bom in status %s", ErrInvalidTransition, bom.Status)
	}

	line, err := s.repo.FindLine(ctx, lineID)
	if err != nil || line.BOMHeaderID != bomID {
		return fmt.Errorf("bom line not found: %w", repository.ErrNotFound)
	}
	return s.repo.DeleteLine(ctx, lineID)
}
