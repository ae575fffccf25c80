package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"gorm.io/gorm"
)

// RoutingService 工艺路线版本管理服务
type RoutingService struct {
	repo            *repository.RoutingRepository
	workstationRepo *repository.WorkstationRepository
}

func NewRoutingService(repo *repository.RoutingRepository, workstationRepo *repository.WorkstationRepository) *RoutingService {
	return &RoutingService{repo: repo, workstationRepo: workstationRepo}
}

// CreateRoutingOperationInput 工序输入
type CreateRoutingOperationInput struct {
	Name            string  `json:"name" binding:"required"`
	WorkstationID   *string `json:"workstation_id"`
	SetupTimeMins   float64 `json:"setup_time_mins" binding:"gte=0"`
	RunTimeMins     float64 `json:"run_time_mins" binding:"gte=0"`
	QueueTimeMins   float64 `json:"queue_time_mins" binding:"gte=0"`
	OverlapPct      float64 `json:"overlap_pct" binding:"gte=0,lte=100"`
	IsSubcontracted bool    `json:"is_subcontracted"`
	Instructions    string  `json:"instructions"`
}

// CreateRoutingRequest 创建工艺路线请求
type CreateRoutingRequest struct {
	ItemID     string                        `json:"item_id" binding:"required"`
	Name       string                        `json:"name" binding:"required"`
	Notes      string                        `json:"notes"`
	Operations []CreateRoutingOperationInput `json:"operations"`
}

// Create 创建工艺路线（草稿状态，版本号自动递增）
func (s *RoutingService) Create(ctx context.Context, tenantID, userID string, req *CreateRoutingRequest) (*entity.Routing, error) {
	for _, op := range req.Operations {
		if err := s.validateWorkstation(ctx, tenantID, op.WorkstationID); err != nil {
			return nil, err
		}
	}

	var routing *entity.Routing
	createTx := func(tx *gorm.DB) error {
		version, err := s.repo.NextVersion(ctx, tx, tenantID, req.ItemID)
		if err != nil {
			return fmt.Errorf("next version: %w", err)
		}

		now := time.Now()
		routing = &entity.Routing{
			ID:        generateID(),
			TenantID:  tenantID,
			ItemID:    req.ItemID,
			Version:   version,
			Name:      req.Name,
			Status:    entity.RoutingStatusDraft,
			Notes:     req.Notes,
			CreatedBy: userID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		for i, in := range req.Operations {
			routing.Operations = append(routing.Operations, entity.RoutingOperation{
				ID:              generateID(),
				RoutingID:       routing.ID,
				OperationNo:     (i + 1) * 10,
				Name:            in.Name,
				WorkstationID:   in.WorkstationID,
				SetupTimeMins:   in.SetupTimeMins,
				RunTimeMins:     in.RunTimeMins,
				QueueTimeMins:   in.QueueTimeMins,
				OverlapPct:      in.OverlapPct,
				IsSubcontracted: in.IsSubcontracted,
				Instructions:    in.Instructions,
				CreatedAt:       now,
				UpdatedAt:       now,
			})
		}

		return tx.Create(routing).Error
	}
	err := retryOnDuplicate(func() error {
		return s.repo.DB().WithContext(ctx).Transaction(createTx)
	})
	if err != nil {
		return nil, fmt.Errorf("create routing: %w", err)
	}
	return routing, nil
}

func (s *RoutingService) validateWorkstation(ctx context.Context, tenantID string, workstationID *string) error {
	if workstationID == nil || *workstationID == "" {
		return nil
	}
	ws, err := s.workstationRepo.FindByID(ctx, tenantID, *workstationID)
	if err != nil {
		return fmt.Errorf("workstation not found: %w", err)
	}
	if ws.Status != entity.WorkstationStatusActive {
		return fmt.Errorf("workstation %s is not active", ws.Code)
	}
	return nil
}

// Get 获取工艺路线详情（含工序）
func (s *RoutingService) Get(ctx context.Context, tenantID, id string) (*entity.Routing, error) {
	return s.repo.FindByID(ctx, tenantID, id)
}

// List 获取工艺路线列表
func (s *RoutingService) List(ctx context.Context, tenantID string, params repository.RoutingListParams) ([]entity.Routing, int64, error) {
	return s.repo.FindAll(ctx, tenantID, params)
}

// ListVersions 获取产品的工艺路线版本列表
func (s *RoutingService) ListVersions(ctx context.Context, tenantID, itemID string) ([]entity.Routing, error) {
	return s.repo.ListVersions(ctx, tenantID, itemID)
}

// UpdateRoutingRequest 更新工艺路线请求（仅草稿可改）
type UpdateRoutingRequest struct {
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

// Update 更新工艺路线头（仅草稿状态可改）
func (s *RoutingService) Update(ctx context.Context, tenantID, id string, req *UpdateRoutingRequest) (*entity.Routing, error) {
	routing, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("routing not found: %w", err)
	}
	if routing.Status != entity.RoutingStatusDraft {
		return nil, fmt.Errorf("%w: cannot modify routing in status %s", ErrInvalidTransition, routing.Status)
	}

	if req.Name != "" {
		routing.Name = req.Name
	}
	if req.Notes != "" {
		routing.Notes = req.Notes
	}
	routing.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, routing); err != nil {
		return nil, fmt.Errorf("update routing: %w", err)
	}
	return routing, nil
}

// Approve 批准（草稿 → 已批准，至少一道工序，记录审批人与时间）
func (s *RoutingService) Approve(ctx context.Context, tenantID, id, userID string) (*entity.Routing, error) {
	routing, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("routing not found: %w", err)
	}
	if !entity.CanTransitionRouting(routing.Status, entity.RoutingStatusApproved) {
		return nil, fmt.Errorf("%w: routing %s → %s", ErrInvalidTransition, routing.Status, entity.RoutingStatusApproved)
	}
	if len(routing.Operations) == 0 {
		return nil, fmt.Errorf("routing has no operations")
	}

	now := time.Now()
	routing.Status = entity.RoutingStatusApproved
	routing.ApprovedBy = &userID
	routing.ApprovedAt = &now
	routing.UpdatedAt = now
	if err := s.repo.Update(ctx, routing); err != nil {
		return nil, fmt.Errorf("approve routing: %w", err)
	}
	return routing, nil
}

// Obsolete 作废（任意非作废状态 → 作废）
func (s *RoutingService) Obsolete(ctx context.Context, tenantID, id string) (*entity.Routing, error) {
	routing, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("routing not found: %w", err)
	}
	if !entity.CanTransitionRouting(routing.Status, entity.RoutingStatusObsolete) {
		return nil, fmt.Errorf("%w: routing %s → %s", ErrInvalidTransition, routing.Status, entity.RoutingStatusObsolete)
	}

	routing.Status = entity.RoutingStatusObsolete
	routing.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, routing); err != nil {
		return nil, fmt.Errorf("obsolete routing: %w", err)
	}
	return routing, nil
}

// Delete 删除工艺路线（仅草稿可删）
func (s *RoutingService) Delete(ctx context.Context, tenantID, id string) error {
	routing, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return fmt.Errorf("routing not found: %w", err)
	}
	if routing.Status != entity.RoutingStatusDraft {
		return fmt.Errorf("%w: cannot delete routing in status %s", ErrInvalidTransition, routing.Status)
	}
	return s.repo.Delete(ctx, tenantID, id)
}

// CreateNewVersion 基于现有版本克隆出新草稿（版本号+1）
func (s *RoutingService) CreateNewVersion(ctx context.Context, tenantID, sourceID, userID string) (*entity.Routing, error) {
	source, err := s.repo.FindByID(ctx, tenantID, sourceID)
	if err != nil {
		return nil, fmt.Errorf("source routing not found: %w", err)
	}

	var clone *entity.Routing
	cloneTx := func(tx *gorm.DB) error {
		version, err := s.repo.NextVersion(ctx, tx, tenantID, source.ItemID)
		if err != nil {
			return fmt.Errorf("next version: %w", err)
		}

		now := time.Now()
		clone = &entity.Routing{
			ID:        generateID(),
			TenantID:  tenantID,
			ItemID:    source.ItemID,
			Version:   version,
			Name:      source.Name,
			Status:    entity.RoutingStatusDraft,
			Notes:     source.Notes,
			CreatedBy: userID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		for _, op := range source.Operations {
			clone.Operations = append(clone.Operations, entity.RoutingOperation{
				ID:              generateID(),
				RoutingID:       clone.ID,
				OperationNo:     op.OperationNo,
				Name:            op.Name,
				WorkstationID:   op.WorkstationID,
				SetupTimeMins:   op.SetupTimeMins,
				RunTimeMins:     op.RunTimeMins,
				QueueTimeMins:   op.QueueTimeMins,
				OverlapPct:      op.OverlapPct,
				IsSubcontracted: op.IsSubcontracted,
				Instructions:    op.Instructions,
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

// AddOperation 添加工序（仅草稿，工序号自动+10）
func (s *RoutingService) AddOperation(ctx context.Context, tenantID, routingID string, in *CreateRoutingOperationInput) (*entity.RoutingOperation, error) {
	routing, err := s.repo.FindByID(ctx, tenantID, routingID)
	if err != nil {
		return nil, fmt.Errorf("routing not found: %w", err)
	}
	if routing.Status != entity.RoutingStatusDraft {
		return nil, fmt.Errorf("%w: cannot modify routing in status %s", ErrInvalidTransition, routing.Status)
	}
	if err := s.validateWorkstation(ctx, tenantID, in.WorkstationID); err != nil {
		return nil, err
	}

	operationNo, err := s.repo.NextOperationNo(ctx, routingID)
	if err != nil {
		return nil, fmt.Errorf("next operation no: %w", err)
	}

	now := time.Now()
	op := &entity.RoutingOperation{
		ID:              generateID(),
		RoutingID:       routingID,
		OperationNo:     operationNo,
		Name:            in.Name,
		WorkstationID:   in.WorkstationID,
		SetupTimeMins:   in.SetupTimeMins,
		RunTimeMins:     in.RunTimeMins,
		QueueTimeMins:   in.QueueTimeMins,
		OverlapPct:      in.OverlapPct,
		IsSubcontracted: in.IsSubcontracted,
		Instructions:    in.Instructions,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.CreateOperation(ctx, op); err != nil {
		return nil, fmt.Errorf("create operation: %w", err)
	}
	return op, nil
}

// UpdateRoutingOperationRequest 更新工序请求
type UpdateRoutingOperationRequest struct {
	Name            string   `json:"name"`
	WorkstationID   *string  `json:"workstation_id"`
	SetupTimeMins   *float64 `json:"setup_time_mins"`
	RunTimeMins     *float64 `json:"run_time_mins"`
	QueueTimeMins   *float64 `json:"queue_time_mins"`
	OverlapPct      *float64 `json:"overlap_pct"`
	IsSubcontracted *bool    `json:"is_subcontracted"`
	Instructions    string   `json:"instructions"`
}

// UpdateOperation 更新工序（仅草稿）
func (s *RoutingService) UpdateOperation(ctx context.Context, tenantID, routingID, opID string, req *UpdateRoutingOperationRequest) (*entity.RoutingOperation, error) {
	routing, err := s.repo.FindByID(ctx, tenantID, routingID)
	if err != nil {
		return nil, fmt.Errorf("routing not found: %w", err)
	}
	if routing.Status != entity.RoutingStatusDraft {
		return nil, fmt.Errorf("%w: cannot modify routing in status %s", ErrInvalidTransition, routing.Status)
	}

	op, err := s.repo.FindOperation(ctx, opID)
	if err != nil || op.RoutingID != routingID {
		return nil, fmt.Errorf("routing operation not found: %w", repository.ErrNotFound)
	}

	if req.Name != "" {
		op.Name = req.Name
	}
	if req.WorkstationID != nil {
		if err := s.validateWorkstation(ctx, tenantID, req.WorkstationID); err != nil {
			return nil, err
		}
		op.WorkstationID = req.WorkstationID
	}
	if req.SetupTimeMins != nil {
		op.SetupTimeMins = *req.SetupTimeMins
	}
	if req.RunTimeMins != nil {
		op.RunTimeMins = *req.RunTimeMins
	}
	if req.QueueTimeMins != nil {
		op.QueueTimeMins = *req.QueueTimeMins
	}
	if req.OverlapPct != nil {
		if *req.OverlapPct < 0 || *req.OverlapPct > 100 {
			return nil, fmt.Errorf("overlap pct must be between 0 and 100")
		}
		op.OverlapPct = *req.OverlapPct
	}
	if req.IsSubcontracted != nil {
		op.IsSubcontracted = *req.IsSubcontracted
	}
	if req.Instructions != "" {
		op.Instructions = req.Instructions
	}
	op.UpdatedAt = time.Now()

	if err := s.repo.UpdateOperation(ctx, op); err != nil {
		return nil, fmt.Errorf("update operation: %w", err)
	}
	return op, nil
}

// DeleteOperation 删除工序（仅草稿）
func (s *RoutingService) DeleteOperation(ctx context.Context, tenantID, routingID, opID string) error {
	routing, err := s.repo.FindByID(ctx, tenantID, routingID)
	if err != nil {
		return fmt.Errorf("routing not found: %w", err)
	}
	if routing.Status != entity.RoutingStatusDraft {
		return fmt.Errorf("%w: cannot modify routing in status %s", ErrInvalidTransition, routing.Status)
	}

	op, err := s.repo.FindOperation(ctx, opID)
	if err != nil || op.RoutingID != routingID {
		return fmt.Errorf("routing operation not found: %w", repository.ErrNotFound)
	}
	return s.repo.DeleteOperation(ctx, opID)
}
