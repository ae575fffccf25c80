package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/google/uuid"
)

// WorkstationService 工作中心服务
type WorkstationService struct {
	repo *repository.WorkstationRepository
}

func NewWorkstationService(repo *repository.WorkstationRepository) *WorkstationService {
	return &WorkstationService{repo: repo}
}

// CreateWorkstationRequest 创建工作中心请求
type CreateWorkstationRequest struct {
	SiteID          string  `json:"site_id"`
	Code            string  `json:"code" binding:"required"`
	Name            string  `json:"name" binding:"required"`
	Type            string  `json:"type"`
	CapacityPerHour float64 `json:"capacity_per_hour"`
	CostPerHour     float64 `json:"cost_per_hour"`
	Notes           string  `json:"notes"`
}

// UpdateWorkstationRequest 更新工作中心请求
type UpdateWorkstationRequest struct {
	Name            string   `json:"name"`
	Type            string   `json:"type"`
	CapacityPerHour *float64 `json:"capacity_per_hour"`
	CostPerHour     *float64 `json:"cost_per_hour"`
	Status          string   `json:"status"`
	Notes           string   `json:"notes"`
}

// Create 创建工作中心（编码租户内唯一）
func (s *WorkstationService) Create(ctx context.Context, tenantID, userID string, req *CreateWorkstationRequest) (*entity.Workstation, error) {
	if _, err := s.repo.FindByCode(ctx, tenantID, req.Code); err == nil {
		return nil, fmt.Errorf("workstation code %s already exists", req.Code)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check code: %w", err)
	}

	now := time.Now()
	ws := &entity.Workstation{
		ID:              generateID(),
		TenantID:        tenantID,
		SiteID:          req.SiteID,
		Code:            req.Code,
		Name:            req.Name,
		Type:            req.Type,
		CapacityPerHour: req.CapacityPerHour,
		CostPerHour:     req.CostPerHour,
		Status:          entity.WorkstationStatusActive,
		Notes:           req.Notes,
		CreatedBy:       userID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, ws); err != nil {
		return nil, fmt.Errorf("create workstation: %w", err)
	}
	return ws, nil
}

// Get 获取工作中心
func (s *WorkstationService) Get(ctx context.Context, tenantID, id string) (*entity.Workstation, error) {
	return s.repo.FindByID(ctx, tenantID, id)
}

// List 获取工作中心列表
func (s *WorkstationService) List(ctx context.Context, tenantID string, params repository.WorkstationListParams) ([]entity.Workstation, int64, error) {
	return s.repo.FindAll(ctx, tenantID, params)
}

// Update 更新工作中心
func (s *WorkstationService) Update(ctx context.Context, tenantID, id string, req *UpdateWorkstationRequest) (*entity.Workstation, error) {
	ws, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("workstation not found: %w", err)
	}

	if req.Name != "" {
		ws.Name = req.Name
	}
	if req.Type != "" {
		ws.Type = req.Type
	}
	if req.CapacityPerHour != nil {
		ws.CapacityPerHour = *req.CapacityPerHour
	}
	if req.CostPerHour != nil {
		ws.CostPerHour = *req.CostPerHour
	}
	if req.Status != "" {
		if req.Status != entity.WorkstationStatusActive && req.Status != entity.WorkstationStatusInactive {
			return nil, fmt.Errorf("unknown workstation status: %s", req.Status)
		}
		ws.Status = req.Status
	}
	if req.Notes != "" {
		ws.Notes = req.Notes
	}
	ws.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, ws); err != nil {
		return nil, fmt.Errorf("update workstation: %w", err)
	}
	return ws, nil
}

// Delete 删除工作中心
func (s *WorkstationService) Delete(ctx context.Context, tenantID, id string) error {
	if _, err := s.repo.FindByID(ctx, tenantID, id); err != nil {
		return fmt.Errorf("workstation not found: %w", err)
	}
	return s.repo.Delete(ctx, tenantID, id)
}

func generateID() string {
	return uuid.New().String()[:32]
}
