package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/config"
	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	stockentity "github.com/bitfantasy/nimo-mes/internal/stock/entity"
	stocksvc "github.com/bitfantasy/nimo-mes/internal/stock/service"
	"gorm.io/gorm"
)

// WorkOrderService 工单编排服务：唯一允许写生产台账的入口。
// 每个执行事件（领料/退料/产出/报废）都是一个独立事务：
// FOR UPDATE 锁定受影响行，库存账调用放在事务最后，失败即整体回滚。
type WorkOrderService struct {
	repo        *repository.WorkOrderRepository
	bomRepo     *repository.BOMRepository
	routingRepo *repository.RoutingRepository
	ledgerRepo  *repository.LedgerRepository
	ledgerSvc   *LedgerService
	stockLedger StockLedger
	masterData  MasterData
	db          *gorm.DB
	cfg         config.ManufacturingConfig
}

func NewWorkOrderService(
	repo *repository.WorkOrderRepository,
	bomRepo *repository.BOMRepository,
	routingRepo *repository.RoutingRepository,
	ledgerRepo *repository.LedgerRepository,
	ledgerSvc *LedgerService,
	stockLedger StockLedger,
	masterData MasterData,
	db *gorm.DB,
	cfg config.ManufacturingConfig,
) *WorkOrderService {
	return &WorkOrderService{
		repo:        repo,
		bomRepo:     bomRepo,
		routingRepo: routingRepo,
		ledgerRepo:  ledgerRepo,
		ledgerSvc:   ledgerSvc,
		stockLedger: stockLedger,
		masterData:  masterData,
		db:          db,
		cfg:         cfg,
	}
}

// CreateWorkOrderRequest 创建工单请求
type CreateWorkOrderRequest struct {
	ItemID       string     `json:"item_id" binding:"required"`
	BOMHeaderID  *string    `json:"bom_header_id"`
	RoutingID    *string    `json:"routing_id"`
	SiteID       string     `json:"site_id"`
	WarehouseID  string     `json:"warehouse_id"`
	QtyOrdered   float64    `json:"qty_ordered" binding:"required,gt=0"`
	Priority     int        `json:"priority"`
	PlannedStart *time.Time `json:"planned_start"`
	PlannedEnd   *time.Time `json:"planned_end"`
	SalesOrderID *string    `json:"sales_order_id"`
	Notes        string     `json:"notes"`
}

// Create 创建工单：从已批准的BOM/工艺路线做快照，快照后不再随版本变化
func (s *WorkOrderService) Create(ctx context.Context, tenantID, userID string, req *CreateWorkOrderRequest) (*entity.WorkOrder, error) {
	if req.QtyOrdered <= 0 {
		return nil, fmt.Errorf("%w: qty ordered", ErrInvalidQuantity)
	}

	var bom *entity.BOMHeader
	if req.BOMHeaderID != nil && *req.BOMHeaderID != "" {
		b, err := s.bomRepo.FindByID(ctx, tenantID, *req.BOMHeaderID)
		if err != nil {
			return nil, fmt.Errorf("bom not found: %w", err)
		}
		if b.Status != entity.BOMStatusApproved {
			return nil, fmt.Errorf("%w: bom %s is not approved", ErrInvalidTransition, b.ID)
		}
		if b.ItemID != req.ItemID {
			return nil, fmt.Errorf("bom item %s does not match work order item %s", b.ItemID, req.ItemID)
		}
		bom = b
	}

	var routing *entity.Routing
	if req.RoutingID != nil && *req.RoutingID != "" {
		rt, err := s.routingRepo.FindByID(ctx, tenantID, *req.RoutingID)
		if err != nil {
			return nil, fmt.Errorf("routing not found: %w", err)
		}
		if rt.Status != entity.RoutingStatusApproved {
			return nil, fmt.Errorf("%w: routing %s is not approved", ErrInvalidTransition, rt.ID)
		}
		routing = rt
	}

	var wo *entity.WorkOrder
	createTx := func(tx *gorm.DB) error {
		workOrderNo, err := s.repo.GenerateWorkOrderNo(ctx, tx, tenantID)
		if err != nil {
			return fmt.Errorf("generate work order no: %w", err)
		}

		uom := "pcs"
		if bom != nil && bom.UOM != "" {
			uom = bom.UOM
		}

		now := time.Now()
		wo = &entity.WorkOrder{
			ID:           generateID(),
			TenantID:     tenantID,
			SiteID:       req.SiteID,
			WarehouseID:  req.WarehouseID,
			WorkOrderNo:  workOrderNo,
			ItemID:       req.ItemID,
			BOMHeaderID:  req.BOMHeaderID,
			RoutingID:    req.RoutingID,
			Status:       entity.WOStatusDraft,
			Priority:     req.Priority,
			QtyOrdered:   req.QtyOrdered,
			UOM:          uom,
			PlannedStart: req.PlannedStart,
			PlannedEnd:   req.PlannedEnd,
			SalesOrderID: req.SalesOrderID,
			Notes:        req.Notes,
			CreatedBy:    userID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if bom != nil {
			for _, line := range bom.Lines {
				lineID := line.ID
				wo.Materials = append(wo.Materials, entity.WorkOrderMaterial{
					ID:          generateID(),
					WorkOrderID: wo.ID,
					BOMLineID:   &lineID,
					ItemID:      line.ComponentItemID,
					QtyRequired: RequiredQty(line.QtyPer, bom.BaseQty, req.QtyOrdered, line.ScrapPct),
					UOM:         line.UOM,
					Status:      entity.MaterialStatusPending,
					CreatedAt:   now,
					UpdatedAt:   now,
				})
			}
		}
		if routing != nil {
			for _, op := range routing.Operations {
				opID := op.ID
				wo.Operations = append(wo.Operations, entity.WorkOrderOperation{
					ID:                 generateID(),
					WorkOrderID:        wo.ID,
					RoutingOperationID: &opID,
					OperationNo:        op.OperationNo,
					Name:               op.Name,
					WorkstationID:      op.WorkstationID,
					Status:             entity.OpStatusPending,
					CreatedAt:          now,
					UpdatedAt:          now,
				})
			}
		}

		return tx.Create(wo).Error
	}
	err := retryOnDuplicate(func() error {
		return s.db.WithContext(ctx).Transaction(createTx)
	})
	if err != nil {
		return nil, fmt.Errorf("create work order: %w", err)
	}
	return wo, nil
}

// Get 获取工单详情（含工序与物料）
func (s *WorkOrderService) Get(ctx context.Context, tenantID, id string) (*entity.WorkOrder, error) {
	return s.repo.FindByID(ctx, tenantID, id)
}

// List 获取工单列表
func (s *WorkOrderService) List(ctx context.Context, tenantID string, params repository.WorkOrderListParams) ([]entity.WorkOrder, int64, error) {
	return s.repo.FindAll(ctx, tenantID, params)
}

// Release 下达工单（草稿 → 已下达，第一道工序置为就绪）
func (s *WorkOrderService) Release(ctx context.Context, tenantID, id string) (*entity.WorkOrder, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wo, err := s.repo.LockByID(ctx, tx, tenantID, id)
		if err != nil {
			return fmt.Errorf("work order not found: %w", err)
		}
		if !entity.CanTransitionWorkOrder(wo.Status, entity.WOStatusReleased) {
			return fmt.Errorf("%w: work order %s → %s", ErrInvalidTransition, wo.Status, entity.WOStatusReleased)
		}

		wo.Status = entity.WOStatusReleased
		wo.UpdatedAt = time.Now()
		if err := tx.Save(wo).Error; err != nil {
			return err
		}

		ops, err := s.repo.ListOperations(ctx, tx, wo.ID)
		if err != nil {
			return err
		}
		if len(ops) > 0 {
			first := ops[0]
			first.Status = entity.OpStatusReady
			first.UpdatedAt = time.Now()
			if err := tx.Save(&first).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, tenantID, id)
}

// Start 开工（已下达 → 进行中，记录实际开始时间）
func (s *WorkOrderService) Start(ctx context.Context, tenantID, id string) (*entity.WorkOrder, error) {
	return s.transition(ctx, tenantID, id, entity.WOStatusInProgress, func(wo *entity.WorkOrder, now time.Time) {
		wo.ActualStart = &now
	})
}

// Complete 完工（进行中 → 已完成，记录实际结束时间）
func (s *WorkOrderService) Complete(ctx context.Context, tenantID, id string) (*entity.WorkOrder, error) {
	return s.transition(ctx, tenantID, id, entity.WOStatusCompleted, func(wo *entity.WorkOrder, now time.Time) {
		wo.ActualEnd = &now
	})
}

// Cancel 取消工单（任意非终态 → 已取消）
func (s *WorkOrderService) Cancel(ctx context.Context, tenantID, id string) (*entity.WorkOrder, error) {
	return s.transition(ctx, tenantID, id, entity.WOStatusCancelled, nil)
}

func (s *WorkOrderService) transition(ctx context.Context, tenantID, id, to string, apply func(*entity.WorkOrder, time.Time)) (*entity.WorkOrder, error) {
	var wo *entity.WorkOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.LockByID(ctx, tx, tenantID, id)
		if err != nil {
			return fmt.Errorf("work order not found: %w", err)
		}
		if !entity.CanTransitionWorkOrder(locked.Status, to) {
			return fmt.Errorf("%w: work order %s → %s", ErrInvalidTransition, locked.Status, to)
		}

		now := time.Now()
		locked.Status = to
		locked.UpdatedAt = now
		if apply != nil {
			apply(locked, now)
		}
		wo = locked
		return tx.Save(locked).Error
	})
	if err != nil {
		return nil, err
	}
	return wo, nil
}

// StartOperationRequest 开工工序请求
type StartOperationRequest struct {
	AssignedUserID *string `json:"assigned_user_id"`
}

// StartOperation 工序开工（就绪 → 进行中，要求工单进行中）
func (s *WorkOrderService) StartOperation(ctx context.Context, tenantID, woID, opID string, req *StartOperationRequest) (*entity.WorkOrderOperation, error) {
	var op *entity.WorkOrderOperation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wo, err := s.repo.LockByID(ctx, tx, tenantID, woID)
		if err != nil {
			return fmt.Errorf("work order not found: %w", err)
		}
		if wo.Status != entity.WOStatusInProgress {
			return fmt.Errorf("%w: work order is %s, operations require IN_PROGRESS", ErrInvalidTransition, wo.Status)
		}

		locked, err := s.repo.LockOperation(ctx, tx, woID, opID)
		if err != nil {
			return fmt.Errorf("operation not found: %w", err)
		}
		if locked.Status != entity.OpStatusReady {
			return fmt.Errorf("%w: operation %s → %s", ErrInvalidTransition, locked.Status, entity.OpStatusInProgress)
		}

		now := time.Now()
		locked.Status = entity.OpStatusInProgress
		locked.ActualStart = &now
		if req != nil && req.AssignedUserID != nil {
			locked.AssignedUserID = req.AssignedUserID
		}
		locked.UpdatedAt = now
		op = locked
		return tx.Save(locked).Error
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

// CompleteOperationRequest 完工工序请求
type CompleteOperationRequest struct {
	QtyCompleted    float64 `json:"qty_completed" binding:"gte=0"`
	QtyScrapped     float64 `json:"qty_scrapped" binding:"gte=0"`
	SetupTimeActual float64 `json:"setup_time_actual" binding:"gte=0"`
	RunTimeActual   float64 `json:"run_time_actual" binding:"gte=0"`
}

// CompleteOperation 工序完工（进行中 → 已完成，下一道待开工工序置为就绪）
func (s *WorkOrderService) CompleteOperation(ctx context.Context, tenantID, woID, opID string, req *CompleteOperationRequest) (*entity.WorkOrderOperation, error) {
	var op *entity.WorkOrderOperation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.LockByID(ctx, tx, tenantID, woID); err != nil {
			return fmt.Errorf("work order not found: %w", err)
		}

		locked, err := s.repo.LockOperation(ctx, tx, woID, opID)
		if err != nil {
			return fmt.Errorf("operation not found: %w", err)
		}
		if locked.Status != entity.OpStatusInProgress {
			return fmt.Errorf("%w: operation %s → %s", ErrInvalidTransition, locked.Status, entity.OpStatusCompleted)
		}

		now := time.Now()
		locked.Status = entity.OpStatusCompleted
		locked.ActualEnd = &now
		if req != nil {
			locked.QtyCompleted = req.QtyCompleted
			locked.QtyScrapped = req.QtyScrapped
			locked.SetupTimeActual = req.SetupTimeActual
			locked.RunTimeActual = req.RunTimeActual
		}
		locked.UpdatedAt = now
		if err := tx.Save(locked).Error; err != nil {
			return err
		}

		// 顺序流转：紧随其后的待开工工序变为就绪
		ops, err := s.repo.ListOperations(ctx, tx, woID)
		if err != nil {
			return err
		}
		for i := range ops {
			if ops[i].OperationNo > locked.OperationNo && ops[i].Status == entity.OpStatusPending {
				ops[i].Status = entity.OpStatusReady
				ops[i].UpdatedAt = now
				if err := tx.Save(&ops[i]).Error; err != nil {
					return err
				}
				break
			}
		}

		op = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

// MaterialEventRequest 领料/退料请求
type MaterialEventRequest struct {
	Qty     float64 `json:"qty" binding:"required,gt=0"`
	BinID   string  `json:"bin_id" binding:"required"`
	BatchNo string  `json:"batch_no"`
	Notes   string  `json:"notes"`
}

// IssueMaterial 领料：物料需求行累计领用，台账记负数，库存同事务扣减
func (s *WorkOrderService) IssueMaterial(ctx context.Context, tenantID, userID, woID, materialID string, req *MaterialEventRequest) (*entity.WorkOrderMaterial, error) {
	if req.Qty <= 0 {
		return nil, fmt.Errorf("%w: issue qty", ErrInvalidQuantity)
	}

	var material *entity.WorkOrderMaterial
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wo, err := s.repo.LockByID(ctx, tx, tenantID, woID)
		if err != nil {
			return fmt.Errorf("work order not found: %w", err)
		}
		if wo.Status != entity.WOStatusReleased && wo.Status != entity.WOStatusInProgress {
			return fmt.Errorf("%w: cannot issue material on work order in status %s", ErrInvalidTransition, wo.Status)
		}

		locked, err := s.repo.LockMaterial(ctx, tx, woID, materialID)
		if err != nil {
			return fmt.Errorf("material not found: %w", err)
		}

		newIssued := locked.QtyIssued + req.Qty
		if !withinTolerance(newIssued-locked.QtyReturned, locked.QtyRequired, s.cfg.OverIssueTolerancePct) {
			return fmt.Errorf("%w: issued %.4f of required %.4f", ErrToleranceExceeded, newIssued-locked.QtyReturned, locked.QtyRequired)
		}

		if err := s.validateBin(ctx, wo, req.BinID); err != nil {
			return err
		}

		now := time.Now()
		locked.QtyIssued = newIssued
		locked.Status = materialStatus(locked.QtyIssued, locked.QtyRequired)
		locked.UpdatedAt = now
		if err := tx.Save(locked).Error; err != nil {
			return err
		}

		entry := &entity.ProductionLedgerEntry{
			ID:          generateID(),
			TenantID:    tenantID,
			WorkOrderID: woID,
			EntryType:   entity.LedgerMaterialIssue,
			ItemID:      locked.ItemID,
			WarehouseID: wo.WarehouseID,
			BinID:       req.BinID,
			BatchNo:     req.BatchNo,
			Qty:         -req.Qty,
			UOM:         locked.UOM,
			OperatorID:  userID,
			Notes:       req.Notes,
			CreatedBy:   userID,
			CreatedAt:   now,
		}
		if err := s.ledgerRepo.Create(ctx, tx, entry); err != nil {
			return fmt.Errorf("append ledger: %w", err)
		}

		// 库存账调用放在最后，失败则台账与累计量一并回滚
		binID := req.BinID
		_, err = s.stockLedger.RecordMovement(ctx, stocksvc.MovementRequest{
			TenantID:  tenantID,
			SiteID:    wo.SiteID,
			ItemID:    locked.ItemID,
			FromBinID: &binID,
			Qty:       req.Qty,
			Reason:    stockentity.ReasonWOConsume,
			RefType:   "WORK_ORDER",
			RefID:     woID,
			BatchNo:   req.BatchNo,
			CreatedBy: userID,
		})
		if err != nil {
			return fmt.Errorf("stock movement: %w", err)
		}

		material = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.ledgerSvc.InvalidateSummaryCache(ctx, tenantID)
	return material, nil
}

// ReturnMaterial 退料：不超过净领用量，台账记正数，库存同事务回增
func (s *WorkOrderService) ReturnMaterial(ctx context.Context, tenantID, userID, woID, materialID string, req *MaterialEventRequest) (*entity.WorkOrderMaterial, error) {
	if req.Qty <= 0 {
		return nil, fmt.Errorf("%w: return qty", ErrInvalidQuantity)
	}

	var material *entity.WorkOrderMaterial
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wo, err := s.repo.LockByID(ctx, tx, tenantID, woID)
		if err != nil {
			return fmt.Errorf("work order not found: %w", err)
		}
		if wo.Status == entity.WOStatusCompleted || wo.Status == entity.WOStatusCancelled {
			return fmt.Errorf("%w: cannot return material on work order in status %s", ErrInvalidTransition, wo.Status)
		}

		locked, err := s.repo.LockMaterial(ctx, tx, woID, materialID)
		if err != nil {
			return fmt.Errorf("material not found: %w", err)
		}

		netIssued := locked.QtyIssued - locked.QtyReturned
		if !qtyGTE(netIssued, req.Qty) {
			return fmt.Errorf("%w: return %.4f exceeds net issued %.4f", ErrInvalidQuantity, req.Qty, netIssued)
		}

		if err := s.validateBin(ctx, wo, req.BinID); err != nil {
			return err
		}

		// 退料不回退领用状态
		now := time.Now()
		locked.QtyReturned += req.Qty
		locked.UpdatedAt = now
		if err := tx.Save(locked).Error; err != nil {
			return err
		}

		entry := &entity.ProductionLedgerEntry{
			ID:          generateID(),
			TenantID:    tenantID,
			WorkOrderID: woID,
			EntryType:   entity.LedgerMaterialReturn,
			ItemID:      locked.ItemID,
			WarehouseID: wo.WarehouseID,
			BinID:       req.BinID,
			BatchNo:     req.BatchNo,
			Qty:         req.Qty,
			UOM:         locked.UOM,
			OperatorID:  userID,
			Notes:       req.Notes,
			CreatedBy:   userID,
			CreatedAt:   now,
		}
		if err := s.ledgerRepo.Create(ctx, tx, entry); err != nil {
			return fmt.Errorf("append ledger: %w", err)
		}

		binID := req.BinID
		_, err = s.stockLedger.RecordMovement(ctx, stocksvc.MovementRequest{
			TenantID:  tenantID,
			SiteID:    wo.SiteID,
			ItemID:    locked.ItemID,
			ToBinID:   &binID,
			Qty:       req.Qty,
			Reason:    stockentity.ReasonWOProduce,
			RefType:   "WORK_ORDER",
			RefID:     woID,
			BatchNo:   req.BatchNo,
			CreatedBy: userID,
		})
		if err != nil {
			return fmt.Errorf("stock movement: %w", err)
		}

		material = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.ledgerSvc.InvalidateSummaryCache(ctx, tenantID)
	return material, nil
}

// OutputRequest 产出报工请求
type OutputRequest struct {
	Qty           float64 `json:"qty" binding:"required,gt=0"`
	BinID         string  `json:"bin_id" binding:"required"`
	BatchNo       string  `json:"batch_no"`
	OperationID   *string `json:"operation_id"`
	WorkstationID *string `json:"workstation_id"`
	Notes         string  `json:"notes"`
}

// RecordOutput 产出入库：累计完成量受超产允差约束，库存同事务入库
func (s *WorkOrderService) RecordOutput(ctx context.Context, tenantID, userID, woID string, req *OutputRequest) (*entity.WorkOrder, error) {
	if req.Qty <= 0 {
		return nil, fmt.Errorf("%w: output qty", ErrInvalidQuantity)
	}

	var wo *entity.WorkOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.LockByID(ctx, tx, tenantID, woID)
		if err != nil {
			return fmt.Errorf("work order not found: %w", err)
		}
		if locked.Status != entity.WOStatusInProgress {
			return fmt.Errorf("%w: cannot record output on work order in status %s", ErrInvalidTransition, locked.Status)
		}

		newCompleted := locked.QtyCompleted + req.Qty
		if !withinTolerance(newCompleted, locked.QtyOrdered, s.cfg.OverProduceTolerancePct) {
			return fmt.Errorf("%w: completed %.4f of ordered %.4f", ErrToleranceExceeded, newCompleted, locked.QtyOrdered)
		}

		if err := s.validateBin(ctx, locked, req.BinID); err != nil {
			return err
		}

		now := time.Now()
		locked.QtyCompleted = newCompleted
		locked.UpdatedAt = now
		if err := tx.Save(locked).Error; err != nil {
			return err
		}

		entry := &entity.ProductionLedgerEntry{
			ID:                   generateID(),
			TenantID:             tenantID,
			WorkOrderID:          woID,
			WorkOrderOperationID: req.OperationID,
			EntryType:            entity.LedgerProductionOutput,
			ItemID:               locked.ItemID,
			WarehouseID:          locked.WarehouseID,
			BinID:                req.BinID,
			BatchNo:              req.BatchNo,
			Qty:                  req.Qty,
			UOM:                  locked.UOM,
			WorkstationID:        req.WorkstationID,
			OperatorID:           userID,
			Notes:                req.Notes,
			CreatedBy:            userID,
			CreatedAt:            now,
		}
		if err := s.ledgerRepo.Create(ctx, tx, entry); err != nil {
			return fmt.Errorf("append ledger: %w", err)
		}

		binID := req.BinID
		_, err = s.stockLedger.RecordMovement(ctx, stocksvc.MovementRequest{
			TenantID:  tenantID,
			SiteID:    locked.SiteID,
			ItemID:    locked.ItemID,
			ToBinID:   &binID,
			Qty:       req.Qty,
			Reason:    stockentity.ReasonWOProduce,
			RefType:   "WORK_ORDER",
			RefID:     woID,
			BatchNo:   req.BatchNo,
			CreatedBy: userID,
		})
		if err != nil {
			return fmt.Errorf("stock movement: %w", err)
		}

		wo = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.ledgerSvc.InvalidateSummaryCache(ctx, tenantID)
	return wo, nil
}

// ScrapRequest 报废请求。ItemID为空时默认报废工单成品
type ScrapRequest struct {
	Qty           float64 `json:"qty" binding:"required,gt=0"`
	ItemID        *string `json:"item_id"` // 可报废组件料
	ReasonCode    string  `json:"reason_code"`
	OperationID   *string `json:"operation_id"`
	WorkstationID *string `json:"workstation_id"`
	Notes         string  `json:"notes"`
}

// RecordScrap 报废报工：台账记负数，仅报废成品时累计工单报废量。
// 报废件从未入库，不产生库存移动
func (s *WorkOrderService) RecordScrap(ctx context.Context, tenantID, userID, woID string, req *ScrapRequest) (*entity.WorkOrder, error) {
	if req.Qty <= 0 {
		return nil, fmt.Errorf("%w: scrap qty", ErrInvalidQuantity)
	}

	var wo *entity.WorkOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.LockByID(ctx, tx, tenantID, woID)
		if err != nil {
			return fmt.Errorf("work order not found: %w", err)
		}
		if locked.Status == entity.WOStatusCompleted || locked.Status == entity.WOStatusCancelled {
			return fmt.Errorf("%w: cannot record scrap on work order in status %s", ErrInvalidTransition, locked.Status)
		}

		scrapItemID := locked.ItemID
		if req.ItemID != nil && *req.ItemID != "" {
			scrapItemID = *req.ItemID
		}

		now := time.Now()
		if scrapItemID == locked.ItemID {
			locked.QtyScrapped += req.Qty
		}
		locked.UpdatedAt = now
		if err := tx.Save(locked).Error; err != nil {
			return err
		}

		entry := &entity.ProductionLedgerEntry{
			ID:                   generateID(),
			TenantID:             tenantID,
			WorkOrderID:          woID,
			WorkOrderOperationID: req.OperationID,
			EntryType:            entity.LedgerScrap,
			ItemID:               scrapItemID,
			WarehouseID:          locked.WarehouseID,
			Qty:                  -req.Qty,
			UOM:                  locked.UOM,
			WorkstationID:        req.WorkstationID,
			OperatorID:           userID,
			ReasonCode:           req.ReasonCode,
			Notes:                req.Notes,
			CreatedBy:            userID,
			CreatedAt:            now,
		}
		if err := s.ledgerRepo.Create(ctx, tx, entry); err != nil {
			return fmt.Errorf("append ledger: %w", err)
		}

		wo = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.ledgerSvc.InvalidateSummaryCache(ctx, tenantID)
	return wo, nil
}

// validateBin 校验库位存在且归属工单仓库
func (s *WorkOrderService) validateBin(ctx context.Context, wo *entity.WorkOrder, binID string) error {
	bin, err := s.masterData.GetBin(ctx, binID)
	if err != nil {
		return fmt.Errorf("bin not found: %w", err)
	}
	if wo.WarehouseID != "" && bin.WarehouseID != wo.WarehouseID {
		return fmt.Errorf("%w: bin %s belongs to warehouse %s, expected %s", ErrBinMismatch, binID, bin.WarehouseID, wo.WarehouseID)
	}
	return nil
}

// materialStatus 累计领用量 >= 需求量即为ISSUED，大于零为PARTIAL。
// 退料只增加QtyReturned，不回退状态。
func materialStatus(issued, required float64) string {
	switch {
	case qtyGTE(issued, required) && required > 0:
		return entity.MaterialStatusIssued
	case issued > 0:
		return entity.MaterialStatusPartial
	default:
		return entity.MaterialStatusPending
	}
}
