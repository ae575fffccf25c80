package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bitfantasy/nimo-mes/internal/config"
	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/testutil"
	stockentity "github.com/bitfantasy/nimo-mes/internal/stock/entity"
	stockrepo "github.com/bitfantasy/nimo-mes/internal/stock/repository"
	stocksvc "github.com/bitfantasy/nimo-mes/internal/stock/service"
	"gorm.io/gorm"
)

type woTestEnv struct {
	db       *gorm.DB
	services *Services
	stock    *stocksvc.StockService
	bin      *stockentity.Bin
	wh       *stockentity.Warehouse
}

func setupWorkOrderTest(t *testing.T, cfg config.ManufacturingConfig) *woTestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	stockRepos := stockrepo.NewRepositories(db)
	stockService := stocksvc.NewStockService(stockRepos.Stock, stockRepos.Warehouse, db)

	repos := repository.NewRepositories(db)
	services := NewServices(repos, db, stockService, stockService, nil, nil, &config.Config{
		Manufacturing: cfg,
	})

	wh, bin := testutil.SeedWarehouse(t, db, testutil.TestTenant)
	return &woTestEnv{db: db, services: services, stock: stockService, bin: bin, wh: wh}
}

// approvedBOM 创建并批准一个BOM：baseQty=10，两种组件
func approvedBOM(t *testing.T, env *woTestEnv) *entity.BOMHeader {
	t.Helper()
	ctx := context.Background()
	svc := env.services.BOM

	bom, err := svc.Create(ctx, testutil.TestTenant, "planner-1", &CreateBOMRequest{
		ItemID:  "item-fg-001",
		BaseQty: 10,
		UOM:     "set",
		Lines: []CreateBOMLineInput{
			{ComponentItemID: "item-raw-001", QtyPer: 2, ScrapPct: 10},
			{ComponentItemID: "item-raw-002", QtyPer: 4},
		},
	})
	if err != nil {
		t.Fatalf("Create bom failed: %v", err)
	}
	if _, err := svc.Submit(ctx, testutil.TestTenant, bom.ID); err != nil {
		t.Fatalf("Submit bom failed: %v", err)
	}
	approved, err := svc.Approve(ctx, testutil.TestTenant, bom.ID, "approver-1")
	if err != nil {
		t.Fatalf("Approve bom failed: %v", err)
	}
	return approved
}

// approvedRouting 创建并批准一个两工序工艺路线
func approvedRouting(t *testing.T, env *woTestEnv) *entity.Routing {
	t.Helper()
	ctx := context.Background()
	svc := env.services.Routing

	routing, err := svc.Create(ctx, testutil.TestTenant, "planner-1", &CreateRoutingRequest{
		ItemID: "item-fg-001",
		Name:   "标准装配流程",
		Operations: []CreateRoutingOperationInput{
			{Name: "贴片", RunTimeMins: 5},
			{Name: "组装测试", RunTimeMins: 10},
		},
	})
	if err != nil {
		t.Fatalf("Create routing failed: %v", err)
	}
	approved, err := svc.Approve(ctx, testutil.TestTenant, routing.ID, "approver-1")
	if err != nil {
		t.Fatalf("Approve routing failed: %v", err)
	}
	return approved
}

func createWorkOrder(t *testing.T, env *woTestEnv, bom *entity.BOMHeader, routing *entity.Routing, qty float64) *entity.WorkOrder {
	t.Helper()
	req := &CreateWorkOrderRequest{
		ItemID:      "item-fg-001",
		WarehouseID: env.wh.ID,
		QtyOrdered:  qty,
	}
	if bom != nil {
		req.BOMHeaderID = &bom.ID
	}
	if routing != nil {
		req.RoutingID = &routing.ID
	}
	wo, err := env.services.WorkOrder.Create(context.Background(), testutil.TestTenant, "planner-1", req)
	if err != nil {
		t.Fatalf("Create work order failed: %v", err)
	}
	return wo
}

func TestWorkOrderSnapshot(t *testing.T) {
	env := setupWorkOrderTest(t, config.ManufacturingConfig{OverIssueTolerancePct: -1, OverProduceTolerancePct: -1})
	bom := approvedBOM(t, env)
	routing := approvedRouting(t, env)

	wo := createWorkOrder(t, env, bom, routing, 50)

	if wo.WorkOrderNo == "" {
		t.Error("Expected generated work order no")
	}
	if wo.Status != entity.WOStatusDraft {
		t.Errorf("Expected DRAFT, got %s", wo.Status)
	}
	if len(wo.Materials) != 2 {
		t.Fatalf("Expected 2 material requirements, got %d", len(wo.Materials))
	}

	byItem := map[string]entity.WorkOrderMaterial{}
	for _, m := range wo.Materials {
		byItem[m.ItemID] = m
	}
	// (2/10)*50*1.10 = 11，必须精确
	if got := byItem["item-raw-001"].QtyRequired; got != 11 {
		t.Errorf("Expected qty required 11 for item-raw-001, got %v", got)
	}
	// (4/10)*50 = 20
	if got := byItem["item-raw-002"].QtyRequired; got != 20 {
		t.Errorf("Expected qty required 20 for item-raw-002, got %v", got)
	}

	if len(wo.Operations) != 2 {
		t.Fatalf("Expected 2 operations, got %d", len(wo.Operations))
	}
	for _, op := range wo.Operations {
		if op.Status != entity.OpStatusPending {
			t.Errorf("Expected operation %d PENDING, got %s", op.OperationNo, op.Status)
		}
	}
}

func TestWorkOrderCreateRequiresApprovedBOM(t *testing.T) {
	env := setupWorkOrderTest(t, config.ManufacturingConfig{OverIssueTolerancePct: -1, OverProduceTolerancePct: -1})
	ctx := context.Background()

	draft, err := env.services.BOM.Create(ctx, testutil.TestTenant, "planner-1", &CreateBOMRequest{
		ItemID:  "item-fg-001",
		BaseQty: 1,
		Lines:   []CreateBOMLineInput{{ComponentItemID: "item-raw-001", QtyPer: 1}},
	})
	if err != nil {
		t.Fatalf("Create bom failed: %v", err)
	}

	_, err = env.services.WorkOrder.Create(ctx, testutil.TestTenant, "planner-1", &CreateWorkOrderRequest{
		ItemID:      "item-fg-001",
		BOMHeaderID: &draft.ID,
		QtyOrdered:  10,
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition for draft bom, got %v", err)
	}
}

func TestWorkOrderReleaseMarksFirstOperationReady(t *testing.T) {
	env := setupWorkOrderTest(t, config.ManufacturingConfig{OverIssueTolerancePct: -1, OverProduceTolerancePct: -1})
	routing := approvedRouting(t, env)
	wo := createWorkOrder(t, env, nil, routing, 10)
	ctx := context.Background()

	released, err := env.services.WorkOrder.Release(ctx, testutil.TestTenant, wo.ID)
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if released.Status != entity.WOStatusReleased {
		t.Errorf("Expected RELEASED, got %s", released.Status)
	}
	if released.Operations[0].Status != entity.OpStatusReady {
		t.Errorf("Expected first operation READY, got %s", released.Operations[0].Status)
	}
	if released.Operations[1].Status != entity.OpStatusPending {
		t.Errorf("Expected second operation PENDING, got %s", released.Operations[1].Status)
	}

	// 重复下达被拒绝
	if _, err := env.services.WorkOrder.Release(ctx, testutil.TestTenant, wo.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition for double release, got %v", err)
	}
}

func TestOperationAdvance(t *testing.T) {
	env := setupWorkOrderTest(t, config.ManufacturingConfig{OverIssueTolerancePct: -1, OverProduceTolerancePct: -1})
	routing := approvedRouting(t, env)
	wo := createWorkOrder(t, env, nil, routing, 10)
	ctx := context.Background()
	woSvc := env.services.WorkOrder

	if _, err := woSvc.Release(ctx, testutil.TestTenant, wo.ID); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	fresh, _ := woSvc.Get(ctx, testutil.TestTenant, wo.ID)
	firstOp := fresh.Operations[0]
	secondOp := fresh.Operations[1]

	// 工单未开工时不能开工工序
	if _, err := woSvc.StartOperation(ctx, testutil.TestTenant, wo.ID, firstOp.ID, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition starting op on released wo, got %v", err)
	}

	if _, err := woSvc.Start(ctx, testutil.TestTenant, wo.ID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// 第二道工序仍是PENDING，不能开工
	if _, err := woSvc.StartOperation(ctx, testutil.TestTenant, wo.ID, secondOp.ID, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition starting pending op, got %v", err)
	}

	operator := "operator-1"
	started, err := woSvc.StartOperation(ctx, testutil.TestTenant, wo.ID, firstOp.ID, &StartOperationRequest{AssignedUserID: &operator})
	if err != nil {
		t.Fatalf("StartOperation failed: %v", err)
	}
	if started.Status != entity.OpStatusInProgress {
		t.Errorf("Expected IN_PROGRESS, got %s", started.Status)
	}
	if started.AssignedUserID == nil || *started.AssignedUserID != operator {
		t.Error("Expected operator assignment to be recorded")
	}

	completed, err := woSvc.CompleteOperation(ctx, testutil.TestTenant, wo.ID, firstOp.ID, &CompleteOperationRequest{QtyCompleted: 10})
	if err != nil {
		t.Fatalf("CompleteOperation failed: %v", err)
	}
	if completed.Status != entity.OpStatusCompleted {
		t.Errorf("Expected COMPLETED, got %s", completed.Status)
	}

	// 下一道工序被置为READY
	fresh, _ = woSvc.Get(ctx, testutil.TestTenant, wo.ID)
	if fresh.Operations[1].Status != entity.OpStatusReady {
		t.Errorf("Expected second operation READY after first completes, got %s", fresh.Operations[1].Status)
	}
}

func TestIssueMaterialFlow(t *testing.T) {
	env := setupWorkOrderTest(t, config.ManufacturingConfig{OverIssueTolerancePct: -1, OverProduceTolerancePct: -1})
	bom := approvedBOM(t, env)
	wo := createWorkOrder(t, env, bom, nil, 50)
	ctx := context.Background()
	woSvc := env.services.WorkOrder

	testutil.SeedStock(t, env.db, testutil.TestTenant, "item-raw-001", env.bin.ID, 100)

	if _, err := woSvc.Release(ctx, testutil.TestTenant, wo.ID); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	var material entity.WorkOrderMaterial
	fresh, _ := woSvc.Get(ctx, testutil.TestTenant, wo.ID)
	for _, m := range fresh.Materials {
		if m.ItemID == "item-raw-001" {
			material = m
		}
	}

	// 部分领料
	partial, err := woSvc.IssueMaterial(ctx, testutil.TestTenant, "operator-1", wo.ID, material.ID, &MaterialEventRequest{Qty: 5, BinID: env.bin.ID})
	if err != nil {
		t.Fatalf("IssueMaterial failed: %v", err)
	}
	if partial.Status != entity.MaterialStatusPartial {
		t.Errorf("Expected PARTIAL, got %s", partial.Status)
	}
	if partial.QtyIssued != 5 {
		t.Errorf("Expected qty issued 5, got %v", partial.QtyIssued)
	}

	// 补齐到需求量11
	full, err := woSvc.IssueMaterial(ctx, testutil.TestTenant, "operator-1", wo.ID, material.ID, &MaterialEventRequest{Qty: 6, BinID: env.bin.ID})
	if err != nil {
		t.Fatalf("IssueMaterial to full failed: %v", err)
	}
	if full.Status != entity.MaterialStatusIssued {
		t.Errorf("Expected ISSUED at qty required, got %s", full.Status)
	}

	// 库存被扣减：100 - 11 = 89
	onHand, err := env.stock.GetOnHand(ctx, testutil.TestTenant, "item-raw-001", env.bin.ID)
	if err != nil {
		t.Fatalf("GetOnHand failed: %v", err)
	}
	if onHand != 89 {
		t.Errorf("Expected on hand 89, got %v", onHand)
	}

	// 台账出现两条负数分录
	entries, _, err := env.services.Ledger.List(ctx, testutil.TestTenant, repository.LedgerListParams{WorkOrderID: wo.ID})
	if err != nil {
		t.Fatalf("Ledger list failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 ledger entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.EntryType != entity.LedgerMaterialIssue {
			t.Errorf("Expected MATERIAL_ISSUE, got %s", e.EntryType)
		}
		if e.Qty >= 0 {
			t.Errorf("Expected negative qty for issue, got %v", e.Qty)
		}
	}

	// 退料恢复库存，领用状态保持ISSUED不回退
	returned, err := woSvc.ReturnMaterial(ctx, testutil.TestTenant, "operator-1", wo.ID, material.ID, &MaterialEventRequest{Qty: 3, BinID: env.bin.ID})
	if err != nil {
		t.Fatalf("ReturnMaterial failed: %v", err)
	}
	if returned.Status != entity.MaterialStatusIssued {
		t.Errorf("Expected status to stay ISSUED after return, got %s", returned.Status)
	}
	if returned.QtyReturned != 3 {
		t.Errorf("Expected qty returned 3, got %v", returned.QtyReturned)
	}
	onHand, _ = env.stock.GetOnHand(ctx, testutil.TestTenant, "item-raw-001", env.bin.ID)
	if onHand != 92 {
		t.Errorf("Expected on hand 92 after return, got %v", onHand)
	}

	// 退料不能超过净领用量
	if _, err := woSvc.ReturnMaterial(ctx, testutil.TestTenant, "operator-1", wo.ID, material.ID, &MaterialEventRequest{Qty: 9, BinID: env.bin.ID}); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("Expected ErrInvalidQuantity returning more than net issued, got %v", err)
	}
}

func TestIssueMaterialToleranceAndRollback(t *testing.T) {
	env := setupWorkOrderTest(t, config.ManufacturingConfig{OverIssueTolerancePct: 0, OverProduceTolerancePct: 0})
	bom := approvedBOM(t, env)
	wo := createWorkOrder(t, env, bom, nil, 50)
	ctx := context.Background()
	woSvc := env.services.WorkOrder

	// 只放5个库存
	testutil.SeedStock(t, env.db, testutil.TestTenant, "item-raw-001", env.bin.ID, 5)

	if _, err := woSvc.Release(ctx, testutil.TestTenant, wo.ID); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	var material entity.WorkOrderMaterial
	fresh, _ := woSvc.Get(ctx, testutil.TestTenant, wo.ID)
	for _, m := range fresh.Materials {
		if m.ItemID == "item-raw-001" {
			material = m
		}
	}

	// 零允差：超过需求量11被拒绝
	if _, err := woSvc.IssueMaterial(ctx, testutil.TestTenant, "operator-1", wo.ID, material.ID, &MaterialEventRequest{Qty: 12, BinID: env.bin.ID}); !errors.Is(err, ErrToleranceExceeded) {
		t.Errorf("Expected ErrToleranceExceeded, got %v", err)
	}

	// 库存不足：失败后不留下任何台账分录与累计量
	_, err := woSvc.IssueMaterial(ctx, testutil.TestTenant, "operator-1", wo.ID, material.ID, &MaterialEventRequest{Qty: 8, BinID: env.bin.ID})
	if !errors.Is(err, stocksvc.ErrInsufficientStock) {
		t.Fatalf("Expected ErrInsufficientStock, got %v", err)
	}

	entries, _, err := env.services.Ledger.List(ctx, testutil.TestTenant, repository.LedgerListParams{WorkOrderID: wo.ID})
	if err != nil {
		t.Fatalf("Ledger list failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no ledger entries after rollback, got %d", len(entries))
	}

	fresh, _ = woSvc.Get(ctx, testutil.TestTenant, wo.ID)
	for _, m := range fresh.Materials {
		if m.ItemID == "item-raw-001" && m.QtyIssued != 0 {
			t.Errorf("Expected qty issued rolled back to 0, got %v", m.QtyIssued)
		}
	}
}

func TestRecordOutputAndScrap(t *testing.T) {
	env := setupWorkOrderTest(t, config.ManufacturingConfig{OverIssueTolerancePct: -1, OverProduceTolerancePct: 0})
	wo := createWorkOrder(t, env, nil, nil, 10)
	ctx := context.Background()
	woSvc := env.services.WorkOrder

	if _, err := woSvc.Release(ctx, testutil.TestTenant, wo.ID); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := woSvc.Start(ctx, testutil.TestTenant, wo.ID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	out, err := woSvc.RecordOutput(ctx, testutil.TestTenant, "operator-1", wo.ID, &OutputRequest{Qty: 8, BinID: env.bin.ID})
	if err != nil {
		t.Fatalf("RecordOutput failed: %v", err)
	}
	if out.QtyCompleted != 8 {
		t.Errorf("Expected qty completed 8, got %v", out.QtyCompleted)
	}

	// 成品入库
	onHand, err := env.stock.GetOnHand(ctx, testutil.TestTenant, "item-fg-001", env.bin.ID)
	if err != nil {
		t.Fatalf("GetOnHand failed: %v", err)
	}
	if onHand != 8 {
		t.Errorf("Expected on hand 8, got %v", onHand)
	}

	// 零允差：8 + 3 > 10 被拒绝
	if _, err := woSvc.RecordOutput(ctx, testutil.TestTenant, "operator-1", wo.ID, &OutputRequest{Qty: 3, BinID: env.bin.ID}); !errors.Is(err, ErrToleranceExceeded) {
		t.Errorf("Expected ErrToleranceExceeded over-producing, got %v", err)
	}

	scrapped, err := woSvc.RecordScrap(ctx, testutil.TestTenant, "operator-1", wo.ID, &ScrapRequest{Qty: 1, ReasonCode: "DEFECT"})
	if err != nil {
		t.Fatalf("RecordScrap failed: %v", err)
	}
	if scrapped.QtyScrapped != 1 {
		t.Errorf("Expected qty scrapped 1, got %v", scrapped.QtyScrapped)
	}

	// 报废不动库存
	onHand, _ = env.stock.GetOnHand(ctx, testutil.TestTenant, "item-fg-001", env.bin.ID)
	if onHand != 8 {
		t.Errorf("Expected on hand unchanged at 8 after scrap, got %v", onHand)
	}

	// 台账：产出为正，报废为负
	entries, _, _ := env.services.Ledger.List(ctx, testutil.TestTenant, repository.LedgerListParams{WorkOrderID: wo.ID})
	var outputQty, scrapQty float64
	for _, e := range entries {
		switch e.EntryType {
		case entity.LedgerProductionOutput:
			outputQty += e.Qty
		case entity.LedgerScrap:
			scrapQty += e.Qty
		}
	}
	if outputQty != 8 {
		t.Errorf("Expected total output 8, got %v", outputQty)
	}
	if scrapQty != -1 {
		t.Errorf("Expected total scrap -1, got %v", scrapQty)
	}

	// 报废组件料：台账记组件，不累计工单成品报废量
	component := "item-raw-001"
	scrapped, err = woSvc.RecordScrap(ctx, testutil.TestTenant, "operator-1", wo.ID, &ScrapRequest{Qty: 2, ItemID: &component, ReasonCode: "DAMAGE"})
	if err != nil {
		t.Fatalf("RecordScrap for component failed: %v", err)
	}
	if scrapped.QtyScrapped != 1 {
		t.Errorf("Expected qty scrapped to stay 1 after component scrap, got %v", scrapped.QtyScrapped)
	}
	entries, _, _ = env.services.Ledger.List(ctx, testutil.TestTenant, repository.LedgerListParams{WorkOrderID: wo.ID, EntryType: entity.LedgerScrap})
	var componentEntry bool
	for _, e := range entries {
		if e.ItemID == component && e.Qty == -2 {
			componentEntry = true
		}
	}
	if !componentEntry {
		t.Error("Expected scrap ledger entry against the component item")
	}
}

// 报废在工单下达后即可记录，不要求已开工
func TestScrapAllowedBeforeStart(t *testing.T) {
	env := setupWorkOrderTest(t, config.ManufacturingConfig{OverIssueTolerancePct: -1, OverProduceTolerancePct: -1})
	wo := createWorkOrder(t, env, nil, nil, 10)
	ctx := context.Background()
	woSvc := env.services.WorkOrder

	if _, err := woSvc.Release(ctx, testutil.TestTenant, wo.ID); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	scrapped, err := woSvc.RecordScrap(ctx, testutil.TestTenant, "operator-1", wo.ID, &ScrapRequest{Qty: 1, ReasonCode: "SETUP"})
	if err != nil {
		t.Fatalf("RecordScrap on released wo failed: %v", err)
	}
	if scrapped.QtyScrapped != 1 {
		t.Errorf("Expected qty scrapped 1, got %v", scrapped.QtyScrapped)
	}

	// 产出仍要求进行中
	if _, err := woSvc.RecordOutput(ctx, testutil.TestTenant, "operator-1", wo.ID, &OutputRequest{Qty: 1, BinID: env.bin.ID}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition recording output on released wo, got %v", err)
	}
}

func TestOutputBinMustBelongToWarehouse(t *testing.T) {
	env := setupWorkOrderTest(t, config.ManufacturingConfig{OverIssueTolerancePct: -1, OverProduceTolerancePct: -1})
	wo := createWorkOrder(t, env, nil, nil, 10)
	ctx := context.Background()
	woSvc := env.services.WorkOrder

	// 另一仓库的库位
	_, otherBin := testutil.SeedWarehouse(t, env.db, testutil.TestTenant)

	if _, err := woSvc.Release(ctx, testutil.TestTenant, wo.ID); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := woSvc.Start(ctx, testutil.TestTenant, wo.ID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := woSvc.RecordOutput(ctx, testutil.TestTenant, "operator-1", wo.ID, &OutputRequest{Qty: 1, BinID: otherBin.ID}); !errors.Is(err, ErrBinMismatch) {
		t.Errorf("Expected ErrBinMismatch, got %v", err)
	}
}

func TestWorkOrderNoSequence(t *testing.T) {
	env := setupWorkOrderTest(t, config.ManufacturingConfig{OverIssueTolerancePct: -1, OverProduceTolerancePct: -1})

	first := createWorkOrder(t, env, nil, nil, 10)
	second := createWorkOrder(t, env, nil, nil, 10)

	var firstSeq, secondSeq int
	var year1, year2 int
	fmt.Sscanf(first.WorkOrderNo, "WO-%d-%04d", &year1, &firstSeq)
	fmt.Sscanf(second.WorkOrderNo, "WO-%d-%04d", &year2, &secondSeq)
	if secondSeq != firstSeq+1 {
		t.Errorf("Expected sequential work order numbers, got %s then %s", first.WorkOrderNo, second.WorkOrderNo)
	}
}

// 端到端：创建→下达→开工→领料→报工→完工，并核对汇总
func TestWorkOrderEndToEnd(t *testing.T) {
	env := setupWorkOrderTest(t, config.ManufacturingConfig{OverIssueTolerancePct: -1, OverProduceTolerancePct: -1})
	bom := approvedBOM(t, env)
	routing := approvedRouting(t, env)
	wo := createWorkOrder(t, env, bom, routing, 10)
	ctx := context.Background()
	woSvc := env.services.WorkOrder

	testutil.SeedStock(t, env.db, testutil.TestTenant, "item-raw-001", env.bin.ID, 50)

	if _, err := woSvc.Release(ctx, testutil.TestTenant, wo.ID); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := woSvc.Start(ctx, testutil.TestTenant, wo.ID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	fresh, _ := woSvc.Get(ctx, testutil.TestTenant, wo.ID)
	var rawMaterial entity.WorkOrderMaterial
	for _, m := range fresh.Materials {
		if m.ItemID == "item-raw-001" {
			rawMaterial = m
		}
	}

	// 领料 (2/10)*10*1.10 = 2.2
	if _, err := woSvc.IssueMaterial(ctx, testutil.TestTenant, "operator-1", wo.ID, rawMaterial.ID, &MaterialEventRequest{Qty: 2.2, BinID: env.bin.ID}); err != nil {
		t.Fatalf("IssueMaterial failed: %v", err)
	}
	// 产出10 报废1
	if _, err := woSvc.RecordOutput(ctx, testutil.TestTenant, "operator-1", wo.ID, &OutputRequest{Qty: 10, BinID: env.bin.ID}); err != nil {
		t.Fatalf("RecordOutput failed: %v", err)
	}
	if _, err := woSvc.RecordScrap(ctx, testutil.TestTenant, "operator-1", wo.ID, &ScrapRequest{Qty: 1, ReasonCode: "DEFECT"}); err != nil {
		t.Fatalf("RecordScrap failed: %v", err)
	}

	// 产出/报废分录沿用工单从BOM头快照的单位
	entries, _, err := env.services.Ledger.List(ctx, testutil.TestTenant, repository.LedgerListParams{WorkOrderID: wo.ID})
	if err != nil {
		t.Fatalf("Ledger list failed: %v", err)
	}
	for _, e := range entries {
		if e.EntryType == entity.LedgerProductionOutput || e.EntryType == entity.LedgerScrap {
			if e.UOM != "set" {
				t.Errorf("Expected %s entry uom set, got %s", e.EntryType, e.UOM)
			}
		}
	}

	completed, err := woSvc.Complete(ctx, testutil.TestTenant, wo.ID)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if completed.Status != entity.WOStatusCompleted {
		t.Errorf("Expected COMPLETED, got %s", completed.Status)
	}
	if completed.ActualEnd == nil {
		t.Error("Expected actual end to be recorded")
	}
	if completed.UOM != "set" {
		t.Errorf("Expected work order uom set, got %s", completed.UOM)
	}

	// 完工后不再接受执行事件
	if _, err := woSvc.RecordOutput(ctx, testutil.TestTenant, "operator-1", wo.ID, &OutputRequest{Qty: 1, BinID: env.bin.ID}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition after completion, got %v", err)
	}

	// 汇总：领用2.2 产出10 报废1
	rows, err := env.services.Ledger.SummaryByWorkOrder(ctx, testutil.TestTenant)
	if err != nil {
		t.Fatalf("SummaryByWorkOrder failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 summary row, got %d", len(rows))
	}
	row := rows[0]
	if row.TotalIssued != 2.2 {
		t.Errorf("Expected total issued 2.2, got %v", row.TotalIssued)
	}
	if row.TotalOutput != 10 {
		t.Errorf("Expected total output 10, got %v", row.TotalOutput)
	}
	if row.TotalScrap != 1 {
		t.Errorf("Expected total scrap 1, got %v", row.TotalScrap)
	}
}

func TestCancelledWorkOrderRejectsEvents(t *testing.T) {
	env := setupWorkOrderTest(t, config.ManufacturingConfig{OverIssueTolerancePct: -1, OverProduceTolerancePct: -1})
	bom := approvedBOM(t, env)
	wo := createWorkOrder(t, env, bom, nil, 10)
	ctx := context.Background()
	woSvc := env.services.WorkOrder

	if _, err := woSvc.Cancel(ctx, testutil.TestTenant, wo.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	fresh, _ := woSvc.Get(ctx, testutil.TestTenant, wo.ID)
	if _, err := woSvc.IssueMaterial(ctx, testutil.TestTenant, "operator-1", wo.ID, fresh.Materials[0].ID, &MaterialEventRequest{Qty: 1, BinID: env.bin.ID}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition issuing on cancelled wo, got %v", err)
	}
	if _, err := woSvc.Release(ctx, testutil.TestTenant, wo.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition releasing cancelled wo, got %v", err)
	}
}
