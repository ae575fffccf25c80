package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/nimo-mes/internal/mes/testutil"
	"github.com/bitfantasy/nimo-mes/internal/stock/entity"
	"github.com/bitfantasy/nimo-mes/internal/stock/repository"
	"gorm.io/gorm"
)

func setupStockTest(t *testing.T) (*StockService, *gorm.DB, *entity.Bin, *entity.Bin) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewStockService(repos.Stock, repos.Warehouse, db)

	_, binA := testutil.SeedWarehouse(t, db, testutil.TestTenant)
	_, binB := testutil.SeedWarehouse(t, db, testutil.TestTenant)
	return svc, db, binA, binB
}

func TestRecordMovementTransfer(t *testing.T) {
	svc, db, binA, binB := setupStockTest(t)
	ctx := context.Background()

	testutil.SeedStock(t, db, testutil.TestTenant, "item-001", binA.ID, 100)

	move, err := svc.RecordMovement(ctx, MovementRequest{
		TenantID:  testutil.TestTenant,
		ItemID:    "item-001",
		FromBinID: &binA.ID,
		ToBinID:   &binB.ID,
		Qty:       30,
		Reason:    entity.ReasonTransfer,
		RefType:   "TRANSFER",
		RefID:     "t-001",
		CreatedBy: "user-1",
	})
	if err != nil {
		t.Fatalf("RecordMovement failed: %v", err)
	}
	if move.ID == "" {
		t.Error("Expected movement id to be assigned")
	}

	fromQty, _ := svc.GetOnHand(ctx, testutil.TestTenant, "item-001", binA.ID)
	toQty, _ := svc.GetOnHand(ctx, testutil.TestTenant, "item-001", binB.ID)
	if fromQty != 70 {
		t.Errorf("Expected from bin 70, got %v", fromQty)
	}
	if toQty != 30 {
		t.Errorf("Expected to bin 30, got %v", toQty)
	}
	// 数量守恒
	if fromQty+toQty != 100 {
		t.Errorf("Expected total conserved at 100, got %v", fromQty+toQty)
	}
}

func TestRecordMovementInsufficientStock(t *testing.T) {
	svc, db, binA, _ := setupStockTest(t)
	ctx := context.Background()

	testutil.SeedStock(t, db, testutil.TestTenant, "item-001", binA.ID, 5)

	_, err := svc.RecordMovement(ctx, MovementRequest{
		TenantID:  testutil.TestTenant,
		ItemID:    "item-001",
		FromBinID: &binA.ID,
		Qty:       10,
		Reason:    entity.ReasonWOConsume,
		RefType:   "WORK_ORDER",
		RefID:     "wo-001",
		CreatedBy: "user-1",
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("Expected ErrInsufficientStock, got %v", err)
	}

	// 失败不扣减
	qty, _ := svc.GetOnHand(ctx, testutil.TestTenant, "item-001", binA.ID)
	if qty != 5 {
		t.Errorf("Expected balance unchanged at 5, got %v", qty)
	}
}

func TestRecordMovementValidation(t *testing.T) {
	svc, _, binA, _ := setupStockTest(t)
	ctx := context.Background()

	// 数量必须为正
	if _, err := svc.RecordMovement(ctx, MovementRequest{
		TenantID: testutil.TestTenant, ItemID: "item-001", ToBinID: &binA.ID, Qty: 0,
		Reason: entity.ReasonWOProduce, RefType: "WORK_ORDER", RefID: "wo-001", CreatedBy: "u",
	}); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("Expected ErrInvalidQuantity, got %v", err)
	}

	// 必须至少有一端库位
	if _, err := svc.RecordMovement(ctx, MovementRequest{
		TenantID: testutil.TestTenant, ItemID: "item-001", Qty: 1,
		Reason: entity.ReasonWOProduce, RefType: "WORK_ORDER", RefID: "wo-001", CreatedBy: "u",
	}); !errors.Is(err, ErrInvalidBin) {
		t.Errorf("Expected ErrInvalidBin, got %v", err)
	}

	// 未知库位
	unknown := "no-such-bin"
	if _, err := svc.RecordMovement(ctx, MovementRequest{
		TenantID: testutil.TestTenant, ItemID: "item-001", ToBinID: &unknown, Qty: 1,
		Reason: entity.ReasonWOProduce, RefType: "WORK_ORDER", RefID: "wo-001", CreatedBy: "u",
	}); !errors.Is(err, ErrInvalidBin) {
		t.Errorf("Expected ErrInvalidBin for unknown bin, got %v", err)
	}
}

func TestRecordMovementCreatesBalance(t *testing.T) {
	svc, _, binA, _ := setupStockTest(t)
	ctx := context.Background()

	// 入库到空库位自动建余额行
	if _, err := svc.RecordMovement(ctx, MovementRequest{
		TenantID: testutil.TestTenant, ItemID: "item-new", ToBinID: &binA.ID, Qty: 12.5,
		Reason: entity.ReasonWOProduce, RefType: "WORK_ORDER", RefID: "wo-001", CreatedBy: "u",
	}); err != nil {
		t.Fatalf("RecordMovement failed: %v", err)
	}

	qty, err := svc.GetOnHand(ctx, testutil.TestTenant, "item-new", binA.ID)
	if err != nil {
		t.Fatalf("GetOnHand failed: %v", err)
	}
	if qty != 12.5 {
		t.Errorf("Expected 12.5, got %v", qty)
	}
}
