package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/testutil"
)

func setupRoutingTest(t *testing.T) (*RoutingService, *WorkstationService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return NewRoutingService(repos.Routing, repos.Workstation), NewWorkstationService(repos.Workstation)
}

func TestRoutingCreateAssignsVersionAndName(t *testing.T) {
	svc, _ := setupRoutingTest(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, testutil.TestTenant, "planner-1", &CreateRoutingRequest{
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
	if first.Version != 1 {
		t.Errorf("Expected version 1, got %d", first.Version)
	}
	if first.Name != "标准装配流程" {
		t.Errorf("Expected routing name recorded, got %q", first.Name)
	}
	if first.Status != entity.RoutingStatusDraft {
		t.Errorf("Expected DRAFT, got %s", first.Status)
	}
	if len(first.Operations) != 2 || first.Operations[0].OperationNo != 10 || first.Operations[1].OperationNo != 20 {
		t.Errorf("Expected operation numbers 10/20, got %+v", first.Operations)
	}

	// 名称随记录持久化
	fetched, err := svc.Get(ctx, testutil.TestTenant, first.ID)
	if err != nil {
		t.Fatalf("Get routing failed: %v", err)
	}
	if fetched.Name != "标准装配流程" {
		t.Errorf("Expected persisted name, got %q", fetched.Name)
	}

	second, err := svc.Create(ctx, testutil.TestTenant, "planner-1", &CreateRoutingRequest{
		ItemID: "item-fg-001",
		Name:   "改良流程",
	})
	if err != nil {
		t.Fatalf("Create second routing failed: %v", err)
	}
	if second.Version != 2 {
		t.Errorf("Expected version 2, got %d", second.Version)
	}
}

func TestRoutingUpdateAndCloneKeepName(t *testing.T) {
	svc, _ := setupRoutingTest(t)
	ctx := context.Background()

	routing, err := svc.Create(ctx, testutil.TestTenant, "planner-1", &CreateRoutingRequest{
		ItemID: "item-fg-002",
		Name:   "初版流程",
		Operations: []CreateRoutingOperationInput{
			{Name: "装配", RunTimeMins: 8},
		},
	})
	if err != nil {
		t.Fatalf("Create routing failed: %v", err)
	}

	updated, err := svc.Update(ctx, testutil.TestTenant, routing.ID, &UpdateRoutingRequest{Name: "改名流程"})
	if err != nil {
		t.Fatalf("Update routing failed: %v", err)
	}
	if updated.Name != "改名流程" {
		t.Errorf("Expected renamed routing, got %q", updated.Name)
	}

	if _, err := svc.Approve(ctx, testutil.TestTenant, routing.ID, "approver-1"); err != nil {
		t.Fatalf("Approve routing failed: %v", err)
	}

	clone, err := svc.CreateNewVersion(ctx, testutil.TestTenant, routing.ID, "planner-2")
	if err != nil {
		t.Fatalf("CreateNewVersion failed: %v", err)
	}
	if clone.Version != 2 {
		t.Errorf("Expected cloned version 2, got %d", clone.Version)
	}
	if clone.Name != "改名流程" {
		t.Errorf("Expected clone to keep name, got %q", clone.Name)
	}
	if clone.Status != entity.RoutingStatusDraft {
		t.Errorf("Expected clone DRAFT, got %s", clone.Status)
	}
	if len(clone.Operations) != 1 || clone.Operations[0].Name != "装配" {
		t.Errorf("Expected cloned operations, got %+v", clone.Operations)
	}

	// 已批准版本不可再改
	if _, err := svc.Update(ctx, testutil.TestTenant, routing.ID, &UpdateRoutingRequest{Name: "再改"}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition updating approved routing, got %v", err)
	}
}

func TestRoutingApproveRequiresOperations(t *testing.T) {
	svc, _ := setupRoutingTest(t)
	ctx := context.Background()

	empty, err := svc.Create(ctx, testutil.TestTenant, "planner-1", &CreateRoutingRequest{
		ItemID: "item-fg-003",
		Name:   "空流程",
	})
	if err != nil {
		t.Fatalf("Create routing failed: %v", err)
	}
	if _, err := svc.Approve(ctx, testutil.TestTenant, empty.ID, "approver-1"); err == nil {
		t.Error("Expected approve to fail without operations")
	}
}

func TestRoutingRejectsInactiveWorkstation(t *testing.T) {
	svc, wsSvc := setupRoutingTest(t)
	ctx := context.Background()

	ws, err := wsSvc.Create(ctx, testutil.TestTenant, "admin-1", &CreateWorkstationRequest{Code: "WS-01", Name: "SMT线"})
	if err != nil {
		t.Fatalf("Create workstation failed: %v", err)
	}
	if _, err := wsSvc.Update(ctx, testutil.TestTenant, ws.ID, &UpdateWorkstationRequest{Status: entity.WorkstationStatusInactive}); err != nil {
		t.Fatalf("Deactivate workstation failed: %v", err)
	}

	_, err = svc.Create(ctx, testutil.TestTenant, "planner-1", &CreateRoutingRequest{
		ItemID: "item-fg-004",
		Name:   "引用停用工位",
		Operations: []CreateRoutingOperationInput{
			{Name: "贴片", WorkstationID: &ws.ID},
		},
	})
	if err == nil {
		t.Error("Expected create to fail with inactive workstation")
	}
}
