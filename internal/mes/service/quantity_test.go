package service

import "testing"

func TestRequiredQty(t *testing.T) {
	cases := []struct {
		name       string
		qtyPer     float64
		baseQty    float64
		qtyOrdered float64
		scrapPct   float64
		want       float64
	}{
		{"simple", 2, 1, 50, 0, 100},
		{"base qty scaling", 2, 10, 50, 0, 10},
		{"with scrap", 2, 10, 50, 10, 11}, // (2/10)*50*1.10 必须精确等于11
		{"fractional per", 0.5, 1, 100, 0, 50},
		{"scrap on fractional", 0.3, 1, 10, 5, 3.15},
	}

	for _, tc := range cases {
		got := RequiredQty(tc.qtyPer, tc.baseQty, tc.qtyOrdered, tc.scrapPct)
		if got != tc.want {
			t.Errorf("%s: RequiredQty = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestQtyGTE(t *testing.T) {
	if !qtyGTE(11.0, 11.0) {
		t.Error("Expected 11.0 >= 11.0")
	}
	// 0.1+0.2 累加后与0.3比较不应受浮点误差影响
	total := 0.0
	for i := 0; i < 3; i++ {
		total += 0.1
	}
	if !qtyGTE(0.3, total) && !qtyGTE(total, 0.3) {
		t.Error("Expected decimal comparison to tolerate float accumulation")
	}
	if qtyGTE(10.9999, 11.0) {
		t.Error("Expected 10.9999 < 11.0")
	}
}

func TestWithinTolerance(t *testing.T) {
	// 负允差 = 不限制
	if !withinTolerance(1000, 10, -1) {
		t.Error("Expected negative tolerance to allow any quantity")
	}
	// 零允差 = 不得超过需求量
	if !withinTolerance(10, 10, 0) {
		t.Error("Expected exact quantity to pass zero tolerance")
	}
	if withinTolerance(10.01, 10, 0) {
		t.Error("Expected over-issue to fail zero tolerance")
	}
	// 10%允差
	if !withinTolerance(11, 10, 10) {
		t.Error("Expected 11 of 10 to pass 10%% tolerance")
	}
	if withinTolerance(11.01, 10, 10) {
		t.Error("Expected 11.01 of 10 to fail 10%% tolerance")
	}
}

func TestMaterialStatus(t *testing.T) {
	if got := materialStatus(0, 10); got != "PENDING" {
		t.Errorf("Expected PENDING, got %s", got)
	}
	if got := materialStatus(5, 10); got != "PARTIAL" {
		t.Errorf("Expected PARTIAL, got %s", got)
	}
	if got := materialStatus(10, 10); got != "ISSUED" {
		t.Errorf("Expected ISSUED, got %s", got)
	}
	if got := materialStatus(12, 10); got != "ISSUED" {
		t.Errorf("Expected ISSUED for over-issue, got %s", got)
	}
	// 需求量为零的行永远不会变为ISSUED
	if got := materialStatus(1, 0); got != "PARTIAL" {
		t.Errorf("Expected PARTIAL for zero requirement, got %s", got)
	}
}
