package entity

import "time"

// 工单状态
const (
	WOStatusDraft      = "DRAFT"
	WOStatusReleased   = "RELEASED"
	WOStatusInProgress = "IN_PROGRESS"
	WOStatusCompleted  = "COMPLETED"
	WOStatusCancelled  = "CANCELLED"
)

var workOrderTransitions = map[string][]string{
	WOStatusDraft:      {WOStatusReleased, WOStatusCancelled},
	WOStatusReleased:   {WOStatusInProgress, WOStatusCancelled},
	WOStatusInProgress: {WOStatusCompleted, WOStatusCancelled},
	WOStatusCompleted:  {},
	WOStatusCancelled:  {},
}

// CanTransitionWorkOrder 判断工单状态迁移是否合法
func CanTransitionWorkOrder(from, to string) bool {
	for _, next := range workOrderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// 工单工序状态
const (
	OpStatusPending    = "PENDING"
	OpStatusReady      = "READY"
	OpStatusInProgress = "IN_PROGRESS"
	OpStatusCompleted  = "COMPLETED"
)

// 工单物料状态
const (
	MaterialStatusPending = "PENDING"
	MaterialStatusPartial = "PARTIAL"
	MaterialStatusIssued  = "ISSUED"
)

// WorkOrder 生产工单
type WorkOrder struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	TenantID     string     `json:"tenant_id" gorm:"size:32;not null;uniqueIndex:idx_wo_tenant_no"`
	SiteID       string     `json:"site_id" gorm:"size:32"`
	WarehouseID  string     `json:"warehouse_id" gorm:"size:32"`
	WorkOrderNo  string     `json:"work_order_no" gorm:"size:50;not null;uniqueIndex:idx_wo_tenant_no"`
	ItemID       string     `json:"item_id" gorm:"size:32;not null;index"`
	BOMHeaderID  *string    `json:"bom_header_id" gorm:"size:32"` // 快照来源，可为空
	RoutingID    *string    `json:"routing_id" gorm:"size:32"`
	Status       string     `json:"status" gorm:"size:20;not null;default:DRAFT"`
	Priority     int        `json:"priority" gorm:"default:0"` // 0=普通, 1=紧急, 2=特急
	QtyOrdered   float64    `json:"qty_ordered" gorm:"type:decimal(12,4);not null"`
	UOM          string     `json:"uom" gorm:"size:20;not null;default:pcs"` // 随BOM头快照
	QtyCompleted float64    `json:"qty_completed" gorm:"type:decimal(12,4);default:0"`
	QtyScrapped  float64    `json:"qty_scrapped" gorm:"type:decimal(12,4);default:0"`
	PlannedStart *time.Time `json:"planned_start"`
	PlannedEnd   *time.Time `json:"planned_end"`
	ActualStart  *time.Time `json:"actual_start"`
	ActualEnd    *time.Time `json:"actual_end"`
	SalesOrderID *string    `json:"sales_order_id" gorm:"size:32"` // 需求来源
	Notes        string     `json:"notes" gorm:"type:text"`
	CreatedBy    string     `json:"created_by" gorm:"size:32;not null"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Operations []WorkOrderOperation `json:"operations,omitempty" gorm:"foreignKey:WorkOrderID"`
	Materials  []WorkOrderMaterial  `json:"materials,omitempty" gorm:"foreignKey:WorkOrderID"`
}

func (WorkOrder) TableName() string {
	return "mes_work_orders"
}

// WorkOrderOperation 工单工序（工艺路线快照，也可手工添加）
type WorkOrderOperation struct {
	ID                 string     `json:"id" gorm:"primaryKey;size:32"`
	WorkOrderID        string     `json:"work_order_id" gorm:"size:32;not null;index"`
	RoutingOperationID *string    `json:"routing_operation_id" gorm:"size:32"`
	OperationNo        int        `json:"operation_no" gorm:"not null"`
	Name               string     `json:"name" gorm:"size:128;not null"`
	WorkstationID      *string    `json:"workstation_id" gorm:"size:32"`
	AssignedUserID     *string    `json:"assigned_user_id" gorm:"size:32"`
	Status             string     `json:"status" gorm:"size:20;not null;default:PENDING"`
	PlannedStart       *time.Time `json:"planned_start"`
	PlannedEnd         *time.Time `json:"planned_end"`
	ActualStart        *time.Time `json:"actual_start"`
	ActualEnd          *time.Time `json:"actual_end"`
	QtyCompleted       float64    `json:"qty_completed" gorm:"type:decimal(12,4);default:0"`
	QtyScrapped        float64    `json:"qty_scrapped" gorm:"type:decimal(12,4);default:0"`
	SetupTimeActual    float64    `json:"setup_time_actual" gorm:"type:decimal(10,2);default:0"`
	RunTimeActual      float64    `json:"run_time_actual" gorm:"type:decimal(10,2);default:0"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (WorkOrderOperation) TableName() string {
	return "mes_work_order_operations"
}

// WorkOrderMaterial 工单物料需求（BOM快照）
type WorkOrderMaterial struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	WorkOrderID string    `json:"work_order_id" gorm:"size:32;not null;index"`
	BOMLineID   *string   `json:"bom_line_id" gorm:"size:32"`
	ItemID      string    `json:"item_id" gorm:"size:32;not null"`
	QtyRequired float64   `json:"qty_required" gorm:"type:decimal(12,4);not null"` // 快照时计算，含损耗
	QtyIssued   float64   `json:"qty_issued" gorm:"type:decimal(12,4);default:0"`
	QtyReturned float64   `json:"qty_returned" gorm:"type:decimal(12,4);default:0"`
	UOM         string    `json:"uom" gorm:"size:20;not null;default:pcs"`
	Status      string    `json:"status" gorm:"size:20;not null;default:PENDING"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (WorkOrderMaterial) TableName() string {
	return "mes_work_order_materials"
}
