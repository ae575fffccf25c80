package entity

import "time"

// 工艺路线状态（无待审批环节，草稿直接批准）
const (
	RoutingStatusDraft    = "DRAFT"
	RoutingStatusApproved = "APPROVED"
	RoutingStatusObsolete = "OBSOLETE"
)

var routingTransitions = map[string][]string{
	RoutingStatusDraft:    {RoutingStatusApproved, RoutingStatusObsolete},
	RoutingStatusApproved: {RoutingStatusObsolete},
	RoutingStatusObsolete: {},
}

// CanTransitionRouting 判断工艺路线状态迁移是否合法
func CanTransitionRouting(from, to string) bool {
	for _, next := range routingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Routing 工艺路线（按租户+产品独立递增版本）
type Routing struct {
	ID            string     `json:"id" gorm:"primaryKey;size:32"`
	TenantID      string     `json:"tenant_id" gorm:"size:32;not null;uniqueIndex:idx_routing_tenant_item_version"`
	ItemID        string     `json:"item_id" gorm:"size:32;not null;uniqueIndex:idx_routing_tenant_item_version"`
	Version       int        `json:"version" gorm:"not null;uniqueIndex:idx_routing_tenant_item_version"`
	Name          string     `json:"name" gorm:"size:128;not null"`
	Status        string     `json:"status" gorm:"size:20;not null;default:DRAFT"`
	EffectiveFrom *time.Time `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to"`
	ApprovedBy    *string    `json:"approved_by" gorm:"size:32"`
	ApprovedAt    *time.Time `json:"approved_at"`
	Notes         string     `json:"notes" gorm:"type:text"`
	CreatedBy     string     `json:"created_by" gorm:"size:32;not null"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Operations []RoutingOperation `json:"operations,omitempty" gorm:"foreignKey:RoutingID"`
}

func (Routing) TableName() string {
	return "mes_routings"
}

// RoutingOperation 工艺路线工序
type RoutingOperation struct {
	ID              string    `json:"id" gorm:"primaryKey;size:32"`
	RoutingID       string    `json:"routing_id" gorm:"size:32;not null;index"`
	OperationNo     int       `json:"operation_no" gorm:"not null"` // 10, 20, 30...
	Name            string    `json:"name" gorm:"size:128;not null"`
	WorkstationID   *string   `json:"workstation_id" gorm:"size:32"` // 委外工序可为空
	SetupTimeMins   float64   `json:"setup_time_mins" gorm:"type:decimal(10,2);default:0"`
	RunTimeMins     float64   `json:"run_time_mins" gorm:"type:decimal(10,2);default:0"`
	QueueTimeMins   float64   `json:"queue_time_mins" gorm:"type:decimal(10,2);default:0"`
	OverlapPct      float64   `json:"overlap_pct" gorm:"type:decimal(5,2);default:0"`
	IsSubcontracted bool      `json:"is_subcontracted" gorm:"default:false"`
	Instructions    string    `json:"instructions" gorm:"type:text"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (RoutingOperation) TableName() string {
	return "mes_routing_operations"
}
