package entity

import "time"

// BOM状态
const (
	BOMStatusDraft           = "DRAFT"
	BOMStatusPendingApproval = "PENDING_APPROVAL"
	BOMStatusApproved        = "APPROVED"
	BOMStatusObsolete        = "OBSOLETE"
)

// bomTransitions BOM状态机：每个状态允许进入的下一状态
var bomTransitions = map[string][]string{
	BOMStatusDraft:           {BOMStatusPendingApproval, BOMStatusObsolete},
	BOMStatusPendingApproval: {BOMStatusApproved, BOMStatusObsolete},
	BOMStatusApproved:        {BOMStatusObsolete},
	BOMStatusObsolete:        {},
}

// CanTransitionBOM 判断BOM状态迁移是否合法
func CanTransitionBOM(from, to string) bool {
	for _, next := range bomTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// BOMHeader BOM头表（按租户+产品独立递增版本）
type BOMHeader struct {
	ID            string     `json:"id" gorm:"primaryKey;size:32"`
	TenantID      string     `json:"tenant_id" gorm:"size:32;not null;uniqueIndex:idx_bom_tenant_item_version"`
	ItemID        string     `json:"item_id" gorm:"size:32;not null;uniqueIndex:idx_bom_tenant_item_version"`
	Version       int        `json:"version" gorm:"not null;uniqueIndex:idx_bom_tenant_item_version"`
	Revision      string     `json:"revision" gorm:"size:16;default:A"`
	Status        string     `json:"status" gorm:"size:20;not null;default:DRAFT"`
	EffectiveFrom *time.Time `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to"`
	BaseQty       float64    `json:"base_qty" gorm:"type:decimal(12,4);not null;default:1"`
	UOM           string     `json:"uom" gorm:"size:20;not null;default:pcs"`
	ApprovedBy    *string    `json:"approved_by" gorm:"size:32"`
	ApprovedAt    *time.Time `json:"approved_at"`
	Notes         string     `json:"notes" gorm:"type:text"`
	CreatedBy     string     `json:"created_by" gorm:"size:32;not null"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Lines []BOMLine `json:"lines,omitempty" gorm:"foreignKey:BOMHeaderID"`
}

func (BOMHeader) TableName() string {
	return "mes_bom_headers"
}

// BOMLine BOM行项
type BOMLine struct {
	ID              string    `json:"id" gorm:"primaryKey;size:32"`
	BOMHeaderID     string    `json:"bom_header_id" gorm:"size:32;not null;index"`
	LineNo          int       `json:"line_no" gorm:"not null"` // 10, 20, 30...
	ComponentItemID string    `json:"component_item_id" gorm:"size:32;not null"`
	QtyPer          float64   `json:"qty_per" gorm:"type:decimal(12,4);not null"` // 每BaseQty用量
	UOM             string    `json:"uom" gorm:"size:20;not null;default:pcs"`
	ScrapPct        float64   `json:"scrap_pct" gorm:"type:decimal(5,2);default:0"` // 0-100
	IsCritical      bool      `json:"is_critical" gorm:"default:false"`
	Notes           string    `json:"notes" gorm:"type:text"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (BOMLine) TableName() string {
	return "mes_bom_lines"
}
