package entity

import "time"

// WorkstationStatus 工作中心状态
const (
	WorkstationStatusActive   = "ACTIVE"
	WorkstationStatusInactive = "INACTIVE"
)

// Workstation 工作中心（生产资源）
type Workstation struct {
	ID              string     `json:"id" gorm:"primaryKey;size:32"`
	TenantID        string     `json:"tenant_id" gorm:"size:32;not null;uniqueIndex:idx_workstation_tenant_code"`
	SiteID          string     `json:"site_id" gorm:"size:32"`
	Code            string     `json:"code" gorm:"size:50;not null;uniqueIndex:idx_workstation_tenant_code"`
	Name            string     `json:"name" gorm:"size:128;not null"`
	Type            string     `json:"type" gorm:"size:32"` // ASSEMBLY, SMT, TEST, PACKAGING...
	CapacityPerHour float64    `json:"capacity_per_hour" gorm:"type:decimal(12,4);default:0"`
	CostPerHour     float64    `json:"cost_per_hour" gorm:"type:decimal(12,4);default:0"`
	Status          string     `json:"status" gorm:"size:20;not null;default:ACTIVE"`
	Notes           string     `json:"notes" gorm:"type:text"`
	CreatedBy       string     `json:"created_by" gorm:"size:32"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at" gorm:"index"`
}

func (Workstation) TableName() string {
	return "mes_workstations"
}
