package entity

import "gorm.io/gorm"

// AutoMigrate 自动迁移所有MES表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 基础资源
		&Workstation{},

		// 版本化工艺文档
		&BOMHeader{},
		&BOMLine{},
		&Routing{},
		&RoutingOperation{},

		// 生产执行
		&WorkOrder{},
		&WorkOrderOperation{},
		&WorkOrderMaterial{},

		// 生产台账
		&ProductionLedgerEntry{},
	)
}
