package service

import (
	"errors"

	"github.com/bitfantasy/nimo-mes/internal/config"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// 错误定义
var (
	// ErrInvalidTransition 当前状态不允许该操作
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrInvalidQuantity 数量必须为正
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrToleranceExceeded 超出允差策略允许的数量
	ErrToleranceExceeded = errors.New("quantity exceeds allowed tolerance")
	// ErrBinMismatch 库位不属于期望的仓库
	ErrBinMismatch = errors.New("bin does not belong to the expected warehouse")
)

// retryOnDuplicate 取号走MAX+1，并发落败方撞唯一键后重算一次再提交
func retryOnDuplicate(fn func() error) error {
	err := fn()
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = fn()
	}
	return err
}

// Services MES 服务集合
type Services struct {
	Workstation *WorkstationService
	BOM         *BOMService
	Routing     *RoutingService
	WorkOrder   *WorkOrderService
	Ledger      *LedgerService
}

// NewServices 创建服务集合
func NewServices(
	repos *repository.Repositories,
	db *gorm.DB,
	stockLedger StockLedger,
	masterData MasterData,
	rdb *redis.Client,
	minioClient *minio.Client,
	cfg *config.Config,
) *Services {
	ledgerSvc := NewLedgerService(repos.Ledger, rdb, minioClient, cfg.MinIO.Bucket)
	return &Services{
		Workstation: NewWorkstationService(repos.Workstation),
		BOM:         NewBOMService(repos.BOM),
		Routing:     NewRoutingService(repos.Routing, repos.Workstation),
		WorkOrder:   NewWorkOrderService(repos.WorkOrder, repos.BOM, repos.Routing, repos.Ledger, ledgerSvc, stockLedger, masterData, db, cfg.Manufacturing),
		Ledger:      ledgerSvc,
	}
}
