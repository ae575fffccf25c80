package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"
)

const summaryCacheTTL = 5 * time.Minute

// LedgerService 生产台账查询与报表服务。
// 台账本身只追加，汇总可缓存；任何执行事件提交后缓存失效。
type LedgerService struct {
	repo        *repository.LedgerRepository
	rdb         *redis.Client
	minioClient *minio.Client
	bucket      string
}

func NewLedgerService(repo *repository.LedgerRepository, rdb *redis.Client, minioClient *minio.Client, bucket string) *LedgerService {
	return &LedgerService{repo: repo, rdb: rdb, minioClient: minioClient, bucket: bucket}
}

// List 查询台账分录
func (s *LedgerService) List(ctx context.Context, tenantID string, params repository.LedgerListParams) ([]entity.ProductionLedgerEntry, int64, error) {
	return s.repo.FindAll(ctx, tenantID, params)
}

func summaryCacheKey(tenantID string) string {
	return "mes:ledger:wo-summary:" + tenantID
}

// SummaryByWorkOrder 按工单汇总，优先走缓存
func (s *LedgerService) SummaryByWorkOrder(ctx context.Context, tenantID string) ([]repository.WorkOrderSummary, error) {
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, summaryCacheKey(tenantID)).Bytes()
		if err == nil {
			var rows []repository.WorkOrderSummary
			if json.Unmarshal(cached, &rows) == nil {
				return rows, nil
			}
		}
	}

	rows, err := s.repo.SummaryByWorkOrder(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("summary by work order: %w", err)
	}

	if s.rdb != nil {
		if data, err := json.Marshal(rows); err == nil {
			s.rdb.Set(ctx, summaryCacheKey(tenantID), data, summaryCacheTTL)
		}
	}
	return rows, nil
}

// InvalidateSummaryCache 执行事件提交后使汇总缓存失效
func (s *LedgerService) InvalidateSummaryCache(ctx context.Context, tenantID string) {
	if s.rdb == nil {
		return
	}
	s.rdb.Del(ctx, summaryCacheKey(tenantID))
}

// SummaryByItem 按物料汇总指定时间段
func (s *LedgerService) SummaryByItem(ctx context.Context, tenantID string, dateFrom, dateTo *time.Time) ([]repository.ItemSummary, error) {
	return s.repo.SummaryByItem(ctx, tenantID, dateFrom, dateTo)
}

// ExportWorkOrderSummary 导出工单汇总Excel，配置了MinIO时同时归档一份
func (s *LedgerService) ExportWorkOrderSummary(ctx context.Context, tenantID string) ([]byte, string, error) {
	rows, err := s.SummaryByWorkOrder(ctx, tenantID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "WorkOrderSummary"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Work Order No", "Item", "Status", "Qty Ordered", "Total Issued", "Total Output", "Total Scrap"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	for i, row := range rows {
		values := []interface{}{row.WorkOrderNo, row.ItemID, row.Status, row.QtyOrdered, row.TotalIssued, row.TotalOutput, row.TotalScrap}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("write excel: %w", err)
	}

	filename := fmt.Sprintf("wo-summary-%s-%s.xlsx", tenantID, time.Now().Format("20060102-150405"))
	if s.minioClient != nil && s.bucket != "" {
		objectName := "exports/" + filename
		_, err := s.minioClient.PutObject(ctx, s.bucket, objectName,
			bytes.NewReader(buf.Bytes()), int64(buf.Len()),
			minio.PutObjectOptions{ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"})
		if err != nil {
			return nil, "", fmt.Errorf("archive export: %w", err)
		}
	}

	return buf.Bytes(), filename, nil
}
