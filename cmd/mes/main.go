package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/nimo-mes/internal/config"
	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/handler"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/bitfantasy/nimo-mes/internal/middleware"
	stockentity "github.com/bitfantasy/nimo-mes/internal/stock/entity"
	stockrepo "github.com/bitfantasy/nimo-mes/internal/stock/repository"
	stocksvc "github.com/bitfantasy/nimo-mes/internal/stock/service"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting nimo-mes service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// 建表：库存主数据/余额/流水 + 生产域
	if err := stockentity.AutoMigrate(db); err != nil {
		zapLogger.Fatal("AutoMigrate stock tables failed", zap.Error(err))
	}
	if err := entity.AutoMigrate(db); err != nil {
		zapLogger.Fatal("AutoMigrate mes tables failed", zap.Error(err))
	}

	// Redis：未配置则跳过，汇总缓存自动退化为直查
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = initRedis(cfg.Redis)
	} else {
		zapLogger.Warn("Redis not configured, summary cache disabled")
	}

	// MinIO：未配置则跳过，导出不归档
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			zapLogger.Warn("MinIO init failed, export archive disabled", zap.Error(err))
			minioClient = nil
		}
	}

	// 库存账
	stockRepos := stockrepo.NewRepositories(db)
	stockService := stocksvc.NewStockService(stockRepos.Stock, stockRepos.Warehouse, db)

	// 生产域
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, stockService, stockService, rdb, minioClient, cfg)
	handlers := handler.NewHandlers(services)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	api := r.Group("/api/v1/manufacturing")
	api.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		ws := api.Group("/workstations")
		{
			ws.POST("", h.Workstation.Create)
			ws.GET("", h.Workstation.List)
			ws.GET("/:id", h.Workstation.Get)
			ws.PUT("/:id", h.Workstation.Update)
			ws.DELETE("/:id", h.Workstation.Delete)
		}

		boms := api.Group("/boms")
		{
			boms.POST("", h.BOM.Create)
			boms.GET("", h.BOM.List)
			boms.GET("/versions", h.BOM.ListVersions)
			boms.GET("/:id", h.BOM.Get)
			boms.PUT("/:id", h.BOM.Update)
			boms.DELETE("/:id", h.BOM.Delete)
			boms.POST("/:id/submit", h.BOM.Submit)
			boms.POST("/:id/approve", h.BOM.Approve)
			boms.POST("/:id/obsolete", h.BOM.Obsolete)
			boms.POST("/:id/new-version", h.BOM.NewVersion)
			boms.GET("/:id/compare/:otherId", h.BOM.Compare)
			boms.POST("/:id/lines", h.BOM.AddLine)
			boms.PUT("/:id/lines/:lineId", h.BOM.UpdateLine)
			boms.DELETE("/:id/lines/:lineId", h.BOM.DeleteLine)
		}

		routings := api.Group("/routings")
		{
			routings.POST("", h.Routing.Create)
			routings.GET("", h.Routing.List)
			routings.GET("/versions", h.Routing.ListVersions)
			routings.GET("/:id", h.Routing.Get)
			routings.PUT("/:id", h.Routing.Update)
			routings.DELETE("/:id", h.Routing.Delete)
			routings.POST("/:id/approve", h.Routing.Approve)
			routings.POST("/:id/obsolete", h.Routing.Obsolete)
			routings.POST("/:id/new-version", h.Routing.NewVersion)
			routings.POST("/:id/operations", h.Routing.AddOperation)
			routings.PUT("/:id/operations/:opId", h.Routing.UpdateOperation)
			routings.DELETE("/:id/operations/:opId", h.Routing.DeleteOperation)
		}

		wos := api.Group("/work-orders")
		{
			wos.POST("", h.WorkOrder.Create)
			wos.GET("", h.WorkOrder.List)
			wos.GET("/:id", h.WorkOrder.Get)
			wos.POST("/:id/release", h.WorkOrder.Release)
			wos.POST("/:id/start", h.WorkOrder.Start)
			wos.POST("/:id/complete", h.WorkOrder.Complete)
			wos.POST("/:id/cancel", h.WorkOrder.Cancel)
			wos.POST("/:id/operations/:opId/start", h.WorkOrder.StartOperation)
			wos.POST("/:id/operations/:opId/complete", h.WorkOrder.CompleteOperation)
			wos.POST("/:id/materials/:materialId/issue", h.WorkOrder.IssueMaterial)
			wos.POST("/:id/materials/:materialId/return", h.WorkOrder.ReturnMaterial)
			wos.POST("/:id/record-output", h.WorkOrder.RecordOutput)
			wos.POST("/:id/record-scrap", h.WorkOrder.RecordScrap)
		}

		ledger := api.Group("/production-ledger")
		{
			ledger.GET("", h.Ledger.List)
			ledger.GET("/summary/work-orders", h.Ledger.SummaryByWorkOrder)
			ledger.GET("/summary/items", h.Ledger.SummaryByItem)
			ledger.GET("/export", h.Ledger.Export)
		}
	}
}
