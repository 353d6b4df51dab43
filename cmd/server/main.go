// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"omnidocs-go/internal/chunkstore"
	"omnidocs-go/internal/config"
	"omnidocs-go/internal/handler"
	"omnidocs-go/internal/middleware"
	"omnidocs-go/internal/model"
	"omnidocs-go/internal/pipeline"
	"omnidocs-go/internal/quota"
	"omnidocs-go/internal/repository"
	"omnidocs-go/internal/segmenter"
	"omnidocs-go/internal/service"
	"omnidocs-go/internal/session"
	"omnidocs-go/internal/sweeper"
	"omnidocs-go/pkg/clamav"
	"omnidocs-go/pkg/database"
	"omnidocs-go/pkg/es"
	"omnidocs-go/pkg/kafka"
	"omnidocs-go/pkg/log"
	"omnidocs-go/pkg/storage"
	"omnidocs-go/pkg/tika"
	"omnidocs-go/pkg/token"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("./configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化外部依赖
	db, err := database.NewMySQL(cfg.Database.MySQL.DSN)
	if err != nil {
		log.Fatal("初始化 MySQL 失败", err)
	}
	if err := db.AutoMigrate(
		&model.Tenant{},
		&model.UploadSession{},
		&model.ChunkRange{},
		&model.Document{},
		&model.Segment{},
	); err != nil {
		log.Fatal("迁移数据库表结构失败", err)
	}

	rdb, err := database.NewRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err != nil {
		log.Fatal("初始化 Redis 失败", err)
	}
	store, err := storage.New(cfg.MinIO)
	if err != nil {
		log.Fatal("初始化 MinIO 失败", err)
	}
	esClient, err := es.New(cfg.Elasticsearch)
	if err != nil {
		log.Fatal("初始化 Elasticsearch 失败", err)
	}
	producer := kafka.NewProducer(cfg.Kafka)
	defer producer.Close()

	// 4. 初始化 Repository
	tenantRepo := repository.NewTenantRepository(db)
	sessionRepo := repository.NewSessionRepository(db, rdb)
	docRepo := repository.NewDocumentRepository(db)

	// 5. 组装上传状态机与文档服务
	ledger := quota.NewLedger(tenantRepo, sessionRepo)
	chunks := chunkstore.NewMinIO(store)
	documentService := service.NewDocumentService(docRepo, producer, store)
	machine := session.NewMachine(cfg.Upload, ledger, chunks, store, sessionRepo, documentService)

	// 6. 组装文档处理管道
	scanner := clamav.New(cfg.Scan)
	tikaClient := tika.NewClient(cfg.Tika.ServerURL)
	engine := segmenter.New(segmenter.WordTokenizer{}, segmenter.FromConfig(cfg.Chunking))
	processor := pipeline.NewProcessor(store, scanner, tikaClient, engine, docRepo, esClient, producer)

	// 7. 启动后台消费者与过期清扫器，统一由 rootCtx 控制停机
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	consumer := kafka.NewConsumer(cfg.Kafka, rdb, processor)
	go consumer.Run(rootCtx)
	go sweeper.New(machine, cfg.Sweeper.Interval()).Run(rootCtx)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.TokenExpireHours)
	hub := handler.NewHub()
	uploadHandler := handler.NewUploadHandler(machine, hub)
	documentHandler := handler.NewDocumentHandler(documentService)
	tenantHandler := handler.NewTenantHandler(ledger)

	// 9. 注册路由
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(jwtManager))
	{
		uploads := apiV1.Group("/documents/upload")
		{
			uploads.POST("/resumable", uploadHandler.InitUpload)
			uploads.PATCH("/resumable/:sessionID", uploadHandler.UploadChunk)
			uploads.GET("/resumable/:sessionID", uploadHandler.GetStatus)
			uploads.DELETE("/resumable/:sessionID", uploadHandler.CancelUpload)
			uploads.POST("/batch", uploadHandler.InitBatch)
		}

		documents := apiV1.Group("/documents")
		{
			documents.GET("", documentHandler.ListDocuments)
			documents.GET("/:id", documentHandler.GetDocument)
			documents.GET("/:id/segments", documentHandler.GetSegments)
			documents.GET("/:id/download", documentHandler.GenerateDownloadURL)
		}

		apiV1.GET("/tenants/quota", tenantHandler.GetQuota)
		apiV1.GET("/events", hub.Events)
	}

	// 10. 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务器异常退出: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("收到退出信号，开始优雅停机...")

	// 先停后台任务，再给在途请求一个收尾窗口
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("优雅停机失败: %v", err)
	}
	log.Info("服务已退出")
}
