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

	"course-rag-go/internal/config"
	"course-rag-go/internal/handler"
	"course-rag-go/internal/lms"
	"course-rag-go/internal/middleware"
	"course-rag-go/internal/pipeline"
	"course-rag-go/internal/repository"
	"course-rag-go/internal/service"
	"course-rag-go/internal/vectorstore"
	"course-rag-go/pkg/database"
	"course-rag-go/pkg/embedding"
	"course-rag-go/pkg/kafka"
	"course-rag-go/pkg/log"
	"course-rag-go/pkg/storage"
	"course-rag-go/pkg/tika"
)

func main() {
	// 1. 加载配置（显式传递，不走全局变量）
	cfg, err := config.Load("./configs/config.yaml")
	if err != nil {
		panic(err)
	}

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、MinIO 与 Kafka 生产者
	database.InitPostgres(cfg.Database.Postgres.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	kafka.InitProducer(cfg.Kafka)

	// 4. 初始化向量库。一个 Store 实例独占一条连接：
	// 流水线消费者单 goroutine 用自己的实例，HTTP 侧用串行化包装共享一个实例。
	storeCfg := vectorstore.Config{
		DSN:         cfg.Database.Postgres.DSN,
		TablePrefix: cfg.VectorStore.TablePrefix,
		IndexKind:   cfg.VectorStore.IndexKind,
		MaxTopK:     cfg.VectorStore.MaxTopK,
	}
	pipelineStore, err := vectorstore.New(storeCfg)
	if err != nil {
		log.Fatal("初始化向量库失败", err)
	}
	httpStoreRaw, err := vectorstore.New(storeCfg)
	if err != nil {
		log.Fatal("初始化向量库失败", err)
	}
	httpStore := vectorstore.Synchronized(httpStoreRaw)

	// 5. 初始化 Repository 与外部客户端
	fileRepo := repository.NewCourseFileRepository(database.DB, database.RDB)
	tikaClient := tika.NewClient(cfg.Tika)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	lmsClient := lms.NewClient(cfg.LMS)

	// 6. 初始化 Service (依赖注入)
	objectCache := &pipeline.MinioCache{Bucket: cfg.MinIO.BucketName}
	searchService := service.NewSearchService(embeddingClient, httpStore, fileRepo)
	courseService := service.NewCourseService(lmsClient, httpStore, fileRepo, kafka.ProduceIndexTask)
	documentService := service.NewDocumentService(httpStore, fileRepo, objectCache)

	// 7. 初始化文件处理管道 (Processor) 并启动后台 Kafka 消费者
	processor := pipeline.NewProcessor(
		tikaClient,
		embeddingClient,
		lmsClient,
		objectCache,
		pipelineStore,
		fileRepo,
		cfg.Embedding,
	)
	go kafka.StartConsumer(cfg.Kafka, processor)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		search := apiV1.Group("/search")
		{
			search.GET("", handler.NewSearchHandler(searchService).Search)
		}

		courses := apiV1.Group("/courses")
		{
			courseHandler := handler.NewCourseHandler(courseService)
			courses.POST("/:courseId/sync", courseHandler.SyncCourse)
			courses.GET("/:courseId/files", courseHandler.ListCourseFiles)
		}

		documents := apiV1.Group("/documents")
		{
			documents.DELETE("/:fileId", handler.NewDocumentHandler(documentService).DeleteDocument)
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器与向量库连接
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	if err := httpStore.Close(ctx); err != nil {
		log.Errorf("关闭向量库连接失败: %v", err)
	}
	if err := pipelineStore.Close(ctx); err != nil {
		log.Errorf("关闭向量库连接失败: %v", err)
	}

	// Kafka 消费者是一个循环，会在进程退出时自然结束；
	// 如需更精细的控制，可以在 StartConsumer 中加一个关闭通道。
	log.Info("服务已优雅关闭")
}
