package main

import (
	"context"
	"log"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	awstranscribe "github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"BedrockMinutes/internal/ai"
	"BedrockMinutes/internal/conf"
	"BedrockMinutes/internal/data"
	"BedrockMinutes/internal/handler"
	"BedrockMinutes/internal/middleware"
	"BedrockMinutes/internal/repository"
	"BedrockMinutes/internal/service"
	"BedrockMinutes/internal/storage"
	"BedrockMinutes/internal/transcribe"
	"BedrockMinutes/internal/workflow"
)

func main() {
	// 1. 加载配置
	cfg := conf.LoadConfig()

	// 2. 初始化 AWS 客户端 (Bedrock + Transcribe)
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.AWS.Region),
	)
	if err != nil {
		log.Fatalf("❌ AWS 配置加载失败: %v", err)
	}
	bedrockClient := bedrockruntime.NewFromConfig(awsCfg)
	transcribeClient := awstranscribe.NewFromConfig(awsCfg)

	// 3. 初始化数据层 (Postgres, Redis, MinIO)
	d, cleanup, err := data.NewData(cfg)
	if err != nil {
		log.Fatalf("❌ 数据层初始化失败: %v", err)
	}
	defer cleanup()

	// 4. 初始化存储与仓库
	store := storage.NewMinioStore(d.Minio, cfg.Data.MinioBucket)
	locker := repository.NewRedisLocker(d.Redis)
	meetingRepo := repository.NewMeetingRepository(store, locker)
	templateRepo := repository.NewTemplateRepository(store)

	// 默认模板随启动落盘，保证任何时候都可用
	if err := templateRepo.EnsureDefault(context.Background()); err != nil {
		log.Fatalf("❌ 默认模板初始化失败: %v", err)
	}

	// 5. 初始化 AI 引擎与转录适配器
	retryPolicy := ai.RetryPolicy{
		MaxAttempts: cfg.Pipeline.MaxRetries,
		BaseDelay:   cfg.Pipeline.RetryBaseDelay,
	}
	invoker := ai.NewBedrockClient(bedrockClient, cfg.AWS.BedrockModelID)
	extractor := ai.NewExtractor(invoker, retryPolicy)
	optimizer := ai.NewOptimizer(invoker, retryPolicy)

	transcriber := transcribe.NewAdapter(transcribeClient, store, transcribe.Config{
		Bucket:       cfg.Data.MinioBucket,
		PollInterval: cfg.Pipeline.TranscribePollInterval,
		MaxWait:      cfg.Pipeline.TranscribeMaxWait,
	})

	// 6. 初始化服务层与工作流编排器
	logService := service.NewLogService(d)
	orch := workflow.NewOrchestrator(
		meetingRepo,
		templateRepo,
		transcriber,
		extractor,
		optimizer,
		logService,
		workflow.Config{
			Language:                cfg.AWS.TranscribeLanguage,
			MaxAudioDurationSeconds: cfg.Pipeline.MaxAudioDurationSeconds,
		},
	)
	meetingService := service.NewMeetingService(meetingRepo, orch, cfg)
	templateService := service.NewTemplateService(templateRepo)

	// 7. 初始化 Handler (控制器)
	meetingHandler := handler.NewMeetingHandler(meetingService)
	templateHandler := handler.NewTemplateHandler(templateService)
	logHandler := handler.NewLogHandler(logService)

	// 8. 初始化 Gin Web Server
	r := gin.Default()
	r.Use(middleware.Trace())

	// 配置 CORS 跨域
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // 开发环境允许所有，生产环境建议指定前端域名
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "X-Trace-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Trace-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 9. 注册路由
	api := r.Group("/api/v1")
	{
		meetings := api.Group("/meetings")
		{
			meetings.POST("", meetingHandler.Create)
			meetings.GET("", meetingHandler.List)
			meetings.GET("/:id", meetingHandler.Get)
			meetings.POST("/:id/feedback", meetingHandler.SubmitFeedback)
			meetings.GET("/:id/export", meetingHandler.Export)
		}

		templates := api.Group("/templates")
		{
			templates.GET("", templateHandler.List)
			templates.POST("", templateHandler.Create)
			templates.GET("/:id", templateHandler.Get)
		}

		api.GET("/logs", logHandler.List)
		api.GET("/stats", logHandler.Stats)
	}

	log.Printf("🚀 会议纪要服务已启动，监听端口 :%s", cfg.App.Port)
	if err := r.Run(":" + cfg.App.Port); err != nil {
		log.Fatalf("❌ Server 启动失败: %v", err)
	}
}
