package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fridge-chef/internal/api"
	"fridge-chef/internal/api/handlers/health"
	"fridge-chef/internal/core/ai/service"
	"fridge-chef/internal/core/chat"
	"fridge-chef/internal/core/commit"
	"fridge-chef/internal/core/conversation"
	"fridge-chef/internal/core/inventory"
	"fridge-chef/internal/core/nutrition"
	"fridge-chef/internal/infrastructure/config"
	"fridge-chef/internal/infrastructure/persistence"
	redisclient "fridge-chef/internal/infrastructure/redis"
	"fridge-chef/internal/pkg/common"
	"fridge-chef/internal/pkg/metrics"

	goredis "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	// 載入 .env
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	// 載入設定
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.LogDir, cfg.App.Name); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("openrouter_api_key", cfg.OpenRouter.APIKey),
		zap.String("database_driver", cfg.Database.Driver),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
	)

	ctx := context.Background()

	// 指標
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// 資料庫
	db, err := persistence.Open(cfg.Database)
	if err != nil {
		common.LogFatal("Failed to open database", zap.Error(err))
	}
	defer func() {
		if err := persistence.Close(db); err != nil {
			common.LogError("Failed to close database", zap.Error(err))
		}
	}()

	checks := map[string]health.Check{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	// Redis（選用）
	var rdb *goredis.Client
	if cfg.Redis.Enabled {
		rdb, err = redisclient.NewClient(ctx, cfg.Redis)
		if err != nil {
			common.LogFatal("Failed to connect redis", zap.Error(err))
		}
		defer rdb.Close()
		checks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}

	// 食材
	snapshotCache := inventory.NewSnapshotCache(cfg.Inventory.CacheMaxSize, cfg.Inventory.CacheTTL, time.Minute)
	defer snapshotCache.Close()

	var broker inventory.Broker = inventory.NewMemoryBroker()
	if cfg.Inventory.Broker == "redis" {
		broker = inventory.NewRedisBroker(rdb)
	}
	inventoryProvider := inventory.NewProvider(persistence.NewIngredientRepository(db), snapshotCache, broker)

	// 營養紀錄與提交流程
	nutritionSvc := nutrition.NewService(persistence.NewMealLogRepository(db))
	workflow := commit.NewWorkflow(nutritionSvc, inventoryProvider,
		commit.WithConcurrency(cfg.Inventory.DeleteConcurrency),
		commit.WithMetrics(m),
	)

	// 模型閘道
	modelProvider, err := service.NewProvider(ctx, cfg)
	if err != nil {
		common.LogFatal("Failed to initialize AI provider", zap.Error(err))
	}
	aiService := service.NewService(modelProvider, cfg.AI.Workers, cfg.AI.MaxQueueSize, cfg.AI.Timeout, m)
	defer func() {
		if err := aiService.Close(); err != nil {
			common.LogError("Failed to close AI service", zap.Error(err))
		}
	}()

	// 對話
	var store conversation.Store = conversation.NewMemoryStore(cfg.Conversation.TTL)
	if cfg.Conversation.Store == "redis" {
		store = conversation.NewRedisStore(rdb, cfg.Conversation.TTL)
	}
	chatSvc := chat.NewService(aiService, inventoryProvider, store, workflow, m)

	// 設置路由
	router := api.SetupRouter(cfg, api.Dependencies{
		Chat:      chatSvc,
		Inventory: inventoryProvider,
		Meals:     nutritionSvc,
		Queue:     aiService,
		Model:     aiService.Model(),
		Checks:    checks,
		Gatherer:  registry,
	})

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}
