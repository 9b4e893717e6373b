package api

import (
	"time"

	"fridge-chef/internal/api/handlers/chat"
	"fridge-chef/internal/api/handlers/health"
	"fridge-chef/internal/api/handlers/inventory"
	"fridge-chef/internal/api/handlers/meals"
	"fridge-chef/internal/api/middleware"
	"fridge-chef/internal/infrastructure/config"
	"fridge-chef/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies 路由使用的服務
type Dependencies struct {
	Chat      chat.Service
	Inventory inventory.Service
	Meals     meals.Service
	Queue     health.QueueReporter
	Model     string
	Checks    map[string]health.Check
	Gatherer  prometheus.Gatherer // nil 時不掛 /metrics
}

// StreamRoutes 長連線 SSE 路由，不套用請求逾時
var StreamRoutes = []string{
	"/api/v1/chat/messages/:id/reveal",
	"/api/v1/inventory/stream",
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger("/health", "/ready", "/live", "/metrics"))

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "X-User-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	if cfg.Server.RequestTimeout > 0 {
		router.Use(middleware.Timeout(cfg.Server.RequestTimeout, StreamRoutes...))
	}

	// 健康檢查路由
	healthHandler := health.NewHandler(cfg.App.Version, deps.Model, deps.Queue, deps.Checks)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// API 路由組，皆需身分
	auth := middleware.NewAuthenticator(cfg.Auth)
	api := router.Group("/api/v1", auth.Middleware())
	chat.NewHandler(deps.Chat, cfg.Conversation.RevealInterval, cfg.App.Debug).Register(api)
	inventory.NewHandler(deps.Inventory, cfg.App.Debug).Register(api)
	meals.NewHandler(deps.Meals, cfg.App.Debug).Register(api)

	common.LogInfo("Router setup completed successfully",
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Bool("header_identity", cfg.Auth.AllowHeaderIdentity),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router
}
