package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	jwtpkg "mailsign/backend/internal/auth/jwt"
	"mailsign/backend/internal/config"
	"mailsign/backend/internal/health"
	"mailsign/backend/internal/middleware"
	"mailsign/backend/internal/monitoring"
	"mailsign/backend/internal/service"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config             *config.Config
	MailContentService *service.MailContentService
	MailConfigService  *service.MailConfigService
	FormService        *service.FormService
	MailerService      *service.MailerService
	JWTManager         *jwtpkg.Manager
	HealthChecker      *health.HealthChecker // 可为 nil
	Metrics            *monitoring.Metrics   // 可为 nil
	Logger             *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()

	monitor := middleware.NewMonitoringMiddleware(deps.Metrics, log)
	router.Use(monitor.PanicRecovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.SecurityHeaders())
	router.Use(monitor.HTTPMetrics())
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))
	router.Use(gincors.New(corsConfig(deps.Config.CORS.AllowedOrigins)))

	contentHandler := NewMailContentHandler(deps.MailContentService, deps.FormService, log)
	configHandler := NewMailConfigHandler(deps.MailConfigService, log)
	sendHandler := NewMailSendHandler(deps.MailerService, log)
	jwtAuth := middleware.NewJWTAuth(deps.JWTManager, log)

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		if deps.HealthChecker == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		status := http.StatusOK
		if !deps.HealthChecker.IsHealthy() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, deps.HealthChecker.CheckHealth())
	})
	if deps.HealthChecker != nil {
		router.GET("/health/live", gin.WrapF(deps.HealthChecker.LiveEndpoint))
		router.GET("/health/ready", gin.WrapF(deps.HealthChecker.ReadyEndpoint))
	}

	// Prometheus 指标端点
	router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))

	v1 := router.Group("/v1")
	{
		send := []gin.HandlerFunc{}
		if rl := deps.Config.RateLimit; rl.Enabled && rl.Rate > 0 {
			send = append(send, middleware.NewIPRateLimiter(rl.Rate, rl.Burst).Middleware())
		}
		send = append(send, sendHandler.Send)
		v1.POST("/mail/:id/send", send...)

		adminRoutes := v1.Group("/admin")
		adminRoutes.Use(jwtAuth.RequireAdmin()) // 所有管理路由都需要管理员令牌
		{
			contents := adminRoutes.Group("/mail_contents")
			contents.GET("", contentHandler.List)
			contents.POST("", contentHandler.Create)
			contents.GET("/add", contentHandler.AddForm)
			contents.POST("/ajax_copy/:id", contentHandler.Copy)
			contents.GET("/:id", contentHandler.Get)
			contents.GET("/:id/edit", contentHandler.EditForm)
			contents.PUT("/:id", contentHandler.Update)
			contents.DELETE("/:id", contentHandler.Delete)

			adminRoutes.GET("/mail_config", configHandler.Get)
			adminRoutes.PUT("/mail_config", configHandler.Update)
			adminRoutes.POST("/mail_config/reset", configHandler.Reset)
		}
	}

	return router
}

// corsConfig 构建 CORS 配置；允许所有来源时不携带凭证
func corsConfig(origins []string) gincors.Config {
	cfg := gincors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowOrigins = nil
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			break
		}
	}
	return cfg
}
