package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	jwtpkg "mailsign/backend/internal/auth/jwt"
	"mailsign/backend/internal/cache"
	"mailsign/backend/internal/config"
	"mailsign/backend/internal/event"
	"mailsign/backend/internal/health"
	"mailsign/backend/internal/listener"
	"mailsign/backend/internal/logger"
	"mailsign/backend/internal/monitoring"
	"mailsign/backend/internal/service"
	"mailsign/backend/internal/smtp"
	"mailsign/backend/internal/storage/factory"
	httptransport "mailsign/backend/internal/transport/http"
)

const version = "0.3.0"

// main 启动邮件表单与署名切换的 HTTP 服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if cfg.Log.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     cfg.Log.File,
		MaxSize:     cfg.Log.MaxSize,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAge:      cfg.Log.MaxAge,
		Compress:    cfg.Log.Compress,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting mailsign server",
		zap.String("version", version),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
	log.Info("server stopped")
}

func run(cfg *config.Config, log *zap.Logger) error {
	store, err := factory.Open(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close store", zap.Error(err))
		}
	}()

	metrics := monitoring.NewMetrics()
	smtpAddr := net.JoinHostPort(cfg.Mail.Host, strconv.Itoa(cfg.Mail.Port))
	healthChecker := health.NewHealthChecker(store, log, health.Options{SMTPAddr: smtpAddr})

	localCache := cache.NewLocalCache(cfg.Cache.MailConfigTTL, cfg.Cache.CleanupInterval)
	defer localCache.Stop()

	// 事件总线与署名切换监听器
	bus := event.NewBus(log)
	listener.NewContentSyncListener(store, log, metrics).Register(bus)

	mailConfigService := service.NewMailConfigService(store, localCache)
	listener.NewSignatureSubstitutionListener(store, mailConfigService, log, metrics).Register(bus)

	mailContentService := service.NewMailContentService(store, bus, log)
	formService := service.NewFormService(mailContentService, bus)

	sender := smtp.NewSMTPSender(smtp.SenderConfig{
		Host:      cfg.Mail.Host,
		Port:      cfg.Mail.Port,
		Username:  cfg.Mail.Username,
		Password:  cfg.Mail.Password,
		StartTLS:  cfg.Mail.StartTLS,
		LocalName: cfg.Mail.LocalName,
		Timeout:   cfg.Mail.Timeout,
		MaxConns:  cfg.Mail.MaxConns,
		MaxRate:   cfg.Mail.MaxRate,
	}, log)
	mailerService := service.NewMailerService(mailContentService, mailConfigService, bus, sender, service.MailerOptions{
		From:         cfg.Mail.From,
		AdminAddress: cfg.Mail.AdminAddress,
		Charset:      cfg.Mail.Charset,
	}, log, metrics)

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:             cfg,
		MailContentService: mailContentService,
		MailConfigService:  mailConfigService,
		FormService:        formService,
		MailerService:      mailerService,
		JWTManager:         jwtpkg.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessExpiry),
		HealthChecker:      healthChecker,
		Metrics:            metrics,
		Logger:             log,
	})

	httpServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening",
			zap.String("addr", httpServer.Addr),
			zap.Int("hooks_after_save", bus.Count(event.AfterSave)),
			zap.Int("hooks_before_send_email", bus.Count(event.BeforeSendEmail)),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}
