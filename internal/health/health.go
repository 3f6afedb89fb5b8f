package health

import (
	"fmt"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"mailsign/backend/internal/storage"
)

// 单项检查的超时时间
const checkTimeout = 3 * time.Second

// HealthChecker 健康检查器
//
// 存活检查只关注进程本身；就绪检查额外要求存储可用，
// 配置了 SMTP 中继时还要求其端口可连接。
type HealthChecker struct {
	health healthcheck.Handler
	store  storage.Store
	logger *zap.Logger
}

// Options 可选检查项
type Options struct {
	SMTPAddr       string // SMTP 中继地址 host:port，留空不检查
	MaxGoroutines  int    // goroutine 数量上限，0 使用默认值
	SkipGoroutines bool
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(store storage.Store, logger *zap.Logger, opts Options) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := &HealthChecker{
		health: healthcheck.NewHandler(),
		store:  store,
		logger: logger.Named("health"),
	}
	hc.addChecks(opts)
	return hc
}

func (hc *HealthChecker) addChecks(opts Options) {
	if !opts.SkipGoroutines {
		limit := opts.MaxGoroutines
		if limit <= 0 {
			limit = 10000
		}
		hc.health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(limit))
	}

	hc.health.AddReadinessCheck("database", healthcheck.Timeout(hc.checkStore, checkTimeout))

	if opts.SMTPAddr != "" {
		hc.health.AddReadinessCheck("smtp", healthcheck.TCPDialCheck(opts.SMTPAddr, checkTimeout))
	}
}

func (hc *HealthChecker) checkStore() error {
	if err := hc.store.Health(); err != nil {
		hc.logger.Warn("store health check failed", zap.Error(err))
		return err
	}
	return nil
}

// Handler 返回健康检查处理器（自带 /live 与 /ready 路径）
func (hc *HealthChecker) Handler() http.Handler {
	return hc.health
}

// LiveEndpoint 存活检查
func (hc *HealthChecker) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.LiveEndpoint(w, r)
}

// ReadyEndpoint 就绪检查
func (hc *HealthChecker) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.ReadyEndpoint(w, r)
}

// CheckHealth 执行一次检查并返回各项结果，用于 /health 汇总
func (hc *HealthChecker) CheckHealth() map[string]string {
	results := make(map[string]string)

	if err := hc.store.Health(); err != nil {
		results["database"] = fmt.Sprintf("ERROR: %v", err)
	} else {
		results["database"] = "OK"
	}
	results["timestamp"] = time.Now().Format(time.RFC3339)

	return results
}

// IsHealthy 存储是否可用
func (hc *HealthChecker) IsHealthy() bool {
	return hc.store.Health() == nil
}
