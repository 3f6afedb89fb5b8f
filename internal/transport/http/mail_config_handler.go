package httptransport

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailsign/backend/internal/domain"
	"mailsign/backend/internal/middleware"
	"mailsign/backend/internal/service"
)

// MailConfigHandler 全局署名配置API处理器
type MailConfigHandler struct {
	configs *service.MailConfigService
	log     *zap.Logger
}

// NewMailConfigHandler 创建署名配置处理器
func NewMailConfigHandler(configs *service.MailConfigService, log *zap.Logger) *MailConfigHandler {
	return &MailConfigHandler{configs: configs, log: log}
}

// Get 获取全局署名配置
func (h *MailConfigHandler) Get(c *gin.Context) {
	cfg, err := h.configs.GetMailConfig()
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	Success(c, cfg)
}

// Update 更新全局署名配置
func (h *MailConfigHandler) Update(c *gin.Context) {
	var req domain.SignatureFields
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	cfg, err := h.configs.UpdateMailConfig(service.UpdateMailConfigInput{
		SignatureFields: req,
		UpdatedBy:       c.GetString(middleware.ContextKeySubject),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	SuccessWithMsg(c, "署名配置更新成功", cfg)
}

// Reset 重置为默认署名配置
func (h *MailConfigHandler) Reset(c *gin.Context) {
	cfg, err := h.configs.ResetMailConfig(c.GetString(middleware.ContextKeySubject))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	SuccessWithMsg(c, "署名配置已重置为默认值", cfg)
}
