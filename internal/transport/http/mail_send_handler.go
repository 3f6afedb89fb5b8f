package httptransport

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailsign/backend/internal/service"
)

// MailSendHandler 公开的表单发信API处理器
type MailSendHandler struct {
	mailer *service.MailerService
	log    *zap.Logger
}

// NewMailSendHandler 创建发信处理器
func NewMailSendHandler(mailer *service.MailerService, log *zap.Logger) *MailSendHandler {
	return &MailSendHandler{mailer: mailer, log: log}
}

// Send 发送表单受理邮件
func (h *MailSendHandler) Send(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req service.SendInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.mailer.Send(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	SuccessWithMsg(c, "邮件已发送", result)
}
