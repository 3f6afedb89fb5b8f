package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailsign/backend/internal/domain"
	"mailsign/backend/internal/service"
)

// errorStatus 业务错误 -> HTTP 状态码与中文消息
var errorStatus = []struct {
	err    error
	status int
	msg    string
}{
	{domain.ErrMailContentNotFound, http.StatusNotFound, "邮件表单不存在"},
	{domain.ErrSignatureOverrideNotFound, http.StatusNotFound, "署名覆盖不存在"},
	{domain.ErrMailConfigNotFound, http.StatusNotFound, "署名配置不存在"},
	{domain.ErrSignatureOverrideExists, http.StatusConflict, "该邮件表单已有署名覆盖"},
	{domain.ErrSignatureOverrideOwner, http.StatusConflict, "署名覆盖属于其他邮件表单"},
	{domain.ErrMailContentClosed, http.StatusForbidden, "邮件表单已停用"},
	{service.ErrInvalidRecipient, http.StatusBadRequest, "收件人地址无效"},
	{service.ErrInvalidConfig, http.StatusBadRequest, "署名配置无效"},
	{service.ErrDeliveryFailed, http.StatusBadGateway, "邮件发送失败，请稍后重试"},
}

// 通用错误消息
const (
	MsgInvalidRequest = "请求参数格式错误"
	MsgInvalidID      = "ID格式无效"
	MsgValidation     = "输入校验失败"
	MsgInternalError  = "服务器内部错误，请稍后重试"
)

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.msg
		}
	}
	return err.Error()
}

// respondError 将服务层错误映射为统一响应
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		UnprocessableEntity(c, MsgValidation, verrs)
		return
	}

	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			Error(c, e.status, e.msg)
			return
		}
	}

	log.Error("request failed",
		zap.String("path", c.FullPath()),
		zap.String("method", c.Request.Method),
		zap.Error(err),
	)
	InternalError(c, MsgInternalError)
}
