package httptransport

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailsign/backend/internal/domain"
	"mailsign/backend/internal/middleware"
	"mailsign/backend/internal/service"
)

// MailContentHandler 后台邮件表单API处理器
type MailContentHandler struct {
	contents *service.MailContentService
	forms    *service.FormService
	log      *zap.Logger
}

// NewMailContentHandler 创建邮件表单处理器
func NewMailContentHandler(contents *service.MailContentService, forms *service.FormService, log *zap.Logger) *MailContentHandler {
	return &MailContentHandler{contents: contents, forms: forms, log: log}
}

// parseID 解析路径中的数字 ID
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(c, MsgInvalidID)
		return 0, false
	}
	return id, true
}

// List 列出邮件表单（带出署名覆盖）
func (h *MailContentHandler) List(c *gin.Context) {
	contents, err := h.contents.List()
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	Success(c, contents)
}

// Get 获取邮件表单详情
func (h *MailContentHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	content, err := h.contents.Get(id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	Success(c, content)
}

// Create 新建邮件表单
func (h *MailContentHandler) Create(c *gin.Context) {
	var req service.MailContentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	content, err := h.contents.Save(domain.ParseAction(domain.RouteActionAdd), 0, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	CreatedWithMsg(c, "邮件表单创建成功", content)
}

// Update 编辑邮件表单
func (h *MailContentHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req service.MailContentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	content, err := h.contents.Save(domain.ParseAction(domain.RouteActionEdit, c.Param("id")), id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	SuccessWithMsg(c, "邮件表单更新成功", content)
}

// Copy 复制邮件表单，路径参数为复制来源
func (h *MailContentHandler) Copy(c *gin.Context) {
	content, err := h.contents.Copy(domain.ParseAction(domain.RouteActionAjaxCopy, c.Param("id")))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	CreatedWithMsg(c, "邮件表单复制成功", content)
}

// Delete 删除邮件表单
func (h *MailContentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.contents.Delete(id); err != nil {
		respondError(c, h.log, err)
		return
	}
	SuccessWithMsg(c, "邮件表单已删除", nil)
}

// AddForm 新建表单的渲染数据
func (h *MailContentHandler) AddForm(c *gin.Context) {
	Success(c, h.forms.AddForm(middleware.IsAdminRequest(c)))
}

// EditForm 编辑表单的渲染数据
func (h *MailContentHandler) EditForm(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	data, err := h.forms.EditForm(id, middleware.IsAdminRequest(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	Success(c, data)
}
