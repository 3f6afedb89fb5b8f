package service

import (
	"mailsign/backend/internal/domain"
	"mailsign/backend/internal/event"
)

// FormService 后台邮件表单的渲染数据
type FormService struct {
	contents *MailContentService
	bus      *event.Bus
}

// NewFormService 创建表单服务
func NewFormService(contents *MailContentService, bus *event.Bus) *FormService {
	return &FormService{contents: contents, bus: bus}
}

// AddForm 新增表单的初始数据
func (s *FormService) AddForm(admin bool) *event.FormData {
	rc := &event.RenderContext{
		Admin:  admin,
		Action: domain.CreateAction(),
		Data:   &event.FormData{MailContent: &domain.MailContent{}},
	}
	s.bus.FireBeforeRender(rc)
	return rc.Data
}

// EditForm 编辑表单的数据。
//
// 表单总是带有署名覆盖子载荷；尚无记录时为只有外键的空载荷，由渲染钩子替换为默认值。
func (s *FormService) EditForm(id int64, admin bool) (*event.FormData, error) {
	content, err := s.contents.Get(id)
	if err != nil {
		return nil, err
	}

	override := content.SignatureOverride
	if override == nil {
		override = &domain.SignatureOverride{MailContentID: content.ID}
	}
	content.SignatureOverride = nil

	rc := &event.RenderContext{
		Admin:  admin,
		Action: domain.EditAction(),
		Data: &event.FormData{
			MailContent:       content,
			SignatureOverride: override,
		},
	}
	s.bus.FireBeforeRender(rc)
	return rc.Data, nil
}
