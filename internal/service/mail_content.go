package service

import (
	"strings"

	"go.uber.org/zap"

	"mailsign/backend/internal/domain"
	"mailsign/backend/internal/event"
	"mailsign/backend/internal/storage"
)

// copySuffix 复制邮件表单时追加到名称与标题的后缀
const copySuffix = "_copy"

// MailContentInput 新建、编辑邮件表单的输入
type MailContentInput struct {
	Name         string `json:"name"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	SenderName   string `json:"senderName"`
	SubjectUser  string `json:"subjectUser"`
	SubjectAdmin string `json:"subjectAdmin"`
	Status       bool   `json:"status"`

	// SignatureOverride 提交的署名覆盖子载荷，缺省表示不修改署名覆盖
	SignatureOverride *domain.SignatureOverride `json:"signatureOverride,omitempty"`
}

func (in MailContentInput) applyTo(content *domain.MailContent) {
	content.Name = strings.TrimSpace(in.Name)
	content.Title = strings.TrimSpace(in.Title)
	content.Description = in.Description
	content.SenderName = in.SenderName
	content.SubjectUser = in.SubjectUser
	content.SubjectAdmin = in.SubjectAdmin
	content.Status = in.Status
	content.SignatureOverride = in.SignatureOverride.Copy()
}

// MailContentService 邮件表单服务
//
// 所有读取前触发 BeforeFind，保存后触发 AfterSave，删除后触发 AfterDelete；
// 署名覆盖的同步由登记在总线上的监听器完成。
type MailContentService struct {
	store     storage.MailContentRepository
	bus       *event.Bus
	validator *domain.Validator
	log       *zap.Logger
}

// NewMailContentService 创建邮件表单服务
func NewMailContentService(store storage.MailContentRepository, bus *event.Bus, log *zap.Logger) *MailContentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MailContentService{
		store:     store,
		bus:       bus,
		validator: domain.NewValidator(),
		log:       log.Named("mail-content"),
	}
}

// findOptions 每次读取都使用新的查询选项，由钩子决定带出的关联
func (s *MailContentService) findOptions() domain.FindOptions {
	var opts domain.FindOptions
	s.bus.FireBeforeFind(&opts)
	return opts
}

// Get 获取邮件表单
func (s *MailContentService) Get(id int64) (*domain.MailContent, error) {
	return s.store.GetMailContent(id, s.findOptions())
}

// List 列出全部邮件表单
func (s *MailContentService) List() ([]domain.MailContent, error) {
	return s.store.ListMailContents(s.findOptions())
}

// Save 按动作保存邮件表单。
//
// 新建动作忽略 id 并插入新记录；其他动作按 id 更新已有记录。
// 校验失败时返回 domain.ValidationErrors，不写入任何数据。
func (s *MailContentService) Save(action domain.Action, id int64, input MailContentInput) (*domain.MailContent, error) {
	content := &domain.MailContent{}
	if action.Kind != domain.ActionCreate {
		existing, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		content = existing
	}

	// 读取时带出的关联不是本次提交的内容
	joined := content.SignatureOverride
	input.applyTo(content)

	// 客户端未回传署名覆盖 ID 时沿用已有记录，与表单隐藏字段的作用一致
	if action.Kind == domain.ActionEdit && joined != nil &&
		!content.SignatureOverride.IsEmpty() && content.SignatureOverride.ID == 0 {
		content.SignatureOverride.ID = joined.ID
	}

	if errs := s.validator.ValidateMailContent(content); len(errs) > 0 {
		return nil, errs
	}

	if err := s.store.SaveMailContent(content); err != nil {
		return nil, err
	}

	s.log.Info("mail content saved",
		zap.Int64("mail_content_id", content.ID),
		zap.String("action", action.Kind.String()),
	)
	s.bus.FireAfterSave(&event.SaveEvent{
		Model:  domain.ModelMailContent,
		Entity: content,
		Action: action,
	})

	return s.Get(content.ID)
}

// Copy 复制邮件表单，action.SourceID 为复制来源。
//
// 新表单的名称与标题追加 "_copy" 后缀，来源的署名覆盖作为子载荷随之提交；
// 来源没有署名覆盖时提交只带来源外键的子载荷，由监听器写入只含外键的默认行。
// 子载荷的校验错误随事件传递给监听器，不影响邮件表单本身的复制。
func (s *MailContentService) Copy(action domain.Action) (*domain.MailContent, error) {
	if !action.HasSource() {
		return nil, domain.ErrMailContentNotFound
	}

	source, err := s.Get(action.SourceID)
	if err != nil {
		return nil, err
	}

	clone := source.Clone()
	clone.Name += copySuffix
	clone.Title += copySuffix
	clone.SignatureOverride = source.SignatureOverride.Copy()
	if clone.SignatureOverride == nil {
		clone.SignatureOverride = &domain.SignatureOverride{MailContentID: source.ID}
	}

	contentErrs, overrideErrs := splitOverrideErrors(s.validator.ValidateMailContent(clone))
	if len(contentErrs) > 0 {
		return nil, contentErrs
	}

	if err := s.store.SaveMailContent(clone); err != nil {
		return nil, err
	}

	s.log.Info("mail content copied",
		zap.Int64("source_mail_content_id", action.SourceID),
		zap.Int64("mail_content_id", clone.ID),
	)
	s.bus.FireAfterSave(&event.SaveEvent{
		Model:            domain.ModelMailContent,
		Entity:           clone,
		Action:           action,
		ValidationErrors: overrideErrs,
	})

	return s.Get(clone.ID)
}

// Delete 删除邮件表单
func (s *MailContentService) Delete(id int64) error {
	if err := s.store.DeleteMailContent(id); err != nil {
		return err
	}

	s.log.Info("mail content deleted", zap.Int64("mail_content_id", id))
	s.bus.FireAfterDelete(&event.DeleteEvent{Model: domain.ModelMailContent, ID: id})
	return nil
}

// splitOverrideErrors 将署名覆盖子载荷的校验错误与主实体的分开
func splitOverrideErrors(errs domain.ValidationErrors) (content, override domain.ValidationErrors) {
	const prefix = "signatureOverride."
	for field, tag := range errs {
		if strings.HasPrefix(field, prefix) {
			if override == nil {
				override = domain.ValidationErrors{}
			}
			override[field] = tag
			continue
		}
		if content == nil {
			content = domain.ValidationErrors{}
		}
		content[field] = tag
	}
	return content, override
}
