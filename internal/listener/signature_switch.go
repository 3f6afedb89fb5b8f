package listener

import (
	"errors"

	"go.uber.org/zap"

	"mailsign/backend/internal/domain"
	"mailsign/backend/internal/event"
	"mailsign/backend/internal/monitoring"
	"mailsign/backend/internal/storage"
)

// MailConfigProvider 提供当前全局署名配置
type MailConfigProvider interface {
	GetMailConfig() (*domain.MailConfig, error)
}

// SignatureSubstitutionListener 发信前用启用的署名覆盖替换全局署名，
// 并为后台新增、编辑表单准备默认值与 placeholder 数据。
type SignatureSubstitutionListener struct {
	overrides storage.SignatureOverrideRepository
	configs   MailConfigProvider
	log       *zap.Logger
	metrics   *monitoring.Metrics
}

// NewSignatureSubstitutionListener 创建署名替换监听器，metrics 可为 nil
func NewSignatureSubstitutionListener(overrides storage.SignatureOverrideRepository, configs MailConfigProvider, log *zap.Logger, metrics *monitoring.Metrics) *SignatureSubstitutionListener {
	if log == nil {
		log = zap.NewNop()
	}
	return &SignatureSubstitutionListener{
		overrides: overrides,
		configs:   configs,
		log:       log.Named("signature-switch"),
		metrics:   metrics,
	}
}

// Register 在事件总线上登记全部钩子
func (l *SignatureSubstitutionListener) Register(bus *event.Bus) {
	bus.OnBeforeSendEmail(l)
	bus.OnBeforeRender(l)
}

// BeforeSendEmail 署名覆盖存在且启用时，整体替换发信使用的署名配置。
// 始终返回 true，查询失败也不阻止发信。
func (l *SignatureSubstitutionListener) BeforeSendEmail(sc *event.SendContext) bool {
	if sc == nil {
		return true
	}

	contentID := sc.ContentID
	if contentID == 0 && sc.MailContent != nil {
		contentID = sc.MailContent.ID
	}

	// 独立查询，不依赖读取时联表带出的关联
	override, err := l.overrides.GetSignatureOverrideByContentID(contentID)
	if err != nil {
		if !errors.Is(err, domain.ErrSignatureOverrideNotFound) {
			l.log.Warn("failed to look up signature override before sending",
				zap.Int64("mail_content_id", contentID),
				zap.Error(err),
			)
		}
		l.metrics.RecordSubstitution("global")
		return true
	}

	if !override.Active {
		l.metrics.RecordSubstitution("global")
		return true
	}

	sc.MailConfig = override.AsMailConfig()
	l.metrics.RecordSubstitution("override")
	return true
}

// BeforeRender 仅在后台新增、编辑表单时生效
func (l *SignatureSubstitutionListener) BeforeRender(rc *event.RenderContext) {
	if rc == nil || !rc.Admin {
		return
	}
	kind := rc.Action.Kind
	if kind != domain.ActionCreate && kind != domain.ActionEdit {
		return
	}
	if rc.Data == nil {
		rc.Data = &event.FormData{}
	}

	// 当前全局署名作为输入框的 placeholder
	cfg, err := l.configs.GetMailConfig()
	if err != nil {
		l.log.Warn("failed to load mail config for form", zap.Error(err))
	} else {
		rc.Data.MailConfig = cfg
	}

	if kind == domain.ActionCreate {
		rc.Data.SignatureOverride = domain.DefaultSignatureOverride()
		return
	}

	// 编辑时尚无署名覆盖记录，显示出厂默认值
	if rc.Data.SignatureOverride != nil && rc.Data.SignatureOverride.ID == 0 {
		rc.Data.SignatureOverride = domain.DefaultSignatureOverride()
	}
}
