package listener

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"mailsign/backend/internal/domain"
	"mailsign/backend/internal/event"
	"mailsign/backend/internal/monitoring"
	"mailsign/backend/internal/storage"
)

// ContentSyncListener 让署名覆盖与邮件表单保持一对一同步。
//
//   - BeforeFind：为本次读取登记署名覆盖关联，使其随邮件表单一起带出
//   - AfterSave：按后台动作派生署名覆盖载荷并写入
//   - AfterDelete：删除邮件表单遗留的署名覆盖
//
// 邮件表单已先行提交，署名覆盖的写入失败只记录警告，不回滚也不向调用方报错。
type ContentSyncListener struct {
	overrides storage.SignatureOverrideRepository
	log       *zap.Logger
	metrics   *monitoring.Metrics
}

// NewContentSyncListener 创建同步监听器，metrics 可为 nil
func NewContentSyncListener(overrides storage.SignatureOverrideRepository, log *zap.Logger, metrics *monitoring.Metrics) *ContentSyncListener {
	if log == nil {
		log = zap.NewNop()
	}
	return &ContentSyncListener{
		overrides: overrides,
		log:       log.Named("content-sync"),
		metrics:   metrics,
	}
}

// Register 在事件总线上登记全部钩子
func (l *ContentSyncListener) Register(bus *event.Bus) {
	bus.OnBeforeFind(l)
	bus.OnAfterSave(l)
	bus.OnAfterDelete(l)
}

// BeforeFind 登记 hasOne 署名覆盖关联（mail_content_id = MailContent.id），重复登记无副作用
func (l *ContentSyncListener) BeforeFind(opts *domain.FindOptions) {
	if opts == nil {
		return
	}
	opts.Include(domain.AssocSignatureOverride)
}

// AfterSave 邮件表单保存后写入署名覆盖
func (l *ContentSyncListener) AfterSave(ev *event.SaveEvent) {
	if ev == nil || ev.Entity == nil {
		return
	}

	// 没有提交署名覆盖时不隐式创建
	if ev.Entity.SignatureOverride.IsEmpty() {
		return
	}

	payload := l.DeriveOverridePayload(ev)
	if payload == nil {
		l.metrics.RecordOverrideSync(event.AfterSave.String(), ev.Action.Kind.String(), monitoring.SyncResultSkipped)
		return
	}

	if err := l.overrides.SaveSignatureOverride(payload); err != nil {
		l.log.Warn("failed to save signature override",
			zap.Int64("mail_content_id", payload.MailContentID),
			zap.Int64("override_id", payload.ID),
			zap.String("action", ev.Action.Kind.String()),
			zap.Error(err),
		)
		l.metrics.RecordOverrideSync(event.AfterSave.String(), ev.Action.Kind.String(), monitoring.SyncResultFailed)
		return
	}

	l.log.Debug("signature override saved",
		zap.Int64("mail_content_id", payload.MailContentID),
		zap.Int64("override_id", payload.ID),
		zap.String("action", ev.Action.Kind.String()),
	)
	l.metrics.RecordOverrideSync(event.AfterSave.String(), ev.Action.Kind.String(), monitoring.SyncResultSaved)
}

// DeriveOverridePayload 按动作派生待保存的署名覆盖，返回 nil 表示跳过。
//
//	create  提交的子载荷，外键指向新表单，去掉 ID 强制插入
//	edit    提交的子载荷，外键指向表单，保留 ID 以便就地更新
//	copy    无校验错误时，复制来源表单的署名覆盖到新表单（去掉 ID）；
//	        来源缺失时只设置外键
//	other   跳过
func (l *ContentSyncListener) DeriveOverridePayload(ev *event.SaveEvent) *domain.SignatureOverride {
	// 只处理邮件表单主实体
	if ev.Model != domain.ModelMailContent {
		return nil
	}

	contentID := ev.Entity.ID

	switch ev.Action.Kind {
	case domain.ActionCreate:
		payload := submitted(ev.Entity.SignatureOverride)
		payload.ID = 0
		payload.MailContentID = contentID
		return payload

	case domain.ActionEdit:
		payload := submitted(ev.Entity.SignatureOverride)
		payload.MailContentID = contentID
		return payload

	case domain.ActionCopy:
		if len(ev.ValidationErrors) > 0 {
			return nil
		}

		if ev.Action.HasSource() {
			source, err := l.overrides.GetSignatureOverrideByContentID(ev.Action.SourceID)
			switch {
			case err == nil:
				payload := submitted(source)
				payload.ID = 0
				payload.MailContentID = contentID
				return payload
			case !errors.Is(err, domain.ErrSignatureOverrideNotFound):
				l.log.Warn("failed to load source signature override for copy",
					zap.Int64("source_mail_content_id", ev.Action.SourceID),
					zap.Int64("mail_content_id", contentID),
					zap.Error(err),
				)
				return nil
			}
		}

		// 无可复制的来源
		return &domain.SignatureOverride{MailContentID: contentID}

	default:
		return nil
	}
}

// submitted 复制子载荷并清空时间戳，由存储层重新填写
func submitted(o *domain.SignatureOverride) *domain.SignatureOverride {
	payload := o.Copy()
	payload.CreatedAt, payload.UpdatedAt = time.Time{}, time.Time{}
	return payload
}

// AfterDelete 删除邮件表单遗留的署名覆盖
func (l *ContentSyncListener) AfterDelete(ev *event.DeleteEvent) {
	if ev == nil || ev.Model != domain.ModelMailContent {
		return
	}

	override, err := l.overrides.GetSignatureOverrideByContentID(ev.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrSignatureOverrideNotFound) {
			l.log.Warn("failed to look up signature override for deleted mail content",
				zap.Int64("mail_content_id", ev.ID),
				zap.Error(err),
			)
			l.metrics.RecordOverrideSync(event.AfterDelete.String(), "delete", monitoring.SyncResultFailed)
			return
		}
		l.metrics.RecordOverrideSync(event.AfterDelete.String(), "delete", monitoring.SyncResultSkipped)
		return
	}

	if err := l.overrides.DeleteSignatureOverride(override.ID); err != nil {
		l.log.Warn("failed to delete signature override",
			zap.Int64("mail_content_id", ev.ID),
			zap.Int64("override_id", override.ID),
			zap.Error(err),
		)
		l.metrics.RecordOverrideSync(event.AfterDelete.String(), "delete", monitoring.SyncResultFailed)
		return
	}

	l.metrics.RecordOverrideSync(event.AfterDelete.String(), "delete", monitoring.SyncResultDeleted)
}
