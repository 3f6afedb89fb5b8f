package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"mailsign/backend/internal/domain"
	"mailsign/backend/internal/event"
	"mailsign/backend/internal/monitoring"
	"mailsign/backend/internal/smtp"
)

var (
	// ErrInvalidRecipient 收件人地址无效
	ErrInvalidRecipient = errors.New("invalid recipient")
	// ErrDeliveryFailed SMTP 投递失败
	ErrDeliveryFailed = errors.New("mail delivery failed")
)

// MailerOptions 发信服务选项
type MailerOptions struct {
	From         string // 发件地址，为空时使用署名中的 SiteEmail
	AdminAddress string // 管理员通知地址，为空时不发送管理员通知
	Charset      string
}

// SendInput 一次表单发信的输入
type SendInput struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// SendResult 发信结果
type SendResult struct {
	ContentID  int64                  `json:"mailContentId"`
	Recipients []string               `json:"recipients"`
	Signature  domain.SignatureFields `json:"signature"`
}

type delivery struct {
	to      string
	subject string
}

// MailerService 发信服务
//
// 发信前触发 BeforeSendEmail，监听器可以替换本次使用的署名配置。
type MailerService struct {
	contents *MailContentService
	configs  *MailConfigService
	bus      *event.Bus
	sender   smtp.Sender
	opts     MailerOptions
	log      *zap.Logger
	metrics  *monitoring.Metrics
}

// NewMailerService 创建发信服务
func NewMailerService(contents *MailContentService, configs *MailConfigService, bus *event.Bus, sender smtp.Sender, opts MailerOptions, log *zap.Logger, metrics *monitoring.Metrics) *MailerService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MailerService{
		contents: contents,
		configs:  configs,
		bus:      bus,
		sender:   sender,
		opts:     opts,
		log:      log.Named("mailer"),
		metrics:  metrics,
	}
}

// Prepare 准备发信上下文：读取邮件表单与全局署名，再交给钩子处理
func (s *MailerService) Prepare(contentID int64) (*event.SendContext, error) {
	content, err := s.contents.Get(contentID)
	if err != nil {
		return nil, err
	}

	cfg, err := s.configs.GetMailConfig()
	if err != nil {
		return nil, fmt.Errorf("load mail config: %w", err)
	}

	sc := &event.SendContext{
		ContentID:   content.ID,
		MailContent: content,
		MailConfig:  *cfg,
	}
	s.bus.FireBeforeSendEmail(sc)
	return sc, nil
}

// Send 发送表单的受理邮件（以及可选的管理员通知）
func (s *MailerService) Send(ctx context.Context, contentID int64, input SendInput) (*SendResult, error) {
	to, err := mail.ParseAddress(strings.TrimSpace(input.To))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}

	sc, err := s.Prepare(contentID)
	if err != nil {
		return nil, err
	}
	if !sc.MailContent.Status {
		return nil, domain.ErrMailContentClosed
	}

	from := s.opts.From
	if from == "" {
		from = sc.MailConfig.SiteEmail
	}

	result := &SendResult{ContentID: sc.ContentID, Signature: sc.MailConfig.SignatureFields}

	deliveries := []delivery{{to.Address, sc.MailContent.SubjectUser}}
	if s.opts.AdminAddress != "" {
		deliveries = append(deliveries, delivery{s.opts.AdminAddress, sc.MailContent.SubjectAdmin})
	}

	for _, d := range deliveries {
		msg, err := smtp.Compose(smtp.Message{
			FromName:  sc.MailContent.SenderName,
			From:      from,
			To:        []string{d.to},
			Subject:   d.subject,
			Body:      input.Body,
			Signature: sc.MailConfig.SignatureFields,
			Charset:   s.opts.Charset,
		})
		if err != nil {
			s.metrics.RecordMailSent("failed")
			return nil, err
		}

		if err := s.sender.Send(ctx, from, []string{d.to}, msg); err != nil {
			s.log.Error("failed to send mail",
				zap.Int64("mail_content_id", sc.ContentID),
				zap.String("to", d.to),
				zap.Error(err),
			)
			s.metrics.RecordMailSent("failed")
			return nil, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
		}
		s.metrics.RecordMailSent("ok")
		result.Recipients = append(result.Recipients, d.to)
	}

	return result, nil
}
