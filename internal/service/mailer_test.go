package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mailsign/backend/internal/domain"
	"mailsign/backend/internal/smtp"
)

// MockSender 模拟 SMTP 发送器
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, from string, to []string, msg []byte) error {
	args := m.Called(ctx, from, to, msg)
	return args.Error(0)
}

func (m *MockSender) lastMessage(t *testing.T) *smtp.ParsedMessage {
	t.Helper()
	require.NotEmpty(t, m.Calls)
	raw := m.Calls[len(m.Calls)-1].Arguments.Get(3).([]byte)
	parsed, err := smtp.ParseMessage(raw)
	require.NoError(t, err)
	return parsed
}

func newMailer(t *testing.T, opts MailerOptions) (*fixture, *MockSender, *MailerService) {
	t.Helper()
	f := newFixture(t)
	sender := new(MockSender)
	mailer := NewMailerService(f.contents, f.configs, f.bus, sender, opts, nil, nil)
	return f, sender, mailer
}

func TestMailerService_GlobalSignature(t *testing.T) {
	f, sender, mailer := newMailer(t, MailerOptions{From: "noreply@example.com"})

	content, err := f.contents.Save(domain.CreateAction(), 0, contactInput())
	require.NoError(t, err)

	sender.On("Send", mock.Anything, "noreply@example.com", []string{"user@example.com"}, mock.Anything).Return(nil).Once()

	result, err := mailer.Send(context.Background(), content.ID, SendInput{To: "User <user@example.com>", Body: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, []string{"user@example.com"}, result.Recipients)
	assert.Equal(t, "MailSign", result.Signature.SiteName)

	msg := sender.lastMessage(t)
	assert.Equal(t, "Thanks for your inquiry", msg.Subject)
	assert.Contains(t, msg.Text, "This message was sent automatically.")
	sender.AssertExpectations(t)
}

func TestMailerService_ActiveOverrideReplacesSignature(t *testing.T) {
	f, sender, mailer := newMailer(t, MailerOptions{})

	input := contactInput()
	input.SignatureOverride = &domain.SignatureOverride{
		Active: true,
		SignatureFields: domain.SignatureFields{
			SiteName:  "Sales Dept.",
			SiteEmail: "sales@example.com",
		},
	}
	content, err := f.contents.Save(domain.CreateAction(), 0, input)
	require.NoError(t, err)

	// From 未配置时使用署名中的 SiteEmail
	sender.On("Send", mock.Anything, "sales@example.com", []string{"user@example.com"}, mock.Anything).Return(nil).Once()

	result, err := mailer.Send(context.Background(), content.ID, SendInput{To: "user@example.com", Body: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "Sales Dept.", result.Signature.SiteName)
	// 整体替换：覆盖中为空的字段不回落到全局配置
	assert.Empty(t, result.Signature.Text)
	assert.Empty(t, result.Signature.SiteURL)

	msg := sender.lastMessage(t)
	assert.Contains(t, msg.Text, "Sales Dept.")
	assert.NotContains(t, msg.Text, "This message was sent automatically.")
	sender.AssertExpectations(t)
}

func TestMailerService_InactiveOverrideKeepsGlobal(t *testing.T) {
	f, _, mailer := newMailer(t, MailerOptions{})

	input := contactInput()
	input.SignatureOverride = &domain.SignatureOverride{
		Active:          false,
		SignatureFields: domain.SignatureFields{SiteName: "Sales Dept."},
	}
	content, err := f.contents.Save(domain.CreateAction(), 0, input)
	require.NoError(t, err)

	sc, err := mailer.Prepare(content.ID)
	require.NoError(t, err)
	assert.Equal(t, "MailSign", sc.MailConfig.SiteName)
}

func TestMailerService_AdminNotification(t *testing.T) {
	f, sender, mailer := newMailer(t, MailerOptions{From: "noreply@example.com", AdminAddress: "admin@example.com"})

	input := contactInput()
	input.SubjectAdmin = "New inquiry"
	content, err := f.contents.Save(domain.CreateAction(), 0, input)
	require.NoError(t, err)

	sender.On("Send", mock.Anything, "noreply@example.com", []string{"user@example.com"}, mock.Anything).Return(nil).Once()
	sender.On("Send", mock.Anything, "noreply@example.com", []string{"admin@example.com"}, mock.Anything).Return(nil).Once()

	result, err := mailer.Send(context.Background(), content.ID, SendInput{To: "user@example.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"user@example.com", "admin@example.com"}, result.Recipients)
	assert.Equal(t, "New inquiry", sender.lastMessage(t).Subject)
	sender.AssertExpectations(t)
}

func TestMailerService_Errors(t *testing.T) {
	f, sender, mailer := newMailer(t, MailerOptions{From: "noreply@example.com"})

	t.Run("无效收件人", func(t *testing.T) {
		_, err := mailer.Send(context.Background(), 1, SendInput{To: "not-an-address"})
		assert.ErrorIs(t, err, ErrInvalidRecipient)
	})

	t.Run("表单不存在", func(t *testing.T) {
		_, err := mailer.Send(context.Background(), 404, SendInput{To: "user@example.com"})
		assert.ErrorIs(t, err, domain.ErrMailContentNotFound)
	})

	t.Run("表单已关闭", func(t *testing.T) {
		input := contactInput()
		input.Name = "closed"
		input.Status = false
		content, err := f.contents.Save(domain.CreateAction(), 0, input)
		require.NoError(t, err)

		_, err = mailer.Send(context.Background(), content.ID, SendInput{To: "user@example.com"})
		assert.ErrorIs(t, err, domain.ErrMailContentClosed)
	})

	t.Run("发送失败", func(t *testing.T) {
		content, err := f.contents.Save(domain.CreateAction(), 0, contactInput())
		require.NoError(t, err)

		boom := errors.New("connection refused")
		sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(boom).Once()

		_, err = mailer.Send(context.Background(), content.ID, SendInput{To: "user@example.com"})
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, ErrDeliveryFailed)
	})

	sender.AssertExpectations(t)
}
