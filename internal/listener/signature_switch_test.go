package listener

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"mailsign/backend/internal/domain"
	"mailsign/backend/internal/event"
	"mailsign/backend/internal/storage/memory"
)

func globalConfig() domain.MailConfig {
	return domain.MailConfig{
		ID: domain.MailConfigID,
		SignatureFields: domain.SignatureFields{
			SiteName:  "Global Inc.",
			SiteURL:   "https://global.example.com/",
			SiteEmail: "info@global.example.com",
			SiteTel:   "000-0000",
			SiteFax:   "000-0001",
			Text:      "Global footer",
		},
	}
}

func TestSignatureSwitch_BeforeSendEmail(t *testing.T) {
	store := memory.NewStore()
	bus := event.NewBus(nil)
	NewSignatureSubstitutionListener(store, store, nil, nil).Register(bus)

	require.NoError(t, store.SaveSignatureOverride(&domain.SignatureOverride{
		MailContentID:   1,
		Active:          true,
		SignatureFields: domain.SignatureFields{SiteName: "Support", Text: "Best regards"},
	}))
	require.NoError(t, store.SaveSignatureOverride(&domain.SignatureOverride{
		MailContentID:   2,
		Active:          false,
		SignatureFields: domain.SignatureFields{SiteName: "Inactive"},
	}))

	t.Run("启用时整体替换", func(t *testing.T) {
		sc := &event.SendContext{ContentID: 1, MailConfig: globalConfig()}
		assert.True(t, bus.FireBeforeSendEmail(sc))

		// 全局配置的字段不会残留
		assert.Equal(t, domain.SignatureFields{SiteName: "Support", Text: "Best regards"}, sc.MailConfig.SignatureFields)
	})

	t.Run("未启用时保留全局配置", func(t *testing.T) {
		sc := &event.SendContext{ContentID: 2, MailConfig: globalConfig()}
		assert.True(t, bus.FireBeforeSendEmail(sc))
		assert.Equal(t, globalConfig(), sc.MailConfig)
	})

	t.Run("没有署名覆盖时保留全局配置", func(t *testing.T) {
		sc := &event.SendContext{ContentID: 3, MailConfig: globalConfig()}
		assert.True(t, bus.FireBeforeSendEmail(sc))
		assert.Equal(t, globalConfig(), sc.MailConfig)
	})

	t.Run("从邮件表单取ID", func(t *testing.T) {
		sc := &event.SendContext{MailContent: &domain.MailContent{ID: 1}, MailConfig: globalConfig()}
		assert.True(t, bus.FireBeforeSendEmail(sc))
		assert.Equal(t, "Support", sc.MailConfig.SiteName)
	})
}

func TestSignatureSwitch_BeforeSendEmailLookupFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	repo := new(MockOverrideRepository)
	repo.On("GetSignatureOverrideByContentID", int64(1)).Return(nil, errors.New("db down"))

	l := NewSignatureSubstitutionListener(repo, new(MockConfigProvider), zap.New(core), nil)

	sc := &event.SendContext{ContentID: 1, MailConfig: globalConfig()}
	assert.True(t, l.BeforeSendEmail(sc))
	assert.Equal(t, globalConfig(), sc.MailConfig)
	assert.Equal(t, 1, logs.FilterMessage("failed to look up signature override before sending").Len())
	repo.AssertExpectations(t)
}

func TestSignatureSwitch_BeforeRender(t *testing.T) {
	cfg := globalConfig()
	configs := new(MockConfigProvider)
	configs.On("GetMailConfig").Return(&cfg, nil)

	l := NewSignatureSubstitutionListener(new(MockOverrideRepository), configs, nil, nil)

	t.Run("非后台不处理", func(t *testing.T) {
		rc := &event.RenderContext{Admin: false, Action: domain.CreateAction()}
		l.BeforeRender(rc)
		assert.Nil(t, rc.Data)
	})

	t.Run("其他动作不处理", func(t *testing.T) {
		rc := &event.RenderContext{Admin: true, Action: domain.CopyAction(1), Data: &event.FormData{}}
		l.BeforeRender(rc)
		assert.Nil(t, rc.Data.MailConfig)
	})

	t.Run("新增时注入默认值", func(t *testing.T) {
		rc := &event.RenderContext{Admin: true, Action: domain.CreateAction()}
		l.BeforeRender(rc)
		require.NotNil(t, rc.Data)
		assert.Equal(t, &cfg, rc.Data.MailConfig)
		assert.Equal(t, domain.DefaultSignatureOverride(), rc.Data.SignatureOverride)
	})

	t.Run("编辑时空ID的子载荷替换为默认值", func(t *testing.T) {
		rc := &event.RenderContext{
			Admin:  true,
			Action: domain.EditAction(),
			Data: &event.FormData{
				MailContent:       &domain.MailContent{ID: 5},
				SignatureOverride: &domain.SignatureOverride{MailContentID: 5, Active: true},
			},
		}
		l.BeforeRender(rc)
		assert.Equal(t, &cfg, rc.Data.MailConfig)
		assert.Equal(t, domain.DefaultSignatureOverride(), rc.Data.SignatureOverride)
	})

	t.Run("编辑时已有记录保持不变", func(t *testing.T) {
		existing := &domain.SignatureOverride{ID: 9, MailContentID: 5, Active: true}
		rc := &event.RenderContext{
			Admin:  true,
			Action: domain.EditAction(),
			Data:   &event.FormData{SignatureOverride: existing},
		}
		l.BeforeRender(rc)
		assert.Same(t, existing, rc.Data.SignatureOverride)
	})

	t.Run("编辑时没有子载荷不补充", func(t *testing.T) {
		rc := &event.RenderContext{Admin: true, Action: domain.EditAction(), Data: &event.FormData{}}
		l.BeforeRender(rc)
		assert.Nil(t, rc.Data.SignatureOverride)
	})
}
