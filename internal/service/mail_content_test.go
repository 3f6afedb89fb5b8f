package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailsign/backend/internal/cache"
	"mailsign/backend/internal/domain"
	"mailsign/backend/internal/event"
	"mailsign/backend/internal/listener"
	"mailsign/backend/internal/storage/memory"
)

type fixture struct {
	store    *memory.Store
	bus      *event.Bus
	contents *MailContentService
	configs  *MailConfigService
	forms    *FormService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	bus := event.NewBus(zap.NewNop())
	localCache := cache.NewLocalCache(time.Minute, time.Minute)
	t.Cleanup(localCache.Stop)

	configs := NewMailConfigService(store, localCache)
	listener.NewContentSyncListener(store, nil, nil).Register(bus)
	listener.NewSignatureSubstitutionListener(store, configs, nil, nil).Register(bus)

	contents := NewMailContentService(store, bus, nil)
	return &fixture{
		store:    store,
		bus:      bus,
		contents: contents,
		configs:  configs,
		forms:    NewFormService(contents, bus),
	}
}

func contactInput() MailContentInput {
	return MailContentInput{
		Name:        "contact",
		Title:       "Contact",
		SenderName:  "Support",
		SubjectUser: "Thanks for your inquiry",
		Status:      true,
	}
}

func TestMailContentService_CreateWithOverride(t *testing.T) {
	f := newFixture(t)

	input := contactInput()
	input.SignatureOverride = &domain.SignatureOverride{
		Active:          true,
		SignatureFields: domain.SignatureFields{Text: "Best regards"},
	}

	content, err := f.contents.Save(domain.CreateAction(), 0, input)
	require.NoError(t, err)
	assert.NotZero(t, content.ID)
	require.NotNil(t, content.SignatureOverride)
	assert.Equal(t, content.ID, content.SignatureOverride.MailContentID)
	assert.True(t, content.SignatureOverride.Active)

	list, err := f.contents.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotNil(t, list[0].SignatureOverride)
}

func TestMailContentService_CreateWithoutOverride(t *testing.T) {
	f := newFixture(t)

	content, err := f.contents.Save(domain.CreateAction(), 0, contactInput())
	require.NoError(t, err)
	assert.Nil(t, content.SignatureOverride)

	all, err := f.store.ListSignatureOverrides()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMailContentService_Edit(t *testing.T) {
	f := newFixture(t)

	input := contactInput()
	input.SignatureOverride = &domain.SignatureOverride{Active: true, SignatureFields: domain.SignatureFields{Text: "v1"}}
	created, err := f.contents.Save(domain.CreateAction(), 0, input)
	require.NoError(t, err)

	t.Run("未回传ID时更新已有记录", func(t *testing.T) {
		input.Title = "Contact us"
		input.SignatureOverride = &domain.SignatureOverride{Active: false, SignatureFields: domain.SignatureFields{Text: "v2"}}

		edited, err := f.contents.Save(domain.EditAction(), created.ID, input)
		require.NoError(t, err)
		assert.Equal(t, "Contact us", edited.Title)
		assert.Equal(t, created.CreatedAt, edited.CreatedAt)
		require.NotNil(t, edited.SignatureOverride)
		assert.Equal(t, created.SignatureOverride.ID, edited.SignatureOverride.ID)
		assert.False(t, edited.SignatureOverride.Active)
		assert.Equal(t, "v2", edited.SignatureOverride.Text)

		all, err := f.store.ListSignatureOverrides()
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("不提交子载荷时保持不变", func(t *testing.T) {
		input.SignatureOverride = nil
		edited, err := f.contents.Save(domain.EditAction(), created.ID, input)
		require.NoError(t, err)
		require.NotNil(t, edited.SignatureOverride)
		assert.Equal(t, "v2", edited.SignatureOverride.Text)
	})

	t.Run("不存在的表单", func(t *testing.T) {
		_, err := f.contents.Save(domain.EditAction(), 999, input)
		assert.ErrorIs(t, err, domain.ErrMailContentNotFound)
	})
}

func TestMailContentService_EditWithForeignOverrideID(t *testing.T) {
	f := newFixture(t)

	inputA := contactInput()
	inputA.SignatureOverride = &domain.SignatureOverride{Active: true, SignatureFields: domain.SignatureFields{Text: "A"}}
	a, err := f.contents.Save(domain.CreateAction(), 0, inputA)
	require.NoError(t, err)

	inputB := contactInput()
	inputB.Name = "support"
	b, err := f.contents.Save(domain.CreateAction(), 0, inputB)
	require.NoError(t, err)

	// 编辑 B 时回传 A 的署名覆盖 ID
	inputB.SignatureOverride = &domain.SignatureOverride{
		ID:              a.SignatureOverride.ID,
		Active:          false,
		SignatureFields: domain.SignatureFields{Text: "B"},
	}
	_, err = f.contents.Save(domain.EditAction(), b.ID, inputB)
	require.NoError(t, err)

	kept, err := f.store.GetSignatureOverrideByContentID(a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.SignatureOverride.ID, kept.ID)
	assert.True(t, kept.Active)
	assert.Equal(t, "A", kept.Text)

	_, err = f.store.GetSignatureOverrideByContentID(b.ID)
	assert.ErrorIs(t, err, domain.ErrSignatureOverrideNotFound)
}

func TestMailContentService_ValidationFailure(t *testing.T) {
	f := newFixture(t)

	input := contactInput()
	input.Name = "  "
	input.SignatureOverride = &domain.SignatureOverride{Active: true}

	_, err := f.contents.Save(domain.CreateAction(), 0, input)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidMailContent))

	var verrs domain.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Contains(t, verrs, "name")

	list, err := f.contents.List()
	require.NoError(t, err)
	assert.Empty(t, list)
	all, err := f.store.ListSignatureOverrides()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMailContentService_Copy(t *testing.T) {
	f := newFixture(t)

	input := contactInput()
	input.SignatureOverride = &domain.SignatureOverride{
		Active:          true,
		SignatureFields: domain.SignatureFields{SiteName: "Support", Text: "Best regards"},
	}
	source, err := f.contents.Save(domain.CreateAction(), 0, input)
	require.NoError(t, err)

	clone, err := f.contents.Copy(domain.ParseAction(domain.RouteActionAjaxCopy, "1"))
	require.NoError(t, err)
	assert.NotEqual(t, source.ID, clone.ID)
	assert.Equal(t, "contact_copy", clone.Name)
	assert.Equal(t, "Contact_copy", clone.Title)

	require.NotNil(t, clone.SignatureOverride)
	assert.NotEqual(t, source.SignatureOverride.ID, clone.SignatureOverride.ID)
	assert.Equal(t, clone.ID, clone.SignatureOverride.MailContentID)
	assert.True(t, clone.SignatureOverride.Active)
	assert.Equal(t, source.SignatureOverride.SignatureFields, clone.SignatureOverride.SignatureFields)

	// 来源保持不变
	again, err := f.contents.Get(source.ID)
	require.NoError(t, err)
	assert.Equal(t, source.SignatureOverride.ID, again.SignatureOverride.ID)
}

func TestMailContentService_CopyWithoutOverride(t *testing.T) {
	f := newFixture(t)

	source, err := f.contents.Save(domain.CreateAction(), 0, contactInput())
	require.NoError(t, err)

	clone, err := f.contents.Copy(domain.CopyAction(source.ID))
	require.NoError(t, err)

	// 来源无署名覆盖时写入只含外键的默认行，保持一一对应
	require.NotNil(t, clone.SignatureOverride)
	assert.Equal(t, clone.ID, clone.SignatureOverride.MailContentID)
	assert.NotZero(t, clone.SignatureOverride.ID)
	assert.False(t, clone.SignatureOverride.Active)
	assert.True(t, clone.SignatureOverride.SignatureFields.IsZero())

	stored, err := f.store.GetSignatureOverrideByContentID(clone.ID)
	require.NoError(t, err)
	assert.Equal(t, clone.SignatureOverride.ID, stored.ID)

	// 来源本身不会因此获得署名覆盖
	_, err = f.store.GetSignatureOverrideByContentID(source.ID)
	assert.ErrorIs(t, err, domain.ErrSignatureOverrideNotFound)
}

func TestMailContentService_CopyInvalidOverrideNotMirrored(t *testing.T) {
	f := newFixture(t)

	source, err := f.contents.Save(domain.CreateAction(), 0, contactInput())
	require.NoError(t, err)
	// 绕过校验直接写入一条无效的署名覆盖
	require.NoError(t, f.store.SaveSignatureOverride(&domain.SignatureOverride{
		MailContentID:   source.ID,
		Active:          true,
		SignatureFields: domain.SignatureFields{SiteEmail: "not-an-email"},
	}))

	clone, err := f.contents.Copy(domain.CopyAction(source.ID))
	require.NoError(t, err)
	assert.Equal(t, "contact_copy", clone.Name)
	assert.Nil(t, clone.SignatureOverride)
}

func TestMailContentService_CopyMissingSource(t *testing.T) {
	f := newFixture(t)

	_, err := f.contents.Copy(domain.ParseAction(domain.RouteActionAjaxCopy))
	assert.ErrorIs(t, err, domain.ErrMailContentNotFound)

	_, err = f.contents.Copy(domain.CopyAction(404))
	assert.ErrorIs(t, err, domain.ErrMailContentNotFound)
}

func TestMailContentService_Delete(t *testing.T) {
	f := newFixture(t)

	input := contactInput()
	input.SignatureOverride = &domain.SignatureOverride{Active: true}
	content, err := f.contents.Save(domain.CreateAction(), 0, input)
	require.NoError(t, err)

	require.NoError(t, f.contents.Delete(content.ID))

	_, err = f.contents.Get(content.ID)
	assert.ErrorIs(t, err, domain.ErrMailContentNotFound)
	_, err = f.store.GetSignatureOverrideByContentID(content.ID)
	assert.ErrorIs(t, err, domain.ErrSignatureOverrideNotFound)

	assert.ErrorIs(t, f.contents.Delete(content.ID), domain.ErrMailContentNotFound)
}
