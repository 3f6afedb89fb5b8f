package event

import (
	"sync"

	"go.uber.org/zap"

	"mailsign/backend/internal/domain"
)

// Bus 同步事件总线
//
// 钩子在启动阶段按事件类型静态登记，触发时按登记顺序同步调用全部钩子；
// 单个钩子 panic 会被记录并跳过，不影响后续钩子与调用方。
type Bus struct {
	mu              sync.RWMutex
	beforeFind      []BeforeFindHook
	afterSave       []AfterSaveHook
	afterDelete     []AfterDeleteHook
	beforeSendEmail []BeforeSendEmailHook
	beforeRender    []BeforeRenderHook
	log             *zap.Logger
}

// NewBus 创建事件总线
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{log: log.Named("event")}
}

// OnBeforeFind 登记读取前钩子
func (b *Bus) OnBeforeFind(h BeforeFindHook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.beforeFind = append(b.beforeFind, h)
}

// OnAfterSave 登记保存后钩子
func (b *Bus) OnAfterSave(h AfterSaveHook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.afterSave = append(b.afterSave, h)
}

// OnAfterDelete 登记删除后钩子
func (b *Bus) OnAfterDelete(h AfterDeleteHook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.afterDelete = append(b.afterDelete, h)
}

// OnBeforeSendEmail 登记发信前钩子
func (b *Bus) OnBeforeSendEmail(h BeforeSendEmailHook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.beforeSendEmail = append(b.beforeSendEmail, h)
}

// OnBeforeRender 登记表单渲染前钩子
func (b *Bus) OnBeforeRender(h BeforeRenderHook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.beforeRender = append(b.beforeRender, h)
}

// Count 返回某类事件已登记的钩子数量
func (b *Bus) Count(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	switch kind {
	case BeforeFind:
		return len(b.beforeFind)
	case AfterSave:
		return len(b.afterSave)
	case AfterDelete:
		return len(b.afterDelete)
	case BeforeSendEmail:
		return len(b.beforeSendEmail)
	case BeforeRender:
		return len(b.beforeRender)
	default:
		return 0
	}
}

// FireBeforeFind 触发读取前事件
func (b *Bus) FireBeforeFind(opts *domain.FindOptions) {
	b.mu.RLock()
	hooks := append([]BeforeFindHook(nil), b.beforeFind...)
	b.mu.RUnlock()

	for _, h := range hooks {
		b.safely(BeforeFind, func() { h.BeforeFind(opts) })
	}
}

// FireAfterSave 触发保存后事件
func (b *Bus) FireAfterSave(ev *SaveEvent) {
	b.mu.RLock()
	hooks := append([]AfterSaveHook(nil), b.afterSave...)
	b.mu.RUnlock()

	for _, h := range hooks {
		b.safely(AfterSave, func() { h.AfterSave(ev) })
	}
}

// FireAfterDelete 触发删除后事件
func (b *Bus) FireAfterDelete(ev *DeleteEvent) {
	b.mu.RLock()
	hooks := append([]AfterDeleteHook(nil), b.afterDelete...)
	b.mu.RUnlock()

	for _, h := range hooks {
		b.safely(AfterDelete, func() { h.AfterDelete(ev) })
	}
}

// FireBeforeSendEmail 触发发信前事件。
//
// 所有钩子都会被调用；返回值为各钩子结果的与，仅供调用方参考。
func (b *Bus) FireBeforeSendEmail(sc *SendContext) bool {
	b.mu.RLock()
	hooks := append([]BeforeSendEmailHook(nil), b.beforeSendEmail...)
	b.mu.RUnlock()

	ok := true
	for _, h := range hooks {
		b.safely(BeforeSendEmail, func() {
			if !h.BeforeSendEmail(sc) {
				ok = false
			}
		})
	}
	return ok
}

// FireBeforeRender 触发表单渲染前事件
func (b *Bus) FireBeforeRender(rc *RenderContext) {
	b.mu.RLock()
	hooks := append([]BeforeRenderHook(nil), b.beforeRender...)
	b.mu.RUnlock()

	for _, h := range hooks {
		b.safely(BeforeRender, func() { h.BeforeRender(rc) })
	}
}

func (b *Bus) safely(kind Kind, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event hook panicked",
				zap.String("event", kind.String()),
				zap.Any("panic", r),
			)
		}
	}()
	fn()
}
