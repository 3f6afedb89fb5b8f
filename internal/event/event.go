package event

import "mailsign/backend/internal/domain"

// Kind 生命周期事件类型（固定枚举）
type Kind int

const (
	// BeforeFind 读取 MailContent 之前
	BeforeFind Kind = iota
	// AfterSave MailContent 保存（新建或更新）之后
	AfterSave
	// AfterDelete MailContent 删除之后
	AfterDelete
	// BeforeSendEmail 发信流程准备署名配置时
	BeforeSendEmail
	// BeforeRender 后台邮件表单渲染之前
	BeforeRender
)

var kindNames = [...]string{
	BeforeFind:      "beforeFind",
	AfterSave:       "afterSave",
	AfterDelete:     "afterDelete",
	BeforeSendEmail: "beforeSendEmail",
	BeforeRender:    "beforeRender",
}

// String 返回事件名
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// SaveEvent 主实体保存后的事件载荷
type SaveEvent struct {
	Model  string              // 触发保存的模型名
	Entity *domain.MailContent // 已保存的实体，SignatureOverride 字段为提交的子载荷
	Action domain.Action       // 当前后台动作
	// ValidationErrors 主实体保存时的校验错误，复制动作仅在为空时继续
	ValidationErrors domain.ValidationErrors
}

// DeleteEvent 主实体删除后的事件载荷
type DeleteEvent struct {
	Model string
	ID    int64
}

// SendContext 发信准备上下文，钩子可以替换 MailConfig
type SendContext struct {
	ContentID   int64
	MailContent *domain.MailContent
	MailConfig  domain.MailConfig
}

// FormData 后台邮件表单的渲染数据
type FormData struct {
	MailContent       *domain.MailContent       `json:"mailContent"`
	MailConfig        *domain.MailConfig        `json:"mailConfig,omitempty"`
	SignatureOverride *domain.SignatureOverride `json:"signatureOverride,omitempty"`
}

// RenderContext 后台表单渲染上下文
type RenderContext struct {
	Admin  bool // 是否处于后台管理界面
	Action domain.Action
	Data   *FormData
}

// BeforeFindHook 读取前钩子，可修改本次查询选项
type BeforeFindHook interface {
	BeforeFind(opts *domain.FindOptions)
}

// AfterSaveHook 保存后钩子
type AfterSaveHook interface {
	AfterSave(ev *SaveEvent)
}

// AfterDeleteHook 删除后钩子
type AfterDeleteHook interface {
	AfterDelete(ev *DeleteEvent)
}

// BeforeSendEmailHook 发信前钩子，返回值仅作参考，不会中断发信
type BeforeSendEmailHook interface {
	BeforeSendEmail(sc *SendContext) bool
}

// BeforeRenderHook 表单渲染前钩子
type BeforeRenderHook interface {
	BeforeRender(rc *RenderContext)
}
