package domain

import "strconv"

// ActionKind 后台控制器动作类型
type ActionKind int

const (
	// ActionOther 未识别的动作，不派生任何署名覆盖载荷
	ActionOther ActionKind = iota
	// ActionCreate 新建邮件表单
	ActionCreate
	// ActionEdit 编辑邮件表单
	ActionEdit
	// ActionCopy 复制邮件表单（ajax）
	ActionCopy
)

// 后台路由动作名
const (
	RouteActionAdd      = "admin_add"
	RouteActionEdit     = "admin_edit"
	RouteActionAjaxCopy = "admin_ajax_copy"
)

// String 返回动作名称
func (k ActionKind) String() string {
	switch k {
	case ActionCreate:
		return "create"
	case ActionEdit:
		return "edit"
	case ActionCopy:
		return "copy"
	default:
		return "other"
	}
}

// Action 一次保存请求的动作，由边界层根据请求构造后显式传入
type Action struct {
	Kind ActionKind
	// SourceID 仅 ActionCopy 使用：被复制的邮件表单 ID，0 表示路由中缺失
	SourceID int64
}

// CreateAction 新建动作
func CreateAction() Action { return Action{Kind: ActionCreate} }

// EditAction 编辑动作
func EditAction() Action { return Action{Kind: ActionEdit} }

// CopyAction 复制动作，sourceID 为复制来源
func CopyAction(sourceID int64) Action { return Action{Kind: ActionCopy, SourceID: sourceID} }

// OtherAction 未识别动作
func OtherAction() Action { return Action{Kind: ActionOther} }

// HasSource 复制动作是否携带来源 ID
func (a Action) HasSource() bool {
	return a.Kind == ActionCopy && a.SourceID > 0
}

// ParseAction 将路由动作名与第一个位置参数转换为 Action。
//
// 位置参数缺失或无法解析时，复制动作的 SourceID 为 0（视为无可复制来源）。
func ParseAction(routeAction string, pass ...string) Action {
	switch routeAction {
	case RouteActionAdd:
		return CreateAction()
	case RouteActionEdit:
		return EditAction()
	case RouteActionAjaxCopy:
		var sourceID int64
		if len(pass) > 0 {
			if id, err := strconv.ParseInt(pass[0], 10, 64); err == nil && id > 0 {
				sourceID = id
			}
		}
		return CopyAction(sourceID)
	default:
		return OtherAction()
	}
}
