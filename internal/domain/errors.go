package domain

import "errors"

var (
	// ErrMailContentNotFound 邮件表单不存在
	ErrMailContentNotFound = errors.New("mail content not found")
	// ErrSignatureOverrideNotFound 署名覆盖不存在
	ErrSignatureOverrideNotFound = errors.New("signature override not found")
	// ErrSignatureOverrideExists 同一邮件表单已存在署名覆盖
	ErrSignatureOverrideExists = errors.New("signature override already exists for mail content")
	// ErrSignatureOverrideOwner 按 ID 更新的署名覆盖属于其他邮件表单
	ErrSignatureOverrideOwner = errors.New("signature override belongs to another mail content")
	// ErrMailConfigNotFound 全局署名配置不存在
	ErrMailConfigNotFound = errors.New("mail config not found")
	// ErrInvalidMailContent 邮件表单数据校验失败
	ErrInvalidMailContent = errors.New("invalid mail content")
	// ErrMailContentClosed 邮件表单未公开，不接受发信
	ErrMailContentClosed = errors.New("mail content is not published")
)
