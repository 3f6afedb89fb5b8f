package domain

import "time"

// MailConfig 全局邮件署名配置（单行记录）
//
// 发信时作为默认署名；后台编辑表单中作为 placeholder 展示当前默认值。
type MailConfig struct {
	ID int64 `json:"id" gorm:"primaryKey"`
	SignatureFields
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy" gorm:"type:varchar(64)"` // 更新者
}

// TableName 指定表名
func (MailConfig) TableName() string { return "mail_configs" }

// MailConfigID 全局署名配置固定使用的主键
const MailConfigID int64 = 1

// DefaultMailConfig 返回默认署名配置
func DefaultMailConfig() *MailConfig {
	return &MailConfig{
		ID: MailConfigID,
		SignatureFields: SignatureFields{
			SiteName: "MailSign",
			SiteURL:  "https://example.com/",
			Text:     "This message was sent automatically.",
		},
		UpdatedAt: time.Now(),
	}
}
