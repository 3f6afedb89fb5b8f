package domain

import "time"

// SignatureFields 邮件署名字段，全局署名配置与署名覆盖共用同一结构
type SignatureFields struct {
	SiteName  string `json:"siteName" gorm:"column:site_name;type:varchar(255)" validate:"max=255"`
	SiteURL   string `json:"siteUrl" gorm:"column:site_url;type:varchar(255)" validate:"omitempty,url,max=255"`
	SiteEmail string `json:"siteEmail" gorm:"column:site_email;type:varchar(255)" validate:"omitempty,email,max=255"`
	SiteTel   string `json:"siteTel" gorm:"column:site_tel;type:varchar(32)" validate:"max=32"`
	SiteFax   string `json:"siteFax" gorm:"column:site_fax;type:varchar(32)" validate:"max=32"`
	Text      string `json:"text" gorm:"column:text;type:text"`
}

// IsZero 所有署名字段均为空
func (f SignatureFields) IsZero() bool {
	return f == SignatureFields{}
}

// SignatureOverride 每个邮件表单可选的署名覆盖（从实体）。
//
// 每个 MailContent 至多一条，由 mail_content_id 唯一索引约束；
// Active 为真时，发信前用本记录的署名字段整体替换全局署名配置。
type SignatureOverride struct {
	ID            int64 `json:"id" gorm:"primaryKey;autoIncrement"`
	MailContentID int64 `json:"mailContentId" gorm:"uniqueIndex;not null"`
	Active        bool  `json:"status" gorm:"column:status"`
	SignatureFields
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (SignatureOverride) TableName() string { return "signature_overrides" }

// IsEmpty 判断提交的子载荷是否为空（nil 或者没有任何有效字段）
func (o *SignatureOverride) IsEmpty() bool {
	if o == nil {
		return true
	}
	return o.ID == 0 && o.MailContentID == 0 && !o.Active && o.SignatureFields.IsZero()
}

// Copy 返回副本，避免调用方共享同一指针
func (o *SignatureOverride) Copy() *SignatureOverride {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}

// AsMailConfig 将署名覆盖转换为发信使用的署名配置（整体替换，不与全局配置合并）
func (o *SignatureOverride) AsMailConfig() MailConfig {
	return MailConfig{SignatureFields: o.SignatureFields}
}

// DefaultSignatureOverride 返回署名覆盖的出厂默认值（未启用、字段为空）
func DefaultSignatureOverride() *SignatureOverride {
	return &SignatureOverride{
		Active: false,
	}
}
