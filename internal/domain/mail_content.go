package domain

import "time"

// ModelMailContent 邮件表单内容实体的模型名，生命周期事件以此区分来源
const ModelMailContent = "MailContent"

// MailContent 表示一个邮件表单的内容设置（主实体）。
//
// SignatureOverride 是一对一的关联字段：读取时由查询选项决定是否联表带出，
// 保存时作为提交的署名覆盖子载荷交给生命周期钩子处理，本身不会随主实体写入。
type MailContent struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name         string    `json:"name" gorm:"type:varchar(100);index;not null" validate:"required,max=100"`
	Title        string    `json:"title" gorm:"type:varchar(255);not null" validate:"required,max=255"`
	Description  string    `json:"description" gorm:"type:text"`
	SenderName   string    `json:"senderName" gorm:"type:varchar(255)" validate:"max=255"`
	SubjectUser  string    `json:"subjectUser" gorm:"type:varchar(255)" validate:"max=255"`
	SubjectAdmin string    `json:"subjectAdmin" gorm:"type:varchar(255)" validate:"max=255"`
	Status       bool      `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	SignatureOverride *SignatureOverride `json:"signatureOverride,omitempty" gorm:"foreignKey:MailContentID"`
}

// Association 主实体可联表带出的关联名称
type Association string

const (
	// AssocSignatureOverride 署名覆盖（hasOne，外键 mail_content_id）
	AssocSignatureOverride Association = "SignatureOverride"
)

// FindOptions 单次读取主实体时的查询选项
type FindOptions struct {
	Includes []Association
}

// Include 登记一个关联，同一关联重复登记只保留一份。
// 返回值表示本次是否新增。
func (o *FindOptions) Include(assoc Association) bool {
	if o.Has(assoc) {
		return false
	}
	o.Includes = append(o.Includes, assoc)
	return true
}

// Has 判断关联是否已登记
func (o FindOptions) Has(assoc Association) bool {
	for _, a := range o.Includes {
		if a == assoc {
			return true
		}
	}
	return false
}

// Clone 复制主实体的内容字段（不含主键、时间戳与关联）
func (m *MailContent) Clone() *MailContent {
	return &MailContent{
		Name:         m.Name,
		Title:        m.Title,
		Description:  m.Description,
		SenderName:   m.SenderName,
		SubjectUser:  m.SubjectUser,
		SubjectAdmin: m.SubjectAdmin,
		Status:       m.Status,
	}
}
