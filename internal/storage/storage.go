package storage

import (
	"mailsign/backend/internal/domain"
)

// MailContentRepository 定义邮件表单（主实体）数据存取操作。
//
// SaveMailContent 只写主实体本身，SignatureOverride 关联字段不会被一并写入。
type MailContentRepository interface {
	SaveMailContent(content *domain.MailContent) error // ID 为 0 时插入并回填 ID
	GetMailContent(id int64, opts domain.FindOptions) (*domain.MailContent, error)
	ListMailContents(opts domain.FindOptions) ([]domain.MailContent, error)
	DeleteMailContent(id int64) error
}

// SignatureOverrideRepository 定义署名覆盖（从实体）数据存取操作。
//
// 所有查询均为单表查询，不联表带出其他关联。
type SignatureOverrideRepository interface {
	GetSignatureOverride(id int64) (*domain.SignatureOverride, error)
	GetSignatureOverrideByContentID(contentID int64) (*domain.SignatureOverride, error)
	SaveSignatureOverride(override *domain.SignatureOverride) error // ID 为 0 时插入，否则就地更新
	DeleteSignatureOverride(id int64) error
	ListSignatureOverrides() ([]domain.SignatureOverride, error)
}

// MailConfigRepository 定义全局署名配置数据存取操作。
type MailConfigRepository interface {
	GetMailConfig() (*domain.MailConfig, error)
	SaveMailConfig(config *domain.MailConfig) error
}

// Store 定义完整的存储接口。
type Store interface {
	MailContentRepository
	SignatureOverrideRepository
	MailConfigRepository

	// 工具方法
	Close() error
	Health() error
}
