package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"mailsign/backend/internal/domain"
)

// Store 基于 GORM 的关系型数据库存储实现（PostgreSQL / MySQL / SQLite）
type Store struct {
	db *gorm.DB
}

// NewStore 创建 PostgreSQL 存储实例
func NewStore(dsn string) (*Store, error) {
	return NewStoreWithDialector(postgres.Open(dsn))
}

// NewMySQLStore 创建 MySQL 存储实例
func NewMySQLStore(dsn string) (*Store, error) {
	return NewStoreWithDialector(mysql.Open(dsn))
}

// NewSQLiteStore 创建 SQLite 存储实例，dsn 可为文件路径或 ":memory:"
func NewSQLiteStore(dsn string) (*Store, error) {
	return NewStoreWithDialector(sqlite.Open(dsn))
}

// NewStoreWithDialector 使用指定的GORM dialector创建存储实例
func NewStoreWithDialector(dialector gorm.Dialector) (*Store, error) {
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // 静默模式
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		// 唯一索引冲突统一翻译为 gorm.ErrDuplicatedKey
		TranslateError: true,
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	// SQLite 内存库每个连接都是独立的数据库
	if dialector.Name() == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetConnMaxLifetime(0)
	}

	store := &Store{db: db}

	if err := store.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Migrate 自动迁移数据库表结构，并写入缺失的全局署名配置
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(
		&domain.MailContent{},
		&domain.SignatureOverride{},
		&domain.MailConfig{},
	); err != nil {
		return err
	}

	var cfg domain.MailConfig
	return s.db.Where(domain.MailConfig{ID: domain.MailConfigID}).
		Attrs(*domain.DefaultMailConfig()).
		FirstOrCreate(&cfg).Error
}

// DB 返回底层 gorm 连接，供命令行工具使用
func (s *Store) DB() *gorm.DB {
	return s.db
}

// ========== MailContent Repository ==========

// SaveMailContent 保存邮件表单，关联的署名覆盖不会被一并写入
func (s *Store) SaveMailContent(content *domain.MailContent) error {
	return s.db.Omit(clause.Associations).Save(content).Error
}

// GetMailContent 根据 ID 获取邮件表单
func (s *Store) GetMailContent(id int64, opts domain.FindOptions) (*domain.MailContent, error) {
	var content domain.MailContent
	err := s.query(opts).First(&content, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMailContentNotFound
		}
		return nil, err
	}
	normalizeOverride(&content)
	return &content, nil
}

// ListMailContents 按 ID 升序返回全部邮件表单
func (s *Store) ListMailContents(opts domain.FindOptions) ([]domain.MailContent, error) {
	var contents []domain.MailContent
	if err := s.query(opts).Order("mail_contents.id").Find(&contents).Error; err != nil {
		return nil, err
	}
	for i := range contents {
		normalizeOverride(&contents[i])
	}
	return contents, nil
}

// DeleteMailContent 删除邮件表单
func (s *Store) DeleteMailContent(id int64) error {
	result := s.db.Delete(&domain.MailContent{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrMailContentNotFound
	}
	return nil
}

// query 按查询选项构造一次性的读取语句，联表只作用于本次查询
func (s *Store) query(opts domain.FindOptions) *gorm.DB {
	q := s.db.Model(&domain.MailContent{})
	if opts.Has(domain.AssocSignatureOverride) {
		q = q.Joins(string(domain.AssocSignatureOverride))
	}
	return q
}

// normalizeOverride LEFT JOIN 未命中时 gorm 可能留下零值关联，统一置为 nil
func normalizeOverride(content *domain.MailContent) {
	if content.SignatureOverride != nil && content.SignatureOverride.ID == 0 {
		content.SignatureOverride = nil
	}
}

// ========== SignatureOverride Repository ==========

// GetSignatureOverride 根据 ID 获取署名覆盖
func (s *Store) GetSignatureOverride(id int64) (*domain.SignatureOverride, error) {
	var override domain.SignatureOverride
	if err := s.db.First(&override, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSignatureOverrideNotFound
		}
		return nil, err
	}
	return &override, nil
}

// GetSignatureOverrideByContentID 根据 mail_content_id 获取署名覆盖
func (s *Store) GetSignatureOverrideByContentID(contentID int64) (*domain.SignatureOverride, error) {
	var override domain.SignatureOverride
	err := s.db.Where("mail_content_id = ?", contentID).First(&override).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSignatureOverrideNotFound
		}
		return nil, err
	}
	return &override, nil
}

// SaveSignatureOverride ID 为 0 时插入，否则按主键更新。
// 主键不存在时丢弃该 ID 插入新记录，由数据库分配主键；
// 主键命中的记录属于其他邮件表单时返回 ErrSignatureOverrideOwner。
func (s *Store) SaveSignatureOverride(override *domain.SignatureOverride) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if override.ID == 0 {
			return tx.Create(override).Error
		}

		var existing domain.SignatureOverride
		err := tx.Select("id", "mail_content_id", "created_at").First(&existing, override.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			override.ID = 0
			return tx.Create(override).Error
		}
		if err != nil {
			return err
		}
		if existing.MailContentID != override.MailContentID {
			return domain.ErrSignatureOverrideOwner
		}
		override.CreatedAt = existing.CreatedAt
		return tx.Save(override).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrSignatureOverrideExists
	}
	return err
}

// DeleteSignatureOverride 删除署名覆盖
func (s *Store) DeleteSignatureOverride(id int64) error {
	result := s.db.Delete(&domain.SignatureOverride{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrSignatureOverrideNotFound
	}
	return nil
}

// ListSignatureOverrides 按 ID 升序返回全部署名覆盖
func (s *Store) ListSignatureOverrides() ([]domain.SignatureOverride, error) {
	var overrides []domain.SignatureOverride
	if err := s.db.Order("id").Find(&overrides).Error; err != nil {
		return nil, err
	}
	return overrides, nil
}

// ========== MailConfig Repository ==========

// GetMailConfig 获取全局署名配置
func (s *Store) GetMailConfig() (*domain.MailConfig, error) {
	var cfg domain.MailConfig
	if err := s.db.First(&cfg, domain.MailConfigID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMailConfigNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

// SaveMailConfig 保存全局署名配置
func (s *Store) SaveMailConfig(cfg *domain.MailConfig) error {
	cfg.ID = domain.MailConfigID
	return s.db.Save(cfg).Error
}

// ========== 工具方法 ==========

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查数据库连接
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// SetPool 调整连接池参数，SQLite 始终保持单连接
func (s *Store) SetPool(maxOpen, maxIdle int, lifetime time.Duration) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if maxIdle > 0 {
		sqlDB.SetMaxIdleConns(maxIdle)
	}
	if s.db.Dialector.Name() == "sqlite" {
		return nil
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if lifetime > 0 {
		sqlDB.SetConnMaxLifetime(lifetime)
	}
	return nil
}
