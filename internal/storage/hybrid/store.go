package hybrid

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"mailsign/backend/internal/domain"
	"mailsign/backend/internal/storage/postgres"
	"mailsign/backend/internal/storage/redis"
)

// DefaultCacheTTL 署名覆盖与全局配置的缓存时长
const DefaultCacheTTL = 10 * time.Minute

// Store 混合存储实现，结合关系型数据库和 Redis。
//
// 数据库是唯一的事实来源；Redis 只缓存按 mail_content_id 的署名覆盖查询
// 与全局署名配置。缓存读写失败只记录日志，不会使数据库写入失败。
type Store struct {
	db    *postgres.Store
	redis *redis.Cache
	ttl   time.Duration
	log   *zap.Logger
}

// NewStore 使用已创建的数据库存储与缓存组装混合存储
func NewStore(db *postgres.Store, cache *redis.Cache, ttl time.Duration, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Store{
		db:    db,
		redis: cache,
		ttl:   ttl,
		log:   log.Named("hybrid-store"),
	}
}

// ========== MailContent Repository ==========

// SaveMailContent 保存邮件表单（列表与详情不缓存）
func (s *Store) SaveMailContent(content *domain.MailContent) error {
	return s.db.SaveMailContent(content)
}

// GetMailContent 根据 ID 获取邮件表单
func (s *Store) GetMailContent(id int64, opts domain.FindOptions) (*domain.MailContent, error) {
	return s.db.GetMailContent(id, opts)
}

// ListMailContents 返回全部邮件表单
func (s *Store) ListMailContents(opts domain.FindOptions) ([]domain.MailContent, error) {
	return s.db.ListMailContents(opts)
}

// DeleteMailContent 删除邮件表单
func (s *Store) DeleteMailContent(id int64) error {
	return s.db.DeleteMailContent(id)
}

// ========== SignatureOverride Repository ==========

// GetSignatureOverride 根据 ID 获取署名覆盖
func (s *Store) GetSignatureOverride(id int64) (*domain.SignatureOverride, error) {
	return s.db.GetSignatureOverride(id)
}

// GetSignatureOverrideByContentID 先查 Redis，未命中再查数据库并回填
func (s *Store) GetSignatureOverrideByContentID(contentID int64) (*domain.SignatureOverride, error) {
	if override, err := s.redis.GetCachedOverride(contentID); err == nil {
		return override, nil
	}

	override, err := s.db.GetSignatureOverrideByContentID(contentID)
	if err != nil {
		// 不存在的结果不缓存
		return nil, err
	}

	if err := s.redis.CacheOverride(override, s.ttl); err != nil {
		s.log.Warn("failed to cache signature override",
			zap.Int64("mail_content_id", contentID),
			zap.Error(err),
		)
	}
	return override, nil
}

// SaveSignatureOverride 写入数据库后使缓存失效
func (s *Store) SaveSignatureOverride(override *domain.SignatureOverride) error {
	if err := s.db.SaveSignatureOverride(override); err != nil {
		return err
	}
	s.invalidateOverride(override.MailContentID)
	return nil
}

// DeleteSignatureOverride 从数据库删除后使缓存失效
func (s *Store) DeleteSignatureOverride(id int64) error {
	existing, err := s.db.GetSignatureOverride(id)
	if err != nil {
		return err
	}

	if err := s.db.DeleteSignatureOverride(id); err != nil {
		return err
	}

	s.invalidateOverride(existing.MailContentID)
	return nil
}

// ListSignatureOverrides 直接从数据库获取（列表查询不缓存）
func (s *Store) ListSignatureOverrides() ([]domain.SignatureOverride, error) {
	return s.db.ListSignatureOverrides()
}

func (s *Store) invalidateOverride(contentID int64) {
	if err := s.redis.DeleteCachedOverride(contentID); err != nil {
		s.log.Warn("failed to invalidate signature override cache",
			zap.Int64("mail_content_id", contentID),
			zap.Error(err),
		)
	}
}

// ========== MailConfig Repository ==========

// GetMailConfig 先查 Redis，未命中再查数据库并回填
func (s *Store) GetMailConfig() (*domain.MailConfig, error) {
	if cfg, err := s.redis.GetCachedMailConfig(); err == nil {
		return cfg, nil
	}

	cfg, err := s.db.GetMailConfig()
	if err != nil {
		return nil, err
	}

	if err := s.redis.CacheMailConfig(cfg, s.ttl); err != nil {
		s.log.Warn("failed to cache mail config", zap.Error(err))
	}
	return cfg, nil
}

// SaveMailConfig 写入数据库后使缓存失效
func (s *Store) SaveMailConfig(cfg *domain.MailConfig) error {
	if err := s.db.SaveMailConfig(cfg); err != nil {
		return err
	}
	if err := s.redis.DeleteCachedMailConfig(); err != nil {
		s.log.Warn("failed to invalidate mail config cache", zap.Error(err))
	}
	return nil
}

// ========== 工具方法 ==========

// Close 关闭所有连接
func (s *Store) Close() error {
	if err := s.redis.Close(); err != nil {
		s.log.Warn("failed to close redis", zap.Error(err))
	}
	return s.db.Close()
}

// Health 检查数据库与 Redis 连接
func (s *Store) Health() error {
	if err := s.db.Health(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := s.redis.Ping(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}
