package service

import (
	"errors"
	"fmt"
	"time"

	"mailsign/backend/internal/cache"
	"mailsign/backend/internal/domain"
	"mailsign/backend/internal/storage"
)

// ErrInvalidConfig 无效的署名配置
var ErrInvalidConfig = errors.New("invalid config")

const mailConfigCacheKey = "mail_config"

// MailConfigService 全局署名配置服务
type MailConfigService struct {
	store     storage.MailConfigRepository
	cache     *cache.LocalCache // 可为 nil
	validator *domain.Validator
}

// NewMailConfigService 创建署名配置服务，localCache 为 nil 时每次读取存储
func NewMailConfigService(store storage.MailConfigRepository, localCache *cache.LocalCache) *MailConfigService {
	return &MailConfigService{
		store:     store,
		cache:     localCache,
		validator: domain.NewValidator(),
	}
}

// GetMailConfig 获取全局署名配置，返回副本
func (s *MailConfigService) GetMailConfig() (*domain.MailConfig, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(mailConfigCacheKey); ok {
			cfg := v.(domain.MailConfig)
			return &cfg, nil
		}
	}

	cfg, err := s.store.GetMailConfig()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(mailConfigCacheKey, *cfg, 0)
	}
	return cfg, nil
}

// UpdateMailConfigInput 更新署名配置输入
type UpdateMailConfigInput struct {
	domain.SignatureFields
	UpdatedBy string `json:"-"` // 更新者
}

// UpdateMailConfig 更新全局署名配置
func (s *MailConfigService) UpdateMailConfig(input UpdateMailConfigInput) (*domain.MailConfig, error) {
	if errs := s.validator.ValidateSignature(input.SignatureFields); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, errs.Error())
	}

	cfg, err := s.store.GetMailConfig()
	if err != nil && !errors.Is(err, domain.ErrMailConfigNotFound) {
		return nil, err
	}
	if cfg == nil {
		cfg = domain.DefaultMailConfig()
	}

	cfg.SignatureFields = input.SignatureFields
	cfg.UpdatedBy = input.UpdatedBy
	cfg.UpdatedAt = time.Now().UTC()

	if err := s.save(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResetMailConfig 重置为默认署名配置
func (s *MailConfigService) ResetMailConfig(updatedBy string) (*domain.MailConfig, error) {
	cfg := domain.DefaultMailConfig()
	cfg.UpdatedBy = updatedBy
	if err := s.save(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *MailConfigService) save(cfg *domain.MailConfig) error {
	if err := s.store.SaveMailConfig(cfg); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Delete(mailConfigCacheKey)
	}
	return nil
}
