package memory

import (
	"sort"
	"sync"
	"time"

	"mailsign/backend/internal/domain"
)

// Store 使用内存保存邮件表单、署名覆盖与全局署名配置，主要用于开发验证。
type Store struct {
	mu        sync.RWMutex
	contents  map[int64]*domain.MailContent       // contentID -> content
	overrides map[int64]*domain.SignatureOverride // overrideID -> override
	byContent map[int64]int64                     // mail_content_id -> overrideID
	config    *domain.MailConfig

	nextContentID  int64
	nextOverrideID int64
	now            func() time.Time
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		contents:  make(map[int64]*domain.MailContent),
		overrides: make(map[int64]*domain.SignatureOverride),
		byContent: make(map[int64]int64),
		config:    domain.DefaultMailConfig(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ========== MailContent Repository ==========

// SaveMailContent 保存邮件表单，ID 为 0 时分配新 ID。
func (s *Store) SaveMailContent(content *domain.MailContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if content.ID == 0 {
		s.nextContentID++
		content.ID = s.nextContentID
		content.CreatedAt = now
	} else if existing, ok := s.contents[content.ID]; ok {
		content.CreatedAt = existing.CreatedAt
	} else if content.ID > s.nextContentID {
		s.nextContentID = content.ID
	}
	content.UpdatedAt = now

	// 关联字段不随主实体保存
	stored := *content
	stored.SignatureOverride = nil
	s.contents[content.ID] = &stored
	return nil
}

// GetMailContent 根据 ID 获取邮件表单，按查询选项带出关联。
func (s *Store) GetMailContent(id int64, opts domain.FindOptions) (*domain.MailContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, ok := s.contents[id]
	if !ok {
		return nil, domain.ErrMailContentNotFound
	}
	return s.withAssociationsLocked(content, opts), nil
}

// ListMailContents 按 ID 升序返回全部邮件表单。
func (s *Store) ListMailContents(opts domain.FindOptions) ([]domain.MailContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.MailContent, 0, len(s.contents))
	for _, content := range s.contents {
		result = append(result, *s.withAssociationsLocked(content, opts))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// DeleteMailContent 删除邮件表单（不级联删除署名覆盖）。
func (s *Store) DeleteMailContent(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contents[id]; !ok {
		return domain.ErrMailContentNotFound
	}
	delete(s.contents, id)
	return nil
}

// withAssociationsLocked 复制实体，并按选项挂载关联；调用方需持有读锁
func (s *Store) withAssociationsLocked(content *domain.MailContent, opts domain.FindOptions) *domain.MailContent {
	out := *content
	out.SignatureOverride = nil
	if opts.Has(domain.AssocSignatureOverride) {
		if overrideID, ok := s.byContent[content.ID]; ok {
			out.SignatureOverride = s.overrides[overrideID].Copy()
		}
	}
	return &out
}

// ========== SignatureOverride Repository ==========

// GetSignatureOverride 根据 ID 获取署名覆盖。
func (s *Store) GetSignatureOverride(id int64) (*domain.SignatureOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	override, ok := s.overrides[id]
	if !ok {
		return nil, domain.ErrSignatureOverrideNotFound
	}
	return override.Copy(), nil
}

// GetSignatureOverrideByContentID 根据 mail_content_id 获取署名覆盖。
func (s *Store) GetSignatureOverrideByContentID(contentID int64) (*domain.SignatureOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	overrideID, ok := s.byContent[contentID]
	if !ok {
		return nil, domain.ErrSignatureOverrideNotFound
	}
	return s.overrides[overrideID].Copy(), nil
}

// SaveSignatureOverride 保存署名覆盖。
//
// ID 为 0 时插入新记录；否则按 ID 更新，记录不存在时忽略该 ID 插入新记录。
// 同一 mail_content_id 已被其他记录占用时返回 ErrSignatureOverrideExists，
// 按 ID 命中的记录属于其他邮件表单时返回 ErrSignatureOverrideOwner。
func (s *Store) SaveSignatureOverride(override *domain.SignatureOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ownerID, ok := s.byContent[override.MailContentID]; ok && ownerID != override.ID {
		return domain.ErrSignatureOverrideExists
	}

	now := s.now()
	existing, exists := s.overrides[override.ID]
	switch {
	case exists && existing.MailContentID != override.MailContentID:
		return domain.ErrSignatureOverrideOwner
	case exists:
		override.CreatedAt = existing.CreatedAt
	default:
		s.nextOverrideID++
		override.ID = s.nextOverrideID
		override.CreatedAt = now
	}
	override.UpdatedAt = now

	s.overrides[override.ID] = override.Copy()
	s.byContent[override.MailContentID] = override.ID
	return nil
}

// DeleteSignatureOverride 删除署名覆盖。
func (s *Store) DeleteSignatureOverride(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	override, ok := s.overrides[id]
	if !ok {
		return domain.ErrSignatureOverrideNotFound
	}
	delete(s.overrides, id)
	if s.byContent[override.MailContentID] == id {
		delete(s.byContent, override.MailContentID)
	}
	return nil
}

// ListSignatureOverrides 按 ID 升序返回全部署名覆盖。
func (s *Store) ListSignatureOverrides() ([]domain.SignatureOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.SignatureOverride, 0, len(s.overrides))
	for _, override := range s.overrides {
		result = append(result, *override)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ========== MailConfig Repository ==========

// GetMailConfig 获取全局署名配置。
func (s *Store) GetMailConfig() (*domain.MailConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config == nil {
		return nil, domain.ErrMailConfigNotFound
	}
	c := *s.config
	return &c, nil
}

// SaveMailConfig 保存全局署名配置。
func (s *Store) SaveMailConfig(config *domain.MailConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	config.ID = domain.MailConfigID
	config.UpdatedAt = s.now()
	c := *config
	s.config = &c
	return nil
}

// Close 内存存储无需释放资源
func (s *Store) Close() error { return nil }

// Health 内存存储始终可用
func (s *Store) Health() error { return nil }
