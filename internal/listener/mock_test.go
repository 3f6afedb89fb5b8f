package listener

import (
	"github.com/stretchr/testify/mock"

	"mailsign/backend/internal/domain"
)

// MockOverrideRepository 模拟署名覆盖存储
type MockOverrideRepository struct {
	mock.Mock
}

func (m *MockOverrideRepository) GetSignatureOverride(id int64) (*domain.SignatureOverride, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SignatureOverride), args.Error(1)
}

func (m *MockOverrideRepository) GetSignatureOverrideByContentID(contentID int64) (*domain.SignatureOverride, error) {
	args := m.Called(contentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SignatureOverride), args.Error(1)
}

func (m *MockOverrideRepository) SaveSignatureOverride(override *domain.SignatureOverride) error {
	args := m.Called(override)
	return args.Error(0)
}

func (m *MockOverrideRepository) DeleteSignatureOverride(id int64) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockOverrideRepository) ListSignatureOverrides() ([]domain.SignatureOverride, error) {
	args := m.Called()
	return args.Get(0).([]domain.SignatureOverride), args.Error(1)
}

// MockConfigProvider 模拟全局署名配置来源
type MockConfigProvider struct {
	mock.Mock
}

func (m *MockConfigProvider) GetMailConfig() (*domain.MailConfig, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MailConfig), args.Error(1)
}
