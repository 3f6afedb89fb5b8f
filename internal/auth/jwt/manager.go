package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken 无效的令牌
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken 令牌已过期
	ErrExpiredToken = errors.New("token expired")
)

// RoleAdmin 后台管理员角色
const RoleAdmin = "admin"

// Claims JWT 自定义声明
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin 是否为后台管理员令牌
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// Token 签发的访问令牌
type Token struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresIn   int64     `json:"expiresIn"` // 秒
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Manager JWT 管理器
type Manager struct {
	secret       []byte
	issuer       string
	accessExpiry time.Duration
	now          func() time.Time
}

// NewManager 创建 JWT 管理器
func NewManager(secret, issuer string, accessExpiry time.Duration) *Manager {
	return &Manager{
		secret:       []byte(secret),
		issuer:       issuer,
		accessExpiry: accessExpiry,
		now:          time.Now,
	}
}

// GenerateToken 为指定主体签发访问令牌
func (m *Manager) GenerateToken(subject, role string) (*Token, error) {
	now := m.now()
	expiresAt := now.Add(m.accessExpiry)

	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return &Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(m.accessExpiry.Seconds()),
		ExpiresAt:   expiresAt,
	}, nil
}

// ValidateToken 验证令牌并返回声明
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名算法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
