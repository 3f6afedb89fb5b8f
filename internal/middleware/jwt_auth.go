package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailsign/backend/internal/auth/jwt"
)

// 上下文键
const (
	ContextKeySubject     = "subject"
	ContextKeyRole        = "role"
	ContextKeyAdminSystem = "adminSystem" // 请求处于后台管理界面
)

// JWTAuth JWT认证中间件
type JWTAuth struct {
	jwtManager *jwt.Manager
	log        *zap.Logger
}

// NewJWTAuth 创建JWT认证中间件
func NewJWTAuth(jwtManager *jwt.Manager, log *zap.Logger) *JWTAuth {
	if log == nil {
		log = zap.NewNop()
	}
	return &JWTAuth{
		jwtManager: jwtManager,
		log:        log.Named("jwt-auth"),
	}
}

// RequireAdmin 要求管理员令牌，并将请求标记为后台请求
func (ja *JWTAuth) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ja.extractToken(c)
		if token == "" {
			abortJSON(c, http.StatusUnauthorized, "authentication required")
			return
		}

		claims, err := ja.jwtManager.ValidateToken(token)
		if err != nil {
			ja.log.Warn("invalid token",
				zap.Error(err),
				zap.String("ip", c.ClientIP()),
			)
			msg := "invalid or expired token"
			if errors.Is(err, jwt.ErrExpiredToken) {
				msg = "token expired"
			}
			abortJSON(c, http.StatusUnauthorized, msg)
			return
		}

		if !claims.IsAdmin() {
			abortJSON(c, http.StatusForbidden, "admin role required")
			return
		}

		c.Set(ContextKeySubject, claims.Subject)
		c.Set(ContextKeyRole, claims.Role)
		c.Set(ContextKeyAdminSystem, true)

		c.Next()
	}
}

// IsAdminRequest 请求是否经过后台认证
func IsAdminRequest(c *gin.Context) bool {
	return c.GetBool(ContextKeyAdminSystem)
}

// extractToken 从 Authorization header 或 cookie 提取 token
func (ja *JWTAuth) extractToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}

	if token, err := c.Cookie("access_token"); err == nil && token != "" {
		return token
	}
	return ""
}
