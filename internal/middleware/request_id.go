package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID 请求 ID 响应头
const HeaderRequestID = "X-Request-ID"

// ContextKeyRequestID 请求 ID 上下文键
const ContextKeyRequestID = "requestID"

// RequestID 沿用客户端传入的请求 ID，缺失时生成新的 UUID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}
