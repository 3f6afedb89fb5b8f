package smtp

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// ConnectionLimiter 外发 SMTP 连接限流器
//
// 同时限制并发连接数与每秒新建连接数。
type ConnectionLimiter struct {
	slots   chan struct{}
	limiter *rate.Limiter
	mu      sync.Mutex
	current int
}

// NewConnectionLimiter 创建连接限流器
//
// 参数:
//   - maxConns: 最大并发连接数，<=0 时不限制
//   - maxRate: 每秒最大新建连接数，<=0 时不限制
func NewConnectionLimiter(maxConns int, maxRate float64) *ConnectionLimiter {
	l := &ConnectionLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	if maxConns > 0 {
		l.slots = make(chan struct{}, maxConns)
	}
	if maxRate > 0 {
		l.limiter = rate.NewLimiter(rate.Limit(maxRate), max(1, int(maxRate)))
	}
	return l
}

// Acquire 等待连接许可，ctx 取消时返回错误
func (l *ConnectionLimiter) Acquire(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}

	if l.slots != nil {
		select {
		case l.slots <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	l.mu.Lock()
	l.current++
	l.mu.Unlock()
	return nil
}

// Release 释放连接
func (l *ConnectionLimiter) Release() {
	l.mu.Lock()
	if l.current == 0 {
		l.mu.Unlock()
		return
	}
	l.current--
	l.mu.Unlock()

	if l.slots != nil {
		<-l.slots
	}
}

// Current 当前连接数
func (l *ConnectionLimiter) Current() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}
