package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"go.uber.org/zap"
)

// Sender 投递已编码的邮件
type Sender interface {
	Send(ctx context.Context, from string, to []string, msg []byte) error
}

// SenderConfig 外发 SMTP 服务器配置
type SenderConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	StartTLS  bool   // 要求通过 STARTTLS 升级到 TLS，服务器不支持时投递失败
	LocalName string // EHLO 使用的主机名
	Timeout   time.Duration

	MaxConns int     // 最大并发连接数
	MaxRate  float64 // 每秒最大新建连接数

	// TLSConfig 为空时按 Host 校验证书
	TLSConfig *tls.Config
}

// SMTPSender 基于 go-smtp 客户端的发信实现
type SMTPSender struct {
	cfg     SenderConfig
	limiter *ConnectionLimiter
	log     *zap.Logger
}

// NewSMTPSender 创建 SMTP 发信器
func NewSMTPSender(cfg SenderConfig, log *zap.Logger) *SMTPSender {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.LocalName == "" {
		cfg.LocalName = "localhost"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPSender{
		cfg:     cfg,
		limiter: NewConnectionLimiter(cfg.MaxConns, cfg.MaxRate),
		log:     log.Named("smtp-sender"),
	}
}

// dial 建立 TCP 连接；启用 StartTLS 时在握手后立即升级，服务器不支持则失败
func (s *SMTPSender) dial(ctx context.Context, addr string) (*gosmtp.Client, error) {
	dialer := &net.Dialer{Timeout: s.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("smtp: dial %s: %w", addr, err)
	}

	if !s.cfg.StartTLS {
		return gosmtp.NewClient(conn), nil
	}

	tlsConfig := s.cfg.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{ServerName: s.cfg.Host}
	}
	// 升级前的问候与 STARTTLS 命令同样响应 ctx 取消
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	c, err := gosmtp.NewClientStartTLS(conn, tlsConfig)
	if err != nil {
		// NewClientStartTLS 失败时已关闭连接
		return nil, fmt.Errorf("smtp: starttls %s: %w", addr, err)
	}
	return c, nil
}

// Send 建立一次 SMTP 会话并投递邮件
func (s *SMTPSender) Send(ctx context.Context, from string, to []string, msg []byte) error {
	if err := s.limiter.Acquire(ctx); err != nil {
		return fmt.Errorf("smtp: acquire connection: %w", err)
	}
	defer s.limiter.Release()

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	c, err := s.dial(ctx, addr)
	if err != nil {
		return err
	}
	defer c.Close()

	c.CommandTimeout = s.cfg.Timeout
	c.SubmissionTimeout = s.cfg.Timeout

	// 会话期间响应 ctx 取消
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	if err := c.Hello(s.cfg.LocalName); err != nil {
		return fmt.Errorf("smtp: hello: %w", err)
	}

	if s.cfg.Username != "" {
		auth := sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp: auth: %w", err)
		}
	}

	if err := c.Mail(from, nil); err != nil {
		return fmt.Errorf("smtp: mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt, nil); err != nil {
			return fmt.Errorf("smtp: rcpt to %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp: data: %w", err)
	}
	if _, err := io.Copy(w, bytes.NewReader(msg)); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp: write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp: finish data: %w", err)
	}

	if err := c.Quit(); err != nil {
		s.log.Debug("smtp quit failed", zap.Error(err))
	}

	s.log.Info("mail delivered",
		zap.String("server", addr),
		zap.Int("recipients", len(to)),
	)
	return nil
}
