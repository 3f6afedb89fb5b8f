package smtp

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"math/big"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailsign/backend/internal/domain"
)

type received struct {
	from string
	to   []string
	data []byte
	tls  bool
}

// testBackend 进程内 SMTP 服务器，记录收到的邮件
type testBackend struct {
	mu       sync.Mutex
	messages []received
	username string
	password string
}

func (b *testBackend) NewSession(c *gosmtp.Conn) (gosmtp.Session, error) {
	return &testSession{backend: b, conn: c}, nil
}

func (b *testBackend) received() []received {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]received(nil), b.messages...)
}

type testSession struct {
	backend *testBackend
	conn    *gosmtp.Conn
	authed  bool
	from    string
	to      []string
}

func (s *testSession) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

func (s *testSession) Auth(_ string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(_, username, password string) error {
		if username != s.backend.username || password != s.backend.password {
			return errors.New("invalid credentials")
		}
		s.authed = true
		return nil
	}), nil
}

func (s *testSession) Mail(from string, _ *gosmtp.MailOptions) error {
	if s.backend.username != "" && !s.authed {
		return gosmtp.ErrAuthRequired
	}
	s.from = from
	return nil
}

func (s *testSession) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	s.to = append(s.to, to)
	return nil
}

func (s *testSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.backend.mu.Lock()
	_, isTLS := s.conn.TLSConnectionState()
	s.backend.messages = append(s.backend.messages, received{from: s.from, to: s.to, data: data, tls: isTLS})
	s.backend.mu.Unlock()
	return nil
}

func (s *testSession) Reset() {
	s.from = ""
	s.to = nil
}

func (s *testSession) Logout() error { return nil }

func startServer(t *testing.T, be *testBackend) SenderConfig {
	t.Helper()
	return startServerWithTLS(t, be, nil)
}

// startServerWithTLS tlsConfig 非空时服务器声明 STARTTLS
func startServerWithTLS(t *testing.T, be *testBackend, tlsConfig *tls.Config) SenderConfig {
	t.Helper()

	srv := gosmtp.NewServer(be)
	srv.TLSConfig = tlsConfig
	srv.Domain = "localhost"
	srv.AllowInsecureAuth = true
	srv.ReadTimeout = 5 * time.Second
	srv.WriteTimeout = 5 * time.Second

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })

	host, portStr, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return SenderConfig{Host: host, Port: port, Timeout: 5 * time.Second}
}

func TestSMTPSender_Deliver(t *testing.T) {
	be := &testBackend{}
	cfg := startServer(t, be)
	sender := NewSMTPSender(cfg, nil)

	msg, err := Compose(Message{
		FromName:  "Support",
		From:      "support@example.com",
		To:        []string{"user@example.com"},
		Subject:   "Thanks",
		Body:      "We received your inquiry.",
		Signature: domain.SignatureFields{SiteName: "Example Inc.", Text: "Best regards"},
	})
	require.NoError(t, err)

	require.NoError(t, sender.Send(context.Background(), "support@example.com", []string{"user@example.com"}, msg))

	got := be.received()
	require.Len(t, got, 1)
	assert.Equal(t, "support@example.com", got[0].from)
	assert.Equal(t, []string{"user@example.com"}, got[0].to)

	parsed, err := ParseMessage(got[0].data)
	require.NoError(t, err)
	assert.Equal(t, "Thanks", parsed.Subject)
	assert.Contains(t, parsed.Text, "Best regards")
	assert.Equal(t, 0, sender.limiter.Current())
}

// selfSignedTLS 生成 127.0.0.1 的自签名证书，返回服务端配置与信任该证书的客户端配置
func selfSignedTLS(t *testing.T) (server, client *tls.Config) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "mailsign test"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(cert)

	server = &tls.Config{Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}}}
	client = &tls.Config{RootCAs: pool, ServerName: "127.0.0.1"}
	return server, client
}

func TestSMTPSender_StartTLS(t *testing.T) {
	msg := []byte("Subject: x\r\n\r\nbody\r\n")

	t.Run("升级后投递", func(t *testing.T) {
		serverTLS, clientTLS := selfSignedTLS(t)
		be := &testBackend{username: "mailer", password: "secret"}
		cfg := startServerWithTLS(t, be, serverTLS)
		cfg.StartTLS = true
		cfg.TLSConfig = clientTLS
		cfg.Username, cfg.Password = "mailer", "secret"
		cfg.LocalName = "mailsign.test"

		require.NoError(t, NewSMTPSender(cfg, nil).Send(context.Background(), "a@example.com", []string{"b@example.com"}, msg))

		got := be.received()
		require.Len(t, got, 1)
		assert.True(t, got[0].tls)
	})

	t.Run("证书不受信任", func(t *testing.T) {
		serverTLS, _ := selfSignedTLS(t)
		_, otherClient := selfSignedTLS(t)
		be := &testBackend{}
		cfg := startServerWithTLS(t, be, serverTLS)
		cfg.StartTLS = true
		cfg.TLSConfig = otherClient

		err := NewSMTPSender(cfg, nil).Send(context.Background(), "a@example.com", []string{"b@example.com"}, msg)
		assert.Error(t, err)
		assert.Empty(t, be.received())
	})

	t.Run("服务器不支持STARTTLS", func(t *testing.T) {
		be := &testBackend{}
		cfg := startServer(t, be)
		cfg.StartTLS = true

		err := NewSMTPSender(cfg, nil).Send(context.Background(), "a@example.com", []string{"b@example.com"}, msg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "starttls")
		assert.Empty(t, be.received())
	})

	t.Run("未启用时不升级", func(t *testing.T) {
		serverTLS, _ := selfSignedTLS(t)
		be := &testBackend{}
		cfg := startServerWithTLS(t, be, serverTLS)

		require.NoError(t, NewSMTPSender(cfg, nil).Send(context.Background(), "a@example.com", []string{"b@example.com"}, msg))

		got := be.received()
		require.Len(t, got, 1)
		assert.False(t, got[0].tls)
	})
}

func TestSMTPSender_Auth(t *testing.T) {
	be := &testBackend{username: "mailer", password: "secret"}
	cfg := startServer(t, be)

	t.Run("认证成功", func(t *testing.T) {
		cfg := cfg
		cfg.Username, cfg.Password = "mailer", "secret"
		err := NewSMTPSender(cfg, nil).Send(context.Background(), "a@example.com", []string{"b@example.com"}, []byte("Subject: x\r\n\r\nbody\r\n"))
		require.NoError(t, err)
		assert.Len(t, be.received(), 1)
	})

	t.Run("认证失败", func(t *testing.T) {
		cfg := cfg
		cfg.Username, cfg.Password = "mailer", "wrong"
		err := NewSMTPSender(cfg, nil).Send(context.Background(), "a@example.com", []string{"b@example.com"}, []byte("Subject: x\r\n\r\nbody\r\n"))
		assert.Error(t, err)
		assert.Len(t, be.received(), 1)
	})
}

func TestSMTPSender_DialFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().(*net.TCPAddr)
	require.NoError(t, l.Close())

	sender := NewSMTPSender(SenderConfig{Host: "127.0.0.1", Port: addr.Port, Timeout: time.Second}, nil)
	err = sender.Send(context.Background(), "a@example.com", []string{"b@example.com"}, []byte("x"))
	assert.Error(t, err)
}

func TestConnectionLimiter(t *testing.T) {
	l := NewConnectionLimiter(1, 0)

	require.NoError(t, l.Acquire(context.Background()))
	assert.Equal(t, 1, l.Current())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Acquire(ctx), context.DeadlineExceeded)

	l.Release()
	l.Release()
	assert.Equal(t, 0, l.Current())
	require.NoError(t, l.Acquire(context.Background()))
}
