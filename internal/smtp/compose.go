package smtp

import (
	"bytes"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"

	"mailsign/backend/internal/domain"
)

// 支持的邮件字符集
const (
	CharsetUTF8      = "utf-8"
	CharsetISO2022JP = "iso-2022-jp"
)

// Message 待发送的邮件
type Message struct {
	FromName  string
	From      string
	To        []string
	Subject   string
	Body      string
	Signature domain.SignatureFields
	Charset   string    // 为空时使用 utf-8
	Date      time.Time // 为空时使用当前时间
}

// SignatureBlock 将署名字段渲染为追加在正文后的纯文本署名
func SignatureBlock(f domain.SignatureFields) string {
	if f.IsZero() {
		return ""
	}

	var b strings.Builder
	b.WriteString("-- \n")
	if f.Text != "" {
		b.WriteString(strings.TrimRight(f.Text, "\n"))
		b.WriteString("\n")
	}
	for _, line := range []struct{ label, value string }{
		{"", f.SiteName},
		{"", f.SiteURL},
		{"Email: ", f.SiteEmail},
		{"TEL: ", f.SiteTel},
		{"FAX: ", f.SiteFax},
	} {
		if line.value != "" {
			b.WriteString(line.label)
			b.WriteString(line.value)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Compose 生成 RFC 5322 邮件，署名追加在正文末尾
func Compose(m Message) ([]byte, error) {
	if m.From == "" {
		return nil, fmt.Errorf("compose: sender address is required")
	}
	if len(m.To) == 0 {
		return nil, fmt.Errorf("compose: at least one recipient is required")
	}

	charset := strings.ToLower(m.Charset)
	if charset == "" {
		charset = CharsetUTF8
	}
	enc := charsetEncoding(charset)
	if enc == nil && charset != CharsetUTF8 {
		return nil, fmt.Errorf("compose: unsupported charset %q", m.Charset)
	}

	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}

	body := m.Body
	if sig := SignatureBlock(m.Signature); sig != "" {
		body = strings.TrimRight(body, "\n") + "\n\n" + sig
	}

	from, err := encodeAddress(m.FromName, m.From, charset, enc)
	if err != nil {
		return nil, err
	}
	subject, err := encodeHeader(m.Subject, charset, enc)
	if err != nil {
		return nil, err
	}

	domainPart := "localhost"
	if at := strings.LastIndex(m.From, "@"); at >= 0 {
		domainPart = m.From[at+1:]
	}

	var buf bytes.Buffer
	writeHeader(&buf, "From", from)
	writeHeader(&buf, "To", strings.Join(m.To, ", "))
	writeHeader(&buf, "Subject", subject)
	writeHeader(&buf, "Date", date.Format(time.RFC1123Z))
	writeHeader(&buf, "Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), domainPart))
	writeHeader(&buf, "MIME-Version", "1.0")
	writeHeader(&buf, "Content-Type", fmt.Sprintf("text/plain; charset=%s", strings.ToUpper(charset)))

	body = strings.ReplaceAll(body, "\r\n", "\n")
	if enc == nil {
		writeHeader(&buf, "Content-Transfer-Encoding", "quoted-printable")
		buf.WriteString("\r\n")
		qp := quotedprintable.NewWriter(&buf)
		if _, err := qp.Write([]byte(strings.ReplaceAll(body, "\n", "\r\n"))); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	// ISO-2022-JP 为 7bit 编码，直接写入转换后的字节
	encoded, err := enc.NewEncoder().String(body)
	if err != nil {
		return nil, fmt.Errorf("compose: encode body: %w", err)
	}
	writeHeader(&buf, "Content-Transfer-Encoding", "7bit")
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(encoded, "\n", "\r\n"))
	return buf.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	buf.WriteString(key)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

func encodeHeader(s, charset string, enc encoding.Encoding) (string, error) {
	if enc == nil {
		return mime.QEncoding.Encode(charset, s), nil
	}
	if isASCII(s) {
		return s, nil
	}
	encoded, err := enc.NewEncoder().String(s)
	if err != nil {
		return "", fmt.Errorf("compose: encode header: %w", err)
	}
	return mime.BEncoding.Encode(strings.ToUpper(charset), encoded), nil
}

func encodeAddress(name, address, charset string, enc encoding.Encoding) (string, error) {
	if name == "" {
		return (&mail.Address{Address: address}).String(), nil
	}
	if enc == nil {
		return (&mail.Address{Name: name, Address: address}).String(), nil
	}
	encodedName, err := encodeHeader(name, charset, enc)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s <%s>", encodedName, address), nil
}

// charsetEncoding 返回字符集对应的编码器，utf-8 返回 nil
func charsetEncoding(charset string) encoding.Encoding {
	switch strings.ToLower(charset) {
	case CharsetISO2022JP:
		return japanese.ISO2022JP
	default:
		return nil
	}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
