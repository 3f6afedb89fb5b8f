package smtp

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"golang.org/x/text/transform"
)

// ParsedMessage 解析后的纯文本邮件
type ParsedMessage struct {
	From    string
	To      string
	Subject string
	Charset string
	Text    string
}

var headerDecoder = &mime.WordDecoder{
	CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
		enc := charsetEncoding(charset)
		if enc == nil {
			return nil, fmt.Errorf("unsupported charset %q", charset)
		}
		return transform.NewReader(input, enc.NewDecoder()), nil
	},
}

// ParseMessage 解析 Compose 生成的邮件，解码标头与正文
func ParseMessage(raw []byte) (*ParsedMessage, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse mail: %w", err)
	}

	parsed := &ParsedMessage{
		From:    decodeHeader(msg.Header.Get("From")),
		To:      msg.Header.Get("To"),
		Subject: decodeHeader(msg.Header.Get("Subject")),
	}

	_, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err == nil {
		parsed.Charset = strings.ToLower(params["charset"])
	}

	text, err := decodeBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"), parsed.Charset)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	parsed.Text = strings.ReplaceAll(text, "\r\n", "\n")
	return parsed, nil
}

func decodeHeader(value string) string {
	decoded, err := headerDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// decodeBody 根据传输编码与字符集解码正文
func decodeBody(reader io.Reader, transferEncoding, charset string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "base64":
		reader = base64.NewDecoder(base64.StdEncoding, reader)
	case "quoted-printable":
		reader = quotedprintable.NewReader(reader)
	}

	if enc := charsetEncoding(charset); enc != nil {
		reader = transform.NewReader(reader, enc.NewDecoder())
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
