package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// SMTPSender delivers messages through an SMTP relay with PLAIN auth.
type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// NewSMTPSender validates the relay settings.
func NewSMTPSender(host, port, username, password, from string) (*SMTPSender, error) {
	if strings.TrimSpace(host) == "" {
		return nil, errors.New("notify: smtp host not set")
	}
	if strings.TrimSpace(port) == "" {
		port = "587"
	}
	if strings.TrimSpace(from) == "" {
		from = username
	}
	if strings.TrimSpace(from) == "" {
		return nil, errors.New("notify: smtp from address not set")
	}
	return &SMTPSender{host: host, port: port, username: username, password: password, from: from}, nil
}

// Send delivers msg. The context is only checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if errCtx := ctx.Err(); errCtx != nil {
		return errCtx
	}
	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	if errSend := smtp.SendMail(net.JoinHostPort(s.host, s.port), auth, s.from, []string{msg.To}, buildMIME(s.from, msg)); errSend != nil {
		return fmt.Errorf("notify: smtp send: %w", errSend)
	}
	return nil
}

func buildMIME(from string, msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + stripCRLF(msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

func stripCRLF(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
