package notifications

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/opencase/benefits-portal-api/pkg/config"
)

// SMTPSender delivers messages through a plain SMTP relay.
type SMTPSender struct {
	cfg  config.SMTPConfig
	from string
}

// NewSMTPSender builds the production sender.
func NewSMTPSender(cfg config.SMTPConfig, from string) *SMTPSender {
	return &SMTPSender{cfg: cfg, from: from}
}

// Send implements Sender.
func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("no recipient specified")
	}

	var headers []string
	headers = append(headers, fmt.Sprintf("From: %s", s.from))
	headers = append(headers, fmt.Sprintf("To: %s", msg.To))
	headers = append(headers, fmt.Sprintf("Subject: %s", msg.Subject))
	headers = append(headers, "Content-Type: text/plain; charset=UTF-8")

	body := strings.Join(headers, "\r\n") + "\r\n\r\n" + msg.Body

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, s.from, []string{msg.To}, []byte(body)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}
