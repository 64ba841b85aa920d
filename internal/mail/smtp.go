package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/stijnblommerde/restaurant-menu/internal/config"
)

// SMTPSender delivers messages over plain SMTP. It renders the small
// fixed template set inline; there is no HTML mail in this system.
type SMTPSender struct {
	cfg config.MailConfig
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	body, err := renderBody(msg, s.cfg.BaseURL)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", s.cfg.FromName, s.cfg.FromAddress)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(body)

	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		host := s.cfg.SMTPAddr
		if i := strings.IndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, host)
	}

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(s.cfg.SMTPAddr, auth, s.cfg.FromAddress, []string{msg.To}, []byte(b.String()))
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	}
}

func renderBody(msg Message, baseURL string) (string, error) {
	token := msg.Data["token"]
	name := msg.Data["name"]
	if name == "" {
		name = "there"
	}

	switch msg.Template {
	case TemplateConfirm:
		return fmt.Sprintf(
			"Hi %s,\r\n\r\nWelcome! Confirm your account by visiting:\r\n\r\n%s/confirm/%s\r\n\r\nThe link expires in one hour.\r\n",
			name, baseURL, token), nil
	case TemplateResetPassword:
		return fmt.Sprintf(
			"Hi %s,\r\n\r\nTo reset your password, visit:\r\n\r\n%s/reset_password/%s\r\n\r\nIf you did not request this, ignore this mail.\r\n",
			name, baseURL, token), nil
	case TemplateChangeEmail:
		return fmt.Sprintf(
			"Hi %s,\r\n\r\nTo confirm your new email address, visit:\r\n\r\n%s/change_email/%s\r\n",
			name, baseURL, token), nil
	default:
		return "", fmt.Errorf("unknown mail template %q", msg.Template)
	}
}
