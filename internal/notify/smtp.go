package notify

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"
)

// SMTPConfig carries the connection settings for the SMTP provider.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// SMTPMailSender delivers mail over plain SMTP.
type SMTPMailSender struct {
	cfg    SMTPConfig
	logger *slog.Logger
}

func NewSMTPMailSender(cfg SMTPConfig, logger *slog.Logger) *SMTPMailSender {
	return &SMTPMailSender{cfg: cfg, logger: logger}
}

func (s *SMTPMailSender) SendVerificationEmail(ctx context.Context, msg MailMessage) error {
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Verify your account</h2>
    <p>Hi %s,</p>
    <p>Confirm your email address by following this link:</p>
    <p><a href="%s">%s</a></p>
    <p>The link expires in %d %s.</p>
  </div>
</body>
</html>`, msg.Name, msg.ActionURL, msg.ActionURL, msg.ExpiryValue, msg.ExpiryUnit)
	return s.send(ctx, msg.To, "Verify your email", body)
}

func (s *SMTPMailSender) SendPasswordResetEmail(ctx context.Context, msg MailMessage) error {
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Reset your password</h2>
    <p>Hi %s,</p>
    <p>We received a request to reset your password. Use this link:</p>
    <p><a href="%s">%s</a></p>
    <p>The link expires in %d %s. If you did not ask for this, ignore this email.</p>
  </div>
</body>
</html>`, msg.Name, msg.ActionURL, msg.ActionURL, msg.ExpiryValue, msg.ExpiryUnit)
	return s.send(ctx, msg.To, "Reset password", body)
}

func (s *SMTPMailSender) send(ctx context.Context, to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.User, s.cfg.Pass)

	// gomail's dialer has no deadline support; run the send aside so the
	// context bounds how long the caller waits on a hung server.
	errc := make(chan error, 1)
	go func() { errc <- d.DialAndSend(m) }()
	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("send email: %w", err)
		}
	case <-ctx.Done():
		return fmt.Errorf("send email: %w", ctx.Err())
	}
	s.logger.InfoContext(ctx, "email sent", "to", to, "subject", subject)
	return nil
}
