package notify

import (
	"context"
	"log/slog"
)

// DevMailSender logs the code instead of sending it. Useful for local
// development where the verification flow still has to be exercised.
type DevMailSender struct {
	logger *slog.Logger
}

func NewDevMailSender(logger *slog.Logger) *DevMailSender {
	return &DevMailSender{logger: logger}
}

func (s *DevMailSender) SendVerificationEmail(ctx context.Context, msg MailMessage) error {
	s.logger.InfoContext(ctx, "verification email issued",
		"to", msg.To,
		"name", msg.Name,
		"code", msg.Code,
		"action_url", msg.ActionURL,
		"expires_in", slog.GroupValue(slog.Int64("value", msg.ExpiryValue), slog.String("unit", msg.ExpiryUnit)),
	)
	return nil
}

func (s *DevMailSender) SendPasswordResetEmail(ctx context.Context, msg MailMessage) error {
	s.logger.InfoContext(ctx, "password reset email issued",
		"to", msg.To,
		"name", msg.Name,
		"code", msg.Code,
		"action_url", msg.ActionURL,
	)
	return nil
}

// DevPhoneSender logs the code instead of sending it.
type DevPhoneSender struct {
	logger *slog.Logger
}

func NewDevPhoneSender(logger *slog.Logger) *DevPhoneSender {
	return &DevPhoneSender{logger: logger}
}

func (s *DevPhoneSender) SendCode(ctx context.Context, to, code string) error {
	s.logger.InfoContext(ctx, "phone code issued", "to", to, "code", code)
	return nil
}
