package notify

import (
	"context"
	"log/slog"
)

// NoneMailSender is the provider for disabled mail channels. Registration
// treats the channel as pre-verified, so this sender should never be asked
// to deliver; if it is, it logs and drops the message.
type NoneMailSender struct {
	logger *slog.Logger
}

func NewNoneMailSender(logger *slog.Logger) *NoneMailSender {
	return &NoneMailSender{logger: logger}
}

func (s *NoneMailSender) SendVerificationEmail(ctx context.Context, msg MailMessage) error {
	s.logger.WarnContext(ctx, "mail provider is none, verification email dropped", "to", msg.To)
	return nil
}

func (s *NoneMailSender) SendPasswordResetEmail(ctx context.Context, msg MailMessage) error {
	s.logger.WarnContext(ctx, "mail provider is none, password reset email dropped", "to", msg.To)
	return nil
}

// NonePhoneSender is the disabled phone channel counterpart.
type NonePhoneSender struct {
	logger *slog.Logger
}

func NewNonePhoneSender(logger *slog.Logger) *NonePhoneSender {
	return &NonePhoneSender{logger: logger}
}

func (s *NonePhoneSender) SendCode(ctx context.Context, to, _ string) error {
	s.logger.WarnContext(ctx, "phone provider is none, code dropped", "to", to)
	return nil
}
