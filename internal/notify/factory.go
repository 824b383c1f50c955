package notify

import (
	"log/slog"

	"github.com/ctlabs-oss/authcore/internal/config"
)

// NewMailSender selects the mail provider from configuration.
func NewMailSender(cfg *config.Config, logger *slog.Logger) MailSender {
	switch cfg.MailProvider {
	case config.ProviderDev:
		return NewDevMailSender(logger)
	case config.ProviderSMTP:
		return NewSMTPMailSender(SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.SMTPFrom,
		}, logger)
	case config.ProviderBrevo:
		return NewBrevoMailSender(BrevoConfig{
			APIKey:     cfg.BrevoAPIKey,
			MailSender: cfg.BrevoMailSender,
		}, logger)
	default:
		return NewNoneMailSender(logger)
	}
}

// NewPhoneSender selects the phone provider from configuration.
func NewPhoneSender(cfg *config.Config, logger *slog.Logger) PhoneSender {
	switch cfg.PhoneProvider {
	case config.ProviderDev:
		return NewDevPhoneSender(logger)
	case config.ProviderBrevo:
		return NewBrevoPhoneSender(BrevoConfig{
			APIKey:    cfg.BrevoAPIKey,
			SMSSender: cfg.BrevoSMSSender,
		}, logger)
	default:
		return NewNonePhoneSender(logger)
	}
}
