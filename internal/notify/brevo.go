package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	brevoDefaultBaseURL = "https://api.brevo.com"
	brevoMailPath       = "/v3/smtp/email"
	brevoSMSPath        = "/v3/transactionalSMS/sms"
)

// BrevoConfig carries the API credentials for the Brevo provider.
// BaseURL is overridable for tests; empty means the production API.
type BrevoConfig struct {
	APIKey     string
	MailSender string
	SMSSender  string
	BaseURL    string
}

func (c BrevoConfig) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return brevoDefaultBaseURL
}

// BrevoMailSender delivers transactional email through the Brevo HTTP API.
type BrevoMailSender struct {
	cfg    BrevoConfig
	client *http.Client
	logger *slog.Logger
}

func NewBrevoMailSender(cfg BrevoConfig, logger *slog.Logger) *BrevoMailSender {
	return &BrevoMailSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

func (s *BrevoMailSender) SendVerificationEmail(ctx context.Context, msg MailMessage) error {
	return s.send(ctx, msg, "Verify your email",
		fmt.Sprintf("<p>Hi %s,</p><p>Confirm your email: <a href=%q>%s</a></p><p>The link expires in %d %s.</p>",
			msg.Name, msg.ActionURL, msg.ActionURL, msg.ExpiryValue, msg.ExpiryUnit))
}

func (s *BrevoMailSender) SendPasswordResetEmail(ctx context.Context, msg MailMessage) error {
	return s.send(ctx, msg, "Reset password",
		fmt.Sprintf("<p>Hi %s,</p><p>Reset your password: <a href=%q>%s</a></p><p>The link expires in %d %s.</p>",
			msg.Name, msg.ActionURL, msg.ActionURL, msg.ExpiryValue, msg.ExpiryUnit))
}

func (s *BrevoMailSender) send(ctx context.Context, msg MailMessage, subject, html string) error {
	payload := map[string]any{
		"sender":      map[string]string{"email": s.cfg.MailSender},
		"to":          []map[string]string{{"email": msg.To, "name": msg.Name}},
		"subject":     subject,
		"htmlContent": html,
	}
	if err := brevoPost(ctx, s.client, s.cfg.baseURL()+brevoMailPath, s.cfg.APIKey, payload); err != nil {
		return fmt.Errorf("brevo mail: %w", err)
	}
	s.logger.InfoContext(ctx, "brevo email sent", "to", msg.To, "subject", subject)
	return nil
}

// BrevoPhoneSender delivers one-time codes through the Brevo SMS API.
type BrevoPhoneSender struct {
	cfg    BrevoConfig
	client *http.Client
	logger *slog.Logger
}

func NewBrevoPhoneSender(cfg BrevoConfig, logger *slog.Logger) *BrevoPhoneSender {
	return &BrevoPhoneSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

func (s *BrevoPhoneSender) SendCode(ctx context.Context, to, code string) error {
	payload := map[string]any{
		"type":      "transactional",
		"sender":    s.cfg.SMSSender,
		"recipient": to,
		"content":   "Your verification code is: " + code,
	}
	if err := brevoPost(ctx, s.client, s.cfg.baseURL()+brevoSMSPath, s.cfg.APIKey, payload); err != nil {
		return fmt.Errorf("brevo sms: %w", err)
	}
	s.logger.InfoContext(ctx, "brevo sms sent", "to", to)
	return nil
}

func brevoPost(ctx context.Context, client *http.Client, url, apiKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, detail)
	}
	return nil
}
