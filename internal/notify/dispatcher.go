package notify

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"
)

const dispatchTimeout = 30 * time.Second

// Dispatcher sends verification and reset codes off the request path.
// Every send runs on its own goroutine; failures are logged and contained,
// never surfaced to the caller, and never roll back the mutation that
// triggered them.
type Dispatcher struct {
	mail         MailSender
	phone        PhoneSender
	mailEnabled  bool
	phoneEnabled bool
	frontendURL  string
	logger       *slog.Logger
	wg           sync.WaitGroup
}

func NewDispatcher(mail MailSender, phone PhoneSender, mailEnabled, phoneEnabled bool, frontendURL string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		mail:         mail,
		phone:        phone,
		mailEnabled:  mailEnabled,
		phoneEnabled: phoneEnabled,
		frontendURL:  frontendURL,
		logger:       logger,
	}
}

// MailEnabled reports whether the mail channel has a real provider.
func (d *Dispatcher) MailEnabled() bool { return d.mailEnabled }

// PhoneEnabled reports whether the phone channel has a real provider.
func (d *Dispatcher) PhoneEnabled() bool { return d.phoneEnabled }

func (d *Dispatcher) SendVerificationEmail(to, name, code string, ttl time.Duration) {
	msg := d.mailMessage(to, name, code, ttl, "/verify-email")
	d.dispatch("verification email", to, func(ctx context.Context) error {
		return d.mail.SendVerificationEmail(ctx, msg)
	})
}

func (d *Dispatcher) SendPasswordResetEmail(to, name, code string, ttl time.Duration) {
	msg := d.mailMessage(to, name, code, ttl, "/reset-password")
	d.dispatch("password reset email", to, func(ctx context.Context) error {
		return d.mail.SendPasswordResetEmail(ctx, msg)
	})
}

func (d *Dispatcher) SendVerificationSMS(to, code string) {
	d.dispatch("verification sms", to, func(ctx context.Context) error {
		return d.phone.SendCode(ctx, to, code)
	})
}

func (d *Dispatcher) SendPasswordResetSMS(to, code string) {
	d.dispatch("password reset sms", to, func(ctx context.Context) error {
		return d.phone.SendCode(ctx, to, code)
	})
}

// Wait blocks until every in-flight send has finished. Called during
// graceful shutdown.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) dispatch(kind, to string, send func(context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("notification dispatch panicked", "kind", kind, "to", to, "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			d.logger.ErrorContext(ctx, "notification dispatch failed", "kind", kind, "to", to, "error", err)
		}
	}()
}

func (d *Dispatcher) mailMessage(to, name, code string, ttl time.Duration, path string) MailMessage {
	value, unit := ExpiryDisplay(ttl)
	q := url.Values{}
	q.Set("code", code)
	q.Set("email", to)
	return MailMessage{
		To:          to,
		Name:        name,
		Code:        code,
		ActionURL:   d.frontendURL + path + "?" + q.Encode(),
		ExpiryValue: value,
		ExpiryUnit:  unit,
	}
}
