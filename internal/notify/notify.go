package notify

import (
	"context"
	"time"
)

// MailMessage is the payload for a code-carrying email. Expiry fields hold
// the display form of the code lifetime (e.g. 24 "hours" rather than 1440
// "minutes").
type MailMessage struct {
	To          string
	Name        string
	Code        string
	ActionURL   string
	ExpiryValue int64
	ExpiryUnit  string
}

// MailSender delivers verification and password-reset emails. Callers must
// not assume delivery succeeded.
type MailSender interface {
	SendVerificationEmail(ctx context.Context, msg MailMessage) error
	SendPasswordResetEmail(ctx context.Context, msg MailMessage) error
}

// PhoneSender delivers one-time codes over SMS or a compatible channel.
type PhoneSender interface {
	SendCode(ctx context.Context, to, code string) error
}

// ExpiryDisplay converts a code lifetime to its notification display form:
// whole hours when evenly divisible, minutes otherwise.
func ExpiryDisplay(d time.Duration) (int64, string) {
	minutes := int64(d / time.Minute)
	if minutes >= 60 && minutes%60 == 0 {
		return minutes / 60, "hours"
	}
	return minutes, "minutes"
}
