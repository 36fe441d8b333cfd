// Package email delivers OTP login codes. Providers: SMTP (gomail), Resend, and a dev sender that
// only logs and records codes for DevService/GetOTP.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"multidevice-identity/backend/internal/config"
	"multidevice-identity/backend/internal/devotp"
)

// Subject is the subject line of every code email.
const Subject = "Verification Code"

// ErrNotConfigured is returned when a provider is missing required settings.
var ErrNotConfigured = errors.New("email sender not configured")

// Sender delivers a login code to an email address.
type Sender interface {
	SendCode(ctx context.Context, to, code string) error
}

// Message is a rendered code email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// NewCodeMessage renders the code email for to.
func NewCodeMessage(to, code string) Message {
	return Message{
		To:      to,
		Subject: Subject,
		Text:    fmt.Sprintf("Your verification code is: %s", code),
		HTML: fmt.Sprintf(`<html>
<body>
	<p>Your verification code is: <strong>%s</strong></p>
	<p>If you did not try to sign in, you can ignore this email.</p>
</body>
</html>`, code),
	}
}

// New builds the Sender selected by cfg.EmailProvider. When store is non-nil every sent code is
// also recorded there until it expires after ttl.
func New(cfg *config.Config, store devotp.Store, ttl time.Duration, log *slog.Logger) (Sender, error) {
	var s Sender
	switch strings.ToLower(cfg.EmailProvider) {
	case config.EmailProviderSMTP:
		s = NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
		})
	case config.EmailProviderResend:
		rs, err := NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)
		if err != nil {
			return nil, err
		}
		s = rs
	case config.EmailProviderDev:
		s = NewLogSender(log)
	default:
		return nil, fmt.Errorf("email: unknown provider %q", cfg.EmailProvider)
	}
	if store != nil {
		s = NewRecordingSender(s, store, ttl)
	}
	return s, nil
}
