package email

import (
	"context"
	"fmt"
	"strings"

	resend "github.com/resend/resend-go/v2"
)

// ResendSender sends code emails through the Resend API.
type ResendSender struct {
	from string
	send func(*resend.SendEmailRequest) error
}

// NewResendSender returns a Resend sender. apiKey and from are required.
func NewResendSender(apiKey, from string) (*ResendSender, error) {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(from) == "" {
		return nil, ErrNotConfigured
	}
	client := resend.NewClient(apiKey)
	send := func(req *resend.SendEmailRequest) error {
		_, err := client.Emails.Send(req)
		return err
	}
	return &ResendSender{from: from, send: send}, nil
}

func (s *ResendSender) SendCode(ctx context.Context, to, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := NewCodeMessage(to, code)
	err := s.send(&resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("resend send: %w", err)
	}
	return nil
}
