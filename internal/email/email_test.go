package email

import (
	"context"
	"errors"
	"testing"
	"time"

	resend "github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"multidevice-identity/backend/internal/config"
	"multidevice-identity/backend/internal/devotp"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

type failingSender struct{}

func (failingSender) SendCode(context.Context, string, string) error {
	return errors.New("relay down")
}

func TestNewCodeMessage(t *testing.T) {
	msg := NewCodeMessage("a@example.com", "482913")
	assert.Equal(t, "a@example.com", msg.To)
	assert.Equal(t, "Verification Code", msg.Subject)
	assert.Equal(t, "Your verification code is: 482913", msg.Text)
	assert.Contains(t, msg.HTML, "482913")
}

func TestSMTPSender_SendCode(t *testing.T) {
	d := &fakeDialer{}
	s := &SMTPSender{from: "no-reply@example.com", dialer: d}
	require.NoError(t, s.SendCode(context.Background(), "a@example.com", "123456"))
	require.Len(t, d.sent, 1)
	m := d.sent[0]
	assert.Equal(t, []string{"no-reply@example.com"}, m.GetHeader("From"))
	assert.Equal(t, []string{"a@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{Subject}, m.GetHeader("Subject"))
}

func TestSMTPSender_Errors(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	s := &SMTPSender{from: "no-reply@example.com", dialer: d}
	err := s.SendCode(context.Background(), "a@example.com", "123456")
	assert.ErrorContains(t, err, "connection refused")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.SendCode(ctx, "a@example.com", "123456"), context.Canceled)
}

func TestResendSender_SendCode(t *testing.T) {
	var got *resend.SendEmailRequest
	s := &ResendSender{from: "auth@example.com", send: func(req *resend.SendEmailRequest) error {
		got = req
		return nil
	}}
	require.NoError(t, s.SendCode(context.Background(), "b@example.com", "654321"))
	require.NotNil(t, got)
	assert.Equal(t, "auth@example.com", got.From)
	assert.Equal(t, []string{"b@example.com"}, got.To)
	assert.Equal(t, Subject, got.Subject)
	assert.Equal(t, "Your verification code is: 654321", got.Text)

	s.send = func(*resend.SendEmailRequest) error { return errors.New("401") }
	assert.ErrorContains(t, s.SendCode(context.Background(), "b@example.com", "654321"), "resend send")
}

func TestNewResendSender_RequiresSettings(t *testing.T) {
	_, err := NewResendSender("", "auth@example.com")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = NewResendSender("re_123", " ")
	assert.ErrorIs(t, err, ErrNotConfigured)
	s, err := NewResendSender("re_123", "auth@example.com")
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestRecordingSender(t *testing.T) {
	ctx := context.Background()
	store := devotp.NewMemoryStore(nil)
	s := NewRecordingSender(NewLogSender(nil), store, 15*time.Minute)
	require.NoError(t, s.SendCode(ctx, "c@example.com", "111111"))
	code, ok := store.Get(ctx, "c@example.com")
	assert.True(t, ok)
	assert.Equal(t, "111111", code)

	failing := NewRecordingSender(failingSender{}, store, 15*time.Minute)
	assert.Error(t, failing.SendCode(ctx, "d@example.com", "222222"))
	_, ok = store.Get(ctx, "d@example.com")
	assert.False(t, ok, "failed delivery must not be recorded")
}

func TestNew_SelectsProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     any
	}{
		{config.EmailProviderSMTP, &SMTPSender{}},
		{config.EmailProviderResend, &ResendSender{}},
		{config.EmailProviderDev, &LogSender{}},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := &config.Config{EmailProvider: tt.provider, EmailFrom: "x@example.com", ResendAPIKey: "re_123", SMTPHost: "localhost", SMTPPort: 1025}
			s, err := New(cfg, nil, time.Minute, nil)
			require.NoError(t, err)
			assert.IsType(t, tt.want, s)
		})
	}

	cfg := &config.Config{EmailProvider: config.EmailProviderDev}
	s, err := New(cfg, devotp.NewMemoryStore(nil), time.Minute, nil)
	require.NoError(t, err)
	assert.IsType(t, &RecordingSender{}, s)

	_, err = New(&config.Config{EmailProvider: "pigeon"}, nil, time.Minute, nil)
	assert.Error(t, err)
}
