package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"agora/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		SMTPHost:     "smtp.example.com",
		SMTPPort:     587,
		SMTPUsername: "mailer",
		SMTPPassword: "secret",
		SMTPFrom:     "no-reply@example.com",
	}
}

func TestNewMailer_DisabledWithoutHost(t *testing.T) {
	cfg := testConfig()
	cfg.SMTPHost = ""
	m := NewMailer(cfg)
	assert.False(t, m.Enabled())

	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("disabled mailer must not send")
		return nil
	}
	assert.NoError(t, m.Send(context.Background(), "bob@example.com", "hi", "<p>hi</p>"))
}

func TestSend_ComposesHTMLMessage(t *testing.T) {
	m := NewMailer(testConfig())
	require.True(t, m.Enabled())

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg string
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		assert.NotNil(t, a)
		return nil
	}

	err := m.Send(context.Background(), "bob@example.com", "Reset your password", `<a href="x">reset</a>`)
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "no-reply@example.com", gotFrom)
	assert.Equal(t, []string{"bob@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "To: bob@example.com\r\n")
	assert.Contains(t, gotMsg, "Subject: Reset your password\r\n")
	assert.Contains(t, gotMsg, "Content-Type: text/html; charset=\"UTF-8\"\r\n")
	assert.True(t, strings.HasSuffix(gotMsg, "\r\n\r\n<a href=\"x\">reset</a>"))
}

func TestSend_NoAuthWithoutUsername(t *testing.T) {
	cfg := testConfig()
	cfg.SMTPUsername = ""
	m := NewMailer(cfg)
	m.send = func(_ string, a smtp.Auth, _ string, _ []string, _ []byte) error {
		assert.Nil(t, a)
		return nil
	}
	require.NoError(t, m.Send(context.Background(), "bob@example.com", "s", "b"))
}

func TestSend_WrapsTransportError(t *testing.T) {
	m := NewMailer(testConfig())
	boom := errors.New("connection refused")
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return boom }

	err := m.Send(context.Background(), "bob@example.com", "s", "b")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestSend_CanceledContext(t *testing.T) {
	m := NewMailer(testConfig())
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("should not send after cancel")
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, "bob@example.com", "s", "b"), context.Canceled)
}
