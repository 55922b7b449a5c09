// Package mail delivers transactional email over SMTP.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strconv"
	"strings"

	"agora/internal/config"
	"agora/internal/middleware"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends HTML messages through a single SMTP relay.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	enabled  bool
	send     sendFunc
}

// NewMailer builds a Mailer from the SMTP settings. Without a host it
// returns a disabled Mailer that drops every message.
func NewMailer(cfg *config.Config) *Mailer {
	m := &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		send:     smtp.SendMail,
	}
	m.enabled = m.host != "" && m.port > 0 && m.from != ""
	if !m.enabled {
		middleware.Logger.Warn("Mailer disabled: SMTP_HOST, SMTP_PORT or SMTP_FROM not set")
	}
	return m
}

// Enabled reports whether messages are actually delivered.
func (m *Mailer) Enabled() bool {
	return m.enabled
}

// Send delivers one HTML message. It is a no-op when the mailer is disabled.
func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if !m.enabled {
		middleware.Logger.DebugContext(ctx, "Dropping email, mailer disabled", slog.String("subject", subject))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	addr := m.host + ":" + strconv.Itoa(m.port)

	if err := m.send(addr, auth, m.from, []string{to}, compose(m.from, to, subject, htmlBody)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	middleware.Logger.InfoContext(ctx, "Email sent", slog.String("subject", subject))
	return nil
}

func compose(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: Agora <" + from + ">\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
