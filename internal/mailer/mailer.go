// Package mailer sends transactional email over SMTP.
package mailer

import (
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"sync"
	"time"

	"appx/internal/config"
	"appx/internal/middleware"

	"gopkg.in/gomail.v2"
)

//go:embed templates/password_reset.html
var passwordResetHTML string

var passwordResetTmpl = template.Must(template.New("password_reset").Parse(passwordResetHTML))

const (
	sendAttempts = 3
	sendTimeout  = 30 * time.Second
)

// PasswordResetData feeds the password reset template.
type PasswordResetData struct {
	Name      string
	ResetLink string
	ValidFor  string
	Year      int
}

// RenderPasswordReset renders the HTML body of a password reset email.
func RenderPasswordReset(data PasswordResetData) (string, error) {
	if data.Year == 0 {
		data.Year = time.Now().Year()
	}
	if data.ValidFor == "" {
		data.ValidFor = "1 hour"
	}
	var buf strings.Builder
	if err := passwordResetTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render password_reset: %w", err)
	}
	return buf.String(), nil
}

// SMTPMailer delivers mail through an SMTP relay. Sends happen in the
// background so request latency does not depend on the relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	wg     sync.WaitGroup
}

// Mailer sends the transactional emails of the application.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, name, link string) error
}

// New returns an SMTP mailer when SMTP_HOST is configured, otherwise a
// LogMailer that only records the message.
func New(cfg *config.Config) Mailer {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return &LogMailer{}
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:   cfg.SMTPFrom,
	}
}

// SendPasswordReset renders the reset email and queues it for delivery.
func (m *SMTPMailer) SendPasswordReset(_ context.Context, to, name, link string) error {
	body, err := RenderPasswordReset(PasswordResetData{Name: name, ResetLink: link})
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Reset your password")
	msg.SetBody("text/html", body)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := m.send(ctx, msg); err != nil {
			middleware.Logger.Error("password reset email failed", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Wait blocks until queued messages have been attempted.
func (m *SMTPMailer) Wait() { m.wg.Wait() }

func (m *SMTPMailer) send(ctx context.Context, msg *gomail.Message) error {
	var lastErr error
	for attempt := 0; attempt < sendAttempts; attempt++ {
		if lastErr = m.dialer.DialAndSend(msg); lastErr == nil {
			return nil
		}
		delay := time.Duration(1<<attempt) * time.Second
		middleware.Logger.Warn("smtp send failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.String("error", lastErr.Error()))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("email send cancelled: %w", ctx.Err())
		}
	}
	return fmt.Errorf("send after %d attempts: %w", sendAttempts, lastErr)
}

// LogMailer records outgoing mail in the log instead of sending it.
type LogMailer struct {
	mu   sync.Mutex
	sent []string
}

// SendPasswordReset logs the reset link.
func (m *LogMailer) SendPasswordReset(ctx context.Context, to, _ string, link string) error {
	m.mu.Lock()
	m.sent = append(m.sent, to)
	m.mu.Unlock()
	middleware.Logger.InfoContext(ctx, "password reset email (smtp disabled)",
		slog.String("to", to), slog.String("link", link))
	return nil
}

// Sent returns the recipients logged so far.
func (m *LogMailer) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}
