// Package mail delivers GameLog notification emails.
package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gamelog/pkg/metrics"
	"gamelog/pkg/render"
)

// Subjects of the emails GameLog sends.
const (
	SubjectVerify  = "Verify your GameLog email"
	SubjectReset   = "Reset your GameLog password"
	SubjectDeleted = "Your GameLog account was deleted"
)

// ErrSend marks a failed delivery attempt.
var ErrSend = errors.New("mail delivery failed")

// Message is a single HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Transport hands a rendered message to a delivery channel.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer renders the GameLog templates and sends them through a Transport.
// Sends are attempted once.
type Mailer struct {
	transport Transport
	engine    *render.Engine
	metrics   *metrics.Metrics
}

// NewMailer builds a Mailer. m may be nil.
func NewMailer(transport Transport, engine *render.Engine, m *metrics.Metrics) (*Mailer, error) {
	if transport == nil {
		return nil, errors.New("mail: nil transport")
	}
	if engine == nil {
		return nil, errors.New("mail: nil render engine")
	}
	return &Mailer{transport: transport, engine: engine, metrics: m}, nil
}

// SendVerification mails the email verification link.
func (m *Mailer) SendVerification(ctx context.Context, to, username, link string, ttl time.Duration) error {
	return m.send(ctx, render.VerifyEmail, to, SubjectVerify, map[string]any{
		"URL":       link,
		"Username":  username,
		"ExpiresIn": humanDuration(ttl),
	})
}

// SendPasswordReset mails the password reset link.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, link string, ttl time.Duration) error {
	return m.send(ctx, render.ResetPassword, to, SubjectReset, map[string]any{
		"URL":       link,
		"ExpiresIn": humanDuration(ttl),
	})
}

// SendAccountDeleted confirms an account deletion.
func (m *Mailer) SendAccountDeleted(ctx context.Context, to string) error {
	return m.send(ctx, render.AccountDeleted, to, SubjectDeleted, map[string]any{
		"Email": to,
	})
}

func (m *Mailer) send(ctx context.Context, tmpl, to, subject string, data map[string]any) error {
	body, err := m.engine.Render(tmpl, data)
	if err != nil {
		return fmt.Errorf("render %s: %w", tmpl, err)
	}

	err = m.transport.Send(ctx, Message{To: to, Subject: subject, HTML: body})
	m.metrics.MailSent(tmpl, err)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSend, err)
	}
	return nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d%(24*time.Hour) == 0:
		return plural(int(d/(24*time.Hour)), "day")
	case d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
