package accountstest

import (
	"context"
	"sync"
	"time"
)

// Sent is one email recorded by Mailer.
type Sent struct {
	Kind string
	To   string
	Link string
}

// Mailer records account emails instead of sending them.
type Mailer struct {
	mu   sync.Mutex
	sent []Sent

	// Err, when set, is returned from every send after it is recorded.
	Err error
}

func (m *Mailer) SendVerification(_ context.Context, to, _ string, link string, _ time.Duration) error {
	return m.record(Sent{Kind: "verify", To: to, Link: link})
}

func (m *Mailer) SendPasswordReset(_ context.Context, to, link string, _ time.Duration) error {
	return m.record(Sent{Kind: "reset", To: to, Link: link})
}

func (m *Mailer) record(s Sent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, s)
	return m.Err
}

// Sent returns a copy of the recorded emails.
func (m *Mailer) Sent() []Sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Sent(nil), m.sent...)
}

// Last returns the most recent email of kind, if any.
func (m *Mailer) Last(kind string) (Sent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].Kind == kind {
			return m.sent[i], true
		}
	}
	return Sent{}, false
}
