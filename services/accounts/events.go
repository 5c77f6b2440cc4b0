package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Account lifecycle event types.
const (
	EventCreated       = "created"
	EventVerified      = "verified"
	EventResetRequest  = "reset_requested"
	EventPasswordReset = "password_reset"
	EventDeleted       = "deleted"
)

// SubjectPrefix prefixes the bus subject of every account event.
const SubjectPrefix = "gamelog.accounts."

// Event records an account lifecycle transition. It never carries secrets.
type Event struct {
	Type      string            `json:"type"`
	AccountID uuid.UUID         `json:"accountId"`
	Email     string            `json:"email,omitempty"`
	At        time.Time         `json:"at"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// Subject returns the bus subject for e.
func (e Event) Subject() string { return SubjectPrefix + e.Type }

// EventSink receives account events after the state change has been committed.
type EventSink interface {
	Emit(ctx context.Context, event Event) error
}

type discardSink struct{}

func (discardSink) Emit(context.Context, Event) error { return nil }
