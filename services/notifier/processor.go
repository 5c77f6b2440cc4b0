// Package notifier turns account and blog events into audit rows and
// notification emails.
package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"gamelog/services/accounts"
	"gamelog/services/blog"
)

// ActionPostReported is the audit action recorded for post reports.
const ActionPostReported = "post_reported"

// DeletionMailer sends the account deletion confirmation.
type DeletionMailer interface {
	SendAccountDeleted(ctx context.Context, to string) error
}

// Processor records events in audit_logs and sends the emails they call for.
type Processor struct {
	orm    *gorm.DB
	mailer DeletionMailer
}

// NewProcessor constructs a Processor. mailer may be nil, in which case no
// deletion emails are sent.
func NewProcessor(orm *gorm.DB, mailer DeletionMailer) (*Processor, error) {
	if orm == nil {
		return nil, errors.New("database is required")
	}
	return &Processor{orm: orm, mailer: mailer}, nil
}

// Handle decodes a bus message by subject and dispatches it.
func (p *Processor) Handle(ctx context.Context, subject string, data []byte) error {
	switch {
	case strings.HasPrefix(subject, accounts.SubjectPrefix):
		var evt accounts.Event
		if err := json.Unmarshal(data, &evt); err != nil {
			return fmt.Errorf("decode account event: %w", err)
		}
		if evt.Type == "" {
			evt.Type = strings.TrimPrefix(subject, accounts.SubjectPrefix)
		}
		return p.HandleAccountEvent(ctx, evt)
	case subject == blog.ReportedSubject:
		var report blog.Report
		if err := json.Unmarshal(data, &report); err != nil {
			return fmt.Errorf("decode report: %w", err)
		}
		return p.HandleReport(ctx, report)
	default:
		return fmt.Errorf("unhandled subject %q", subject)
	}
}

// HandleAccountEvent writes the audit row for evt and, for deletions, emails the
// former owner. A failed send is reported but never retried.
func (p *Processor) HandleAccountEvent(ctx context.Context, evt accounts.Event) error {
	if evt.AccountID == uuid.Nil {
		return errors.New("account event without account id")
	}

	meta := map[string]any{"account_id": evt.AccountID.String()}
	for k, v := range evt.Meta {
		meta[k] = v
	}

	actor := &evt.AccountID
	if evt.Type == accounts.EventDeleted {
		actor = nil
	}

	row := auditModel{
		ActorID:   actor,
		Action:    "account_" + evt.Type,
		Subject:   evt.AccountID.String(),
		Metadata:  meta,
		CreatedAt: eventTime(evt.At),
	}
	auditErr := p.insert(ctx, row)

	// The deletion email is attempted even when the audit row could not be written.
	if evt.Type != accounts.EventDeleted || p.mailer == nil || evt.Email == "" {
		return auditErr
	}
	var mailErr error
	if err := p.mailer.SendAccountDeleted(ctx, evt.Email); err != nil {
		mailErr = fmt.Errorf("send deletion email: %w", err)
	}
	return errors.Join(auditErr, mailErr)
}

// HandleReport writes the audit row for a post report.
func (p *Processor) HandleReport(ctx context.Context, report blog.Report) error {
	if report.PostID == uuid.Nil {
		return errors.New("report without post id")
	}

	var actor *uuid.UUID
	if report.ReporterID != uuid.Nil {
		actor = &report.ReporterID
	}

	meta := map[string]any{"post_id": report.PostID.String()}
	if report.Reason != "" {
		meta["reason"] = report.Reason
	}

	zerolog.Ctx(ctx).Info().
		Str("post_id", report.PostID.String()).
		Str("reporter_id", report.ReporterID.String()).
		Msg("post reported")

	return p.insert(ctx, auditModel{
		ActorID:   actor,
		Action:    ActionPostReported,
		Subject:   report.PostID.String(),
		Metadata:  meta,
		CreatedAt: eventTime(report.At),
	})
}

// insert retries without the actor when the account is already gone.
func (p *Processor) insert(ctx context.Context, row auditModel) error {
	err := p.orm.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) && row.ActorID != nil {
		row.ID = 0
		row.ActorID = nil
		err = p.orm.WithContext(ctx).Create(&row).Error
	}
	if err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

func eventTime(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now().UTC()
	}
	return at.UTC()
}
