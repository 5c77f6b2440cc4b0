package blog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("post not found")
	// ErrForbidden covers both posts owned by someone else and posts that do not exist.
	ErrForbidden   = errors.New("unauthorized")
	ErrUnknownGame = errors.New("unknown game")
)

// ReportedSubject is the bus subject for post reports.
const ReportedSubject = "gamelog.blog.reported"

// Post is a blog entry about one game.
type Post struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	UserID         uuid.UUID `json:"userId"`
	GameID         uuid.UUID `json:"gameId"`
	AuthorUsername string    `json:"authorUsername,omitempty"`
	AuthorPicture  string    `json:"authorPicture,omitempty"`
	GameTitle      string    `json:"gameTitle,omitempty"`
	GameImageURL   string    `json:"gameImageUrl,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Input is the raw post form.
type Input struct {
	Title   string
	Content string
	GameID  string
}

// Report flags a post for moderation.
type Report struct {
	PostID     uuid.UUID `json:"postId"`
	ReporterID uuid.UUID `json:"reporterId"`
	Reason     string    `json:"reason,omitempty"`
	At         time.Time `json:"at"`
}

// ReportSink receives post reports.
type ReportSink interface {
	PostReported(ctx context.Context, report Report) error
}

// ValidationError reports a rejected post field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
