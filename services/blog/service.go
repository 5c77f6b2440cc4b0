package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service manages blog posts.
type Service struct {
	db      *gorm.DB
	reports ReportSink
	now     func() time.Time
}

// NewService returns a blog service. reports may be nil, in which case
// reports are accepted and dropped.
func NewService(orm *gorm.DB, reports ReportSink) *Service {
	return &Service{db: orm, reports: reports, now: time.Now}
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 5*time.Second)
}

// List returns every post, newest first, with author and game details.
func (s *Service) List(ctx context.Context) ([]Post, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var rows []postRow
	err := s.db.WithContext(ctx).
		Table("blog_posts AS p").
		Select(`p.*, a.username AS author_username, a.profile_pic_url AS author_picture, g.title AS game_title, g.image_url AS game_image_url`).
		Joins("JOIN accounts a ON a.id = p.user_id").
		Joins("JOIN games g ON g.id = p.game_id").
		Order("p.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	out := make([]Post, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toPost())
	}
	return out, nil
}

// Get returns one post without joined details.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Post, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var model postModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Post{}, ErrNotFound
		}
		return Post{}, err
	}
	return model.toPost(), nil
}

// Create stores a post by author about an existing game.
func (s *Service) Create(ctx context.Context, author uuid.UUID, in Input) (Post, error) {
	title, content, gameID, err := s.validate(ctx, in)
	if err != nil {
		return Post{}, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	now := s.now().UTC()
	model := postModel{
		ID:        uuid.New(),
		Title:     title,
		Content:   content,
		UserID:    author,
		GameID:    gameID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return Post{}, fmt.Errorf("create post: %w", err)
	}
	return model.toPost(), nil
}

// Update edits a post. Ownership is part of the UPDATE's WHERE clause.
func (s *Service) Update(ctx context.Context, actor, id uuid.UUID, in Input) error {
	title, content, gameID, err := s.validate(ctx, in)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res := s.db.WithContext(ctx).Model(&postModel{}).
		Where("id = ? AND user_id = ?", id, actor).
		Updates(map[string]any{
			"title":      title,
			"content":    content,
			"game_id":    gameID,
			"updated_at": s.now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("update post: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrForbidden
	}
	return nil
}

// Delete removes a post. Ownership is part of the DELETE's WHERE clause.
func (s *Service) Delete(ctx context.Context, actor, id uuid.UUID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, actor).Delete(&postModel{})
	if res.Error != nil {
		return fmt.Errorf("delete post: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrForbidden
	}
	return nil
}

// Report flags a post for moderation.
func (s *Service) Report(ctx context.Context, reporter, id uuid.UUID, reason string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if s.reports == nil {
		return nil
	}
	return s.reports.PostReported(ctx, Report{
		PostID:     id,
		ReporterID: reporter,
		Reason:     strings.TrimSpace(reason),
		At:         s.now().UTC(),
	})
}

func (s *Service) validate(ctx context.Context, in Input) (string, string, uuid.UUID, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return "", "", uuid.Nil, &ValidationError{Field: "title", Message: "Title is required."}
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return "", "", uuid.Nil, &ValidationError{Field: "content", Message: "Content is required."}
	}
	gameID, err := uuid.Parse(strings.TrimSpace(in.GameID))
	if err != nil {
		return "", "", uuid.Nil, &ValidationError{Field: "gameId", Message: "Choose a game."}
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var count int64
	if err := s.db.WithContext(ctx).Table("games").Where("id = ?", gameID).Count(&count).Error; err != nil {
		return "", "", uuid.Nil, fmt.Errorf("check game: %w", err)
	}
	if count == 0 {
		return "", "", uuid.Nil, &ValidationError{Field: "gameId", Message: ErrUnknownGame.Error()}
	}
	return title, content, gameID, nil
}
