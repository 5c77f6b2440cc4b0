package blog

import (
	"time"

	"github.com/google/uuid"
)

type postModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title     string    `gorm:"type:text;not null"`
	Content   string    `gorm:"type:text;not null"`
	UserID    uuid.UUID `gorm:"type:uuid;not null"`
	GameID    uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null;autoUpdateTime"`
}

func (postModel) TableName() string { return "blog_posts" }

func (m postModel) toPost() Post {
	return Post{
		ID:        m.ID,
		Title:     m.Title,
		Content:   m.Content,
		UserID:    m.UserID,
		GameID:    m.GameID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// postRow is a post joined with its author and game for list views.
type postRow struct {
	postModel
	AuthorUsername *string
	AuthorPicture  string
	GameTitle      string
	GameImageURL   string
}

func (r postRow) toPost() Post {
	p := r.postModel.toPost()
	if r.AuthorUsername != nil {
		p.AuthorUsername = *r.AuthorUsername
	}
	p.AuthorPicture = r.AuthorPicture
	p.GameTitle = r.GameTitle
	p.GameImageURL = r.GameImageURL
	return p
}
