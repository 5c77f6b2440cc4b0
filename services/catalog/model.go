package catalog

import (
	"time"

	"github.com/google/uuid"
)

type categoryModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title     string    `gorm:"type:text;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;autoCreateTime"`
}

func (categoryModel) TableName() string { return "categories" }

func (m categoryModel) toCategory() Category {
	return Category{ID: m.ID, Title: m.Title}
}

type gameModel struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Title       string         `gorm:"type:text;not null"`
	Description string         `gorm:"type:text;not null"`
	Price       float64        `gorm:"type:numeric(10,2);not null"`
	Rating      float64        `gorm:"type:double precision;not null"`
	ReleaseDate time.Time      `gorm:"type:date;not null"`
	ImageURL    string         `gorm:"type:text;not null"`
	CategoryID  *uuid.UUID     `gorm:"type:uuid"`
	UserID      uuid.UUID      `gorm:"type:uuid;index;not null"`
	CreatedAt   time.Time      `gorm:"type:timestamptz;not null;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"type:timestamptz;not null;autoUpdateTime"`
	Category    *categoryModel `gorm:"foreignKey:CategoryID;references:ID"`
}

func (gameModel) TableName() string { return "games" }

func (m gameModel) toGame() Game {
	g := Game{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Price:       m.Price,
		Rating:      m.Rating,
		ReleaseDate: m.ReleaseDate,
		ImageURL:    m.ImageURL,
		CategoryID:  m.CategoryID,
		UserID:      m.UserID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.Category != nil {
		g.CategoryTitle = m.Category.Title
	}
	return g
}
