package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("game not found")
	// ErrForbidden is returned for mutations on games the caller does not own,
	// and for mutations on games that do not exist.
	ErrForbidden       = errors.New("unauthorized")
	ErrUnknownCategory = errors.New("unknown category")
)

// ReleaseDateLayout is the accepted release date format.
const ReleaseDateLayout = "2006-01-02"

// Game is one entry in a user's collection.
type Game struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Price         float64    `json:"price"`
	Rating        float64    `json:"rating"`
	ReleaseDate   time.Time  `json:"releaseDate"`
	ImageURL      string     `json:"imageUrl"`
	CategoryID    *uuid.UUID `json:"categoryId,omitempty"`
	CategoryTitle string     `json:"category"`
	UserID        uuid.UUID  `json:"userId"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Category groups games by genre.
type Category struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

// Stats aggregates one owner's collection.
type Stats struct {
	TotalGames    int64           `json:"totalGames" db:"total_games"`
	AverageRating float64         `json:"averageRating" db:"average_rating"`
	TotalValue    float64         `json:"totalValue" db:"total_value"`
	ByCategory    []CategoryCount `json:"byCategory" db:"-"`
}

// CategoryCount is the number of games an owner has in one category.
type CategoryCount struct {
	Category string `json:"category" db:"category"`
	Games    int64  `json:"games" db:"games"`
}
