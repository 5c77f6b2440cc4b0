package catalog

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ValidationError reports a rejected game field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Input is the raw game form.
type Input struct {
	Title       string
	Description string
	Price       string
	Rating      string
	ReleaseDate string
	CategoryID  string
	ImageURL    string
}

type fields struct {
	title       string
	description string
	price       float64
	rating      float64
	releaseDate time.Time
	categoryID  *uuid.UUID
	imageURL    string
}

func (in Input) validate() (fields, error) {
	var f fields

	f.title = strings.TrimSpace(in.Title)
	if f.title == "" {
		return f, &ValidationError{Field: "title", Message: "Title is required."}
	}
	f.description = strings.TrimSpace(in.Description)
	if f.description == "" {
		return f, &ValidationError{Field: "description", Message: "Description is required."}
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(in.Price), 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return f, &ValidationError{Field: "price", Message: "Price must be a number of zero or more."}
	}
	f.price = math.Round(price*100) / 100

	rating, err := strconv.ParseFloat(strings.TrimSpace(in.Rating), 64)
	if err != nil || math.IsNaN(rating) || rating < 0 || rating > 10 {
		return f, &ValidationError{Field: "rating", Message: "Rating must be between 0 and 10."}
	}
	f.rating = rating

	released, err := time.Parse(ReleaseDateLayout, strings.TrimSpace(in.ReleaseDate))
	if err != nil {
		return f, &ValidationError{Field: "releaseDate", Message: "Release date must be YYYY-MM-DD."}
	}
	f.releaseDate = released

	if raw := strings.TrimSpace(in.CategoryID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, &ValidationError{Field: "categoryId", Message: "Unknown category."}
		}
		f.categoryID = &id
	}

	f.imageURL = strings.TrimSpace(in.ImageURL)
	return f, nil
}
