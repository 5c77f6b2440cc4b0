package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gamelog/pkg/db"
)

// Service manages games and categories.
type Service struct {
	db    *gorm.DB
	stats pgxscan.Querier
	now   func() time.Time
}

// NewService returns a catalog backed by orm for CRUD and stats for aggregate queries.
func NewService(orm *gorm.DB, stats pgxscan.Querier) *Service {
	return &Service{db: orm, stats: stats, now: time.Now}
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 5*time.Second)
}

// List returns every game with its category, oldest first.
func (s *Service) List(ctx context.Context) ([]Game, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var models []gameModel
	if err := s.db.WithContext(ctx).Preload("Category").Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return toGames(models), nil
}

// ListByOwner returns the owner's games, newest first.
func (s *Service) ListByOwner(ctx context.Context, owner uuid.UUID) ([]Game, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var models []gameModel
	if err := s.db.WithContext(ctx).
		Preload("Category").
		Where("user_id = ?", owner).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return toGames(models), nil
}

// Get returns one game.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Game, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var model gameModel
	if err := s.db.WithContext(ctx).Preload("Category").Where("id = ?", id).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Game{}, ErrNotFound
		}
		return Game{}, err
	}
	return model.toGame(), nil
}

// Create validates in and stores a new game owned by owner.
func (s *Service) Create(ctx context.Context, owner uuid.UUID, in Input) (Game, error) {
	f, err := in.validate()
	if err != nil {
		return Game{}, err
	}
	if err := s.checkCategory(ctx, f.categoryID); err != nil {
		return Game{}, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	now := s.now().UTC()
	model := gameModel{
		ID:          uuid.New(),
		Title:       f.title,
		Description: f.description,
		Price:       f.price,
		Rating:      f.rating,
		ReleaseDate: f.releaseDate,
		ImageURL:    f.imageURL,
		CategoryID:  f.categoryID,
		UserID:      owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return Game{}, fmt.Errorf("create game: %w", err)
	}
	return model.toGame(), nil
}

// Update replaces the editable fields of a game. Ownership is part of the
// UPDATE's WHERE clause.
func (s *Service) Update(ctx context.Context, actor, id uuid.UUID, in Input) error {
	f, err := in.validate()
	if err != nil {
		return err
	}
	if err := s.checkCategory(ctx, f.categoryID); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	updates := map[string]any{
		"title":        f.title,
		"description":  f.description,
		"price":        f.price,
		"rating":       f.rating,
		"release_date": f.releaseDate,
		"category_id":  f.categoryID,
		"updated_at":   s.now().UTC(),
	}
	if f.imageURL != "" {
		updates["image_url"] = f.imageURL
	}

	res := s.db.WithContext(ctx).Model(&gameModel{}).
		Where("id = ? AND user_id = ?", id, actor).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update game: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrForbidden
	}
	return nil
}

// Delete removes a game and the posts written about it. Ownership is part of
// the DELETE's WHERE clause.
func (s *Service) Delete(ctx context.Context, actor, id uuid.UUID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, actor).Delete(&gameModel{})
	if res.Error != nil {
		return fmt.Errorf("delete game: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrForbidden
	}
	return nil
}

// Categories lists all categories by title.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var models []categoryModel
	if err := s.db.WithContext(ctx).Order("title ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]Category, 0, len(models))
	for _, m := range models {
		out = append(out, m.toCategory())
	}
	return out, nil
}

// EnsureCategory returns the category named title, creating it when missing.
func (s *Service) EnsureCategory(ctx context.Context, title string) (Category, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	model := categoryModel{ID: uuid.New(), Title: title}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "title"}}, DoNothing: true}).
		Create(&model).Error; err != nil {
		return Category{}, fmt.Errorf("ensure category %q: %w", title, err)
	}

	var stored categoryModel
	if err := s.db.WithContext(ctx).Where("title = ?", title).Take(&stored).Error; err != nil {
		return Category{}, fmt.Errorf("load category %q: %w", title, err)
	}
	return stored.toCategory(), nil
}

func (s *Service) checkCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var count int64
	if err := s.db.WithContext(ctx).Model(&categoryModel{}).Where("id = ?", *id).Count(&count).Error; err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if count == 0 {
		return &ValidationError{Field: "categoryId", Message: ErrUnknownCategory.Error()}
	}
	return nil
}

const statsTotalsQuery = `
SELECT count(*) AS total_games,
       coalesce(avg(rating), 0)::float8 AS average_rating,
       coalesce(sum(price), 0)::float8 AS total_value
FROM games
WHERE user_id = $1`

const statsByCategoryQuery = `
SELECT coalesce(c.title, 'Uncategorized') AS category,
       count(*) AS games
FROM games g
LEFT JOIN categories c ON c.id = g.category_id
WHERE g.user_id = $1
GROUP BY 1
ORDER BY 2 DESC, 1 ASC`

// Stats aggregates the owner's collection.
func (s *Service) Stats(ctx context.Context, owner uuid.UUID) (Stats, error) {
	if s.stats == nil {
		return Stats{}, errors.New("stats: no query pool configured")
	}

	var stats Stats
	if err := db.Get(ctx, s.stats, &stats, statsTotalsQuery, owner); err != nil {
		return Stats{}, fmt.Errorf("stats totals: %w", err)
	}
	if err := db.Select(ctx, s.stats, &stats.ByCategory, statsByCategoryQuery, owner); err != nil {
		return Stats{}, fmt.Errorf("stats by category: %w", err)
	}
	if stats.ByCategory == nil {
		stats.ByCategory = []CategoryCount{}
	}
	return stats, nil
}

// GameOfTheWeek picks one game deterministically for the ISO week containing
// now. It returns nil when there are no games.
func (s *Service) GameOfTheWeek(ctx context.Context, now time.Time) (*Game, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var total int64
	if err := s.db.WithContext(ctx).Model(&gameModel{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count games: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	var model gameModel
	if err := s.db.WithContext(ctx).
		Preload("Category").
		Order("id ASC").
		Offset(WeeklyIndex(now, total)).
		Limit(1).
		Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("game of the week: %w", err)
	}
	game := model.toGame()
	return &game, nil
}

// WeeklyIndex maps the ISO year and week of now to an index in [0, n).
// The seed year*100+week is advanced once through a linear congruential generator.
func WeeklyIndex(now time.Time, n int64) int {
	if n <= 0 {
		return 0
	}
	year, week := now.UTC().ISOWeek()
	seed := int64(year*100 + week)
	next := (1103515245*seed + 12345) % (1 << 31)
	return int(next % n)
}

func toGames(models []gameModel) []Game {
	out := make([]Game, 0, len(models))
	for _, m := range models {
		out = append(out, m.toGame())
	}
	return out
}
