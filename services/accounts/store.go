package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store is the credential store contract. Token consumption must be a single
// conditional update so that concurrent consumers of one token see exactly one winner.
type Store interface {
	Create(ctx context.Context, account Account) error
	ByEmail(ctx context.Context, email string) (Account, error)
	ByID(ctx context.Context, id uuid.UUID) (Account, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (uuid.UUID, error)
	SetResetToken(ctx context.Context, id uuid.UUID, token string, expiry time.Time) error
	ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (uuid.UUID, error)
	SetProfilePicture(ctx context.Context, id uuid.UUID, url string) error
	CountGames(ctx context.Context, id uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// GormStore implements Store on PostgreSQL through GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open GORM handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 5*time.Second)
}

func (s *GormStore) Create(ctx context.Context, account Account) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	model := fromAccount(account)
	err := s.db.WithContext(ctx).Create(&model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// The unique index that fired is not reported after translation.
		taken, lookupErr := s.EmailExists(ctx, account.Email)
		if lookupErr == nil && !taken {
			return ErrUsernameTaken
		}
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *GormStore) ByEmail(ctx context.Context, email string) (Account, error) {
	return s.first(ctx, "email = ?", email)
}

func (s *GormStore) ByID(ctx context.Context, id uuid.UUID) (Account, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *GormStore) first(ctx context.Context, query string, args ...any) (Account, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var model accountModel
	if err := s.db.WithContext(ctx).Where(query, args...).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	return model.toAccount(), nil
}

func (s *GormStore) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, "email = ?", email)
}

func (s *GormStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, "username = ?", username)
}

func (s *GormStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var count int64
	if err := s.db.WithContext(ctx).Model(&accountModel{}).Where(query, args...).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ConsumeVerificationToken marks the owning account verified and clears the
// token in one conditional update keyed on the token value and its expiry.
func (s *GormStore) ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (uuid.UUID, error) {
	return s.consume(ctx, "email_verification_token", "email_verification_token_expiry", token, now, map[string]any{
		"is_email_verified":               true,
		"email_verification_token":        nil,
		"email_verification_token_expiry": nil,
		"updated_at":                      now,
	})
}

func (s *GormStore) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiry time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res := s.db.WithContext(ctx).Model(&accountModel{}).Where("id = ?", id).Updates(map[string]any{
		"reset_token":        token,
		"reset_token_expiry": expiry,
		"updated_at":         time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeResetToken rotates the password hash and clears the reset fields in
// one conditional update keyed on the token value and its expiry.
func (s *GormStore) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (uuid.UUID, error) {
	return s.consume(ctx, "reset_token", "reset_token_expiry", token, now, map[string]any{
		"password_hash":      passwordHash,
		"reset_token":        nil,
		"reset_token_expiry": nil,
		"updated_at":         now,
	})
}

func (s *GormStore) consume(ctx context.Context, tokenColumn, expiryColumn, token string, now time.Time, updates map[string]any) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, ErrTokenInvalid
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var model accountModel
	err := s.db.WithContext(ctx).
		Select("id").
		Where(tokenColumn+" = ?", token).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, ErrTokenInvalid
	}
	if err != nil {
		return uuid.Nil, err
	}

	res := s.db.WithContext(ctx).
		Model(&accountModel{}).
		Where("id = ? AND "+tokenColumn+" = ? AND "+expiryColumn+" > ?", model.ID, token, now).
		Updates(updates)
	if res.Error != nil {
		return uuid.Nil, res.Error
	}
	if res.RowsAffected == 0 {
		return uuid.Nil, ErrTokenInvalid
	}
	return model.ID, nil
}

func (s *GormStore) SetProfilePicture(ctx context.Context, id uuid.UUID, url string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res := s.db.WithContext(ctx).Model(&accountModel{}).Where("id = ?", id).Updates(map[string]any{
		"profile_pic_url": url,
		"updated_at":      time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CountGames(ctx context.Context, id uuid.UUID) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var count int64
	err := s.db.WithContext(ctx).Table("games").Where("user_id = ?", id).Count(&count).Error
	return count, err
}

// Delete removes the account's posts, the posts on its games, its games, and
// the account itself in one transaction.
func (s *GormStore) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`DELETE FROM blog_posts WHERE user_id = ? OR game_id IN (SELECT id FROM games WHERE user_id = ?)`,
			id, id,
		).Error; err != nil {
			return fmt.Errorf("delete posts: %w", err)
		}
		if err := tx.Exec(`DELETE FROM games WHERE user_id = ?`, id).Error; err != nil {
			return fmt.Errorf("delete games: %w", err)
		}
		res := tx.Exec(`DELETE FROM accounts WHERE id = ?`, id)
		if res.Error != nil {
			return fmt.Errorf("delete account: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// BackfillUsernames assigns user_<id> to every account whose username is null or blank.
func (s *GormStore) BackfillUsernames(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Exec(
		`UPDATE accounts SET username = 'user_' || id::text, updated_at = ? WHERE username IS NULL OR btrim(username) = ''`,
		time.Now().UTC(),
	)
	return res.RowsAffected, res.Error
}

// VerifyAll marks every unverified account verified and clears its verification token.
func (s *GormStore) VerifyAll(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&accountModel{}).
		Where("is_email_verified = ?", false).
		Updates(map[string]any{
			"is_email_verified":               true,
			"email_verification_token":        nil,
			"email_verification_token_expiry": nil,
			"updated_at":                      time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}
