package accounts

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("account not found")
	ErrEmailTaken         = errors.New("email already in use")
	ErrUsernameTaken      = errors.New("username already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrTokenInvalid       = errors.New("invalid or expired token")
	ErrForbidden          = errors.New("unauthorized")
	ErrMailUnavailable    = errors.New("mail unavailable")
)

// Account is a GameLog user together with its verification and reset sub-state.
type Account struct {
	ID                           uuid.UUID  `json:"id"`
	Email                        string     `json:"email"`
	Username                     *string    `json:"username,omitempty"`
	PasswordHash                 string     `json:"-"`
	ProfilePicURL                string     `json:"profilePicUrl,omitempty"`
	IsEmailVerified              bool       `json:"isEmailVerified"`
	EmailVerificationToken       *string    `json:"-"`
	EmailVerificationTokenExpiry *time.Time `json:"-"`
	ResetToken                   *string    `json:"-"`
	ResetTokenExpiry             *time.Time `json:"-"`
	CreatedAt                    time.Time  `json:"createdAt"`
	UpdatedAt                    time.Time  `json:"updatedAt"`
}

// DisplayName returns the username, or "" for legacy accounts without one.
func (a Account) DisplayName() string {
	if a.Username == nil {
		return ""
	}
	return *a.Username
}

// Profile is the account summary shown on the profile page.
type Profile struct {
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	ProfilePicURL string    `json:"profilePicUrl"`
	CreatedAt     time.Time `json:"createdAt"`
	GameCount     int64     `json:"gameCount"`
}
