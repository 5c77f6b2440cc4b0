package accounts

import (
	"time"

	"github.com/google/uuid"
)

type accountModel struct {
	ID                           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email                        string     `gorm:"type:text;uniqueIndex;not null"`
	Username                     *string    `gorm:"type:text;uniqueIndex"`
	PasswordHash                 string     `gorm:"type:text;not null"`
	ProfilePicURL                string     `gorm:"column:profile_pic_url;type:text;not null"`
	IsEmailVerified              bool       `gorm:"not null"`
	EmailVerificationToken       *string    `gorm:"type:text;uniqueIndex"`
	EmailVerificationTokenExpiry *time.Time `gorm:"type:timestamptz"`
	ResetToken                   *string    `gorm:"type:text;uniqueIndex"`
	ResetTokenExpiry             *time.Time `gorm:"type:timestamptz"`
	CreatedAt                    time.Time  `gorm:"type:timestamptz;not null;autoCreateTime"`
	UpdatedAt                    time.Time  `gorm:"type:timestamptz;not null;autoUpdateTime"`
}

func (accountModel) TableName() string { return "accounts" }

func (m accountModel) toAccount() Account {
	return Account{
		ID:                           m.ID,
		Email:                        m.Email,
		Username:                     m.Username,
		PasswordHash:                 m.PasswordHash,
		ProfilePicURL:                m.ProfilePicURL,
		IsEmailVerified:              m.IsEmailVerified,
		EmailVerificationToken:       m.EmailVerificationToken,
		EmailVerificationTokenExpiry: m.EmailVerificationTokenExpiry,
		ResetToken:                   m.ResetToken,
		ResetTokenExpiry:             m.ResetTokenExpiry,
		CreatedAt:                    m.CreatedAt,
		UpdatedAt:                    m.UpdatedAt,
	}
}

func fromAccount(a Account) accountModel {
	return accountModel{
		ID:                           a.ID,
		Email:                        a.Email,
		Username:                     a.Username,
		PasswordHash:                 a.PasswordHash,
		ProfilePicURL:                a.ProfilePicURL,
		IsEmailVerified:              a.IsEmailVerified,
		EmailVerificationToken:       a.EmailVerificationToken,
		EmailVerificationTokenExpiry: a.EmailVerificationTokenExpiry,
		ResetToken:                   a.ResetToken,
		ResetTokenExpiry:             a.ResetTokenExpiry,
		CreatedAt:                    a.CreatedAt,
		UpdatedAt:                    a.UpdatedAt,
	}
}
