package accounts

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		TranslateError:         true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return NewGormStore(db), mock
}

func TestConsumeVerificationTokenConditionalUpdate(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "accounts" WHERE email_verification_token = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id.String()))
	mock.ExpectExec(`UPDATE "accounts" SET .* WHERE id = \$\d+ AND email_verification_token = \$\d+ AND email_verification_token_expiry > \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := store.ConsumeVerificationToken(context.Background(), "tok", now)
	require.NoError(t, err)
	assert.Equal(t, id, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeResetTokenLosesRace(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "accounts" WHERE reset_token = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id.String()))
	mock.ExpectExec(`UPDATE "accounts" SET .* WHERE id = \$\d+ AND reset_token = \$\d+ AND reset_token_expiry > \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.ConsumeResetToken(context.Background(), "tok", "hash", time.Now())
	assert.ErrorIs(t, err, ErrTokenInvalid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeUnknownToken(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "accounts" WHERE reset_token = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.ConsumeResetToken(context.Background(), "missing", "hash", time.Now())
	assert.ErrorIs(t, err, ErrTokenInvalid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeEmptyTokenSkipsQuery(t *testing.T) {
	store, mock := newMockStore(t)

	_, err := store.ConsumeVerificationToken(context.Background(), "", time.Now())
	assert.ErrorIs(t, err, ErrTokenInvalid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)
	username := "alice"

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "accounts"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_key"})
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "accounts" WHERE email = $1`)).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err := store.Create(context.Background(), Account{ID: uuid.New(), Email: "a@x.com", Username: &username, PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicateUsername(t *testing.T) {
	store, mock := newMockStore(t)
	username := "alice"

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "accounts"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_username_key"})
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "accounts" WHERE email = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	err := store.Create(context.Background(), Account{ID: uuid.New(), Email: "b@x.com", Username: &username, PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRunsInOneTransaction(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM blog_posts WHERE user_id = $1 OR game_id IN (SELECT id FROM games WHERE user_id = $2)`)).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM games WHERE user_id = $1`)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM accounts WHERE id = $1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Delete(context.Background(), id))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMissingAccountRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM blog_posts`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM games`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM accounts`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, store.Delete(context.Background(), uuid.New()), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBackfillUsernames(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE accounts SET username = 'user_' || id::text, updated_at = $1 WHERE username IS NULL OR btrim(username) = ''`)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.BackfillUsernames(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyAll(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE "accounts" SET .*"is_email_verified"=\$\d+.* WHERE is_email_verified = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := store.VerifyAll(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
