package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gamelog/pkg/metrics"
)

// Mailer sends the account emails the service triggers directly.
type Mailer interface {
	SendVerification(ctx context.Context, to, username, link string, ttl time.Duration) error
	SendPasswordReset(ctx context.Context, to, link string, ttl time.Duration) error
}

// Options tunes lifecycle token policy.
type Options struct {
	VerifyTokenTTL time.Duration
	ResetTokenTTL  time.Duration
	// RevealUnknownEmail makes RequestPasswordReset report ErrNotFound for
	// addresses without an account.
	RevealUnknownEmail bool
}

// DefaultOptions mirrors the production token lifetimes.
func DefaultOptions() Options {
	return Options{VerifyTokenTTL: 24 * time.Hour, ResetTokenTTL: time.Hour}
}

// Service implements the account lifecycle: signup, verification, login,
// password reset, and deletion.
type Service struct {
	store   Store
	hasher  *Hasher
	mailer  Mailer
	events  EventSink
	metrics *metrics.Metrics
	opts    Options
	now     func() time.Time
}

// NewService wires a Service. events and m may be nil.
func NewService(store Store, hasher *Hasher, mailer Mailer, events EventSink, m *metrics.Metrics, opts Options) (*Service, error) {
	if store == nil {
		return nil, errors.New("accounts: nil store")
	}
	if hasher == nil {
		return nil, errors.New("accounts: nil hasher")
	}
	if mailer == nil {
		return nil, errors.New("accounts: nil mailer")
	}
	if opts.VerifyTokenTTL <= 0 || opts.ResetTokenTTL <= 0 {
		return nil, errors.New("accounts: token ttls must be positive")
	}
	if events == nil {
		events = discardSink{}
	}
	return &Service{
		store:   store,
		hasher:  hasher,
		mailer:  mailer,
		events:  events,
		metrics: m,
		opts:    opts,
		now:     time.Now,
	}, nil
}

// Signup creates an unverified account and mails its verification link.
// A failed send is logged; the account is kept.
func (s *Service) Signup(ctx context.Context, email, username, password, origin string) (Account, error) {
	email = NormalizeEmail(email)
	username = strings.TrimSpace(username)

	for _, err := range []error{validateEmail(email), validateUsername(username), validatePassword(password)} {
		if err != nil {
			s.metrics.AuthEvent("signup", metrics.OutcomeRejected)
			return Account{}, err
		}
	}

	if taken, err := s.store.EmailExists(ctx, email); err != nil {
		return Account{}, s.fail("signup", err)
	} else if taken {
		s.metrics.AuthEvent("signup", metrics.OutcomeRejected)
		return Account{}, ErrEmailTaken
	}
	if taken, err := s.store.UsernameExists(ctx, username); err != nil {
		return Account{}, s.fail("signup", err)
	} else if taken {
		s.metrics.AuthEvent("signup", metrics.OutcomeRejected)
		return Account{}, ErrUsernameTaken
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return Account{}, s.fail("signup", fmt.Errorf("hash password: %w", err))
	}
	token, err := newLifecycleToken()
	if err != nil {
		return Account{}, s.fail("signup", fmt.Errorf("generate verification token: %w", err))
	}

	now := s.now().UTC()
	expiry := now.Add(s.opts.VerifyTokenTTL)
	account := Account{
		ID:                           uuid.New(),
		Email:                        email,
		Username:                     &username,
		PasswordHash:                 hash,
		EmailVerificationToken:       &token,
		EmailVerificationTokenExpiry: &expiry,
		CreatedAt:                    now,
		UpdatedAt:                    now,
	}

	if err := s.store.Create(ctx, account); err != nil {
		if errors.Is(err, ErrEmailTaken) || errors.Is(err, ErrUsernameTaken) {
			s.metrics.AuthEvent("signup", metrics.OutcomeRejected)
			return Account{}, err
		}
		return Account{}, s.fail("signup", err)
	}
	s.metrics.AuthEvent("signup", metrics.OutcomeOK)
	s.metrics.LifecycleToken(TokenVerify, metrics.OutcomeIssued)

	link := joinLink(origin, "/verify-email/", token)
	if err := s.mailer.SendVerification(ctx, email, username, link, s.opts.VerifyTokenTTL); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("account_id", account.ID.String()).Msg("send verification email")
	}

	s.emit(ctx, Event{Type: EventCreated, AccountID: account.ID, Email: email, At: now})
	return account, nil
}

// Login checks credentials. Unknown emails and wrong passwords are
// indistinguishable; a correct password on an unverified account yields
// ErrEmailNotVerified.
func (s *Service) Login(ctx context.Context, email, password string) (Account, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		s.metrics.AuthEvent("login", metrics.OutcomeRejected)
		return Account{}, ErrInvalidCredentials
	}

	account, err := s.store.ByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		s.hasher.Burn(password)
		s.metrics.AuthEvent("login", metrics.OutcomeRejected)
		return Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, s.fail("login", err)
	}

	if !s.hasher.Matches(account.PasswordHash, password) {
		s.metrics.AuthEvent("login", metrics.OutcomeRejected)
		return Account{}, ErrInvalidCredentials
	}
	if !account.IsEmailVerified {
		s.metrics.AuthEvent("login", metrics.OutcomeRejected)
		return Account{}, ErrEmailNotVerified
	}

	s.metrics.AuthEvent("login", metrics.OutcomeOK)
	return account, nil
}

// VerifyEmail consumes a verification token. Unknown, expired, and already
// used tokens all return ErrTokenInvalid.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	now := s.now().UTC()
	id, err := s.store.ConsumeVerificationToken(ctx, strings.TrimSpace(token), now)
	if errors.Is(err, ErrTokenInvalid) {
		s.metrics.LifecycleToken(TokenVerify, metrics.OutcomeRejected)
		return ErrTokenInvalid
	}
	if err != nil {
		s.metrics.LifecycleToken(TokenVerify, metrics.OutcomeError)
		return fmt.Errorf("verify email: %w", err)
	}

	s.metrics.LifecycleToken(TokenVerify, metrics.OutcomeOK)
	s.emit(ctx, Event{Type: EventVerified, AccountID: id, At: now})
	return nil
}

// RequestPasswordReset issues a reset token and mails its link. Unknown
// addresses return nil unless Options.RevealUnknownEmail is set. A failed
// send is returned as ErrMailUnavailable.
func (s *Service) RequestPasswordReset(ctx context.Context, email, origin string) error {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	account, err := s.store.ByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		s.metrics.LifecycleToken(TokenReset, metrics.OutcomeRejected)
		if s.opts.RevealUnknownEmail {
			return ErrNotFound
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("request password reset: %w", err)
	}

	token, err := newLifecycleToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	now := s.now().UTC()
	if err := s.store.SetResetToken(ctx, account.ID, token, now.Add(s.opts.ResetTokenTTL)); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	s.metrics.LifecycleToken(TokenReset, metrics.OutcomeIssued)

	link := joinLink(origin, "/reset/", token)
	if err := s.mailer.SendPasswordReset(ctx, email, link, s.opts.ResetTokenTTL); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("account_id", account.ID.String()).Msg("send password reset email")
		return ErrMailUnavailable
	}

	s.emit(ctx, Event{Type: EventResetRequest, AccountID: account.ID, At: now})
	return nil
}

// ResetPassword consumes a reset token and rotates the password hash.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	id, err := s.store.ConsumeResetToken(ctx, strings.TrimSpace(token), hash, now)
	if errors.Is(err, ErrTokenInvalid) {
		s.metrics.LifecycleToken(TokenReset, metrics.OutcomeRejected)
		return ErrTokenInvalid
	}
	if err != nil {
		s.metrics.LifecycleToken(TokenReset, metrics.OutcomeError)
		return fmt.Errorf("reset password: %w", err)
	}

	s.metrics.LifecycleToken(TokenReset, metrics.OutcomeOK)
	s.emit(ctx, Event{Type: EventPasswordReset, AccountID: id, At: now})
	return nil
}

// DeleteAccount removes target and everything it owns. Only the account
// itself may do this; the check happens here, at the mutation. The deletion
// notice is best effort and never fails the call.
func (s *Service) DeleteAccount(ctx context.Context, actorID, targetID uuid.UUID) error {
	if actorID == uuid.Nil || actorID != targetID {
		s.metrics.AuthEvent("delete", metrics.OutcomeRejected)
		return ErrForbidden
	}

	account, err := s.store.ByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return s.fail("delete", err)
	}

	if err := s.store.Delete(ctx, targetID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return s.fail("delete", err)
	}
	s.metrics.AuthEvent("delete", metrics.OutcomeOK)

	s.emit(ctx, Event{Type: EventDeleted, AccountID: targetID, Email: account.Email, At: s.now().UTC()})
	return nil
}

// Profile returns the profile summary for id.
func (s *Service) Profile(ctx context.Context, id uuid.UUID) (Profile, error) {
	account, err := s.store.ByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	count, err := s.store.CountGames(ctx, id)
	if err != nil {
		return Profile{}, fmt.Errorf("count games: %w", err)
	}
	return Profile{
		Email:         account.Email,
		Username:      account.DisplayName(),
		ProfilePicURL: account.ProfilePicURL,
		CreatedAt:     account.CreatedAt,
		GameCount:     count,
	}, nil
}

// SetProfilePicture records the uploaded picture URL on the account.
func (s *Service) SetProfilePicture(ctx context.Context, id uuid.UUID, url string) error {
	if strings.TrimSpace(url) == "" {
		return invalid("image", "Image URL is required.")
	}
	return s.store.SetProfilePicture(ctx, id, url)
}

func (s *Service) emit(ctx context.Context, event Event) {
	if err := s.events.Emit(ctx, event); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("event", event.Type).Str("account_id", event.AccountID.String()).Msg("emit account event")
	}
}

func (s *Service) fail(event string, err error) error {
	s.metrics.AuthEvent(event, metrics.OutcomeError)
	return fmt.Errorf("%s: %w", event, err)
}

func joinLink(origin, path, token string) string {
	return strings.TrimRight(origin, "/") + path + token
}
