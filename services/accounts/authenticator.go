package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Authenticator resolves a session token to an account, honouring revocations.
type Authenticator struct {
	sessions    *Sessions
	revocations Revocations
}

// NewAuthenticator combines a session reader with a revocation set. A nil
// revocation set disables revocation checks.
func NewAuthenticator(sessions *Sessions, revocations Revocations) *Authenticator {
	if revocations == nil {
		revocations = NoRevocations{}
	}
	return &Authenticator{sessions: sessions, revocations: revocations}
}

// Authenticate returns the session for token, or false when the request is
// not authenticated. A failing revocation store is treated as not authenticated.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (Session, bool) {
	sess, ok := a.sessions.Read(token)
	if !ok {
		return Session{}, false
	}

	revoked, err := a.revocations.IsRevoked(ctx, sess)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("revocation check failed")
		return Session{}, false
	}
	if revoked {
		return Session{}, false
	}
	return sess, true
}

// Revoke invalidates one session (logout).
func (a *Authenticator) Revoke(ctx context.Context, sess Session) error {
	return a.revocations.RevokeSession(ctx, sess)
}

// RevokeAll invalidates every session of accountID issued up to now.
func (a *Authenticator) RevokeAll(ctx context.Context, accountID uuid.UUID) error {
	return a.revocations.RevokeAccount(ctx, accountID, time.Now())
}
