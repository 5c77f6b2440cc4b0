package accounts

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength is the shortest signing secret Sessions accepts.
const MinSecretLength = 32

const sessionIssuer = "gamelog"

// Session is a decoded session token bound to one account.
type Session struct {
	Token     string
	ID        string
	AccountID uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
	// IssuedAtMilli refines iat, which the JWT encoding keeps to whole seconds.
	IssuedAtMilli int64 `json:"iat_ms,omitempty"`
}

// Sessions issues and reads HS256-signed session tokens. It holds no per-session state.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions returns a Sessions signing with secret. A short secret is a
// configuration error and the process should not start.
func NewSessions(secret string, ttl time.Duration) (*Sessions, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d bytes", MinSecretLength)
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL reports how long issued sessions stay valid.
func (s *Sessions) TTL() time.Duration { return s.ttl }

// Issue signs a new session for accountID.
func (s *Sessions) Issue(accountID uuid.UUID) (Session, error) {
	if accountID == uuid.Nil {
		return Session{}, errors.New("issue session: nil account id")
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	sess := Session{
		ID:        uuid.NewString(),
		AccountID: accountID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl).Truncate(time.Second),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   accountID.String(),
			ID:        sess.ID,
			IssuedAt:  jwt.NewNumericDate(sess.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
		IssuedAtMilli: sess.IssuedAt.UnixMilli(),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign session: %w", err)
	}
	sess.Token = signed
	return sess, nil
}

// Read decodes token. Absent, malformed, forged, and expired tokens all
// report false; Read never returns an error.
func (s *Sessions) Read(token string) (Session, bool) {
	if token == "" {
		return Session{}, false
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return Session{}, false
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil || accountID == uuid.Nil {
		return Session{}, false
	}
	if claims.ID == "" || claims.IssuedAt == nil {
		return Session{}, false
	}

	issuedAt := claims.IssuedAt.Time
	if claims.IssuedAtMilli > 0 && claims.IssuedAtMilli/1000 == claims.IssuedAt.Unix() {
		issuedAt = time.UnixMilli(claims.IssuedAtMilli).UTC()
	}

	return Session{
		Token:     token,
		ID:        claims.ID,
		AccountID: accountID,
		IssuedAt:  issuedAt,
		ExpiresAt: claims.ExpiresAt.Time,
	}, true
}
