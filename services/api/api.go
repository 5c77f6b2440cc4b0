package api

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gamelog/pkg/images"
	"gamelog/pkg/metrics"
	"gamelog/services/accounts"
	"gamelog/services/blog"
	"gamelog/services/catalog"
)

const (
	defaultCookieName    = "_gamelog_session"
	defaultAuthRateLimit = 10
	defaultServiceName   = "gamelog-api"
	uploadTimeout        = 30 * time.Second
)

// AccountService is the account lifecycle the handlers drive.
type AccountService interface {
	Signup(ctx context.Context, email, username, password, origin string) (accounts.Account, error)
	Login(ctx context.Context, email, password string) (accounts.Account, error)
	VerifyEmail(ctx context.Context, token string) error
	RequestPasswordReset(ctx context.Context, email, origin string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	DeleteAccount(ctx context.Context, actorID, targetID uuid.UUID) error
	Profile(ctx context.Context, id uuid.UUID) (accounts.Profile, error)
	SetProfilePicture(ctx context.Context, id uuid.UUID, url string) error
}

// SessionIssuer mints session tokens at login.
type SessionIssuer interface {
	Issue(accountID uuid.UUID) (accounts.Session, error)
}

// Authenticator resolves and revokes session tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (accounts.Session, bool)
	Revoke(ctx context.Context, sess accounts.Session) error
	RevokeAll(ctx context.Context, accountID uuid.UUID) error
}

// GameService is the game catalog.
type GameService interface {
	List(ctx context.Context) ([]catalog.Game, error)
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]catalog.Game, error)
	Get(ctx context.Context, id uuid.UUID) (catalog.Game, error)
	Create(ctx context.Context, owner uuid.UUID, in catalog.Input) (catalog.Game, error)
	Update(ctx context.Context, actor, id uuid.UUID, in catalog.Input) error
	Delete(ctx context.Context, actor, id uuid.UUID) error
	Categories(ctx context.Context) ([]catalog.Category, error)
	Stats(ctx context.Context, owner uuid.UUID) (catalog.Stats, error)
	GameOfTheWeek(ctx context.Context, now time.Time) (*catalog.Game, error)
}

// PostService is the blog.
type PostService interface {
	List(ctx context.Context) ([]blog.Post, error)
	Get(ctx context.Context, id uuid.UUID) (blog.Post, error)
	Create(ctx context.Context, author uuid.UUID, in blog.Input) (blog.Post, error)
	Update(ctx context.Context, actor, id uuid.UUID, in blog.Input) error
	Delete(ctx context.Context, actor, id uuid.UUID) error
	Report(ctx context.Context, reporter, id uuid.UUID, reason string) error
}

// Deps holds the services the API layer dispatches to.
type Deps struct {
	Accounts AccountService
	Sessions SessionIssuer
	Auth     Authenticator
	Games    GameService
	Posts    PostService
	Images   images.Host
	Metrics  *metrics.Metrics
	// Ready reports whether backing stores are reachable. Nil means always ready.
	Ready  func(ctx context.Context) error
	Logger zerolog.Logger
}

// Config controls runtime behaviour for the API handlers.
type Config struct {
	CookieName    string
	SecureCookies bool
	// Origin is the public base URL used in emailed links. Empty derives it from the request.
	Origin         string
	AllowedOrigins []string
	AuthRateLimit  int
	ServiceName    string
}

// API wires dependencies and configuration for HTTP handlers.
type API struct {
	deps   Deps
	config Config
	now    func() time.Time
}

// New initialises the API layer with defaults applied to the provided configuration.
func New(deps Deps, cfg Config) (*API, error) {
	switch {
	case deps.Accounts == nil:
		return nil, errors.New("account service is required")
	case deps.Sessions == nil:
		return nil, errors.New("session issuer is required")
	case deps.Auth == nil:
		return nil, errors.New("authenticator is required")
	case deps.Games == nil:
		return nil, errors.New("game service is required")
	case deps.Posts == nil:
		return nil, errors.New("post service is required")
	case deps.Images == nil:
		return nil, errors.New("image host is required")
	}

	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.AuthRateLimit <= 0 {
		cfg.AuthRateLimit = defaultAuthRateLimit
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}

	return &API{deps: deps, config: cfg, now: time.Now}, nil
}
