package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// MinSessionSecretLength is the shortest accepted SESSION_SECRET, in bytes.
const MinSessionSecretLength = 32

// Image host backends.
const (
	ImageBackendCloudinary = "cloudinary"
	ImageBackendS3         = "s3"
)

// Config holds runtime configuration for the GameLog services.
type Config struct {
	Addr   string `env:"ADDR,default=:8080"`
	AppEnv string `env:"APP_ENV,default=development"`
	DBDSN  string `env:"DB_DSN,required"`

	SessionSecret string        `env:"SESSION_SECRET,required"`
	SessionTTL    time.Duration `env:"SESSION_TTL,default=720h"`
	CookieName    string        `env:"COOKIE_NAME,default=_gamelog_session"`
	CookieSecure  *bool         `env:"COOKIE_SECURE,noinit"`
	Origin        string        `env:"ORIGIN"`

	BcryptCost               int           `env:"BCRYPT_COST,default=10"`
	VerifyTokenTTL           time.Duration `env:"VERIFY_TOKEN_TTL,default=24h"`
	ResetTokenTTL            time.Duration `env:"RESET_TOKEN_TTL,default=1h"`
	ResetRevealsUnknownEmail bool          `env:"RESET_REVEALS_UNKNOWN_EMAIL,default=false"`

	Mail

	ImageBackend        string `env:"IMAGE_BACKEND,default=cloudinary"`
	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`

	S3Endpoint       string `env:"S3_ENDPOINT"`
	S3Region         string `env:"S3_REGION,default=us-east-1"`
	S3AccessKey      string `env:"S3_ACCESS_KEY"`
	S3SecretKey      string `env:"S3_SECRET_KEY"`
	S3Bucket         string `env:"S3_BUCKET"`
	S3ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE,default=true"`
	S3PublicBaseURL  string `env:"S3_PUBLIC_BASE_URL"`

	NATSURL        string   `env:"NATS_URL"`
	RedisURL       string   `env:"REDIS_URL"`
	OTLPEndpoint   string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:5173"`
	AuthRateLimit  int      `env:"AUTH_RATE_LIMIT,default=10"`
}

// Mail holds outbound SMTP settings. An empty SMTP_HOST selects the log-only transport.
type Mail struct {
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT,default=587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASS"`
	MailFrom     string `env:"MAIL_FROM,default=GameLog <no-reply@gamelog.local>"`
}

// Notifier holds the settings of the event consumer process.
type Notifier struct {
	Addr         string `env:"NOTIFIER_ADDR,default=:8081"`
	DBDSN        string `env:"DB_DSN,required"`
	NATSURL      string `env:"NATS_URL,required"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	Mail
}

// LoadNotifier returns the notifier settings from environment variables.
func LoadNotifier(ctx context.Context) (Notifier, error) {
	var n Notifier
	if err := envconfig.Process(ctx, &n); err != nil {
		return Notifier{}, err
	}
	return n, nil
}

// LoadDSN returns DB_DSN, which must be set.
func LoadDSN(ctx context.Context) (string, error) {
	var d struct {
		DBDSN string `env:"DB_DSN,required"`
	}
	if err := envconfig.Process(ctx, &d); err != nil {
		return "", err
	}
	return d.DBDSN, nil
}

// LoadMail reads only the mail settings, for tools that do not serve HTTP.
func LoadMail(ctx context.Context) (Mail, error) {
	var m Mail
	if err := envconfig.Process(ctx, &m); err != nil {
		return Mail{}, err
	}
	return m, nil
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Production reports whether APP_ENV names a production deployment.
func (c Config) Production() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "production")
}

// SecureCookies reports whether the session cookie carries the Secure flag.
// COOKIE_SECURE wins when set; otherwise production deployments get secure cookies.
func (c Config) SecureCookies() bool {
	if c.CookieSecure != nil {
		return *c.CookieSecure
	}
	return c.Production()
}

// Validate enforces the cross-field rules envconfig cannot express.
func (c Config) Validate() error {
	if len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes", MinSessionSecretLength)
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.VerifyTokenTTL <= 0 || c.ResetTokenTTL <= 0 {
		return errors.New("VERIFY_TOKEN_TTL and RESET_TOKEN_TTL must be positive")
	}

	switch c.ImageBackend {
	case ImageBackendCloudinary:
		if c.CloudinaryCloudName == "" || c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "" {
			return errors.New("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required for the cloudinary image backend")
		}
	case ImageBackendS3:
		if c.S3Endpoint == "" || c.S3Bucket == "" {
			return errors.New("S3_ENDPOINT and S3_BUCKET are required for the s3 image backend")
		}
		if c.S3AccessKey == "" || c.S3SecretKey == "" {
			return errors.New("S3_ACCESS_KEY and S3_SECRET_KEY are required for the s3 image backend")
		}
		if c.S3PublicBaseURL == "" {
			return errors.New("S3_PUBLIC_BASE_URL is required for the s3 image backend")
		}
	default:
		return fmt.Errorf("unknown IMAGE_BACKEND %q", c.ImageBackend)
	}

	if c.AuthRateLimit <= 0 {
		return errors.New("AUTH_RATE_LIMIT must be positive")
	}
	// Emailed links fall back to the request Host outside production only.
	if c.Production() && strings.TrimSpace(c.Origin) == "" {
		return errors.New("ORIGIN is required in production")
	}
	return nil
}
