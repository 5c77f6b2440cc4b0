// Package app assembles the GameLog backends from configuration. It is shared
// by the API server, the notifier, and gamelogctl.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"gamelog/internal/config"
	"gamelog/pkg/bus"
	"gamelog/pkg/images"
	"gamelog/pkg/mail"
	"gamelog/pkg/metrics"
	"gamelog/pkg/render"
	gos3 "gamelog/pkg/s3"
	"gamelog/services/accounts"
)

// NewMailer sends through SMTP when SMTP_HOST is set and through the log otherwise.
func NewMailer(cfg config.Mail, logger zerolog.Logger, m *metrics.Metrics) (*mail.Mailer, error) {
	engine, err := render.New()
	if err != nil {
		return nil, fmt.Errorf("load email templates: %w", err)
	}

	var transport mail.Transport
	if cfg.SMTPHost == "" {
		logger.Warn().Msg("SMTP_HOST not set; emails are logged, not sent")
		transport = mail.NewLogTransport(logger)
	} else {
		transport = mail.NewSMTPTransport(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	}
	return mail.NewMailer(transport, engine, m)
}

// NewImageHost builds the configured image backend.
func NewImageHost(ctx context.Context, cfg config.Config) (images.Host, error) {
	switch cfg.ImageBackend {
	case config.ImageBackendS3:
		client, err := gos3.NewClient(ctx, gos3.Options{
			Endpoint:       cfg.S3Endpoint,
			Region:         cfg.S3Region,
			AccessKey:      cfg.S3AccessKey,
			SecretKey:      cfg.S3SecretKey,
			ForcePathStyle: cfg.S3ForcePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		return images.NewS3(client, cfg.S3Bucket, cfg.S3PublicBaseURL)
	default:
		return images.NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	}
}

// NewRevocations returns the Redis revocation set when REDIS_URL is set.
// Without Redis, logout only clears the cookie.
func NewRevocations(ctx context.Context, cfg config.Config) (accounts.Revocations, func() error, error) {
	if cfg.RedisURL == "" {
		return accounts.NoRevocations{}, func() error { return nil }, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return accounts.NewRedisRevocations(client, cfg.SessionTTL), client.Close, nil
}

// NewBus connects to NATS when NATS_URL is set. A nil Bus means events are
// handled in-process.
func NewBus(cfg config.Config) (*bus.Bus, error) {
	if cfg.NATSURL == "" {
		return nil, nil
	}
	b, err := bus.New(cfg.NATSURL)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return b, nil
}
