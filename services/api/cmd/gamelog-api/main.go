package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gamelog/internal/app"
	"gamelog/internal/config"
	"gamelog/internal/version"
	"gamelog/pkg/db"
	"gamelog/pkg/metrics"
	"gamelog/pkg/telemetry"
	"gamelog/services/accounts"
	"gamelog/services/api"
	"gamelog/services/blog"
	"gamelog/services/catalog"
	"gamelog/services/notifier"
)

const serviceName = "gamelog-api"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).With().Str("service", serviceName).Logger()
	ctx = log.Logger.WithContext(ctx)

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if cfg.Production() {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("service", serviceName).Logger()
		ctx = log.Logger.WithContext(ctx)
	}

	cleanup, err := telemetry.Init(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("init telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cleanup(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	pool, err := db.Open(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	orm, err := db.Connect(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect orm")
	}
	defer func() {
		if err := db.Close(orm); err != nil {
			log.Error().Err(err).Msg("close orm")
		}
	}()

	m := metrics.New()

	mailer, err := app.NewMailer(cfg.Mail, log.Logger, m)
	if err != nil {
		log.Fatal().Err(err).Msg("init mailer")
	}

	host, err := app.NewImageHost(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init image host")
	}

	revocations, closeRevocations, err := app.NewRevocations(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init revocations")
	}
	defer func() { _ = closeRevocations() }()

	eventBus, err := app.NewBus(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init bus")
	}

	var (
		events  accounts.EventSink
		reports blog.ReportSink
	)
	if eventBus != nil {
		defer eventBus.Close()
		if err := eventBus.EnsureStream(notifier.StreamName, notifier.StreamSubjects...); err != nil {
			log.Fatal().Err(err).Msg("ensure stream")
		}
		sink, err := notifier.NewBusSink(eventBus)
		if err != nil {
			log.Fatal().Err(err).Msg("init bus sink")
		}
		events, reports = sink, sink
	} else {
		processor, err := notifier.NewProcessor(orm, mailer)
		if err != nil {
			log.Fatal().Err(err).Msg("init notifier")
		}
		sink, err := notifier.NewDirectSink(processor)
		if err != nil {
			log.Fatal().Err(err).Msg("init direct sink")
		}
		events, reports = sink, sink
	}

	sessions, err := accounts.NewSessions(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("init sessions")
	}

	accountSvc, err := accounts.NewService(
		accounts.NewGormStore(orm),
		accounts.NewHasher(cfg.BcryptCost),
		mailer,
		events,
		m,
		accounts.Options{
			VerifyTokenTTL:     cfg.VerifyTokenTTL,
			ResetTokenTTL:      cfg.ResetTokenTTL,
			RevealUnknownEmail: cfg.ResetRevealsUnknownEmail,
		},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("init accounts")
	}

	handlers, err := api.New(api.Deps{
		Accounts: accountSvc,
		Sessions: sessions,
		Auth:     accounts.NewAuthenticator(sessions, revocations),
		Games:    catalog.NewService(orm, pool),
		Posts:    blog.NewService(orm, reports),
		Images:   host,
		Metrics:  m,
		Ready:    func(ctx context.Context) error { return db.Ping(ctx, pool) },
		Logger:   log.Logger,
	}, api.Config{
		CookieName:     cfg.CookieName,
		SecureCookies:  cfg.SecureCookies(),
		Origin:         cfg.Origin,
		AllowedOrigins: cfg.AllowedOrigins,
		AuthRateLimit:  cfg.AuthRateLimit,
		ServiceName:    serviceName,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init api")
	}

	router, err := handlers.Routes()
	if err != nil {
		log.Fatal().Err(err).Msg("build routes")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Str("version", version.Version).Msg("starting gamelog-api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown server")
	}
}
