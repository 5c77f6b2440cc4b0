package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"gamelog/pkg/telemetry"
)

// Routes constructs the chi router containing all GameLog endpoints.
func (a *API) Routes() (http.Handler, error) {
	if a == nil {
		return nil, errors.New("nil api")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(telemetry.Middleware(a.config.ServiceName, a.deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Cross-origin access is opt-in; without configured origins no CORS headers are sent.
	if len(a.config.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   a.config.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
			AllowCredentials: true,
			MaxAge:           int((10 * time.Minute).Seconds()),
		}))
	}

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Method(http.MethodGet, "/metrics", a.deps.Metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(a.withSession)

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(a.config.AuthRateLimit, time.Minute))
			r.Post("/signup", a.handleSignup)
			r.Post("/login", a.handleLogin)
			r.Post("/reset-password", a.handleRequestReset)
		})

		r.Get("/logout", a.handleLogout)
		r.Get("/verify-email/{token}", a.handleVerifyEmail)
		r.Post("/reset/{token}", a.handleResetPassword)

		r.Get("/games", a.handleListGames)
		r.Get("/games/{id}", a.handleGetGame)
		r.Get("/game-of-the-week", a.handleGameOfTheWeek)
		r.Get("/categories", a.handleCategories)
		r.Get("/blog", a.handleListPosts)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAccount)

			r.Post("/logout-everywhere", a.handleLogoutEverywhere)
			r.Get("/profile", a.handleProfile)
			r.Post("/profile/picture", a.handleProfilePicture)
			r.Post("/delete-account", a.handleDeleteAccount)

			r.Get("/my-games", a.handleMyGames)
			r.Get("/stats", a.handleStats)
			r.Post("/games", a.handleCreateGame)
			r.Post("/games/{id}", a.handleUpdateGame)
			r.Post("/games/{id}/delete", a.handleDeleteGame)
			r.Post("/uploads/cover", a.handleUploadCover)

			r.Post("/blog", a.handlePostAction)
		})
	})

	return r, nil
}
