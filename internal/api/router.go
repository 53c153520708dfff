package api

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hugh/c4p-portal/internal/api/handlers"
	"github.com/hugh/c4p-portal/internal/api/middleware"
	"github.com/hugh/c4p-portal/internal/auth"
	"github.com/hugh/c4p-portal/internal/candidates"
	"github.com/hugh/c4p-portal/internal/proposals"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

// RateLimits are per-client request budgets. Zero disables a limit.
type RateLimits struct {
	LoginPerMinute  int
	SubmitPerMinute int
	PerHour         int
	PerDay          int
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client // optional, health only
	Logger         *slog.Logger
	Sessions       auth.TokenService
	AuthService    *auth.Service
	Candidates     *candidates.Service
	Proposals      *proposals.Service
	Templates      handlers.Renderer
	StaticFS       fs.FS
	CSRFStore      *middleware.CSRFStore
	Cookies        middleware.SessionCookies
	AllowedOrigins []string // CORS allowed origins
	TrustedProxies int
	MaxUploadBytes int64
	RateLimits     RateLimits
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimw.RequestID)
	r.Use(middleware.RealIP(cfg.TrustedProxies))
	r.Use(middleware.Logging(cfg.Logger))

	// CORS - restrict to configured origins, or allow all in development
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:10000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.MaxUploadBytes > 0 {
		r.Use(chimw.RequestSize(cfg.MaxUploadBytes))
	}

	csrfStore := cfg.CSRFStore
	if csrfStore == nil {
		csrfStore = middleware.NewCSRFStore()
	}

	pages := handlers.NewPages(cfg.Templates, cfg.Logger)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.Sessions, cfg.Cookies, pages, cfg.Logger)
	profileHandler := handlers.NewProfileHandler(cfg.Candidates, pages, cfg.Logger)
	proposalHandler := handlers.NewProposalHandler(cfg.Proposals, cfg.Candidates, pages, cfg.Logger)
	adminHandler := handlers.NewAdminHandler(cfg.Proposals, cfg.Candidates, cfg.AuthService, pages, cfg.Logger)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Static files
	if cfg.StaticFS != nil {
		fileServer := http.FileServer(http.FS(cfg.StaticFS))
		r.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	// Web pages
	r.Group(func(r chi.Router) {
		if global := limiters(perWindow(cfg.RateLimits.PerHour, time.Hour), perWindow(cfg.RateLimits.PerDay, 24*time.Hour)); len(global) > 0 {
			r.Use(middleware.RateLimit(global...))
		}
		r.Use(middleware.Flashes(cfg.Cookies.Secure))
		r.Use(middleware.CSRF(csrfStore, cfg.Cookies.Secure))
		r.Use(middleware.Session(cfg.Sessions, cfg.AuthService, cfg.Cookies, cfg.Logger))

		r.Get("/", authHandler.Index)
		r.Post("/register", authHandler.Register)
		r.With(limit(http.MethodPost, perWindow(cfg.RateLimits.LoginPerMinute, time.Minute))...).
			Post("/login", authHandler.Login)
		r.Get("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(handlers.MsgProfileLoginRequired))
			r.Use(middleware.RequireCandidate)
			r.Get("/profile", profileHandler.Show)
			r.Post("/profile", profileHandler.Save)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(handlers.MsgSubmitLoginRequired))
			r.Use(middleware.RequireCandidate)
			r.Use(limit(http.MethodPost, perWindow(cfg.RateLimits.SubmitPerMinute, time.Minute))...)
			r.Get("/submit", proposalHandler.SubmitForm)
			r.Post("/submit", proposalHandler.Submit)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(handlers.MsgProposalsLoginRequired))
			r.Use(middleware.RequireCandidate)
			r.Get("/proposals", proposalHandler.List)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/proposals", adminHandler.Board)
			r.Post("/proposals", adminHandler.UpdateStatus)
			r.Get("/candidate/{userID}", adminHandler.Candidate)
			r.Get("/passwords", adminHandler.Passwords)
		})
	})

	return &Router{r}
}

func perWindow(requests int, window time.Duration) *middleware.RateLimiter {
	if requests <= 0 {
		return nil
	}
	return middleware.NewRateLimiter(requests, window)
}

func limiters(all ...*middleware.RateLimiter) []*middleware.RateLimiter {
	var out []*middleware.RateLimiter
	for _, l := range all {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

func limit(method string, l *middleware.RateLimiter) []func(http.Handler) http.Handler {
	if l == nil {
		return nil
	}
	return []func(http.Handler) http.Handler{middleware.RateLimitMethod(method, l)}
}
