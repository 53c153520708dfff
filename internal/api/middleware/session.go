package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hugh/c4p-portal/internal/auth"
	"github.com/hugh/c4p-portal/internal/database/models"
)

type contextKey string

const (
	UserKey    contextKey = "user"
	IsAdminKey contextKey = "is_admin"
)

const SessionCookieName = "session"

const (
	MsgLoginRequired = "Debe iniciar sesión."
	MsgUnauthorized  = "Acceso no autorizado."
)

// UserLoader resolves the user behind a session.
type UserLoader interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	IsAdmin(user *models.User) bool
}

// SessionCookies writes and clears the session cookie.
type SessionCookies struct {
	Secure bool
	MaxAge time.Duration
}

func (c SessionCookies) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(c.MaxAge.Seconds()),
	})
}

func (c SessionCookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// Session loads the user named by the session cookie, if any. A bad or
// stale cookie is dropped and the request continues anonymously.
func Session(tokens auth.TokenService, users UserLoader, cookies SessionCookies, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := tokens.Validate(cookie.Value)
			if err != nil {
				cookies.Clear(w)
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetUserByID(r.Context(), userID)
			if err != nil {
				logger.Debug("session user not loaded", "user_id", userID, "error", err)
				cookies.Clear(w)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			ctx = context.WithValue(ctx, IsAdminKey, users.IsAdmin(user))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Helper functions to extract values from context
func GetUser(ctx context.Context) *models.User {
	if user, ok := ctx.Value(UserKey).(*models.User); ok {
		return user
	}
	return nil
}

func IsAdmin(ctx context.Context) bool {
	admin, _ := ctx.Value(IsAdminKey).(bool)
	return admin
}

// WithUser returns ctx carrying user, as Session would set it.
func WithUser(ctx context.Context, user *models.User, admin bool) context.Context {
	ctx = context.WithValue(ctx, UserKey, user)
	return context.WithValue(ctx, IsAdminKey, admin)
}

// RequireUser sends anonymous visitors to the landing page with msg.
func RequireUser(msg string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetUser(r.Context()) == nil {
				Redirect(w, r, "/", Error(msg))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCandidate sends admins to their board. Must run after RequireUser.
func RequireCandidate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsAdmin(r.Context()) {
			http.Redirect(w, r, "/admin/proposals", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anonymous visitors and candidates.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUser(r.Context()) == nil {
			Redirect(w, r, "/", Error(MsgLoginRequired))
			return
		}
		if !IsAdmin(r.Context()) {
			Redirect(w, r, "/profile", Error(MsgUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}
