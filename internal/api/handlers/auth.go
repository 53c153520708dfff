package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hugh/c4p-portal/internal/api/middleware"
	"github.com/hugh/c4p-portal/internal/auth"
	"github.com/hugh/c4p-portal/internal/database/models"
)

const supportEmail = "contacto@cmc-latam.com"

// Flash texts shared with the tests.
const (
	MsgRegisterMissing    = "Completa nombre y correo."
	MsgRegisterInvalid    = "Correo electrónico inválido."
	MsgRegisterDuplicate  = "Este correo ya se registró anteriormente. Si perdiste tu contraseña, por favor escribe a " + supportEmail + " para solicitar recuperación."
	MsgRegisterSuccess    = "¡Registro exitoso! Tu contraseña única es:"
	MsgRegisterTrailer    = "Guárdala de inmediato. Ahora puedes iniciar sesión."
	MsgLoginAdmin         = "Bienvenido administrador."
	MsgLoginSuccess       = "Inicio de sesión exitoso."
	MsgInvalidCredentials = "Credenciales inválidas."
	MsgLogout             = "Sesión cerrada correctamente."
	MsgTryAgain           = "Ocurrió un error inesperado. Intenta nuevamente."
)

type AuthHandler struct {
	auth    auth.Authenticator
	tokens  auth.TokenService
	cookies middleware.SessionCookies
	pages   *Pages
	logger  *slog.Logger
}

func NewAuthHandler(authenticator auth.Authenticator, tokens auth.TokenService, cookies middleware.SessionCookies, pages *Pages, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:    authenticator,
		tokens:  tokens,
		cookies: cookies,
		pages:   pages,
		logger:  logger,
	}
}

// Index is the landing page with the login and registration forms.
func (h *AuthHandler) Index(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUser(r.Context()) != nil {
		http.Redirect(w, r, homeFor(middleware.IsAdmin(r.Context())), http.StatusSeeOther)
		return
	}
	h.pages.Render(w, r, "home.html", "Convocatoria C4P 2026 | CMC", map[string]any{
		"Venues":       models.Venues,
		"SupportEmail": supportEmail,
	})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	result, err := h.auth.Register(r.Context(), auth.RegisterInput{
		FullName: r.FormValue("full_name"),
		Email:    r.FormValue("email"),
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingFields):
			middleware.Redirect(w, r, "/", middleware.Error(MsgRegisterMissing))
		case errors.Is(err, auth.ErrInvalidEmail):
			middleware.Redirect(w, r, "/", middleware.Error(MsgRegisterInvalid))
		case errors.Is(err, auth.ErrDuplicateEmail):
			middleware.Redirect(w, r, "/", middleware.Error(MsgRegisterDuplicate))
		default:
			h.logger.Error("registration failed", "error", err)
			middleware.Redirect(w, r, "/", middleware.Error(MsgTryAgain))
		}
		return
	}

	if !h.startSession(w, r, result.User) {
		return
	}

	h.logger.Info("candidate registered", "user_id", result.User.ID)
	middleware.Redirect(w, r, "/profile", middleware.Flash{
		Category:  middleware.FlashSuccess,
		Message:   MsgRegisterSuccess,
		Highlight: result.Password,
		Trailer:   MsgRegisterTrailer,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Login(r.Context(), auth.LoginInput{
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	})
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.Error("login failed", "error", err)
		}
		middleware.Redirect(w, r, "/", middleware.Error(MsgInvalidCredentials))
		return
	}

	if !h.startSession(w, r, user) {
		return
	}

	if h.auth.IsAdmin(user) {
		middleware.Redirect(w, r, "/admin/proposals", middleware.Success(MsgLoginAdmin))
		return
	}
	middleware.Redirect(w, r, "/profile", middleware.Success(MsgLoginSuccess))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	middleware.Redirect(w, r, "/", middleware.Success(MsgLogout))
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *models.User) bool {
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("issuing session", "user_id", user.ID, "error", err)
		middleware.Redirect(w, r, "/", middleware.Error(MsgTryAgain))
		return false
	}
	h.cookies.Set(w, token)
	return true
}

func homeFor(admin bool) string {
	if admin {
		return "/admin/proposals"
	}
	return "/profile"
}
