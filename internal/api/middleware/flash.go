package middleware

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const flashCookieName = "flash"

type flashSecureKey struct{}

// Flashes marks flash cookies written during the request as Secure when
// secure is set.
func Flashes(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), flashSecureKey{}, secure)))
		})
	}
}

func flashCookie(r *http.Request, value string, maxAge int) *http.Cookie {
	secure, _ := r.Context().Value(flashSecureKey{}).(bool)
	return &http.Cookie{
		Name:     flashCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Flash categories
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot message shown on the next rendered page. Highlight is
// rendered emphasized between Message and Trailer.
type Flash struct {
	Category  string `json:"c"`
	Message   string `json:"m"`
	Highlight string `json:"h,omitempty"`
	Trailer   string `json:"t,omitempty"`
}

func Success(msg string) Flash {
	return Flash{Category: FlashSuccess, Message: msg}
}

func Error(msg string) Flash {
	return Flash{Category: FlashError, Message: msg}
}

// IsSuccess is used by templates to pick the message colour.
func (f Flash) IsSuccess() bool {
	return f.Category == FlashSuccess
}

// SetFlash stores flashes for the next request.
func SetFlash(w http.ResponseWriter, r *http.Request, flashes ...Flash) {
	data, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	http.SetCookie(w, flashCookie(r, base64.RawURLEncoding.EncodeToString(data), 0))
}

// PopFlashes returns pending flashes and clears them.
func PopFlashes(w http.ResponseWriter, r *http.Request) []Flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	http.SetCookie(w, flashCookie(r, "", -1))

	data, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(data, &flashes); err != nil {
		return nil
	}
	return flashes
}

// Redirect sets flashes and sends a 303 to target.
func Redirect(w http.ResponseWriter, r *http.Request, target string, flashes ...Flash) {
	if len(flashes) > 0 {
		SetFlash(w, r, flashes...)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
