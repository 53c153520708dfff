package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	csrfTokenLength = 32
	csrfCookieName  = "csrf_sid"
	csrfHeaderName  = "X-CSRF-Token"
	csrfFormField   = "csrf_token"
	csrfTokenExpiry = 24 * time.Hour
)

const (
	csrfSessionKey contextKey = "csrf_sid"
	csrfStoreKey   contextKey = "csrf_store"
)

// CSRFToken represents a CSRF token with expiry
type CSRFToken struct {
	Token     string
	ExpiresAt time.Time
}

// CSRFStore keeps one token per browser id in memory.
type CSRFStore struct {
	tokens map[string]CSRFToken
	mu     sync.RWMutex
}

// NewCSRFStore creates a new CSRF token store
func NewCSRFStore() *CSRFStore {
	store := &CSRFStore{
		tokens: make(map[string]CSRFToken),
	}

	// Start cleanup goroutine
	go store.cleanup()

	return store
}

// cleanup removes expired tokens periodically
func (s *CSRFStore) cleanup() {
	ticker := time.NewTicker(time.Hour)
	for range ticker.C {
		s.mu.Lock()
		now := time.Now()
		for sessionID, token := range s.tokens {
			if now.After(token.ExpiresAt) {
				delete(s.tokens, sessionID)
			}
		}
		s.mu.Unlock()
	}
}

// GetOrCreate returns an existing token or creates a new one
func (s *CSRFStore) GetOrCreate(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token, exists := s.tokens[sessionID]; exists {
		if time.Now().Before(token.ExpiresAt) {
			return token.Token
		}
	}

	token := randomToken()
	s.tokens[sessionID] = CSRFToken{
		Token:     token,
		ExpiresAt: time.Now().Add(csrfTokenExpiry),
	}

	return token
}

// Validate checks if the provided token is valid for the session
func (s *CSRFStore) Validate(sessionID, providedToken string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, exists := s.tokens[sessionID]
	if !exists {
		return false
	}

	if time.Now().After(token.ExpiresAt) {
		return false
	}

	// Constant-time comparison to prevent timing attacks
	return subtle.ConstantTimeCompare([]byte(token.Token), []byte(providedToken)) == 1
}

func randomToken() string {
	b := make([]byte, csrfTokenLength)
	if _, err := rand.Read(b); err != nil {
		// Fallback to less secure but functional token
		b = []byte(time.Now().String())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// CSRF binds a token to a per-browser csrf_sid cookie and requires it on
// every unsafe request, from the csrf_token form field or the X-CSRF-Token
// header.
func CSRF(store *CSRFStore, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if cookie, err := r.Cookie(csrfCookieName); err == nil {
				sessionID = cookie.Value
			}

			// Skip CSRF check for safe methods
			if r.Method == http.MethodGet ||
				r.Method == http.MethodHead ||
				r.Method == http.MethodOptions ||
				r.Method == http.MethodTrace {
				if sessionID == "" {
					sessionID = randomToken()
					http.SetCookie(w, &http.Cookie{
						Name:     csrfCookieName,
						Value:    sessionID,
						Path:     "/",
						HttpOnly: true,
						Secure:   secure,
						SameSite: http.SameSiteLaxMode,
						MaxAge:   int(csrfTokenExpiry.Seconds()),
					})
				}
				ctx := context.WithValue(r.Context(), csrfSessionKey, sessionID)
				ctx = context.WithValue(ctx, csrfStoreKey, store)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if sessionID == "" {
				http.Error(w, "Session required", http.StatusForbidden)
				return
			}

			// Get CSRF token from header or form
			csrfToken := r.Header.Get(csrfHeaderName)
			if csrfToken == "" {
				if err := parseForm(r); err != nil {
					var tooLarge *http.MaxBytesError
					if errors.As(err, &tooLarge) {
						http.Error(w, "Request too large", http.StatusRequestEntityTooLarge)
						return
					}
					http.Error(w, "Invalid form", http.StatusBadRequest)
					return
				}
				csrfToken = r.PostFormValue(csrfFormField)
			}

			if csrfToken == "" {
				http.Error(w, "CSRF token missing", http.StatusForbidden)
				return
			}

			if !store.Validate(sessionID, csrfToken) {
				http.Error(w, "Invalid CSRF token", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), csrfSessionKey, sessionID)
			ctx = context.WithValue(ctx, csrfStoreKey, store)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MultipartMemory is how much of a multipart body is held in memory before
// spilling file parts to disk.
const MultipartMemory = 32 << 20

func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(MultipartMemory)
	}
	return r.ParseForm()
}

// GetCSRFToken returns the token templates embed in forms.
func GetCSRFToken(ctx context.Context) string {
	sessionID, _ := ctx.Value(csrfSessionKey).(string)
	store, _ := ctx.Value(csrfStoreKey).(*CSRFStore)
	if sessionID == "" || store == nil {
		return ""
	}
	return store.GetOrCreate(sessionID)
}
