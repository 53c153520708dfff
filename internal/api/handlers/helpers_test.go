package handlers_test

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/c4p-portal/internal/api/handlers"
	"github.com/hugh/c4p-portal/internal/api/middleware"
	"github.com/hugh/c4p-portal/internal/auth"
	"github.com/hugh/c4p-portal/internal/candidates"
	"github.com/hugh/c4p-portal/internal/database/models"
	"github.com/hugh/c4p-portal/internal/proposals"
	"github.com/hugh/c4p-portal/internal/storage"
	"github.com/hugh/c4p-portal/internal/testutil"
	"github.com/hugh/c4p-portal/internal/web"
	"github.com/hugh/c4p-portal/pkg/crypto"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	DB         *gorm.DB
	Enc        *crypto.Encryptor
	Auth       *auth.Service
	Sessions   *auth.SessionService
	Cookies    middleware.SessionCookies
	Uploader   *storage.Memory
	Candidates *candidates.Service
	Proposals  *proposals.Service
	Pages      *handlers.Pages
	Logger     *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	enc := testutil.NewEncryptor(t)
	uploader := storage.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	templates, err := web.LoadTemplates()
	require.NoError(t, err)

	return &testEnv{
		DB:         db,
		Enc:        enc,
		Auth:       auth.NewService(db, enc, testutil.Admins()),
		Sessions:   auth.NewSessionService(testutil.TestSecret, time.Hour),
		Cookies:    middleware.SessionCookies{MaxAge: time.Hour},
		Uploader:   uploader,
		Candidates: candidates.NewService(db, uploader),
		Proposals:  proposals.NewService(db, uploader),
		Pages:      handlers.NewPages(templates, logger),
		Logger:     logger,
	}
}

// routerAs mounts routes behind a middleware that signs in user, if any.
func routerAs(user *models.User, admin bool, mount func(r chi.Router)) *chi.Mux {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if user != nil {
				req = req.WithContext(middleware.WithUser(req.Context(), user, admin))
			}
			next.ServeHTTP(w, req)
		})
	})
	mount(r)
	return r
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

type upload struct {
	Field    string
	Filename string
	Content  []byte
}

func multipartRequest(t *testing.T, target string, values url.Values, files ...upload) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for key, vals := range values {
		for _, v := range vals {
			require.NoError(t, w.WriteField(key, v))
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.Field, f.Filename)
		require.NoError(t, err)
		_, err = part.Write(f.Content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

// flashes decodes the flash cookie a response set.
func flashes(rr *httptest.ResponseRecorder) []middleware.Flash {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
	return middleware.PopFlashes(httptest.NewRecorder(), req)
}

func cookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func sized(n int) []byte {
	return bytes.Repeat([]byte("a"), n)
}
