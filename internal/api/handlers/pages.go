package handlers

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/hugh/c4p-portal/internal/api/middleware"
	"github.com/hugh/c4p-portal/internal/database/models"
)

// Renderer executes a named page template.
type Renderer interface {
	ExecuteTemplate(w io.Writer, name string, data any) error
}

// Pages renders the embedded page templates with the per-request layout
// data: current user, pending flashes and the form CSRF token.
type Pages struct {
	templates Renderer
	logger    *slog.Logger
}

func NewPages(templates Renderer, logger *slog.Logger) *Pages {
	return &Pages{templates: templates, logger: logger}
}

// Page is the data every template receives.
type Page struct {
	Title     string
	User      *models.User
	IsAdmin   bool
	Flashes   []middleware.Flash
	CSRFToken string
	Data      any
}

func (p *Pages) Render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	if p.templates == nil {
		http.Error(w, "Templates not loaded", http.StatusInternalServerError)
		return
	}

	page := Page{
		Title:     title,
		User:      middleware.GetUser(r.Context()),
		IsAdmin:   middleware.IsAdmin(r.Context()),
		Flashes:   middleware.PopFlashes(w, r),
		CSRFToken: middleware.GetCSRFToken(r.Context()),
		Data:      data,
	}

	var buf bytes.Buffer
	if err := p.templates.ExecuteTemplate(&buf, name, page); err != nil {
		p.logger.Error("rendering template", "template", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
