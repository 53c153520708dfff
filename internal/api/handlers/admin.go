package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/c4p-portal/internal/api/middleware"
	"github.com/hugh/c4p-portal/internal/auth"
	"github.com/hugh/c4p-portal/internal/candidates"
	"github.com/hugh/c4p-portal/internal/database/models"
	"github.com/hugh/c4p-portal/internal/proposals"
)

const (
	MsgStatusUpdated     = "Estatus actualizado correctamente."
	MsgProposalNotFound  = "Propuesta no encontrada."
	MsgInvalidAction     = "Acción inválida."
	MsgCandidateNotFound = "Candidato no encontrado."
)

type AdminHandler struct {
	proposals  *proposals.Service
	candidates *candidates.Service
	passwords  auth.PasswordLookup
	pages      *Pages
	logger     *slog.Logger
}

func NewAdminHandler(proposals *proposals.Service, candidates *candidates.Service, passwords auth.PasswordLookup, pages *Pages, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		proposals:  proposals,
		candidates: candidates,
		passwords:  passwords,
		pages:      pages,
		logger:     logger,
	}
}

func (h *AdminHandler) Board(w http.ResponseWriter, r *http.Request) {
	groups, err := h.proposals.Board(r.Context())
	if err != nil {
		h.logger.Error("loading board", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.pages.Render(w, r, "admin_proposals.html", "Propuestas recibidas | Comité Técnico", map[string]any{
		"Groups":   groups,
		"Statuses": models.Statuses,
	})
}

func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	proposal, err := h.proposals.UpdateStatus(r.Context(), r.FormValue("proposal_id"), r.FormValue("new_status"))
	switch {
	case errors.Is(err, proposals.ErrInvalidAction):
		middleware.Redirect(w, r, "/admin/proposals", middleware.Error(MsgInvalidAction))
	case errors.Is(err, proposals.ErrNotFound):
		middleware.Redirect(w, r, "/admin/proposals", middleware.Error(MsgProposalNotFound))
	case err != nil:
		h.logger.Error("updating status", "error", err)
		middleware.Redirect(w, r, "/admin/proposals", middleware.Error(MsgTryAgain))
	default:
		admin := middleware.GetUser(r.Context())
		h.logger.Info("status updated",
			"proposal_id", proposal.ID,
			"status", string(proposal.Status),
			"admin_id", admin.ID,
		)
		middleware.Redirect(w, r, "/admin/proposals", middleware.Success(MsgStatusUpdated))
	}
}

func (h *AdminHandler) Candidate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		middleware.Redirect(w, r, "/admin/proposals", middleware.Error(MsgCandidateNotFound))
		return
	}

	view, err := h.candidates.Candidate(r.Context(), uint(id))
	if errors.Is(err, candidates.ErrUserNotFound) {
		middleware.Redirect(w, r, "/admin/proposals", middleware.Error(MsgCandidateNotFound))
		return
	}
	if err != nil {
		h.logger.Error("loading candidate", "user_id", id, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.pages.Render(w, r, "admin_candidate.html", view.User.FullName+" | Comité Técnico", view)
}

func (h *AdminHandler) Passwords(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	entries, err := h.passwords.PasswordDirectory(r.Context(), q)
	if err != nil {
		h.logger.Error("loading password directory", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.pages.Render(w, r, "admin_passwords.html", "Contraseñas | Comité Técnico", map[string]any{
		"Query":   q,
		"Entries": entries,
	})
}
