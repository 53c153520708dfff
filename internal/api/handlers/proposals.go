package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hugh/c4p-portal/internal/api/middleware"
	"github.com/hugh/c4p-portal/internal/api/validation"
	"github.com/hugh/c4p-portal/internal/candidates"
	"github.com/hugh/c4p-portal/internal/database/models"
	"github.com/hugh/c4p-portal/internal/proposals"
	"github.com/hugh/c4p-portal/internal/storage"
)

const (
	MsgSubmitLoginRequired    = "Debe iniciar sesión para enviar una propuesta."
	MsgProposalsLoginRequired = "Debe iniciar sesión para ver sus propuestas."
	MsgProfileRequired        = "Debe completar su perfil antes de enviar una propuesta."
	MsgProposalFileMissing    = "Debe cargar un archivo con su propuesta (PDF o Word)."
	MsgProposalFileInvalid    = "Archivo inválido. Formatos permitidos: PDF, DOC, DOCX."
	MsgNoVenue                = "Debe seleccionar al menos una sede."
	MsgUnknownVenue           = "Sede inválida."
	MsgProposalUploadFailed   = "Error al subir el archivo. Intenta nuevamente."
	MsgProposalTooLarge       = "La propuesta no debe exceder 10 MB."
)

// AssistantURL points candidates to the proposal writing assistant.
const AssistantURL = "https://zurl.co/YMAcE"

type ProposalHandler struct {
	proposals  *proposals.Service
	candidates *candidates.Service
	pages      *Pages
	logger     *slog.Logger
}

func NewProposalHandler(proposals *proposals.Service, candidates *candidates.Service, pages *Pages, logger *slog.Logger) *ProposalHandler {
	return &ProposalHandler{
		proposals:  proposals,
		candidates: candidates,
		pages:      pages,
		logger:     logger,
	}
}

func (h *ProposalHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	hasProfile, err := h.candidates.HasProfile(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("checking profile", "user_id", user.ID, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if !hasProfile {
		middleware.Redirect(w, r, "/profile", middleware.Error(MsgProfileRequired))
		return
	}

	h.pages.Render(w, r, "submit.html", "Enviar propuesta | C4P CMC", map[string]any{
		"Venues":       models.Venues,
		"AssistantURL": AssistantURL,
	})
}

func (h *ProposalHandler) Submit(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	file, closeFile, err := formFile(r, "proposal_file")
	defer closeFile()
	if err != nil {
		h.logger.Warn("reading proposal part", "user_id", user.ID, "error", err)
		middleware.Redirect(w, r, "/submit", middleware.Error(MsgProposalUploadFailed))
		return
	}

	var venues []string
	if r.MultipartForm != nil {
		venues = r.MultipartForm.Value["venues"]
	} else {
		venues = r.PostForm["venues"]
	}

	submission, err := h.proposals.Submit(r.Context(), user, file, venues)
	if err != nil {
		if errors.Is(err, proposals.ErrProfileRequired) {
			middleware.Redirect(w, r, "/profile", middleware.Error(MsgProfileRequired))
			return
		}
		msg := submitErrorMessage(err)
		if msg == MsgTryAgain || errors.Is(err, storage.ErrUploadFailed) {
			h.logger.Error("submitting proposal", "user_id", user.ID, "error", err)
		}
		middleware.Redirect(w, r, "/submit", middleware.Error(msg))
		return
	}

	h.logger.Info("proposal submitted",
		"user_id", user.ID,
		"submission", submission.Reference.String(),
		"venues", len(submission.Placements),
	)
	middleware.Redirect(w, r, "/proposals", middleware.Success(
		fmt.Sprintf("¡Propuesta \"%s\" enviada a %d sede(s) con éxito!", submission.Title, len(submission.Placements)),
	))
}

func (h *ProposalHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	list, err := h.proposals.ListForUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("listing proposals", "user_id", user.ID, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.pages.Render(w, r, "proposals.html", "Mis propuestas | C4P CMC", map[string]any{
		"Proposals": list,
	})
}

func submitErrorMessage(err error) string {
	switch {
	case errors.Is(err, proposals.ErrMissingFile):
		return MsgProposalFileMissing
	case errors.Is(err, validation.ErrInvalidFileType):
		return MsgProposalFileInvalid
	case errors.Is(err, proposals.ErrNoVenueSelected):
		return MsgNoVenue
	case errors.Is(err, proposals.ErrUnknownVenue):
		return MsgUnknownVenue
	case errors.Is(err, validation.ErrFileTooLarge):
		return MsgProposalTooLarge
	case errors.Is(err, storage.ErrUploadFailed):
		return MsgProposalUploadFailed
	default:
		return MsgTryAgain
	}
}
