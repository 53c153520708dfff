package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hugh/c4p-portal/internal/api/middleware"
	"github.com/hugh/c4p-portal/internal/api/validation"
	"github.com/hugh/c4p-portal/internal/candidates"
	"github.com/hugh/c4p-portal/internal/storage"
)

const (
	MsgProfileLoginRequired = "Debe iniciar sesión para acceder a su perfil."
	MsgProfileSaved         = "¡Perfil actualizado exitosamente!"
	MsgCVInvalid            = "CV inválido. Formatos permitidos: PDF, DOC, DOCX."
	MsgCVUploadFailed       = "Error al subir el CV."
	MsgCVTooLarge           = "El CV no debe exceder 5 MB."
	MsgCVMissing            = "Por favor sube tu CV (obligatorio)."
	MsgPhotoInvalid         = "Foto inválida. Formatos permitidos: JPG, JPEG, PNG."
	MsgPhotoUploadFailed    = "Error al subir la foto."
	MsgPhotoTooLarge        = "La foto no debe exceder 3 MB."
	MsgPhotoMissing         = "Por favor sube tu Foto profesional (obligatorio)."
)

type ProfileHandler struct {
	candidates *candidates.Service
	pages      *Pages
	logger     *slog.Logger
}

func NewProfileHandler(candidates *candidates.Service, pages *Pages, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{candidates: candidates, pages: pages, logger: logger}
}

func (h *ProfileHandler) Show(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	profile, err := h.candidates.GetProfile(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("loading profile", "user_id", user.ID, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.pages.Render(w, r, "profile.html", "Mi perfil | C4P CMC", map[string]any{
		"Profile":      profile,
		"Countries":    candidates.Countries,
		"ActionFields": candidates.ActionFields,
	})
}

func (h *ProfileHandler) Save(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	cv, closeCV, err := formFile(r, "cv_file")
	defer closeCV()
	if err != nil {
		h.logger.Warn("reading cv part", "user_id", user.ID, "error", err)
		middleware.Redirect(w, r, "/profile", middleware.Error(MsgCVUploadFailed))
		return
	}
	photo, closePhoto, err := formFile(r, "photo_file")
	defer closePhoto()
	if err != nil {
		h.logger.Warn("reading photo part", "user_id", user.ID, "error", err)
		middleware.Redirect(w, r, "/profile", middleware.Error(MsgPhotoUploadFailed))
		return
	}

	input := candidates.ProfileInput{
		FullName:           r.FormValue("full_name"),
		Phone:              r.FormValue("phone"),
		Country:            r.FormValue("country"),
		LinkedInURL:        r.FormValue("linkedin_url"),
		Certifications:     r.FormValue("certifications"),
		CompanyName:        r.FormValue("company_name"),
		CompanyDescription: r.FormValue("company_description"),
		CompanyWebsite:     r.FormValue("company_website"),
		Position:           r.FormValue("position"),
		ActionField:        r.FormValue("action_field"),
		SpeakerExperience:  r.FormValue("speaker_experience"),
	}

	if _, err := h.candidates.SaveProfile(r.Context(), user, input, cv, photo); err != nil {
		msg := profileErrorMessage(err)
		if msg == MsgTryAgain || errors.Is(err, storage.ErrUploadFailed) {
			h.logger.Error("saving profile", "user_id", user.ID, "error", err)
		}
		middleware.Redirect(w, r, "/profile", middleware.Error(msg))
		return
	}

	h.logger.Info("profile saved", "user_id", user.ID)
	middleware.Redirect(w, r, "/submit", middleware.Success(MsgProfileSaved))
}

func profileErrorMessage(err error) string {
	switch {
	case errors.Is(err, candidates.ErrMissingCV):
		return MsgCVMissing
	case errors.Is(err, candidates.ErrMissingPhoto):
		return MsgPhotoMissing
	}

	category, ok := validation.CategoryOf(err)
	if !ok {
		return MsgTryAgain
	}
	photo := category == validation.CategoryPhoto

	switch {
	case errors.Is(err, validation.ErrInvalidFileType):
		return pick(photo, MsgPhotoInvalid, MsgCVInvalid)
	case errors.Is(err, validation.ErrFileTooLarge):
		return pick(photo, MsgPhotoTooLarge, MsgCVTooLarge)
	case errors.Is(err, storage.ErrUploadFailed):
		return pick(photo, MsgPhotoUploadFailed, MsgCVUploadFailed)
	default:
		return MsgTryAgain
	}
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
