package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/hugh/c4p-portal/internal/database/models"
	"github.com/hugh/c4p-portal/internal/storage"
	"gorm.io/gorm"
)

// Enqueuer is the part of *asynq.Client the sweep needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Handler struct {
	db         *gorm.DB
	logger     *slog.Logger
	uploader   storage.Uploader
	client     Enqueuer
	uploadsDir string
}

func NewHandler(db *gorm.DB, logger *slog.Logger, uploader storage.Uploader, client Enqueuer, uploadsDir string) *Handler {
	return &Handler{
		db:         db,
		logger:     logger,
		uploader:   uploader,
		client:     client,
		uploadsDir: uploadsDir,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeLegacySweep, h.HandleLegacySweep)
	mux.HandleFunc(TypeMigrateProfileCV, h.HandleMigrateProfileCV)
	mux.HandleFunc(TypeMigrateProposalDoc, h.HandleMigrateProposalDoc)
	mux.HandleFunc(TypeClearLegacy, h.HandleClearLegacy)
}

func legacyLike() string {
	return LegacyPrefix + "%"
}

// HandleLegacySweep enqueues one migration per row still pointing at a
// local upload.
func (h *Handler) HandleLegacySweep(ctx context.Context, t *asynq.Task) error {
	var profileIDs, proposalIDs []uint

	if err := h.db.WithContext(ctx).Model(&models.Profile{}).
		Where("cv_url LIKE ?", legacyLike()).
		Pluck("id", &profileIDs).Error; err != nil {
		return fmt.Errorf("finding legacy cvs: %w", err)
	}
	if err := h.db.WithContext(ctx).Model(&models.Proposal{}).
		Where("supporting_doc_url LIKE ?", legacyLike()).
		Pluck("id", &proposalIDs).Error; err != nil {
		return fmt.Errorf("finding legacy documents: %w", err)
	}

	h.logger.Info("legacy sweep", "profiles", len(profileIDs), "proposals", len(proposalIDs))

	for _, id := range profileIDs {
		task, err := NewMigrateProfileCVTask(MigrateProfileCVPayload{ProfileID: id})
		if err != nil {
			return err
		}
		if err := h.enqueue(ctx, task); err != nil {
			return err
		}
	}

	for _, id := range proposalIDs {
		task, err := NewMigrateProposalDocTask(MigrateProposalDocPayload{ProposalID: id})
		if err != nil {
			return err
		}
		if err := h.enqueue(ctx, task); err != nil {
			return err
		}
	}

	return nil
}

func (h *Handler) enqueue(ctx context.Context, task *asynq.Task) error {
	_, err := h.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	return nil
}

func (h *Handler) HandleMigrateProfileCV(ctx context.Context, t *asynq.Task) error {
	var payload MigrateProfileCVPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	var profile models.Profile
	if err := h.db.WithContext(ctx).First(&profile, payload.ProfileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.logger.Warn("profile gone, skipping", "profile_id", payload.ProfileID)
			return nil
		}
		return err
	}

	return h.migrate(ctx, &models.Profile{}, profile.ID, "cv_url", profile.CVURL, storage.FolderMigrationCV)
}

func (h *Handler) HandleMigrateProposalDoc(ctx context.Context, t *asynq.Task) error {
	var payload MigrateProposalDocPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	var proposal models.Proposal
	if err := h.db.WithContext(ctx).First(&proposal, payload.ProposalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.logger.Warn("proposal gone, skipping", "proposal_id", payload.ProposalID)
			return nil
		}
		return err
	}

	return h.migrate(ctx, &models.Proposal{}, proposal.ID, "supporting_doc_url", proposal.SupportingDocURL, storage.FolderMigrationDocs)
}

// migrate uploads the local file behind current and swaps the column to
// the remote URL, unless the column changed in the meantime.
func (h *Handler) migrate(ctx context.Context, model interface{}, id uint, column, current, folder string) error {
	if !strings.HasPrefix(current, LegacyPrefix) {
		h.logger.Debug("already migrated", "column", column, "id", id)
		return nil
	}

	path, err := h.localPath(current)
	if err != nil {
		h.logger.Warn("skipping unsafe legacy path", "column", column, "id", id, "url", current)
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			h.logger.Warn("legacy file missing, skipping", "column", column, "id", id, "path", path)
			return nil
		}
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	url, err := storage.Put(ctx, h.uploader, storage.File{
		Name:   filepath.Base(path),
		Size:   info.Size(),
		Reader: f,
	}, folder)
	if err != nil {
		return err
	}

	res := h.db.WithContext(ctx).Model(model).
		Where("id = ? AND "+column+" = ?", id, current).
		UpdateColumn(column, url)
	if res.Error != nil {
		return fmt.Errorf("updating %s: %w", column, res.Error)
	}

	h.logger.Info("migrated legacy file", "column", column, "id", id, "url", url, "updated", res.RowsAffected)
	return nil
}

// localPath maps a /uploads/... URL under the uploads root, refusing paths
// that escape it.
func (h *Handler) localPath(url string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(url, "/")))
	if rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return "", fmt.Errorf("invalid legacy path %q", url)
	}
	return filepath.Join(h.uploadsDir, rel), nil
}

// HandleClearLegacy blanks every URL still pointing at a local upload.
func (h *Handler) HandleClearLegacy(ctx context.Context, t *asynq.Task) error {
	var cleared [2]int64
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Profile{}).
			Where("cv_url LIKE ?", legacyLike()).
			UpdateColumn("cv_url", "")
		if res.Error != nil {
			return fmt.Errorf("clearing cvs: %w", res.Error)
		}
		cleared[0] = res.RowsAffected

		res = tx.Model(&models.Proposal{}).
			Where("supporting_doc_url LIKE ?", legacyLike()).
			UpdateColumn("supporting_doc_url", "")
		if res.Error != nil {
			return fmt.Errorf("clearing documents: %w", res.Error)
		}
		cleared[1] = res.RowsAffected
		return nil
	})
	if err != nil {
		return err
	}

	h.logger.Info("cleared legacy urls", "profiles", cleared[0], "proposals", cleared[1])
	return nil
}
