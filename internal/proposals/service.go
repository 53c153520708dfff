package proposals

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hugh/c4p-portal/internal/api/validation"
	"github.com/hugh/c4p-portal/internal/database/models"
	"github.com/hugh/c4p-portal/internal/storage"
	"gorm.io/gorm"
)

var (
	ErrProfileRequired = errors.New("profile required before submitting")
	ErrMissingFile     = errors.New("proposal file is required")
	ErrNoVenueSelected = errors.New("at least one venue is required")
	ErrUnknownVenue    = models.ErrUnknownVenue
	ErrInvalidAction   = errors.New("invalid action")
	ErrNotFound        = errors.New("proposal not found")
)

// DefaultTitle is used when the filename yields no title.
const DefaultTitle = "Propuesta en documento"

type Service struct {
	db       *gorm.DB
	uploader storage.Uploader
	now      func() time.Time
}

func NewService(db *gorm.DB, uploader storage.Uploader) *Service {
	return &Service{db: db, uploader: uploader, now: time.Now}
}

// VenueGroup is a run of board rows sharing one venue.
type VenueGroup struct {
	Venue     models.Venue
	Proposals []models.Proposal
}

// TitleFromFilename strips the extension, turns underscores into spaces and
// trims the result.
func TitleFromFilename(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	title := strings.TrimSpace(strings.ReplaceAll(base, "_", " "))
	if title == "" || title == "." {
		return DefaultTitle
	}
	return validation.TruncateString(title, 200)
}

// Submit uploads the document once and places it at every distinct selected
// venue. All checks run before anything is uploaded.
func (s *Service) Submit(ctx context.Context, user *models.User, file *storage.File, venueNames []string) (*models.Submission, error) {
	var profiles int64
	if err := s.db.WithContext(ctx).Model(&models.Profile{}).Where("user_id = ?", user.ID).Count(&profiles).Error; err != nil {
		return nil, fmt.Errorf("checking profile: %w", err)
	}
	if profiles == 0 {
		return nil, ErrProfileRequired
	}

	if file == nil || file.Name == "" {
		return nil, ErrMissingFile
	}
	if err := validation.CheckExtension(validation.CategoryProposal, file.Name); err != nil {
		return nil, err
	}

	venues, err := distinctVenues(venueNames)
	if err != nil {
		return nil, err
	}

	if err := validation.CheckSize(validation.CategoryProposal, file.Size); err != nil {
		return nil, err
	}

	url, err := storage.Put(ctx, s.uploader, *file, storage.FolderProposalDocs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	title := TitleFromFilename(file.Name)

	submission := &models.Submission{
		UserID:           user.ID,
		Title:            title,
		OriginalFilename: validation.TruncateString(filepath.Base(file.Name), 255),
		DocumentURL:      url,
		SubmittedAt:      now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(submission).Error; err != nil {
			return fmt.Errorf("creating submission: %w", err)
		}

		placements := make([]models.Proposal, 0, len(venues))
		for _, venue := range venues {
			placements = append(placements, newPlacement(user.ID, submission, venue, now))
		}
		if err := tx.Create(&placements).Error; err != nil {
			return fmt.Errorf("creating placements: %w", err)
		}
		submission.Placements = placements
		return nil
	})
	if err != nil {
		return nil, err
	}

	return submission, nil
}

func newPlacement(userID uint, sub *models.Submission, venue models.Venue, receivedAt time.Time) models.Proposal {
	subID := sub.ID
	at := receivedAt
	return models.Proposal{
		UserID:                 userID,
		SubmissionID:           &subID,
		Title:                  sub.Title,
		SessionType:            models.PlaceholderSessionType,
		InstructionalObjective: models.PlaceholderNarrative,
		DetailedProcess:        models.PlaceholderNarrative,
		LearningOutcome:        models.PlaceholderNarrative,
		Category:               models.PlaceholderCategory,
		SupportingDocURL:       sub.DocumentURL,
		VideoURL:               sub.DocumentURL,
		Venue:                  venue,
		Status:                 models.StatusSubmitted,
		ReceivedAt:             &at,
	}
}

// distinctVenues parses the selection, dropping repeats and keeping the
// order of first appearance.
func distinctVenues(names []string) ([]models.Venue, error) {
	var out []models.Venue
	seen := make(map[models.Venue]bool)
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		v, err := models.ParseVenue(name)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", name, err)
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoVenueSelected
	}
	return out, nil
}

// ListForUser returns the user's placements, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uint) ([]models.Proposal, error) {
	var proposals []models.Proposal
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&proposals).Error; err != nil {
		return nil, fmt.Errorf("listing proposals: %w", err)
	}
	return proposals, nil
}

// Board returns every placement with its owner, ordered by venue rank, then
// newest received first, then highest id, and grouped by consecutive venue.
func (s *Service) Board(ctx context.Context) ([]VenueGroup, error) {
	var proposals []models.Proposal
	if err := s.db.WithContext(ctx).
		Joins("User").
		Find(&proposals).Error; err != nil {
		return nil, fmt.Errorf("loading board: %w", err)
	}

	SortBoard(proposals)
	return GroupByVenue(proposals), nil
}

// SortBoard orders placements for the board. Rows without a received time
// sort after dated rows of the same venue.
func SortBoard(proposals []models.Proposal) {
	sort.SliceStable(proposals, func(i, j int) bool {
		a, b := proposals[i], proposals[j]
		if ra, rb := a.Venue.Rank(), b.Venue.Rank(); ra != rb {
			return ra < rb
		}
		switch {
		case a.ReceivedAt != nil && b.ReceivedAt == nil:
			return true
		case a.ReceivedAt == nil && b.ReceivedAt != nil:
			return false
		case a.ReceivedAt != nil && !a.ReceivedAt.Equal(*b.ReceivedAt):
			return a.ReceivedAt.After(*b.ReceivedAt)
		}
		return a.ID > b.ID
	})
}

// GroupByVenue splits sorted placements at every venue change.
func GroupByVenue(proposals []models.Proposal) []VenueGroup {
	var groups []VenueGroup
	for _, p := range proposals {
		if n := len(groups); n > 0 && groups[n-1].Venue == p.Venue {
			groups[n-1].Proposals = append(groups[n-1].Proposals, p)
			continue
		}
		groups = append(groups, VenueGroup{Venue: p.Venue, Proposals: []models.Proposal{p}})
	}
	return groups
}

// UpdateStatus sets a placement's status. Concurrent updates are last write
// wins.
func (s *Service) UpdateStatus(ctx context.Context, idText, statusText string) (*models.Proposal, error) {
	idText = strings.TrimSpace(idText)
	if idText == "" || strings.TrimSpace(statusText) == "" {
		return nil, ErrInvalidAction
	}

	id, err := strconv.ParseUint(idText, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("proposal id %q: %w", idText, ErrInvalidAction)
	}

	status, err := models.ParseStatus(statusText)
	if err != nil {
		return nil, fmt.Errorf("status %q: %w", statusText, ErrInvalidAction)
	}

	var proposal models.Proposal
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&proposal, uint(id)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("loading proposal: %w", err)
		}
		return tx.Model(&proposal).Update("status", status).Error
	})
	if err != nil {
		return nil, err
	}

	return &proposal, nil
}
