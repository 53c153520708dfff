package candidates

import (
	"context"
	"errors"
	"fmt"

	"github.com/hugh/c4p-portal/internal/api/validation"
	"github.com/hugh/c4p-portal/internal/database/models"
	"github.com/hugh/c4p-portal/internal/storage"
	"gorm.io/gorm"
)

var (
	ErrIncompleteProfile = errors.New("profile requires cv and photo")
	ErrMissingCV         = fmt.Errorf("cv: %w", ErrIncompleteProfile)
	ErrMissingPhoto      = fmt.Errorf("photo: %w", ErrIncompleteProfile)
	ErrUserNotFound      = errors.New("user not found")
)

// Countries offered by the profile form.
var Countries = []string{
	"Argentina", "Bolivia", "Chile", "Colombia", "Costa Rica", "Cuba",
	"Ecuador", "El Salvador", "España", "Guatemala", "Honduras", "México",
	"Nicaragua", "Panamá", "Paraguay", "Perú", "Puerto Rico",
	"República Dominicana", "Uruguay", "Venezuela",
}

// ActionFields offered by the profile form.
var ActionFields = []string{"Consultor /Proveedor", "Usuario"}

type Service struct {
	db       *gorm.DB
	uploader storage.Uploader
}

func NewService(db *gorm.DB, uploader storage.Uploader) *Service {
	return &Service{db: db, uploader: uploader}
}

// ProfileInput is the text part of a profile save.
type ProfileInput struct {
	FullName           string
	Phone              string
	Country            string
	LinkedInURL        string
	Certifications     string
	CompanyName        string
	CompanyDescription string
	CompanyWebsite     string
	Position           string
	ActionField        string
	SpeakerExperience  string
}

// CandidateView is the committee's read-only view of one candidate.
type CandidateView struct {
	User      models.User
	Profile   models.Profile
	Proposals []models.Proposal
}

// GetProfile returns the user's profile, or an unsaved empty one.
func (s *Service) GetProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Profile{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	return &profile, nil
}

// HasProfile reports whether a profile row exists for the user.
func (s *Service) HasProfile(ctx context.Context, userID uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Profile{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking profile: %w", err)
	}
	return count > 0, nil
}

// SaveProfile validates and uploads the attached files, then writes the
// user's name and profile in one transaction. A nil or unnamed file counts
// as not attached. Nothing is committed unless the resulting profile holds
// both a CV and a photo.
func (s *Service) SaveProfile(ctx context.Context, user *models.User, input ProfileInput, cv, photo *storage.File) (*models.Profile, error) {
	cvAttached := attached(cv)
	photoAttached := attached(photo)

	if cvAttached {
		if err := validation.CheckExtension(validation.CategoryCV, cv.Name); err != nil {
			return nil, err
		}
	}
	if photoAttached {
		if err := validation.CheckExtension(validation.CategoryPhoto, photo.Name); err != nil {
			return nil, err
		}
	}

	if cvAttached {
		if err := validation.CheckSize(validation.CategoryCV, cv.Size); err != nil {
			return nil, err
		}
	}
	// the photo part is always checked; an absent one weighs nothing
	if err := validation.CheckSize(validation.CategoryPhoto, sizeOf(photo)); err != nil {
		return nil, err
	}

	var cvURL, photoURL string
	var err error
	if cvAttached {
		if cvURL, err = storage.Put(ctx, s.uploader, *cv, storage.FolderProfileCV); err != nil {
			return nil, &validation.FileError{Category: validation.CategoryCV, Err: err}
		}
	}
	if photoAttached {
		if photoURL, err = storage.Put(ctx, s.uploader, *photo, storage.FolderProfilePhotos); err != nil {
			return nil, &validation.FileError{Category: validation.CategoryPhoto, Err: err}
		}
	}

	var profile models.Profile
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", user.ID).First(&profile).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			profile = models.Profile{UserID: user.ID}
		} else if err != nil {
			return fmt.Errorf("loading profile: %w", err)
		}

		input.apply(&profile)
		if cvURL != "" {
			profile.CVURL = cvURL
		}
		if photoURL != "" {
			profile.PhotoURL = photoURL
		}

		if !profile.Complete() {
			if profile.CVURL == "" {
				return ErrMissingCV
			}
			return ErrMissingPhoto
		}

		if name := clean(input.FullName, 100); name != "" && name != user.FullName {
			if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update("full_name", name).Error; err != nil {
				return fmt.Errorf("updating name: %w", err)
			}
			user.FullName = name
		}

		if err := tx.Save(&profile).Error; err != nil {
			return fmt.Errorf("saving profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	user.Profile = &profile
	return &profile, nil
}

// Candidate loads a user with profile and proposals, newest proposal first.
func (s *Service) Candidate(ctx context.Context, userID uint) (*CandidateView, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}

	profile, err := s.GetProfile(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	var proposals []models.Proposal
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Order("id DESC").
		Find(&proposals).Error; err != nil {
		return nil, fmt.Errorf("loading proposals: %w", err)
	}

	return &CandidateView{User: user, Profile: *profile, Proposals: proposals}, nil
}

func (in ProfileInput) apply(p *models.Profile) {
	p.Phone = clean(in.Phone, 20)
	p.Country = clean(in.Country, 50)
	p.LinkedInURL = clean(in.LinkedInURL, 255)
	p.Certifications = validation.SanitizeString(in.Certifications)
	p.CompanyName = clean(in.CompanyName, 100)
	p.CompanyDescription = validation.SanitizeString(in.CompanyDescription)
	p.CompanyWebsite = clean(in.CompanyWebsite, 255)
	p.Position = clean(in.Position, 100)
	p.ActionField = clean(in.ActionField, 100)
	p.SpeakerExperience = validation.SanitizeString(in.SpeakerExperience)
}

func clean(s string, max int) string {
	return validation.TruncateString(validation.SanitizeString(s), max)
}

func attached(f *storage.File) bool {
	return f != nil && f.Name != ""
}

func sizeOf(f *storage.File) int64 {
	if f == nil {
		return 0
	}
	return f.Size
}
