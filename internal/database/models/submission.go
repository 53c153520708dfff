package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Submission is one upload sent to one or more venues. Each venue gets its
// own Proposal row (placement) so status can diverge per venue.
type Submission struct {
	Base
	Reference        uuid.UUID `gorm:"type:char(36);uniqueIndex;not null" json:"reference"`
	UserID           uint      `gorm:"index;not null" json:"user_id"`
	Title            string    `gorm:"size:200;not null" json:"title"`
	OriginalFilename string    `gorm:"size:255" json:"original_filename"`
	DocumentURL      string    `gorm:"size:255;not null" json:"document_url"`
	SubmittedAt      time.Time `gorm:"not null" json:"submitted_at"`

	Placements []Proposal `gorm:"foreignKey:SubmissionID" json:"placements,omitempty"`
}

func (Submission) TableName() string {
	return "submissions"
}

func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.Reference == uuid.Nil {
		s.Reference = uuid.New()
	}
	return nil
}
