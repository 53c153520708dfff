package models

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrUnknownVenue  = errors.New("unknown venue")
	ErrUnknownStatus = errors.New("unknown status")
)

type Venue string

const (
	VenueCartagena Venue = "Colombia, Cartagena"
	VenueMonterrey Venue = "México, Monterrey"
	VenueSantiago  Venue = "Chile, Santiago"
)

// Venues lists the venues in board order.
var Venues = []Venue{VenueCartagena, VenueMonterrey, VenueSantiago}

// ParseVenue accepts only the known venues.
func ParseVenue(s string) (Venue, error) {
	v := Venue(strings.TrimSpace(s))
	switch v {
	case VenueCartagena, VenueMonterrey, VenueSantiago:
		return v, nil
	}
	return "", ErrUnknownVenue
}

// Rank is the venue's position on the admin board. Legacy rows with any
// other venue sort last.
func (v Venue) Rank() int {
	switch v {
	case VenueCartagena:
		return 1
	case VenueMonterrey:
		return 2
	case VenueSantiago:
		return 3
	default:
		return 99
	}
}

type ProposalStatus string

const (
	StatusSubmitted ProposalStatus = "Enviada"
	StatusInReview  ProposalStatus = "En revisión"
	StatusAccepted  ProposalStatus = "Aceptada"
	StatusRejected  ProposalStatus = "Rechazada"
)

// Statuses lists the statuses in the order the admin selector shows them.
var Statuses = []ProposalStatus{StatusSubmitted, StatusInReview, StatusAccepted, StatusRejected}

// ParseStatus accepts only the known statuses.
func ParseStatus(s string) (ProposalStatus, error) {
	st := ProposalStatus(strings.TrimSpace(s))
	switch st {
	case StatusSubmitted, StatusInReview, StatusAccepted, StatusRejected:
		return st, nil
	}
	return "", ErrUnknownStatus
}

// BadgeClass is the css class pair used to render the status.
func (s ProposalStatus) BadgeClass() string {
	switch s {
	case StatusSubmitted:
		return "bg-blue-100 text-blue-800"
	case StatusInReview:
		return "bg-yellow-100 text-yellow-800"
	case StatusAccepted:
		return "bg-green-100 text-green-800"
	case StatusRejected:
		return "bg-red-100 text-red-800"
	default:
		// only reachable for rows written before statuses were validated
		return "bg-gray-100 text-gray-800"
	}
}

// Placeholder values for narrative columns that older schemas declared
// NOT NULL. The uploaded document carries the real content.
const (
	PlaceholderSessionType = "DOCUMENTO"
	PlaceholderCategory    = "Documento"
	PlaceholderNarrative   = "Ver documento adjunto en 'Documento de apoyo'."
)

// Proposal is the per-venue placement of a Submission.
type Proposal struct {
	Base
	UserID       uint  `gorm:"index;not null" json:"user_id"`
	SubmissionID *uint `gorm:"index" json:"submission_id,omitempty"`

	Title                  string `gorm:"size:200;not null" json:"title"`
	SessionType            string `gorm:"size:50;not null" json:"session_type"`
	InstructionalObjective string `gorm:"type:text;not null" json:"instructional_objective"`
	DetailedProcess        string `gorm:"type:text;not null" json:"detailed_process"`
	LearningOutcome        string `gorm:"type:text;not null" json:"learning_outcome"`
	Category               string `gorm:"size:50;not null" json:"category"`

	SupportingDocURL string `gorm:"column:supporting_doc_url;size:255" json:"supporting_doc_url"`
	// VideoURL is required by older schemas; it mirrors SupportingDocURL.
	VideoURL string `gorm:"column:video_url;size:255;not null" json:"video_url"`

	Venue      Venue          `gorm:"size:50;not null;index" json:"venue"`
	Status     ProposalStatus `gorm:"size:50;default:'Enviada'" json:"status"`
	ReceivedAt *time.Time     `json:"received_at"`

	// Relationships
	User       *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Submission *Submission `gorm:"foreignKey:SubmissionID" json:"-"`
}

func (Proposal) TableName() string {
	return "proposals"
}
