package models

// Profile is the candidate's personal and professional record, one per user.
type Profile struct {
	Base
	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`

	// Personal
	Phone       string `gorm:"size:20" json:"phone"`
	Country     string `gorm:"size:50" json:"country"`
	LinkedInURL string `gorm:"column:linkedin_url;size:255" json:"linkedin_url"`

	CVURL    string `gorm:"column:cv_url;size:255" json:"cv_url"`
	PhotoURL string `gorm:"column:photo_url;size:255" json:"photo_url"`

	Certifications string `gorm:"type:text" json:"certifications"`

	// Company
	CompanyName        string `gorm:"size:100" json:"company_name"`
	CompanyDescription string `gorm:"type:text" json:"company_description"`
	CompanyWebsite     string `gorm:"size:255" json:"company_website"`
	Position           string `gorm:"size:100" json:"position"`

	ActionField       string `gorm:"size:100" json:"action_field"`
	SpeakerExperience string `gorm:"type:text" json:"speaker_experience"`
}

func (Profile) TableName() string {
	return "profiles"
}

// Complete reports whether both required documents are on file.
func (p *Profile) Complete() bool {
	return p.CVURL != "" && p.PhotoURL != ""
}
