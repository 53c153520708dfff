package models

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	Base
	FullName     string `gorm:"size:100;not null" json:"full_name"`
	Email        string `gorm:"size:100;uniqueIndex;not null" json:"email"` // always lowercase
	PasswordHash string `gorm:"size:255;not null" json:"-"`

	// UniquePassword is the generated login password, age-sealed. It is kept
	// so the committee can read it back for manual support recovery.
	UniquePassword string `gorm:"type:text;not null" json:"-"`

	Role Role `gorm:"size:20;default:'user'" json:"role"`

	// Relationships
	Profile   *Profile   `gorm:"foreignKey:UserID" json:"profile,omitempty"`
	Proposals []Proposal `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}
