package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hugh/c4p-portal/internal/api/validation"
	"github.com/hugh/c4p-portal/internal/database/models"
	"github.com/hugh/c4p-portal/pkg/config"
	"github.com/hugh/c4p-portal/pkg/crypto"
	"gorm.io/gorm"
)

var (
	ErrMissingFields      = errors.New("full name and email are required")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

type Service struct {
	db     *gorm.DB
	enc    *crypto.Encryptor
	admins *Admins
}

func NewService(db *gorm.DB, enc *crypto.Encryptor, admins *Admins) *Service {
	return &Service{db: db, enc: enc, admins: admins}
}

type RegisterInput struct {
	FullName string
	Email    string
}

type LoginInput struct {
	Email    string
	Password string
}

// RegisterResult carries the generated password. It is never retrievable
// from this service again, only from the committee directory.
type RegisterResult struct {
	User     *models.User
	Password string
}

// PasswordEntry is one row of the committee password directory.
type PasswordEntry struct {
	User       models.User
	Password   string
	Unreadable bool
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	name := strings.TrimSpace(input.FullName)
	email := validation.NormalizeEmail(input.Email)
	if name == "" || email == "" {
		return nil, ErrMissingFields
	}
	if !validation.IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	exists, err := s.emailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateEmail
	}

	password, err := GeneratePassword()
	if err != nil {
		return nil, fmt.Errorf("generating password: %w", err)
	}

	user, err := s.newUser(name, email, password, models.RoleUser)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		// lost a race with a concurrent registration for the same address
		if exists, _ := s.emailExists(ctx, email); exists {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return &RegisterResult{User: user, Password: password}, nil
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	email := validation.NormalizeEmail(input.Email)
	password := strings.TrimSpace(input.Password)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var user models.User
	if err := s.db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

func (s *Service) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Service) IsAdmin(user *models.User) bool {
	return user != nil && s.admins.IsAdmin(user.Email)
}

// PasswordDirectory lists non-admin users, newest first, with their stored
// password decrypted. A non-empty query filters by case-insensitive
// substring over email or full name.
func (s *Service) PasswordDirectory(ctx context.Context, query string) ([]PasswordEntry, error) {
	q := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("role <> ?", models.RoleAdmin)

	if emails := s.admins.Emails(); len(emails) > 0 {
		q = q.Where("email NOT IN ?", emails)
	}

	if term := strings.ToLower(strings.TrimSpace(query)); term != "" {
		like := "%" + term + "%"
		q = q.Where("LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?", like, like)
	}

	var users []models.User
	if err := q.Order("id DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	entries := make([]PasswordEntry, 0, len(users))
	for _, u := range users {
		entry := PasswordEntry{User: u}
		if plain, ok := s.reveal(u.UniquePassword); ok {
			entry.Password = plain
		} else {
			entry.Unreadable = true
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// reveal returns the password behind a unique_password value. Values
// written before sealing are the password itself.
func (s *Service) reveal(stored string) (string, bool) {
	if stored == "" {
		return "", false
	}
	if !crypto.IsSealed(stored) {
		return stored, true
	}
	plain, err := s.enc.Open(stored)
	if err != nil {
		return "", false
	}
	return plain, true
}

// SealLegacyPasswords seals every unique_password still stored in the
// clear and returns how many rows it rewrote.
func (s *Service) SealLegacyPasswords(ctx context.Context) (int, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).
		Select("id", "unique_password").
		Where("unique_password <> ''").
		Find(&users).Error; err != nil {
		return 0, fmt.Errorf("listing stored passwords: %w", err)
	}

	sealed := 0
	for _, u := range users {
		if crypto.IsSealed(u.UniquePassword) {
			continue
		}
		value, err := s.SealPassword(u.UniquePassword)
		if err != nil {
			return sealed, err
		}
		if err := s.db.WithContext(ctx).Model(&models.User{}).
			Where("id = ? AND unique_password = ?", u.ID, u.UniquePassword).
			UpdateColumn("unique_password", value).Error; err != nil {
			return sealed, fmt.Errorf("sealing password for user %d: %w", u.ID, err)
		}
		sealed++
	}

	return sealed, nil
}

// SealPassword encrypts a plaintext password for the unique_password column.
func (s *Service) SealPassword(password string) (string, error) {
	sealed, err := s.enc.Seal(password)
	if err != nil {
		return "", fmt.Errorf("encrypting password: %w", err)
	}
	return sealed, nil
}

func (s *Service) newUser(name, email, password string, role models.Role) (*models.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	sealed, err := s.SealPassword(password)
	if err != nil {
		return nil, err
	}

	return &models.User{
		FullName:       name,
		Email:          email,
		PasswordHash:   hash,
		UniquePassword: sealed,
		Role:           role,
	}, nil
}

func (s *Service) emailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("LOWER(email) = ?", email).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking email: %w", err)
	}
	return count > 0, nil
}

// AdminName is the display name given to seeded committee accounts.
const AdminName = "Administrador Comité Técnico"

// EnsureAdmin creates the committee account or resets its password hash,
// stored password and role. It reports whether the account was created.
func (s *Service) EnsureAdmin(ctx context.Context, account config.AdminAccount) (bool, error) {
	email := validation.NormalizeEmail(account.Email)

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		fresh, err := s.newUser(AdminName, email, account.Password, models.RoleAdmin)
		if err != nil {
			return false, err
		}
		if err := s.db.WithContext(ctx).Create(fresh).Error; err != nil {
			return false, fmt.Errorf("creating admin %s: %w", email, err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("loading admin %s: %w", email, err)
	}

	reset, err := s.newUser(user.FullName, email, account.Password, models.RoleAdmin)
	if err != nil {
		return false, err
	}

	if err := s.db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"password_hash":   reset.PasswordHash,
		"unique_password": reset.UniquePassword,
		"role":            models.RoleAdmin,
	}).Error; err != nil {
		return false, fmt.Errorf("updating admin %s: %w", email, err)
	}

	return false, nil
}
