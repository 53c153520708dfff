package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	ErrInvalidFileType = errors.New("file type not allowed")
	ErrFileTooLarge    = errors.New("file too large")
)

// emailRegex validates email format
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Category is an upload slot with its own extension list and size ceiling.
type Category string

const (
	CategoryCV       Category = "cv"
	CategoryPhoto    Category = "photo"
	CategoryProposal Category = "proposal"
)

const megabyte = 1024 * 1024

func (c Category) allowedExtensions() []string {
	switch c {
	case CategoryCV, CategoryProposal:
		return []string{"pdf", "doc", "docx"}
	case CategoryPhoto:
		return []string{"jpg", "jpeg", "png"}
	default:
		return nil
	}
}

// MaxBytes is the inclusive size ceiling for the category.
func (c Category) MaxBytes() int64 {
	switch c {
	case CategoryCV:
		return 5 * megabyte
	case CategoryPhoto:
		return 3 * megabyte
	case CategoryProposal:
		return 10 * megabyte
	default:
		return 0
	}
}

// Extension returns the lowercased extension without the dot, or "" when the
// name has none.
func Extension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) < 2 {
		return ""
	}
	return strings.ToLower(ext[1:])
}

// FileError ties an upload failure to the slot it happened in.
type FileError struct {
	Category Category
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// CategoryOf returns the slot named by a *FileError in err's chain.
func CategoryOf(err error) (Category, bool) {
	var fe *FileError
	if errors.As(err, &fe) {
		return fe.Category, true
	}
	return "", false
}

// CheckExtension rejects filenames whose extension is not allowed for c.
func CheckExtension(c Category, filename string) error {
	ext := Extension(filename)
	if ext != "" {
		for _, allowed := range c.allowedExtensions() {
			if ext == allowed {
				return nil
			}
		}
	}
	return &FileError{Category: c, Err: fmt.Errorf("%q: %w", filename, ErrInvalidFileType)}
}

// CheckSize rejects sizes above the category ceiling. A size equal to the
// ceiling passes.
func CheckSize(c Category, size int64) error {
	if size > c.MaxBytes() {
		return &FileError{Category: c, Err: fmt.Errorf("%d bytes, limit %d: %w", size, c.MaxBytes(), ErrFileTooLarge)}
	}
	return nil
}

// IsValidEmail checks if the string is a valid email format
func IsValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SanitizeString trims the value and removes control characters other than
// newlines and tabs.
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// TruncateString truncates s to at most maxRunes characters.
func TruncateString(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	return string([]rune(s)[:maxRunes])
}
