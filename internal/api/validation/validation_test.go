package validation

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		valid bool
	}{
		{"valid_simple", "user@example.com", true},
		{"valid_subdomain", "user@mail.example.com", true},
		{"valid_plus", "user+tag@example.com", true},
		{"valid_dash", "user-name@example.com", true},
		{"valid_dot", "user.name@example.com", true},
		{"valid_short_tld", "ana@x.co", true},
		{"invalid_no_at", "userexample.com", false},
		{"invalid_no_domain", "user@", false},
		{"invalid_no_user", "@example.com", false},
		{"invalid_double_at", "user@@example.com", false},
		{"invalid_spaces", "user @example.com", false},
		{"invalid_no_tld", "user@example", false},
		{"too_long", strings.Repeat("a", 250) + "@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidEmail(tt.email)
			assert.Equal(t, tt.valid, result, "Email: %s", tt.email)
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ana@x.com", NormalizeEmail("  Ana@X.com "))
}

func TestCheckExtension(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		filename string
		valid    bool
	}{
		{"cv_pdf", CategoryCV, "cv.pdf", true},
		{"cv_doc", CategoryCV, "cv.doc", true},
		{"cv_docx_upper", CategoryCV, "CV.DOCX", true},
		{"cv_png", CategoryCV, "cv.png", false},
		{"photo_jpg", CategoryPhoto, "me.jpg", true},
		{"photo_jpeg", CategoryPhoto, "me.JPEG", true},
		{"photo_png", CategoryPhoto, "me.png", true},
		{"photo_gif", CategoryPhoto, "me.gif", false},
		{"photo_pdf", CategoryPhoto, "me.pdf", false},
		{"proposal_pdf", CategoryProposal, "Mantenimiento_Predictivo.pdf", true},
		{"proposal_exe", CategoryProposal, "talk.exe", false},
		{"no_extension", CategoryProposal, "talk", false},
		{"trailing_dot", CategoryProposal, "talk.", false},
		{"double_extension", CategoryProposal, "talk.pdf.exe", false},
		{"unknown_category", Category("video"), "clip.pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckExtension(tt.category, tt.filename)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidFileType))
			}
		})
	}
}

func TestCheckSize_Boundaries(t *testing.T) {
	tests := []struct {
		category Category
		limit    int64
	}{
		{CategoryCV, 5 * 1024 * 1024},
		{CategoryPhoto, 3 * 1024 * 1024},
		{CategoryProposal, 10 * 1024 * 1024},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			assert.Equal(t, tt.limit, tt.category.MaxBytes())
			assert.NoError(t, CheckSize(tt.category, 0))
			assert.NoError(t, CheckSize(tt.category, tt.limit))
			assert.ErrorIs(t, CheckSize(tt.category, tt.limit+1), ErrFileTooLarge)
		})
	}
}

func TestCategoryOf(t *testing.T) {
	category, ok := CategoryOf(CheckSize(CategoryPhoto, CategoryPhoto.MaxBytes()+1))
	assert.True(t, ok)
	assert.Equal(t, CategoryPhoto, category)

	category, ok = CategoryOf(fmt.Errorf("saving: %w", CheckExtension(CategoryCV, "cv.exe")))
	assert.True(t, ok)
	assert.Equal(t, CategoryCV, category)

	_, ok = CategoryOf(errors.New("other"))
	assert.False(t, ok)
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"normal_text", "Hello World", "Hello World"},
		{"trims", "  Ingeniera  ", "Ingeniera"},
		{"with_newlines", "Line1\nLine2", "Line1\nLine2"},
		{"with_tabs", "Col1\tCol2", "Col1\tCol2"},
		{"with_null", "Hello\x00World", "HelloWorld"},
		{"with_control", "Hello\x07World", "HelloWorld"},
		{"accents", "Confiabilidad y México", "Confiabilidad y México"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeString(tt.input))
		})
	}
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "Hello", TruncateString("Hello", 10))
	assert.Equal(t, "Hello", TruncateString("Hello", 5))
	assert.Equal(t, "Hel", TruncateString("Hello", 3))
	assert.Equal(t, "Méx", TruncateString("México", 3))
	assert.Equal(t, "", TruncateString("Hello", 0))
}
