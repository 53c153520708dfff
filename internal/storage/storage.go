package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/hugh/c4p-portal/pkg/config"
)

var ErrUploadFailed = errors.New("upload failed")

// Remote folders.
const (
	FolderProfileCV     = "c4p/profiles/cv"
	FolderProfilePhotos = "c4p/profiles/photos"
	FolderProposalDocs  = "c4p/proposals/docs"
	FolderMigrationCV   = "c4p/migration/cv"
	FolderMigrationDocs = "c4p/migration/proposals"
)

// File is an upload in flight. Size is the byte count the caller already
// validated.
type File struct {
	Name   string
	Size   int64
	Reader io.Reader
}

// Uploader stores a file under folder and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, f File, folder string) (string, error)
}

// New returns the uploader selected by cfg.Provider.
func New(ctx context.Context, cfg *config.StorageConfig) (Uploader, error) {
	switch cfg.Provider {
	case "", "cloudinary":
		return NewCloudinary(cfg.Cloudinary)
	case "s3":
		return NewS3(ctx, cfg.S3)
	case "gcs":
		return NewGCS(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unsupported storage provider %q", cfg.Provider)
	}
}

// PublicID derives a unique, URL-safe object name from the original
// filename, without extension.
func PublicID(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '.':
			b.WriteRune('_')
		}
	}

	slug := strings.Trim(b.String(), "_-")
	if len(slug) > 60 {
		slug = slug[:60]
	}
	if slug == "" {
		slug = "file"
	}
	return slug + "_" + uuid.New().String()[:8]
}

// ObjectKey is the full object path for providers addressed by key.
func ObjectKey(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return strings.Trim(folder, "/") + "/" + PublicID(filename) + ext
}

func uploadError(provider string, err error) error {
	return fmt.Errorf("%s: %v: %w", provider, err, ErrUploadFailed)
}

// Put uploads f and treats an empty URL as a failed upload.
func Put(ctx context.Context, u Uploader, f File, folder string) (string, error) {
	url, err := u.Upload(ctx, f, folder)
	if err != nil {
		if errors.Is(err, ErrUploadFailed) {
			return "", err
		}
		return "", uploadError("upload", err)
	}
	if url == "" {
		return "", fmt.Errorf("%s: empty url: %w", folder, ErrUploadFailed)
	}
	return url, nil
}
