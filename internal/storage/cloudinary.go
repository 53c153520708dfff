package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/hugh/c4p-portal/pkg/config"
)

// Cloudinary uploads through the Cloudinary upload API.
type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinary(cfg config.CloudinaryConfig) (*Cloudinary, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("cloudinary credentials are not configured")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("creating cloudinary client: %w", err)
	}
	cld.Config.URL.Secure = true

	return &Cloudinary{cld: cld}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, f File, folder string) (string, error) {
	resp, err := c.cld.Upload.Upload(ctx, f.Reader, uploader.UploadParams{
		Folder:       folder,
		PublicID:     cloudinaryPublicID(f.Name),
		ResourceType: "auto",
		Overwrite:    api.Bool(false),
	})
	if err != nil {
		return "", uploadError("cloudinary", err)
	}
	if resp.Error.Message != "" {
		return "", uploadError("cloudinary", errors.New(resp.Error.Message))
	}
	if resp.SecureURL == "" {
		return "", uploadError("cloudinary", errors.New("empty url in response"))
	}

	return resp.SecureURL, nil
}

// Extensions Cloudinary's auto resource type stores as image resources.
// Everything else becomes a raw resource, whose public id must carry the
// extension for the delivered URL to keep it.
var cloudinaryImageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".pdf": true,
}

func cloudinaryPublicID(filename string) string {
	id := PublicID(filename)
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || cloudinaryImageExts[ext] {
		return id
	}
	return id + ext
}
