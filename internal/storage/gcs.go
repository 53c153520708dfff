package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/hugh/c4p-portal/pkg/config"
	"google.golang.org/api/option"
)

// GCS uploads to a Google Cloud Storage bucket.
type GCS struct {
	client  *gcs.Client
	bucket  string
	baseURL string
}

func NewGCS(ctx context.Context, cfg config.GCSConfig) (*GCS, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("GCS_BUCKET is not configured")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}

	return &GCS{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: gcsBaseURL(cfg),
	}, nil
}

func gcsBaseURL(cfg config.GCSConfig) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	}
	return "https://storage.googleapis.com/" + cfg.Bucket
}

func (g *GCS) Upload(ctx context.Context, f File, folder string) (string, error) {
	key := ObjectKey(folder, f.Name)

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = mime.TypeByExtension(filepath.Ext(key))

	if _, err := io.Copy(w, f.Reader); err != nil {
		_ = w.Close()
		return "", uploadError("gcs", err)
	}
	if err := w.Close(); err != nil {
		return "", uploadError("gcs", err)
	}

	return g.baseURL + "/" + key, nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
