package cloudinary

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"

	"github.com/noah-isme/bookeval-api/pkg/blob"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Store implements blob.Store using Cloudinary raw and image assets.
type Store struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

var _ blob.Store = (*Store)(nil)

// New constructs a Cloudinary backed store.
func New(cfg Config, logger zerolog.Logger) (*Store, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Store{
		client: cld,
		folder: cfg.Folder,
		logger: logger.With().Str("component", "cloudinary_store").Logger(),
	}, nil
}

// Put uploads the file and returns its secure URL as the file reference.
func (s *Store) Put(ctx context.Context, data []byte, meta blob.Metadata) (string, error) {
	result, err := s.client.Upload.Upload(ctx, bytes.NewReader(data), uploadParams(s.folder, meta))
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload asset: %s", result.Error.Message)
	}

	s.logger.Debug().Str("public_id", result.PublicID).Str("user_id", meta.UserID).Msg("upload stored")
	return result.SecureURL, nil
}

func uploadParams(folder string, meta blob.Metadata) uploader.UploadParams {
	return uploader.UploadParams{
		Folder:       strings.Trim(folder, "/"),
		PublicID:     publicID(meta),
		ResourceType: "auto",
		Context: api.CldAPIMap{
			"filename":     meta.Filename,
			"content_type": meta.ContentType,
			"user_id":      meta.UserID,
			"uploaded_at":  meta.UploadedAt.UTC().Format(time.RFC3339),
		},
	}
}

// publicID reuses the object key layout without the extension, which Cloudinary appends itself.
func publicID(meta blob.Metadata) string {
	key := blob.ObjectKey(meta)
	return strings.TrimSuffix(key, filepath.Ext(key))
}
