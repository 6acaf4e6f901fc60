package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"NoticeBoard/internal/config"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Uploader is the slice of the Cloudinary upload API the store uses.
type Uploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// Cloudinary stores notice attachments in one Cloudinary folder.
type Cloudinary struct {
	api    Uploader
	folder string
	log    *zap.Logger
}

func NewCloudinary(cfg *config.Config, log *zap.Logger) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	log.Info("Attachment store initialized", zap.String("cloud", cfg.CloudinaryCloudName), zap.String("folder", cfg.CloudinaryFolder))
	return NewCloudinaryWithUploader(&cld.Upload, cfg.CloudinaryFolder, log), nil
}

func NewCloudinaryWithUploader(api Uploader, folder string, log *zap.Logger) *Cloudinary {
	return &Cloudinary{api: api, folder: folder, log: log}
}

// Upload sends body to the store and returns its secure URL.
func (s *Cloudinary) Upload(ctx context.Context, filename string, body io.Reader) (string, error) {
	res, err := s.api.Upload(ctx, body, uploader.UploadParams{
		PublicID:     publicIDFor(filename),
		Folder:       s.folder,
		ResourceType: "auto",
	})
	if err != nil {
		return "", fmt.Errorf("upload %q: %w", filename, err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("upload %q: %s", filename, res.Error.Message)
	}
	if res.SecureURL == "" {
		return "", fmt.Errorf("upload %q: empty url in response", filename)
	}
	s.log.Debug("attachment uploaded", zap.String("file", filename), zap.String("public_id", res.PublicID))
	return res.SecureURL, nil
}

// Delete removes the asset behind a URL previously returned by Upload.
func (s *Cloudinary) Delete(ctx context.Context, fileURL string) error {
	asset, err := ParseAssetURL(fileURL)
	if err != nil {
		return err
	}
	res, err := s.api.Destroy(ctx, uploader.DestroyParams{
		PublicID:     asset.PublicID,
		ResourceType: asset.ResourceType,
	})
	if err != nil {
		return fmt.Errorf("destroy %s: %w", asset.PublicID, err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("destroy %s: %s", asset.PublicID, res.Error.Message)
	}
	if res.Result != "ok" {
		return fmt.Errorf("destroy %s: %w (%s)", asset.PublicID, ErrNotDeleted, res.Result)
	}
	return nil
}

var ErrNotDeleted = errors.New("asset not deleted")

// Images and PDFs keep their extension as the delivery format; everything
// else is stored raw, where the extension must be part of the public id.
func publicIDFor(filename string) string {
	id := uuid.NewString()
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".pdf", "":
		return id
	default:
		return id + ext
	}
}
