package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type MediaService interface {
	Upload(ctx context.Context, userID int64, filename string, data []byte) (*models.MediaAsset, error)
}

type mediaService struct {
	ma      repository.MediaAssetRepository
	storage StorageService
}

func NewMediaService(ma repository.MediaAssetRepository, storage StorageService) MediaService {
	return &mediaService{ma: ma, storage: storage}
}

// Upload sniffs the content type from the bytes, never from the client.
func (s *mediaService) Upload(ctx context.Context, userID int64, filename string, data []byte) (*models.MediaAsset, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return nil, fmt.Errorf("%w: unrecognized file type", ErrInvalidInput)
	}

	mimeType := kind.MIME.Value
	var mediaType models.MediaType
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		mediaType = models.MediaTypeImage
	case strings.HasPrefix(mimeType, "video/"):
		mediaType = models.MediaTypeVideo
	default:
		return nil, fmt.Errorf("%w: only image or video uploads are supported, got %s", ErrInvalidInput, mimeType)
	}

	key, err := storageKey(filename, "."+kind.Extension)
	if err != nil {
		return nil, err
	}

	url, err := s.storage.Upload(ctx, key, data, mimeType)
	if err != nil {
		return nil, fmt.Errorf("store media: %w", err)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	asset := &models.MediaAsset{
		ID:               id,
		UserID:           userID,
		Type:             mediaType,
		StorageKey:       key,
		URL:              url,
		MimeType:         mimeType,
		SizeBytes:        int64(len(data)),
		OriginalFilename: filepath.Base(filename),
	}
	if filename == "" {
		asset.OriginalFilename = ""
	}

	if err := s.ma.Create(ctx, nil, asset); err != nil {
		return nil, err
	}

	slog.Info("media uploaded", "user_id", userID, "media_id", asset.ID, "type", mediaType, "size", asset.SizeBytes)
	return asset, nil
}

// storageKey builds <unixnano>-<nanoid><ext>, keeping the client's extension
// when it has one.
func storageKey(filename, fallbackExt string) (string, error) {
	suffix, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || len(ext) > 10 {
		ext = fallbackExt
	}
	return fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), suffix, ext), nil
}
