package platforms

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/maheshrc27/crosspost/internal/models"
)

var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrNotImplemented      = errors.New("publishing is not implemented")
)

// TokenProvider hands out an access token that is valid right now,
// refreshing it first when needed.
type TokenProvider interface {
	GetValidAccessToken(ctx context.Context, userID int64, platform models.Platform) (string, error)
}

// MediaStore opens a stored media object for reading.
type MediaStore interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type PublishParams struct {
	Post        *models.Post
	Destination *models.PostDestination
	MediaAsset  *models.MediaAsset
	UserID      int64
}

type UploadResult struct {
	ExternalMediaID string
	ExternalPostID  string
}

type PublishResult struct {
	ExternalPostID  string
	ExternalMediaID string
}

// Adapter publishes to one platform in two phases. Upload moves the media to
// the platform; Finalize confirms the platform accepted it. The caller
// persists the destination state between the two calls.
type Adapter interface {
	Platform() models.Platform
	Upload(ctx context.Context, params PublishParams) (*UploadResult, error)
	Finalize(ctx context.Context, params PublishParams, upload *UploadResult) (*PublishResult, error)
}

type Registry struct {
	adapters map[models.Platform]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.Platform]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

// NewDefaultRegistry registers YouTube plus the platforms that are not
// available yet.
func NewDefaultRegistry(youtube Adapter) *Registry {
	return NewRegistry(
		youtube,
		NewNotImplemented(models.PlatformInstagram, "Instagram"),
		NewNotImplemented(models.PlatformFacebook, "Facebook"),
		NewNotImplemented(models.PlatformTiktok, "TikTok"),
	)
}

func (r *Registry) Get(platform models.Platform) (Adapter, error) {
	a, ok := r.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}
	return a, nil
}
