package platforms

import (
	"context"
	"fmt"

	"github.com/maheshrc27/crosspost/internal/models"
)

// notImplemented fails every publish before touching the platform.
type notImplemented struct {
	platform models.Platform
	name     string
}

func NewNotImplemented(platform models.Platform, name string) Adapter {
	return &notImplemented{platform: platform, name: name}
}

func (a *notImplemented) Platform() models.Platform {
	return a.platform
}

func (a *notImplemented) Upload(ctx context.Context, params PublishParams) (*UploadResult, error) {
	return nil, fmt.Errorf("%w: %s publishing is not available yet", ErrNotImplemented, a.name)
}

func (a *notImplemented) Finalize(ctx context.Context, params PublishParams, upload *UploadResult) (*PublishResult, error) {
	return nil, fmt.Errorf("%w: %s publishing is not available yet", ErrNotImplemented, a.name)
}
