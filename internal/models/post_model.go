package models

import "time"

type Platform string

const (
	PlatformYoutube   Platform = "YOUTUBE"
	PlatformInstagram Platform = "INSTAGRAM"
	PlatformFacebook  Platform = "FACEBOOK"
	PlatformTiktok    Platform = "TIKTOK"
)

var Platforms = []Platform{PlatformYoutube, PlatformInstagram, PlatformFacebook, PlatformTiktok}

func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

type Visibility string

const (
	VisibilityPublic   Visibility = "PUBLIC"
	VisibilityUnlisted Visibility = "UNLISTED"
	VisibilityPrivate  Visibility = "PRIVATE"
)

func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityUnlisted || v == VisibilityPrivate
}

type PostStatus string

const (
	PostStatusDraft              PostStatus = "DRAFT"
	PostStatusQueued             PostStatus = "QUEUED"
	PostStatusPublished          PostStatus = "PUBLISHED"
	PostStatusPartiallyPublished PostStatus = "PARTIALLY_PUBLISHED"
	PostStatusFailed             PostStatus = "FAILED"
)

type MediaType string

const (
	MediaTypeImage MediaType = "IMAGE"
	MediaTypeVideo MediaType = "VIDEO"
)

// Post is one publish intent for a single media asset. Empty strings mean
// the field was not set.
type Post struct {
	ID           string     `db:"id" json:"id"`
	UserID       int64      `db:"user_id" json:"user_id"`
	MediaAssetID string     `db:"media_asset_id" json:"media_asset_id"`
	Title        string     `db:"title" json:"title,omitempty"`
	Description  string     `db:"description" json:"description,omitempty"`
	Hashtags     string     `db:"hashtags" json:"hashtags,omitempty"`
	Visibility   Visibility `db:"visibility" json:"visibility,omitempty"`
	ScheduledAt  *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	Status       PostStatus `db:"status" json:"status"`
	PublishedAt  *time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

type MediaAsset struct {
	ID               string    `db:"id" json:"id"`
	UserID           int64     `db:"user_id" json:"user_id"`
	Type             MediaType `db:"type" json:"type"`
	StorageKey       string    `db:"storage_key" json:"storage_key"`
	URL              string    `db:"url" json:"url,omitempty"`
	MimeType         string    `db:"mime_type" json:"mime_type"`
	SizeBytes        int64     `db:"size_bytes" json:"size_bytes"`
	OriginalFilename string    `db:"original_filename" json:"original_filename,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
