package platforms

import "github.com/maheshrc27/crosspost/internal/models"

const DefaultTitle = "Untitled video"

type Metadata struct {
	Title       string
	Description string
	Visibility  models.Visibility
}

// ResolveMetadata picks each field from the destination override, then the
// post, then a fixed default.
func ResolveMetadata(post *models.Post, destination *models.PostDestination) Metadata {
	meta := Metadata{
		Title:       DefaultTitle,
		Description: "",
		Visibility:  models.VisibilityPublic,
	}

	if post != nil {
		if post.Title != "" {
			meta.Title = post.Title
		}
		if post.Description != "" {
			meta.Description = post.Description
		}
		if post.Visibility.Valid() {
			meta.Visibility = post.Visibility
		}
	}

	if destination != nil {
		if destination.PlatformTitle != "" {
			meta.Title = destination.PlatformTitle
		}
		if destination.PlatformDescription != "" {
			meta.Description = destination.PlatformDescription
		}
		if destination.PlatformVisibility.Valid() {
			meta.Visibility = destination.PlatformVisibility
		}
	}

	return meta
}

// YoutubePrivacy maps a visibility to YouTube's privacyStatus. Unknown or
// empty values publish publicly.
func YoutubePrivacy(v models.Visibility) string {
	switch v {
	case models.VisibilityPrivate:
		return "private"
	case models.VisibilityUnlisted:
		return "unlisted"
	default:
		return "public"
	}
}
