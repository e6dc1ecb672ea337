package transfer

import "github.com/maheshrc27/crosspost/internal/models"

type DestinationOverride struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
}

type PostCreation struct {
	MediaAssetID string `json:"mediaAssetId"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Hashtags     string `json:"hashtags"`
	Visibility   string `json:"visibility"`
	// ScheduledAt is RFC3339. Empty publishes as soon as the job is queued.
	ScheduledAt string                         `json:"scheduledAt"`
	Platforms   []string                       `json:"platforms"`
	Overrides   map[string]DestinationOverride `json:"overrides"`
}

type PostDetail struct {
	*models.Post
	Destinations []*models.PostDestination `json:"destinations"`
}

type PublishResponse struct {
	JobID  string           `json:"jobId"`
	PostID string           `json:"postId"`
	Status models.JobStatus `json:"status"`
}

type JobDetail struct {
	*models.Job
	Logs []*models.JobLog `json:"logs"`
}

type MediaUploadResponse struct {
	MediaAssetID string           `json:"mediaAssetId"`
	Type         models.MediaType `json:"type"`
	StorageKey   string           `json:"storageKey"`
	URL          string           `json:"url,omitempty"`
}
