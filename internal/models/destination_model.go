package models

import "time"

type DestinationStatus string

const (
	DestinationStatusQueued     DestinationStatus = "QUEUED"
	DestinationStatusUploading  DestinationStatus = "UPLOADING"
	DestinationStatusProcessing DestinationStatus = "PROCESSING"
	DestinationStatusPublished  DestinationStatus = "PUBLISHED"
	DestinationStatusFailed     DestinationStatus = "FAILED"
)

// IsTerminal reports whether a destination has finished for the current run.
func (s DestinationStatus) IsTerminal() bool {
	return s == DestinationStatusPublished || s == DestinationStatusFailed
}

var destinationTransitions = map[DestinationStatus][]DestinationStatus{
	DestinationStatusQueued:     {DestinationStatusUploading, DestinationStatusFailed},
	DestinationStatusUploading:  {DestinationStatusProcessing, DestinationStatusFailed},
	DestinationStatusProcessing: {DestinationStatusPublished, DestinationStatusFailed},
}

// CanTransition reports whether a destination may move from one status to
// another within a single run.
func CanTransition(from, to DestinationStatus) bool {
	for _, next := range destinationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PostDestination is one (post, platform) publish target.
type PostDestination struct {
	ID                  string            `db:"id" json:"id"`
	PostID              string            `db:"post_id" json:"post_id"`
	Platform            Platform          `db:"platform" json:"platform"`
	PlatformTitle       string            `db:"platform_title" json:"platform_title,omitempty"`
	PlatformDescription string            `db:"platform_description" json:"platform_description,omitempty"`
	PlatformVisibility  Visibility        `db:"platform_visibility" json:"platform_visibility,omitempty"`
	Status              DestinationStatus `db:"status" json:"status"`
	Attempts            int               `db:"attempts" json:"attempts"`
	ExternalPostID      string            `db:"external_post_id" json:"external_post_id,omitempty"`
	ExternalMediaID     string            `db:"external_media_id" json:"external_media_id,omitempty"`
	LastError           string            `db:"last_error" json:"last_error,omitempty"`
	LastErrorAt         *time.Time        `db:"last_error_at" json:"last_error_at,omitempty"`
	CreatedAt           time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time         `db:"updated_at" json:"updated_at"`
}
