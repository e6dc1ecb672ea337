package models

import "time"

// User is an account created by Google sign-in.
type User struct {
	ID             int64     `json:"id"`
	GoogleID       string    `json:"-"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Profile is the signed-in user together with the platforms they can
// publish to.
type Profile struct {
	*User
	ConnectedPlatforms []Platform `json:"connected_platforms"`
}
