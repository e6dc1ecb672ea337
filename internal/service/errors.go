package service

import (
	"errors"
	"unicode/utf8"
)

var (
	ErrNotConnected  = errors.New("account is not connected")
	ErrMissingToken  = errors.New("no access token stored for account")
	ErrUnrecoverable = errors.New("access token expired and no refresh token is available, reconnect the account")
	ErrRefreshFailed = errors.New("token refresh failed")

	ErrJobNotFound    = errors.New("job not found")
	ErrPostNotFound   = errors.New("post not found")
	ErrMediaNotFound  = errors.New("media asset not found")
	ErrNoDestinations = errors.New("post has no destinations")

	// ErrAllDestinationsFailed is retryable: the queue redelivers the job.
	ErrAllDestinationsFailed = errors.New("all destinations failed")

	ErrInvalidInput = errors.New("invalid input")
)

// IsFatal reports whether a job failure must not be retried.
func IsFatal(err error) bool {
	return errors.Is(err, ErrJobNotFound) ||
		errors.Is(err, ErrPostNotFound) ||
		errors.Is(err, ErrMediaNotFound) ||
		errors.Is(err, ErrNoDestinations)
}

const maxErrorLength = 500

// errorText is what gets persisted for a failure.
func errorText(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) <= maxErrorLength {
		return msg
	}
	msg = msg[:maxErrorLength]
	for !utf8.ValidString(msg) {
		msg = msg[:len(msg)-1]
	}
	return msg
}
