package errors

import (
	"errors"
	"fmt"
)

// Error kinds returned by the service layer. Callers compare with errors.Is,
// the wrapped message carries the details.

// ErrValidation is returned when the input is malformed (bad alias, empty URL, past expiry...)
var ErrValidation = errors.New("validation failed")

// ErrAliasTaken is returned when a custom alias is already used by another link
var ErrAliasTaken = errors.New("custom alias already taken")

// ErrUsernameTaken is returned when registering a username that already exists
var ErrUsernameTaken = errors.New("username already exists")

// ErrUnauthorized is returned when no credentials were presented
var ErrUnauthorized = errors.New("authentication required")

// ErrForbidden is returned when the requester is authenticated but does not own the link
var ErrForbidden = errors.New("not allowed to modify this link")

// ErrNotFound is returned when a short code or an original URL has no matching link
var ErrNotFound = errors.New("link not found")

// ErrInvalidCredentials is returned for any login failure. It never says which part was wrong.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrCodeSpaceExhausted is returned when we can't generate a unique short code
var ErrCodeSpaceExhausted = errors.New("failed to generate unique short code")

// ErrStorageUnavailable is returned when the link store fails
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrCacheUnavailable marks cache failures. It is logged, never returned to clients.
var ErrCacheUnavailable = errors.New("cache unavailable")

// ErrClickRecordingFailed is returned when click recording fails
type ErrClickRecordingFailed struct {
	ShortCode string
	Reason    string
}

func (e ErrClickRecordingFailed) Error() string {
	return fmt.Sprintf("failed to record click for link %s: %s", e.ShortCode, e.Reason)
}

// ErrConfigLoad is returned when configuration loading fails
type ErrConfigLoad struct {
	Path   string
	Reason string
}

func (e ErrConfigLoad) Error() string {
	return fmt.Sprintf("failed to load config from %s: %s", e.Path, e.Reason)
}
