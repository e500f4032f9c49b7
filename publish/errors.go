package publish

import (
	"errors"
	"net/http"
)

var (
	// ErrRateLimited is returned when the client exceeded the publish quota.
	ErrRateLimited = errors.New("publish: rate limit exceeded")
	// ErrUnauthorized is returned when the API key is missing or wrong.
	ErrUnauthorized = errors.New("publish: invalid api key")
)

// ValidationError reports a payload that cannot be published as is. Msg is
// shown to the caller.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(msg string) error { return &ValidationError{Msg: msg} }

// StatusCode maps a Publish error to the HTTP status it should produce.
func StatusCode(err error) int {
	var ve *ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &ve):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the error text returned to the caller. Storage and
// transport failures are reported generically.
func PublicMessage(err error) string {
	var ve *ValidationError
	switch {
	case errors.Is(err, ErrRateLimited):
		return "Rate limit exceeded. Maximum 10 posts per hour."
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized. Invalid API key."
	case errors.As(err, &ve):
		return ve.Msg
	default:
		return "Internal server error. Failed to publish post."
	}
}
