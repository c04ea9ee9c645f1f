package fetch

import (
	"context"
	"errors"

	"github.com/ytget/ytdlp/errs"
)

// ErrInvalidURL is returned for URLs outside the video-site allow-list.
var ErrInvalidURL = errors.New("invalid video url")

// User-facing messages for extraction failures. Classification relies on the
// extraction library's sentinel errors, never on message text.
const (
	MsgInvalidURL      = "Invalid YouTube URL"
	MsgPrivate         = "This video is private and cannot be downloaded"
	MsgAgeRestricted   = "This video is age-restricted. Sign-in credentials are required"
	MsgGeoBlocked      = "This video is not available in your region"
	MsgRateLimited     = "YouTube is rate limiting requests. Consider adding cookies"
	MsgUnavailable     = "This video is unavailable"
	MsgTimeout         = "Fetching video information timed out"
	MsgFallbackGeneric = "Failed to fetch video information"
)

// IsRetryable reports whether a metadata or download failure is worth another
// attempt. Access-level refusals are final; throttling and transient network
// errors are not.
func IsRetryable(err error) bool {
	switch {
	case errors.Is(err, errs.ErrPrivate),
		errors.Is(err, errs.ErrAgeRestricted),
		errors.Is(err, errs.ErrGeoBlocked),
		errors.Is(err, errs.ErrVideoUnavailable):
		return false
	case errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}

// UserMessage maps an error to the message shown to the caller.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidURL):
		return MsgInvalidURL
	case errors.Is(err, errs.ErrPrivate):
		return MsgPrivate
	case errors.Is(err, errs.ErrAgeRestricted):
		return MsgAgeRestricted
	case errors.Is(err, errs.ErrGeoBlocked):
		return MsgGeoBlocked
	case errors.Is(err, errs.ErrRateLimited):
		return MsgRateLimited
	case errors.Is(err, errs.ErrVideoUnavailable):
		return MsgUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return MsgTimeout
	default:
		return MsgFallbackGeneric
	}
}
