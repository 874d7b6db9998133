// Package ferrors defines the supervisor's coded error taxonomy: a single
// struct carrying a Kind, a human message, and an optional cause, with
// errors.As extraction for callers that need to branch on Kind. Structure
// is grounded on the teacher's exitcode package (coded errors extracted
// via errors.As) generalized from process exit codes to named error kinds,
// since this module is a library rather than a CLI with an exit status.
package ferrors

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Kind names a class of error. Kinds are names, not types: every Error
// carries one Kind value rather than FORGE defining a Go type per kind.
type Kind string

const (
	KindIO                   Kind = "io"
	KindConfigMissingField   Kind = "config_missing_field"
	KindStatusFileParse      Kind = "status_file_parse"
	KindWatcherInit          Kind = "watcher_init"
	KindUpdateCheck          Kind = "update_check"
	KindUpdateDownload       Kind = "update_download"
	KindUpdateVerification   Kind = "update_verification"
	KindUpdateInstall        Kind = "update_install"
	KindUpdateAssetNotFound  Kind = "update_asset_not_found"
	KindTimeout              Kind = "timeout"
	KindToolExecution        Kind = "tool_execution"
	KindApiError             Kind = "api_error"
	KindApiTransientError    Kind = "api_transient_error"
	KindApiRateLimitExceeded Kind = "api_rate_limit_exceeded"
	KindRateLimitExceeded    Kind = "rate_limit_exceeded"
	KindConnectionFailed     Kind = "connection_failed"
	KindDnsResolutionFailed  Kind = "dns_resolution_failed"
	KindNetworkUnreachable   Kind = "network_unreachable"
	KindToolNotFound         Kind = "tool_not_found"
	KindConfirmationRequired Kind = "confirmation_required"
	KindActionCancelled      Kind = "action_cancelled"
)

// Error is the single coded-error type for the whole taxonomy.
type Error struct {
	Kind    Kind
	Message string
	Path    string
	Op      string
	// RetryAfterSecs is set for Timeout and ApiRateLimitExceeded.
	RetryAfterSecs int
	// Limit/Wait are set for RateLimitExceeded (the local limiter's cause).
	Limit int
	Wait  time.Duration
	Cause error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Path)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether this error's Kind represents a condition
// worth retrying.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindApiTransientError, KindApiRateLimitExceeded, KindRateLimitExceeded, KindTimeout,
		KindConnectionFailed, KindDnsResolutionFailed, KindNetworkUnreachable:
		return true
	default:
		return false
	}
}

// RetryAfterSeconds returns the wait hint for retryable errors, 0 if none
// applies.
func (e *Error) RetryAfterSeconds() int {
	if e.RetryAfterSecs > 0 {
		return e.RetryAfterSecs
	}
	if e.Wait > 0 {
		return int(e.Wait.Seconds())
	}
	return 0
}

// FriendlyMessage formats a user-facing message, including the wait for
// retryable errors.
func (e *Error) FriendlyMessage() string {
	if secs := e.RetryAfterSeconds(); secs > 0 {
		return fmt.Sprintf("%s (retry in %ds)", e.Message, secs)
	}
	return e.Message
}

// New builds a bare coded error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind, an associated path, and a message to an existing
// cause. path is typically a file path the operation acted on; pass "" when
// there isn't one.
func Wrap(kind Kind, path, message string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Message: message, Cause: cause}
}

// WithPath attaches a file path to an I/O-flavored error built with New.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// As extracts a *Error from err via errors.As.
func As(err error) (*Error, bool) {
	var coded *Error
	ok := errors.As(err, &coded)
	return coded, ok
}

// KindOf returns err's Kind, or "" if err isn't a coded Error.
func KindOf(err error) Kind {
	if coded, ok := As(err); ok {
		return coded.Kind
	}
	return ""
}

// FromHTTPResponse classifies an HTTP error response per the documented
// status-code table. retryAfterHeader is the raw Retry-After header value,
// which may be an integer second count or an RFC 1123 HTTP-date.
func FromHTTPResponse(status int, body, retryAfterHeader string) *Error {
	switch status {
	case http.StatusTooManyRequests:
		return &Error{
			Kind:           KindApiRateLimitExceeded,
			Message:        "API rate limit exceeded",
			RetryAfterSecs: parseRetryAfter(retryAfterHeader),
		}
	case http.StatusRequestTimeout:
		return &Error{Kind: KindTimeout, Message: "Request timeout", RetryAfterSecs: 30}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &Error{Kind: KindApiTransientError, Message: fmt.Sprintf("transient API error (HTTP %d)", status)}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &Error{Kind: KindApiError, Message: "Authentication error: check your API credentials"}
	default:
		return &Error{Kind: KindApiError, Message: fmt.Sprintf("HTTP %d: %s", status, body)}
	}
}

// ParseRetryAfter parses a Retry-After header value: an integer second
// count, or an HTTP-date whose delta from now is the wait. It reports false
// for an absent or malformed header, and for a date already in the past.
func ParseRetryAfter(header string) (int, bool) {
	if header == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
		return secs, true
	}
	if t, err := http.ParseTime(header); err == nil {
		if wait := time.Until(t); wait > 0 {
			return int(wait.Round(time.Second).Seconds()), true
		}
	}
	return 0, false
}

// parseRetryAfter is ParseRetryAfter with the HTTP-classification fallback
// of 60 seconds applied when no usable value can be extracted.
func parseRetryAfter(header string) int {
	if secs, ok := ParseRetryAfter(header); ok {
		return secs
	}
	return 60
}
