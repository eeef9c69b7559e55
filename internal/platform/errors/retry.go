package errors

// Network helpers for classifying archive transport failures and retry semantics

import (
	"context"
	stderrs "errors"
	"net"
	"net/http"
	"strings"
)

// FromStatus maps an unexpected archive HTTP status to an ErrorCode
func FromStatus(status int) ErrorCode {
	switch {
	case status == http.StatusNotFound:
		return ErrorCodeNotFound
	case status == http.StatusTooManyRequests:
		return ErrorCodeTooManyRequests
	case status == http.StatusForbidden, status >= 500:
		// nemweb answers scrapers with 403 now and then
		return ErrorCodeUnavailable
	default:
		return ErrorCodeUnknown
	}
}

// FromHTTPStatusf builds an error for an unexpected archive status
func FromHTTPStatusf(status int, format string, a ...any) error {
	return Newf(FromStatus(status), format, a...)
}

// IsRetryable reports whether an archive error represents a transient condition
// worth retrying. It handles project codes, net.Error timeouts and the transport text
// seen on dropped connections
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Do not retry local cancellations/timeouts; let the caller decide higher-level retries
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}

	switch CodeOf(err) {
	case ErrorCodeUnavailable, ErrorCodeTooManyRequests:
		return true
	case ErrorCodeUnknown:
	default:
		return false
	}

	root := Root(err)

	var ne net.Error
	if stderrs.As(root, &ne) && ne.Timeout() {
		return true
	}

	s := strings.ToLower(root.Error())
	switch {
	case strings.Contains(s, "connection reset by peer"),
		strings.Contains(s, "connection refused"),
		strings.Contains(s, "broken pipe"),
		strings.Contains(s, "unexpected eof"),
		strings.Contains(s, "server closed idle connection"):
		return true
	default:
		return false
	}
}
