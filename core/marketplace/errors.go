package marketplace

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// ErrorKind classifies an external failure for recovery decisions.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindNotFound    ErrorKind = "not_found"
	KindRateLimited ErrorKind = "rate_limited"
	KindAuth        ErrorKind = "auth_failure"
	KindTransient   ErrorKind = "transient"
	KindUnknown     ErrorKind = "unknown"
)

// APIError is a non-success answer from the marketplace, passed through unmodified.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("marketplace api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("marketplace api error %d", e.StatusCode)
}

// Classify maps an error to its kind. Status codes win. Transport failures are transient
// whatever their text says, because request paths carry numeric listing ids. Message text
// is matched on whole phrases only.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusNotFound:
			return KindNotFound
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return KindRateLimited
		case apiErr.StatusCode == http.StatusUnauthorized, apiErr.StatusCode == http.StatusForbidden:
			return KindAuth
		case apiErr.StatusCode == http.StatusBadRequest, apiErr.StatusCode == http.StatusUnprocessableEntity:
			return KindValidation
		case apiErr.StatusCode >= 500:
			return KindTransient
		}
		return KindUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransient
	}
	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return KindTransient
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "throttled"):
		return KindRateLimited
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "access token"),
		strings.Contains(msg, "invalid api key"):
		return KindAuth
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "timeout"):
		return KindTransient
	case strings.Contains(msg, "not found"), strings.Contains(msg, "does not exist"):
		return KindNotFound
	}
	return KindUnknown
}

// IsNotFound reports whether err means the external listing no longer exists.
func IsNotFound(err error) bool {
	return Classify(err) == KindNotFound
}
