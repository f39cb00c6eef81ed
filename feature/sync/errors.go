package sync

import (
	"errors"
	"fmt"

	"marketplace-sync/core/lock"
	"marketplace-sync/core/marketplace"
)

// ValidationError rejects an attempt before any external call. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Suggestion is a recovery hint attached to a failed result.
type Suggestion struct {
	Kind      marketplace.ErrorKind `json:"kind"`
	Retryable bool                  `json:"retryable"`
	Message   string                `json:"message"`
}

// Classify extends the marketplace classification with local failures.
func Classify(err error) marketplace.ErrorKind {
	switch {
	case err == nil:
		return ""
	case IsValidation(err):
		return marketplace.KindValidation
	case errors.Is(err, lock.ErrLockTimeout):
		return marketplace.KindTransient
	default:
		return marketplace.Classify(err)
	}
}

// Suggest returns the recovery suggestions for a failure kind.
func Suggest(kind marketplace.ErrorKind) []Suggestion {
	switch kind {
	case marketplace.KindRateLimited:
		return []Suggestion{
			{Kind: kind, Retryable: true, Message: "rate limit reached, retry later"},
			{Kind: kind, Retryable: true, Message: "lower bulk concurrency or the client request rate"},
		}
	case marketplace.KindAuth:
		return []Suggestion{
			{Kind: kind, Retryable: false, Message: "check the account's API credentials and scopes"},
		}
	case marketplace.KindNotFound:
		return []Suggestion{
			{Kind: kind, Retryable: true, Message: "listing was removed on the marketplace, sync again to recreate it"},
		}
	case marketplace.KindValidation:
		return []Suggestion{
			{Kind: kind, Retryable: false, Message: "fix the product or request data before retrying"},
		}
	case marketplace.KindTransient:
		return []Suggestion{
			{Kind: kind, Retryable: true, Message: "temporary failure, retry the sync"},
		}
	case marketplace.KindUnknown:
		return []Suggestion{
			{Kind: kind, Retryable: false, Message: "inspect the sync log for the raw marketplace response"},
		}
	default:
		return nil
	}
}
