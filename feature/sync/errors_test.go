package sync_test

import (
	"errors"
	"fmt"
	"testing"

	"marketplace-sync/core/lock"
	"marketplace-sync/core/marketplace"
	"marketplace-sync/feature/sync"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, marketplace.ErrorKind(""), sync.Classify(nil))
	assert.Equal(t, marketplace.KindValidation, sync.Classify(&sync.ValidationError{Field: "account_id", Message: "required"}))
	assert.Equal(t, marketplace.KindTransient, sync.Classify(fmt.Errorf("acquire: %w", lock.ErrLockTimeout)))
	assert.Equal(t, marketplace.KindAuth, sync.Classify(&marketplace.APIError{StatusCode: 401}))
	assert.Equal(t, marketplace.KindUnknown, sync.Classify(errors.New("something odd")))
}

func TestSuggest(t *testing.T) {
	kinds := []marketplace.ErrorKind{
		marketplace.KindValidation,
		marketplace.KindNotFound,
		marketplace.KindRateLimited,
		marketplace.KindAuth,
		marketplace.KindTransient,
		marketplace.KindUnknown,
	}
	for _, kind := range kinds {
		suggestions := sync.Suggest(kind)
		if assert.NotEmpty(t, suggestions, kind) {
			assert.Equal(t, kind, suggestions[0].Kind)
		}
	}

	assert.False(t, sync.Suggest(marketplace.KindAuth)[0].Retryable)
	assert.True(t, sync.Suggest(marketplace.KindRateLimited)[0].Retryable)
	assert.Nil(t, sync.Suggest(""))
}

func TestIsValidation(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &sync.ValidationError{Field: "product_id", Message: "must be positive"})
	assert.True(t, sync.IsValidation(err))
	assert.EqualError(t, errors.Unwrap(err), "validation failed on product_id: must be positive")
	assert.False(t, sync.IsValidation(errors.New("other")))
}
