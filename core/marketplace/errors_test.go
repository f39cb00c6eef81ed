package marketplace_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"testing"

	"marketplace-sync/core/marketplace"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want marketplace.ErrorKind
	}{
		{"Nil", nil, ""},
		{"404", &marketplace.APIError{StatusCode: 404}, marketplace.KindNotFound},
		{"Wrapped 404", fmt.Errorf("update: %w", &marketplace.APIError{StatusCode: 404}), marketplace.KindNotFound},
		{"429", &marketplace.APIError{StatusCode: 429}, marketplace.KindRateLimited},
		{"401", &marketplace.APIError{StatusCode: 401}, marketplace.KindAuth},
		{"403", &marketplace.APIError{StatusCode: 403}, marketplace.KindAuth},
		{"422", &marketplace.APIError{StatusCode: 422, Message: "title: can't be blank"}, marketplace.KindValidation},
		{"503", &marketplace.APIError{StatusCode: 503}, marketplace.KindTransient},
		{"Deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), marketplace.KindTransient},
		{"Text rate limit", errors.New("Exceeded rate limit"), marketplace.KindRateLimited},
		{"Text throttled", errors.New("THROTTLED"), marketplace.KindRateLimited},
		{"Text auth", errors.New("Invalid API key or access token"), marketplace.KindAuth},
		{"Text not found", errors.New("product not found"), marketplace.KindNotFound},
		{"Unknown", errors.New("something odd"), marketplace.KindUnknown},
		{"Unmapped status", &marketplace.APIError{StatusCode: 409, Message: "listing not found"}, marketplace.KindUnknown},
		{"Refused on id with 404", fmt.Errorf("GET /products/7540404123.json: %w", &url.Error{
			Op:  "Get",
			URL: "https://shop.example/admin/api/2024-01/products/7540404123.json",
			Err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED},
		}), marketplace.KindTransient},
		{"Digits in text", errors.New("PUT /products/4294290401.json: broken pipe"), marketplace.KindUnknown},
		{"Text refused", errors.New("dial tcp: connection refused"), marketplace.KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, marketplace.Classify(tt.err))
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, marketplace.IsNotFound(&marketplace.APIError{StatusCode: 404}))
	assert.False(t, marketplace.IsNotFound(&marketplace.APIError{StatusCode: 500}))
	assert.False(t, marketplace.IsNotFound(nil))
}

func TestAPIError_Error(t *testing.T) {
	assert.Equal(t, "marketplace api error 404", (&marketplace.APIError{StatusCode: 404}).Error())
	assert.Equal(t, "marketplace api error 422: bad", (&marketplace.APIError{StatusCode: 422, Message: "bad"}).Error())
}
