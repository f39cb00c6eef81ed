package server_test

import (
	"testing"

	"marketplace-sync/core/server"

	"github.com/stretchr/testify/assert"
)

func TestConfig_IsValidChannel(t *testing.T) {
	tests := []struct {
		name    string
		channel string
		want    bool
	}{
		{"Shopify", server.ChannelShopify, true},
		{"Unknown", "etsy", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := server.Config{Channel: tt.channel}
			assert.Equal(t, tt.want, c.IsValidChannel())
		})
	}
}
