package marketplace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShopifyProvider_ReusesClientPerStore(t *testing.T) {
	p := NewShopifyProvider(Config{StoreDomain: "default.myshopify.com", AccessToken: "token"})

	a, err := p.ClientFor("a.myshopify.com")
	require.NoError(t, err)
	again, err := p.ClientFor("a.myshopify.com")
	require.NoError(t, err)
	assert.Same(t, a, again)

	def, err := p.ClientFor("")
	require.NoError(t, err)
	assert.NotSame(t, a, def)
}

func TestShopifyProvider_NoStore(t *testing.T) {
	p := NewShopifyProvider(Config{})
	_, err := p.ClientFor("")
	assert.Error(t, err)
}
