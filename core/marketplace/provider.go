package marketplace

import "sync"

// Provider returns the client for a store.
type Provider interface {
	// ClientFor returns a client for storeDomain. An empty domain selects the configured default.
	ClientFor(storeDomain string) (Client, error)
}

// ShopifyProvider builds one ShopifyClient per store and reuses it, so every caller
// for a store shares its rate limiter.
type ShopifyProvider struct {
	cfg     Config
	mu      sync.Mutex
	clients map[string]*ShopifyClient
}

// NewShopifyProvider creates a provider from the marketplace configuration.
func NewShopifyProvider(cfg Config) *ShopifyProvider {
	return &ShopifyProvider{cfg: cfg, clients: make(map[string]*ShopifyClient)}
}

func (p *ShopifyProvider) ClientFor(storeDomain string) (Client, error) {
	if storeDomain == "" {
		storeDomain = p.cfg.StoreDomain
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[storeDomain]; ok {
		return c, nil
	}
	c, err := NewShopifyClient(p.cfg, storeDomain, "")
	if err != nil {
		return nil, err
	}
	p.clients[storeDomain] = c
	return c, nil
}

// StaticProvider hands out the same client for every store.
type StaticProvider struct {
	Client Client
}

func (p StaticProvider) ClientFor(string) (Client, error) {
	return p.Client, nil
}
