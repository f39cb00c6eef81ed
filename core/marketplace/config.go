package marketplace

import "time"

// Config holds configuration for the marketplace API client.
type Config struct {
	// StoreDomain is used when an account carries no store URL of its own.
	StoreDomain string `mapstructure:"store_domain" default:""`
	// AccessToken authenticates admin API calls.
	AccessToken string `mapstructure:"access_token" default:""`
	// APIVersion is the admin API version segment.
	APIVersion string `mapstructure:"api_version" default:"2024-01"`
	// TimeoutSeconds bounds each external call.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"10"`
	// RequestsPerSecond is the sustained client-side request rate.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" default:"2"`
	// Burst is the number of requests allowed above the sustained rate.
	Burst int `mapstructure:"burst" default:"4"`
	// Vendor is stamped on created listings.
	Vendor string `mapstructure:"vendor" default:""`
}

// Timeout returns the per-call timeout.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
