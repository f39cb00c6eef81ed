package server

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	ApiKey string `mapstructure:"api_key" default:""`
	// Channel is the marketplace channel this instance synchronizes to.
	Channel string `mapstructure:"channel" default:"shopify"`
	// DefaultActor is recorded on audit entries when a request names no actor.
	DefaultActor string `mapstructure:"default_actor" default:"system"`
}

const (
	ChannelShopify = "shopify"
)

// IsValidChannel checks if the configured channel is supported.
func (c Config) IsValidChannel() bool {
	switch c.Channel {
	case ChannelShopify:
		return true
	default:
		return false
	}
}
