package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"       validate:"required"`
	Chains     ChainsConfig     `mapstructure:"chains"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	SessionSecret          string `mapstructure:"session_secret"           validate:"required,min=32"`
	SessionLifetimeMinutes int    `mapstructure:"session_lifetime_minutes" validate:"required,gt=0"`
	NonceTTLSeconds        int    `mapstructure:"nonce_ttl_seconds"        validate:"required,gt=0"`
	SIWEDomain             string `mapstructure:"siwe_domain"              validate:"required"`
}

// ChainsConfig maps chain IDs to their RPC endpoints and subgraph URLs.
// A chain absent from RPCURLs is not supported for token/pool discovery.
type ChainsConfig struct {
	RPCURLs      map[string]string `mapstructure:"rpc_urls"`
	SubgraphURLs map[string]string `mapstructure:"subgraph_urls"`
}

// EnrichmentConfig contains settings for external metadata enrichment.
type EnrichmentConfig struct {
	CoingeckoAPIKey  string `mapstructure:"coingecko_api_key"`
	CoingeckoBaseURL string `mapstructure:"coingecko_base_url"`
}
