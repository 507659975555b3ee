package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance from the default search path
func New() (*Config, error) {
	return Load("")
}

// Load reads configFile, or searches the default locations for config.yaml when it is empty
func Load(configFile string) (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/mailpilot/")
		v.AddConfigPath("$HOME/.mailpilot")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("MAILPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Provider cascade
	v.SetDefault("providers.order", []string{"openai", "anthropic", "gemini", "bedrock"})
	v.SetDefault("providers.circuit_breaker.enabled", false)
	v.SetDefault("providers.circuit_breaker.max_failures", 5)
	v.SetDefault("providers.circuit_breaker.open_timeout", "30s")

	for _, name := range []string{"openai", "anthropic", "gemini", "bedrock"} {
		v.SetDefault(name+".enabled", false)
		v.SetDefault(name+".timeout", "30s")
		v.SetDefault(name+".max_tokens", 1000)
		v.SetDefault(name+".temperature", 0.1)
		v.SetDefault(name+".top_p", 0.9)
		v.SetDefault(name+".max_body_size", 4096)
	}

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.json_mode", true)

	// Anthropic defaults
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model_name", "claude-3-5-haiku-latest")
	v.SetDefault("anthropic.base_url", "https://api.anthropic.com")

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-3-haiku-20240307-v1:0")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.cleanup_frequency", "10m")
	v.SetDefault("cache.sqlite_path", "/data/mailpilot_cache.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/mailpilot")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)

	// Mailbox defaults
	v.SetDefault("mailbox.type", "imap")
	v.SetDefault("imap.host", "")
	v.SetDefault("imap.port", 993)
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.password", "")
	v.SetDefault("imap.folder", "INBOX")
	v.SetDefault("imap.tls", true)
	v.SetDefault("imap.connect_retries", 3)
	v.SetDefault("imap.search_window", "24h")
	v.SetDefault("imap.timeout", "30s")
	v.SetDefault("inbox.listen_address", "0.0.0.0:2525")
	v.SetDefault("inbox.domain", "localhost")
	v.SetDefault("inbox.max_messages", 500)
	v.SetDefault("inbox.relay_address", "")

	// Verification defaults
	v.SetDefault("verification.poll_interval", "5s")
	v.SetDefault("verification.freshness_window", "5m")
	v.SetDefault("verification.default_timeout", "2m")
	v.SetDefault("verification.completion_timeout", "30s")
	v.SetDefault("verification.search_limit", 5)
	v.SetDefault("verification.allowed_sender_domains", []string{})

	// Browser defaults
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.completion_selector", "body")
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.exec_path", "")

	// Server defaults
	v.SetDefault("server.listen_address", "0.0.0.0:8080")
	v.SetDefault("server.shutdown_timeout", "15s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// durationOr returns the configured duration, or def when it is missing or malformed
func (c *Config) durationOr(key string, def time.Duration) time.Duration {
	d, err := c.GetDuration(key)
	if err != nil {
		return def
	}
	return d
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
