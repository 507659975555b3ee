package config

import (
	"strings"
	"time"
)

// ProviderConfig represents the configuration for one remote AI provider
type ProviderConfig struct {
	Name        string
	Enabled     bool
	Timeout     time.Duration
	APIKey      string
	Model       string
	BaseURL     string
	Region      string
	JSONMode    bool
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// BreakerConfig represents the per-provider circuit breaker settings
type BreakerConfig struct {
	Enabled     bool
	MaxFailures uint32
	OpenTimeout time.Duration
}

// CacheConfig represents the analysis result cache settings
type CacheConfig struct {
	Enabled          bool
	Type             string
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
}

// IMAPConfig represents the IMAP mailbox settings
type IMAPConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	Folder         string
	TLS            bool
	ConnectRetries int
	SearchWindow   time.Duration
	Timeout        time.Duration
}

// InboxConfig represents the embedded SMTP inbox settings
type InboxConfig struct {
	ListenAddress string
	Domain        string
	MaxMessages   int
	RelayAddress  string
}

// VerificationConfig represents the verification workflow settings
type VerificationConfig struct {
	PollInterval         time.Duration
	FreshnessWindow      time.Duration
	DefaultTimeout       time.Duration
	CompletionTimeout    time.Duration
	SearchLimit          int
	AllowedSenderDomains []string
}

// BrowserConfig represents the headless browser settings
type BrowserConfig struct {
	Headless           bool
	CompletionSelector string
	UserAgent          string
	ExecPath           string
}

// ServerConfig represents the HTTP server settings
type ServerConfig struct {
	ListenAddress   string
	ShutdownTimeout time.Duration
}

// GetProviderOrder returns the cascade order, lower-cased
func (c *Config) GetProviderOrder() []string {
	order := c.GetStringSlice("providers.order")
	out := make([]string, 0, len(order))
	for _, name := range order {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// GetProvider returns the configuration for the named provider
func (c *Config) GetProvider(name string) ProviderConfig {
	modelKey := name + ".model_name"
	if name == "bedrock" {
		modelKey = "bedrock.model_id"
	}
	return ProviderConfig{
		Name:        name,
		Enabled:     c.GetBool(name + ".enabled"),
		Timeout:     c.durationOr(name+".timeout", 30*time.Second),
		APIKey:      c.GetString(name + ".api_key"),
		Model:       c.GetString(modelKey),
		BaseURL:     c.GetString(name + ".base_url"),
		Region:      c.GetString(name + ".region"),
		JSONMode:    c.GetBool(name + ".json_mode"),
		MaxTokens:   c.GetInt(name + ".max_tokens"),
		Temperature: float32(c.GetFloat64(name + ".temperature")),
		TopP:        float32(c.GetFloat64(name + ".top_p")),
		MaxBodySize: c.GetInt(name + ".max_body_size"),
	}
}

// GetBreaker returns the circuit breaker configuration
func (c *Config) GetBreaker() BreakerConfig {
	maxFailures := c.GetInt("providers.circuit_breaker.max_failures")
	if maxFailures < 1 {
		maxFailures = 1
	}
	return BreakerConfig{
		Enabled:     c.GetBool("providers.circuit_breaker.enabled"),
		MaxFailures: uint32(maxFailures),
		OpenTimeout: c.durationOr("providers.circuit_breaker.open_timeout", 30*time.Second),
	}
}

// GetCache returns the cache configuration
func (c *Config) GetCache() CacheConfig {
	return CacheConfig{
		Enabled:          c.GetBool("cache.enabled"),
		Type:             c.GetString("cache.type"),
		TTL:              c.durationOr("cache.ttl", time.Hour),
		CleanupFrequency: c.durationOr("cache.cleanup_frequency", 10*time.Minute),
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
		RedisAddr:        c.GetString("cache.redis_addr"),
		RedisPassword:    c.GetString("cache.redis_password"),
		RedisDB:          c.GetInt("cache.redis_db"),
	}
}

// GetMailboxType returns imap or smtp
func (c *Config) GetMailboxType() string {
	return strings.ToLower(c.GetString("mailbox.type"))
}

// GetIMAP returns the IMAP configuration
func (c *Config) GetIMAP() IMAPConfig {
	return IMAPConfig{
		Host:           c.GetString("imap.host"),
		Port:           c.GetInt("imap.port"),
		Username:       c.GetString("imap.username"),
		Password:       c.GetString("imap.password"),
		Folder:         c.GetString("imap.folder"),
		TLS:            c.GetBool("imap.tls"),
		ConnectRetries: c.GetInt("imap.connect_retries"),
		SearchWindow:   c.durationOr("imap.search_window", 24*time.Hour),
		Timeout:        c.durationOr("imap.timeout", 30*time.Second),
	}
}

// GetInbox returns the SMTP inbox configuration
func (c *Config) GetInbox() InboxConfig {
	return InboxConfig{
		ListenAddress: c.GetString("inbox.listen_address"),
		Domain:        c.GetString("inbox.domain"),
		MaxMessages:   c.GetInt("inbox.max_messages"),
		RelayAddress:  c.GetString("inbox.relay_address"),
	}
}

// GetVerification returns the verification workflow configuration
func (c *Config) GetVerification() VerificationConfig {
	return VerificationConfig{
		PollInterval:         c.durationOr("verification.poll_interval", 5*time.Second),
		FreshnessWindow:      c.durationOr("verification.freshness_window", 5*time.Minute),
		DefaultTimeout:       c.durationOr("verification.default_timeout", 2*time.Minute),
		CompletionTimeout:    c.durationOr("verification.completion_timeout", 30*time.Second),
		SearchLimit:          c.GetInt("verification.search_limit"),
		AllowedSenderDomains: c.GetStringSlice("verification.allowed_sender_domains"),
	}
}

// GetBrowser returns the browser configuration
func (c *Config) GetBrowser() BrowserConfig {
	return BrowserConfig{
		Headless:           c.GetBool("browser.headless"),
		CompletionSelector: c.GetString("browser.completion_selector"),
		UserAgent:          c.GetString("browser.user_agent"),
		ExecPath:           c.GetString("browser.exec_path"),
	}
}

// GetServer returns the HTTP server configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		ListenAddress:   c.GetString("server.listen_address"),
		ShutdownTimeout: c.durationOr("server.shutdown_timeout", 15*time.Second),
	}
}
