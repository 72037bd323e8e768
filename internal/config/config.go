// Package config defines the gateway configuration model and loading.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Default configuration values.
const (
	// DefaultRateLimit is the default number of requests allowed per window.
	DefaultRateLimit = 100

	// DefaultRateLimitWindow is the default rate limit window length.
	DefaultRateLimitWindow = 60 * time.Second

	// DefaultCacheTTL is the default validity duration of availability entries.
	DefaultCacheTTL = time.Hour

	// DefaultUpstreamTimeout is the default timeout for a single upstream call.
	DefaultUpstreamTimeout = 5 * time.Second

	// DefaultUpstreamRetries is the default number of retries after a
	// failed upstream call.
	DefaultUpstreamRetries = 1
)

// Store backend names.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Rate limiting algorithm names.
const (
	AlgorithmFixedWindow = "fixed_window"
	AlgorithmTokenBucket = "token_bucket"
)

// GatewayConfig is the root configuration for the gateway. It is built
// once at startup and passed by reference into each component.
type GatewayConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Cache     CacheConfig     `yaml:"cache"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Directory DirectoryConfig `yaml:"directory"`
	Redis     *RedisConfig    `yaml:"redis,omitempty"`
}

// DirectoryConfig holds surgeon directory settings.
type DirectoryConfig struct {
	// File is a path to a YAML file of surgeon records.
	File string `yaml:"file"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address            string   `yaml:"address"`
	Port               int      `yaml:"port"`
	ReadTimeout        Duration `yaml:"readTimeout"`
	WriteTimeout       Duration `yaml:"writeTimeout"`
	IdleTimeout        Duration `yaml:"idleTimeout"`
	MaxRequestBodySize int64    `yaml:"maxRequestBodySize"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AuthConfig holds API key authentication settings.
type AuthConfig struct {
	// HashAlgorithm is the algorithm used to hash API keys.
	// Supported: sha256 (default), sha512, bcrypt.
	HashAlgorithm string `yaml:"hashAlgorithm,omitempty"`

	// KeyFile is a path to a YAML file of API keys. When set, the file
	// is watched and reloaded on change.
	KeyFile string `yaml:"keyFile,omitempty"`

	// Keys is a static list of API keys loaded at startup.
	Keys []StaticKey `yaml:"keys,omitempty"`
}

// StaticKey is one API key record in configuration. Keys are stored
// hashed; the raw key never appears in config.
type StaticKey struct {
	KeyHash string `yaml:"keyHash"`
	OwnerID string `yaml:"ownerId"`
	Tier    string `yaml:"tier,omitempty"`
	Active  bool   `yaml:"active"`
}

// RateLimitConfig holds rate limiter settings.
type RateLimitConfig struct {
	// Algorithm selects the limiting algorithm: fixed_window (default)
	// or token_bucket.
	Algorithm string `yaml:"algorithm,omitempty"`

	// Limit is the maximum number of requests per key per window.
	Limit int `yaml:"limit"`

	// Window is the length of the fixed window.
	Window Duration `yaml:"window"`

	// Burst is the burst size for the token bucket algorithm.
	Burst int `yaml:"burst,omitempty"`

	// Store selects the counter backend: memory (default) or redis.
	Store string `yaml:"store,omitempty"`

	// FailOpen admits requests when the counter store is unreachable.
	// The default is fail-closed: a limiter storage outage rejects
	// requests, since fail-open would defeat the quota entirely.
	FailOpen bool `yaml:"failOpen,omitempty"`
}

// CacheConfig holds availability cache settings.
type CacheConfig struct {
	// TTL is the validity duration of a cached availability entry.
	TTL Duration `yaml:"ttl"`

	// Store selects the entry backend: memory (default) or redis.
	Store string `yaml:"store,omitempty"`

	// MaxEntries bounds the memory store. Zero means the default.
	MaxEntries int `yaml:"maxEntries,omitempty"`
}

// UpstreamConfig holds settings for the scheduling service client.
type UpstreamConfig struct {
	// BaseURL is the scheduling service endpoint.
	BaseURL string `yaml:"baseURL"`

	// Timeout bounds a single upstream call.
	Timeout Duration `yaml:"timeout"`

	// Retries is the number of retries after a failed call.
	Retries int `yaml:"retries"`

	// RetryBackoff is the initial backoff between retries.
	RetryBackoff Duration `yaml:"retryBackoff,omitempty"`

	// BreakerThreshold is the number of observed requests before the
	// circuit breaker may trip.
	BreakerThreshold int `yaml:"breakerThreshold,omitempty"`

	// BreakerCooldown is how long the breaker stays open before
	// probing the upstream again.
	BreakerCooldown Duration `yaml:"breakerCooldown,omitempty"`
}

// RedisConfig holds shared Redis connection settings.
type RedisConfig struct {
	URL      string `yaml:"url"`
	PoolSize int    `yaml:"poolSize,omitempty"`
}

// Default returns a GatewayConfig populated with default values.
func Default() *GatewayConfig {
	return &GatewayConfig{
		Server: ServerConfig{
			Port:               8080,
			ReadTimeout:        Duration(30 * time.Second),
			WriteTimeout:       Duration(30 * time.Second),
			IdleTimeout:        Duration(120 * time.Second),
			MaxRequestBodySize: 1 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Auth: AuthConfig{
			HashAlgorithm: "sha256",
		},
		RateLimit: RateLimitConfig{
			Algorithm: AlgorithmFixedWindow,
			Limit:     DefaultRateLimit,
			Window:    Duration(DefaultRateLimitWindow),
			Store:     StoreMemory,
		},
		Cache: CacheConfig{
			TTL:   Duration(DefaultCacheTTL),
			Store: StoreMemory,
		},
		Upstream: UpstreamConfig{
			Timeout:      Duration(DefaultUpstreamTimeout),
			Retries:      DefaultUpstreamRetries,
			RetryBackoff: Duration(100 * time.Millisecond),
		},
		Directory: DirectoryConfig{
			File: "configs/surgeons.yaml",
		},
	}
}

// RedisURL returns the configured Redis URL, or empty when Redis is not
// configured.
func (c *GatewayConfig) RedisURL() string {
	if c.Redis == nil {
		return ""
	}
	return c.Redis.URL
}

// Validate checks the configuration for inconsistencies. It is called
// once at startup; an invalid configuration aborts the process.
func (c *GatewayConfig) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if err := c.Auth.validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.RateLimit.validate(); err != nil {
		return fmt.Errorf("rateLimit: %w", err)
	}
	if err := c.Cache.validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Upstream.validate(); err != nil {
		return fmt.Errorf("upstream: %w", err)
	}
	if c.usesRedis() && (c.Redis == nil || c.Redis.URL == "") {
		return errors.New("redis.url is required when a redis store is selected")
	}
	return nil
}

// usesRedis reports whether any component is configured for Redis.
func (c *GatewayConfig) usesRedis() bool {
	return c.RateLimit.Store == StoreRedis || c.Cache.Store == StoreRedis
}

func (c *AuthConfig) validate() error {
	switch c.HashAlgorithm {
	case "", "sha256", "sha512", "bcrypt":
	default:
		return fmt.Errorf("invalid hash algorithm: %s", c.HashAlgorithm)
	}
	for i, key := range c.Keys {
		if key.KeyHash == "" {
			return fmt.Errorf("keys[%d]: keyHash is required", i)
		}
		if key.OwnerID == "" {
			return fmt.Errorf("keys[%d]: ownerId is required", i)
		}
	}
	return nil
}

func (c *RateLimitConfig) validate() error {
	switch c.Algorithm {
	case "", AlgorithmFixedWindow, AlgorithmTokenBucket:
	default:
		return fmt.Errorf("invalid algorithm: %s", c.Algorithm)
	}
	if c.Limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", c.Limit)
	}
	if c.Window.Duration() <= 0 {
		return errors.New("window must be positive")
	}
	if err := validateStore(c.Store); err != nil {
		return err
	}
	return nil
}

func (c *CacheConfig) validate() error {
	if c.TTL.Duration() <= 0 {
		return errors.New("ttl must be positive")
	}
	if c.MaxEntries < 0 {
		return errors.New("maxEntries must be non-negative")
	}
	return validateStore(c.Store)
}

func (c *UpstreamConfig) validate() error {
	if c.Timeout.Duration() <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.Retries < 0 {
		return errors.New("retries must be non-negative")
	}
	return nil
}

func validateStore(store string) error {
	switch store {
	case "", StoreMemory, StoreRedis:
		return nil
	default:
		return fmt.Errorf("invalid store type: %s", store)
	}
}

// EffectiveHashAlgorithm returns the configured hash algorithm or the
// sha256 default.
func (c *AuthConfig) EffectiveHashAlgorithm() string {
	if c.HashAlgorithm == "" {
		return "sha256"
	}
	return c.HashAlgorithm
}
