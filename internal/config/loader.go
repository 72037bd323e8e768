package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// Load loads configuration from a YAML file, applies environment
// overrides, and validates the result. An empty path returns the
// defaults with environment overrides applied.
func Load(path string) (*GatewayConfig, error) {
	cfg := Default()

	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
		}
		data, err := os.ReadFile(absPath) //nolint:gosec // path comes from the operator
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := unmarshalInto(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader loads configuration from an io.Reader. Environment
// overrides are applied the same way as Load.
func LoadFromReader(r io.Reader) (*GatewayConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := unmarshalInto(data, cfg); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// unmarshalInto parses YAML data over the defaults in cfg.
func unmarshalInto(data []byte, cfg *GatewayConfig) error {
	content := substituteEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment variable values.
func substituteEnvVars(content string) string {
	content = strings.ReplaceAll(content, "$$", "\x00ESCAPED_DOLLAR\x00")

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		defaultValue := ""
		if len(submatches) >= 3 {
			defaultValue = submatches[2]
		}

		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		return defaultValue
	})

	return strings.ReplaceAll(result, "\x00ESCAPED_DOLLAR\x00", "$")
}

// applyEnvOverrides applies the documented environment surface on top
// of whatever the file provided. Period-style variables are integer
// seconds for compatibility with the service's original deployment.
func applyEnvOverrides(cfg *GatewayConfig) error {
	if v, ok := os.LookupEnv("RATE_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT: %w", err)
		}
		cfg.RateLimit.Limit = n
	}
	if v, ok := os.LookupEnv("RATE_LIMIT_PERIOD"); ok {
		d, err := parseSecondsOrDuration(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_PERIOD: %w", err)
		}
		cfg.RateLimit.Window = Duration(d)
	}
	if v, ok := os.LookupEnv("CACHE_TTL"); ok {
		d, err := parseSecondsOrDuration(v)
		if err != nil {
			return fmt.Errorf("CACHE_TTL: %w", err)
		}
		cfg.Cache.TTL = Duration(d)
	}
	if v, ok := os.LookupEnv("UPSTREAM_TIMEOUT"); ok {
		d, err := parseSecondsOrDuration(v)
		if err != nil {
			return fmt.Errorf("UPSTREAM_TIMEOUT: %w", err)
		}
		cfg.Upstream.Timeout = Duration(d)
	}
	if v, ok := os.LookupEnv("UPSTREAM_RETRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("UPSTREAM_RETRIES: %w", err)
		}
		cfg.Upstream.Retries = n
	}
	if v, ok := os.LookupEnv("REDIS_URL"); ok {
		if cfg.Redis == nil {
			cfg.Redis = &RedisConfig{}
		}
		cfg.Redis.URL = v
	}
	return nil
}

// parseSecondsOrDuration accepts either a bare integer (seconds) or a
// Go duration string.
func parseSecondsOrDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("must be positive, got %d", n)
		}
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}
