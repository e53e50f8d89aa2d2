// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Providers ProvidersConfig `mapstructure:"providers"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory store (development only).
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MinOpenConns int    `mapstructure:"min_open_conns"`
}

// RedisConfig selects the shared cache/limiter backend when a URL is set.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// CacheConfig bounds positive-result memoization.
type CacheConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

// RateLimitConfig bounds inbound requests per client per minute.
type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"`
}

// HTTPConfig configures outbound HTTP client behavior.
type HTTPConfig struct {
	TimeoutSeconds   int     `mapstructure:"timeout_seconds"`
	MaxAttempts      int     `mapstructure:"max_attempts"`
	BackoffInitialMs int     `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int     `mapstructure:"backoff_max_ms"`
	UserAgent        string  `mapstructure:"user_agent"`
	HostRPS          float64 `mapstructure:"host_rps"`
}

// ProvidersConfig orders the chain and carries per-source endpoints.
type ProvidersConfig struct {
	Order       []string          `mapstructure:"order"`
	GitHub      GitHubConfig      `mapstructure:"github"`
	HuggingFace HuggingFaceConfig `mapstructure:"huggingface"`
}

// GitHubConfig points at the code-host API.
type GitHubConfig struct {
	APIBase string `mapstructure:"api_base"`
	Token   string `mapstructure:"token"`
}

// HuggingFaceConfig points at the model hub.
type HuggingFaceConfig struct {
	Base  string `mapstructure:"base"`
	Token string `mapstructure:"token"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LOOKUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("cache.ttl_seconds", 43200)
	v.SetDefault("ratelimit.per_minute", 60)
	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.backoff_initial_ms", 200)
	v.SetDefault("http.backoff_max_ms", 2000)
	v.SetDefault("http.user_agent", "email-lookup-service/1.0")
	v.SetDefault("http.host_rps", 4)
	v.SetDefault("providers.order", []string{"huggingface", "github", "blog"})
	v.SetDefault("providers.github.api_base", "https://api.github.com")
	v.SetDefault("providers.huggingface.base", "https://huggingface.co")
}

var knownProviders = map[string]struct{}{
	"huggingface": {},
	"github":      {},
	"blog":        {},
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache.ttl_seconds must be > 0")
	}
	if c.RateLimit.PerMinute <= 0 {
		return fmt.Errorf("ratelimit.per_minute must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxAttempts <= 0 {
		return fmt.Errorf("http.max_attempts must be > 0")
	}
	if len(c.Providers.Order) == 0 {
		return fmt.Errorf("providers.order must not be empty")
	}
	for _, name := range c.Providers.Order {
		if _, ok := knownProviders[name]; !ok {
			return fmt.Errorf("unknown provider %q in providers.order", name)
		}
	}
	return nil
}

// HTTPTimeout converts the outbound timeout config into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// BackoffInitial returns the first retry delay.
func (c Config) BackoffInitial() time.Duration {
	return time.Duration(c.HTTP.BackoffInitialMs) * time.Millisecond
}

// BackoffMax returns the retry delay cap.
func (c Config) BackoffMax() time.Duration {
	return time.Duration(c.HTTP.BackoffMaxMs) * time.Millisecond
}

// CacheTTL returns the positive-result cache lifetime.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}
