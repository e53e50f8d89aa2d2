package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 43200, cfg.Cache.TTLSeconds)
	require.Equal(t, 60, cfg.RateLimit.PerMinute)
	require.Equal(t, 10, cfg.HTTP.TimeoutSeconds)
	require.Equal(t, 3, cfg.HTTP.MaxAttempts)
	require.Equal(t, []string{"huggingface", "github", "blog"}, cfg.Providers.Order)
	require.Equal(t, "https://api.github.com", cfg.Providers.GitHub.APIBase)
	require.Equal(t, "https://huggingface.co", cfg.Providers.HuggingFace.Base)

	require.Equal(t, 10*time.Second, cfg.HTTPTimeout())
	require.Equal(t, 12*time.Hour, cfg.CacheTTL())
	require.Equal(t, 200*time.Millisecond, cfg.BackoffInitial())
	require.Equal(t, 2*time.Second, cfg.BackoffMax())
}

func TestLoad_FileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: 9090
cache:
  ttl_seconds: 60
providers:
  order:
    - github
    - blog
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 60, cfg.Cache.TTLSeconds)
	require.Equal(t, []string{"github", "blog"}, cfg.Providers.Order)
	// Untouched keys keep their defaults.
	require.Equal(t, 60, cfg.RateLimit.PerMinute)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	t.Parallel()

	base := func() Config {
		return Config{
			Server:    ServerConfig{Port: 8080},
			Cache:     CacheConfig{TTLSeconds: 60},
			RateLimit: RateLimitConfig{PerMinute: 60},
			HTTP:      HTTPConfig{TimeoutSeconds: 10, MaxAttempts: 3},
			Providers: ProvidersConfig{Order: []string{"github"}},
		}
	}

	cfg := base()
	cfg.Server.Port = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Cache.TTLSeconds = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.RateLimit.PerMinute = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Providers.Order = nil
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Providers.Order = []string{"gitlab"}
	require.Error(t, cfg.Validate())

	require.NoError(t, base().Validate())
}
