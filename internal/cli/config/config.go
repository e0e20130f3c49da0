// Package config loads the jsonsql.yaml configuration: the entity
// policy plus the compile-service settings.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/jsonsql-dev/jsonsql"
)

// Config is the full jsonsql configuration.
type Config struct {
	Policy  jsonsql.PolicyConfig `mapstructure:"policy"`
	Server  ServerConfig         `mapstructure:"server"`
	Logging LoggingConfig        `mapstructure:"logging"`
}

// ServerConfig configures the HTTP compile service.
type ServerConfig struct {
	Host            string          `mapstructure:"host"`
	Port            int             `mapstructure:"port"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration   `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	Auth            AuthConfig      `mapstructure:"auth"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
	Cache           CacheConfig     `mapstructure:"cache"`
	Redis           RedisConfig     `mapstructure:"redis"`
}

// AuthConfig configures request authentication. Mode selects the
// scheme: "none", "token" (JWT bearer), or "key" (bcrypt-hashed API
// keys in the X-API-Key header).
type AuthConfig struct {
	Mode      string        `mapstructure:"mode"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	APIKeys   []string      `mapstructure:"api_keys"`
}

// RateLimitConfig configures request rate limiting.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Backend  string        `mapstructure:"backend"` // memory or redis
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// CacheConfig configures compile-result caching.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Backend string        `mapstructure:"backend"` // memory or redis
	TTL     time.Duration `mapstructure:"ttl"`
}

// RedisConfig configures the shared Redis connection used by the redis
// rate-limit and cache backends.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggingConfig configures the service logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// Load reads jsonsql.yaml from the working directory (or the explicit
// path when given), applies defaults and JSONSQL_* environment
// overrides, and validates the result. A missing config file is not an
// error; the defaults describe a deny-all policy and a local server.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("jsonsql")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("JSONSQL")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults seeds every configuration leaf.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8980)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.auth.mode", "none")
	v.SetDefault("server.auth.token_ttl", 24*time.Hour)
	v.SetDefault("server.rate_limit.enabled", false)
	v.SetDefault("server.rate_limit.backend", "memory")
	v.SetDefault("server.rate_limit.requests", 120)
	v.SetDefault("server.rate_limit.window", time.Minute)
	v.SetDefault("server.cache.enabled", false)
	v.SetDefault("server.cache.backend", "memory")
	v.SetDefault("server.cache.ttl", 5*time.Minute)
	v.SetDefault("server.redis.addr", "localhost:6379")
	v.SetDefault("server.redis.password", "")
	v.SetDefault("server.redis.db", 0)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// validateConfig rejects configurations the service cannot run with.
func validateConfig(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", cfg.Server.Port)
	}

	switch cfg.Server.Auth.Mode {
	case "", "none":
	case "token":
		if cfg.Server.Auth.JWTSecret == "" {
			return fmt.Errorf("server.auth.jwt_secret is required when auth mode is token")
		}
	case "key":
		if len(cfg.Server.Auth.APIKeys) == 0 {
			return fmt.Errorf("server.auth.api_keys is required when auth mode is key")
		}
	default:
		return fmt.Errorf("server.auth.mode must be none, token, or key, got %q", cfg.Server.Auth.Mode)
	}

	switch cfg.Server.RateLimit.Backend {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("server.rate_limit.backend must be memory or redis, got %q", cfg.Server.RateLimit.Backend)
	}
	if cfg.Server.RateLimit.Enabled && cfg.Server.RateLimit.Requests <= 0 {
		return fmt.Errorf("server.rate_limit.requests must be positive")
	}

	switch cfg.Server.Cache.Backend {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("server.cache.backend must be memory or redis, got %q", cfg.Server.Cache.Backend)
	}

	switch cfg.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", cfg.Logging.Format)
	}

	// Building the policy up front surfaces declaration errors at load
	// time instead of on the first compile.
	if _, err := jsonsql.NewPolicy(cfg.Policy); err != nil {
		return fmt.Errorf("invalid policy: %w", err)
	}

	return nil
}
