package commands

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jsonsql-dev/jsonsql"
	"github.com/jsonsql-dev/jsonsql/internal/cli/config"
	"github.com/jsonsql-dev/jsonsql/internal/web/api"
	"github.com/jsonsql-dev/jsonsql/internal/web/auth"
	"github.com/jsonsql-dev/jsonsql/internal/web/cache"
	"github.com/jsonsql-dev/jsonsql/internal/web/middleware"
	"github.com/jsonsql-dev/jsonsql/internal/web/ratelimit"
	"github.com/jsonsql-dev/jsonsql/internal/web/router"
	"github.com/jsonsql-dev/jsonsql/internal/web/server"
)

var (
	serveConfigPath string
	serveHost       string
	servePort       int
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP compile service",
		Long: `Start the HTTP compile service.

The service compiles JSON query descriptions against the configured
policy, with optional authentication, rate limiting, and result
caching. Settings come from jsonsql.yaml (or --config); --host and
--port override the configured listen address.`,
		RunE: runServe,
	}

	cmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to the config file")
	cmd.Flags().StringVar(&serveHost, "host", "", "Listen host (overrides config)")
	cmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}

	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return err
	}

	policy, err := jsonsql.NewPolicy(cfg.Policy)
	if err != nil {
		return err
	}
	compiler := jsonsql.New(policy)

	// Resources close in reverse registration order, so the logger
	// flushes last and the redis client outlives the cache and
	// limiter built on it
	var closers []server.CloseFunc
	closers = append(closers, func(ctx context.Context) error {
		_ = logger.Sync()
		return nil
	})

	// One shared client serves both redis-backed concerns
	var redisClient *redis.Client
	needRedis := (cfg.Server.RateLimit.Enabled && cfg.Server.RateLimit.Backend == "redis") ||
		(cfg.Server.Cache.Enabled && cfg.Server.Cache.Backend == "redis")
	if needRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Server.Redis.Addr,
			Password: cfg.Server.Redis.Password,
			DB:       cfg.Server.Redis.DB,
		})
		if err := redisClient.Ping(cmd.Context()).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", cfg.Server.Redis.Addr, err)
		}
		closers = append(closers, func(ctx context.Context) error {
			return redisClient.Close()
		})
	}

	resultCache, cacheClosers, err := buildCache(cfg, redisClient)
	if err != nil {
		return err
	}
	closers = append(closers, cacheClosers...)

	handler := api.NewHandler(api.Config{
		Compiler: compiler,
		Logger:   logger,
		Cache:    resultCache,
		CacheTTL: cfg.Server.Cache.TTL,
		Version:  Version,
	})

	middlewares, limiterClosers, err := buildMiddleware(cfg, logger, redisClient)
	if err != nil {
		return err
	}
	closers = append(closers, limiterClosers...)

	routes := router.New(router.Config{API: handler, Middleware: middlewares})

	serverCfg := server.DefaultConfig(routes)
	serverCfg.Address = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	serverCfg.ReadTimeout = cfg.Server.ReadTimeout
	serverCfg.WriteTimeout = cfg.Server.WriteTimeout
	serverCfg.IdleTimeout = cfg.Server.IdleTimeout

	srv, err := server.New(serverCfg)
	if err != nil {
		return err
	}

	life := server.NewLifecycle(srv, logger, cfg.Server.ShutdownTimeout)
	for _, closer := range closers {
		life.OnShutdown(closer)
	}

	logger.Info("compile service configured",
		zap.String("addr", serverCfg.Address),
		zap.String("auth_mode", cfg.Server.Auth.Mode),
		zap.Bool("rate_limit", cfg.Server.RateLimit.Enabled),
		zap.Bool("cache", cfg.Server.Cache.Enabled),
	)

	return life.Run(cmd.Context())
}

// buildLogger constructs the service logger from the logging config
func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid logging level %q: %w", cfg.Level, err)
		}
		zapCfg.Level = level
	}

	return zapCfg.Build()
}

// buildCache constructs the compile-result cache backend
func buildCache(cfg *config.Config, redisClient *redis.Client) (cache.Cache, []server.CloseFunc, error) {
	if !cfg.Server.Cache.Enabled {
		return nil, nil, nil
	}

	cacheCfg := cache.DefaultConfig()
	cacheCfg.DefaultTTL = cfg.Server.Cache.TTL

	if cfg.Server.Cache.Backend == "redis" {
		return cache.NewRedisCache(redisClient, cacheCfg), nil, nil
	}

	mem := cache.NewMemoryCacheWithConfig(cacheCfg)
	closer := func(ctx context.Context) error { return mem.Close() }
	return mem, []server.CloseFunc{closer}, nil
}

// buildMiddleware assembles the middleware stack in serving order
func buildMiddleware(cfg *config.Config, logger *zap.Logger, redisClient *redis.Client) ([]middleware.Middleware, []server.CloseFunc, error) {
	middlewares := []middleware.Middleware{
		middleware.RequestID(),
		middleware.Logging(logger),
		middleware.Recovery(logger),
	}

	switch cfg.Server.Auth.Mode {
	case "token":
		middlewares = append(middlewares, middleware.Auth(middleware.AuthConfig{
			Mode:      middleware.AuthToken,
			Tokens:    auth.NewTokenService(cfg.Server.Auth.JWTSecret, cfg.Server.Auth.TokenTTL),
			SkipPaths: []string{"/health"},
		}))
	case "key":
		middlewares = append(middlewares, middleware.Auth(middleware.AuthConfig{
			Mode:      middleware.AuthKey,
			Keys:      auth.NewKeyVerifier(cfg.Server.Auth.APIKeys),
			SkipPaths: []string{"/health"},
		}))
	}

	var closers []server.CloseFunc
	if cfg.Server.RateLimit.Enabled {
		var limiter ratelimit.RateLimiter
		if cfg.Server.RateLimit.Backend == "redis" {
			redisLimiter, err := ratelimit.NewRedisLimiter(ratelimit.RedisLimiterConfig{
				Client: redisClient,
				Limit:  cfg.Server.RateLimit.Requests,
				Window: cfg.Server.RateLimit.Window,
				Prefix: "jsonsql:ratelimit:",
			})
			if err != nil {
				return nil, nil, err
			}
			limiter = redisLimiter
		} else {
			bucket := ratelimit.NewTokenBucketWithConfig(ratelimit.TokenBucketConfig{
				Limit:         cfg.Server.RateLimit.Requests,
				Window:        cfg.Server.RateLimit.Window,
				SweepInterval: 5 * cfg.Server.RateLimit.Window,
			})
			closers = append(closers, func(ctx context.Context) error { return bucket.Close() })
			limiter = bucket
		}

		limitCfg := middleware.DefaultRateLimitConfig(limiter)
		limitCfg.SkipPaths = []string{"/health"}
		middlewares = append(middlewares, middleware.RateLimitWithConfig(limitCfg))
	}

	return middlewares, closers, nil
}
