package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"

	"sjsage522/sailingworker/config"
	"sjsage522/sailingworker/helpers"
	"sjsage522/sailingworker/internal"
	"sjsage522/sailingworker/internal/crawler"
	"sjsage522/sailingworker/internal/discovery"
	"sjsage522/sailingworker/internal/store"
	"sjsage522/sailingworker/internal/targets"
	"sjsage522/sailingworker/logger"
	"sjsage522/sailingworker/services/cache"
	"sjsage522/sailingworker/services/publisher"
)

// openStore connects to the configured store and applies the schema
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	s, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// newLimiter spaces remote fetches by interval; zero disables spacing
func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// initializeServices builds everything a run needs. The caller owns the
// returned dependencies and must Close them.
func initializeServices(ctx context.Context, cfg *config.Config) (*internal.Dependencies, error) {
	log := logger.Default
	limiter := newLimiter(cfg.RequestMinInterval)
	deps := &internal.Dependencies{
		Registry: crawler.NewDefaultRegistry(),
		Limiter:  limiter,
		Logger:   helpers.NewLogger(cfg.ErrorLogFile),
	}

	s, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	deps.Store = s

	renderer, err := crawler.NewRenderer(cfg, limiter)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	deps.Renderer = renderer

	opts := []discovery.Option{discovery.WithLimiter(limiter)}
	if cfg.MemcacheAddr != "" {
		mc := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := mc.Ping(); err != nil {
			logger.LogError("cache", err, "memcache at %s unreachable, discovery results will not be cached", cfg.MemcacheAddr)
		} else {
			log.Info().Str("addr", cfg.MemcacheAddr).Msg("Connected to Memcache")
		}
		deps.Cache = mc
		opts = append(opts, discovery.WithCache(mc, cfg.DiscoveryCacheTTL))
	}
	if f, err := targets.ReadTargets(cfg.TargetsFile); err == nil {
		if len(f.Overrides) > 0 {
			opts = append(opts, discovery.WithOverrides(f.Overrides))
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("file", cfg.TargetsFile).Msg("discovery overrides not loaded")
	}
	deps.Discoverer = discovery.New(renderer, opts...)

	if cfg.PublishEnabled {
		p := publisher.NewRedisPublisher(cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamMaxLength)
		if err := p.Ping(ctx); err != nil {
			deps.Close()
			p.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		deps.Publisher = p
		log.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Str("stream", cfg.RedisStream).Msg("Connected to Redis")
	} else {
		deps.Publisher = publisher.NopPublisher{}
	}

	return deps, nil
}
