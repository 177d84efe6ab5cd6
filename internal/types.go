package internal

import (
	"context"

	"sjsage522/sailingworker/helpers"
	"sjsage522/sailingworker/internal/crawler"
	"sjsage522/sailingworker/internal/discovery"
	"sjsage522/sailingworker/internal/store"
	"sjsage522/sailingworker/services/cache"
	"sjsage522/sailingworker/services/publisher"
)

// Discoverer resolves a landing's booking platform
type Discoverer interface {
	Discover(ctx context.Context, landingName, startURL string) (*discovery.Result, error)
}

// Limiter spaces remote fetches; *rate.Limiter satisfies it
type Limiter = crawler.Limiter

// Dependencies holds all service dependencies
type Dependencies struct {
	Store      store.Store
	Cache      cache.CacheService
	Publisher  publisher.Publisher
	Renderer   crawler.Renderer
	Registry   *crawler.Registry
	Discoverer Discoverer
	Limiter    Limiter
	Logger     helpers.LoggerInterface
}

// Close releases the renderer, publisher and store in that order
func (d *Dependencies) Close() {
	if d.Renderer != nil {
		d.Renderer.Close()
	}
	if d.Publisher != nil {
		d.Publisher.Close()
	}
	if d.Store != nil {
		d.Store.Close()
	}
}
