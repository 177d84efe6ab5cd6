package crawler

import (
	"fmt"

	"sjsage522/sailingworker/config"
	"sjsage522/sailingworker/helpers"
	"sjsage522/sailingworker/logger"
)

// Platform tags, as stored on scrape targets
const (
	PlatformFRN        = "frn"
	PlatformFareHarbor = "fareharbor"
	PlatformXola       = "xola"
	PlatformVirtual    = "virtual"
	PlatformGeneric    = "generic"
)

// NewDefaultRegistry registers every built-in extractor
func NewDefaultRegistry() *Registry {
	r := NewRegistry(
		NewFRNExtractor(),
		NewFareHarborExtractor(),
		NewXolaExtractor(),
		NewVirtualExtractor(),
		NewGenericExtractor(),
	)

	log := logger.ForWorker()
	for i, e := range r.Extractors() {
		log.Debug().Int("order", i).Str("extractor", e.Name()).Int("priority", e.Priority()).Msg("Extractor registered")
	}
	return r
}

// NewRenderer builds the renderer selected by cfg.RenderMode. The HTTP
// renderer spaces its iframe fetches with limiter; Chrome loads frames as part
// of one navigation.
func NewRenderer(cfg *config.Config, limiter Limiter) (Renderer, error) {
	switch cfg.RenderMode {
	case config.RenderHTTP:
		fetcher := helpers.NewFetcher(cfg.PageTimeout, cfg.UserAgent, cfg.RespectRobots)
		return NewHTTPRenderer(fetcher, defaultMaxFrames, limiter), nil
	case config.RenderChrome:
		return NewChromeRenderer(ChromeOptions{
			ExecPath:    cfg.ChromePath,
			UserAgent:   cfg.UserAgent,
			PageTimeout: cfg.PageTimeout,
			MaxFrames:   defaultMaxFrames,
		})
	default:
		return nil, fmt.Errorf("unknown render mode %q", cfg.RenderMode)
	}
}
