package discovery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/sailingworker/internal/crawler"
	perrors "sjsage522/sailingworker/pkg/errors"
	"sjsage522/sailingworker/services/cache"
)

type stubRenderer struct {
	pages map[string]string
	calls int
}

var _ crawler.Renderer = (*stubRenderer)(nil)

func (s *stubRenderer) Render(_ context.Context, url string) (*crawler.Page, error) {
	s.calls++
	html, ok := s.pages[url]
	if !ok {
		return nil, perrors.NewNetwork(url, "status 404", nil)
	}
	return &crawler.Page{URL: url, HTML: html}, nil
}

func (s *stubRenderer) Close() error { return nil }

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
	err   error
}

var _ cache.CacheService = (*memoryCache)(nil)

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (m *memoryCache) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.items[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}

func (m *memoryCache) Set(key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.items[key] = value
	return nil
}

func (m *memoryCache) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in       string
		platform string
		url      string
	}{
		{"https://pacific.fishingreservations.net/", crawler.PlatformFRN, "https://pacific.fishingreservations.net/sales/"},
		{"https://pacific.fishingreservations.net/sales/user.php?trip_id=3", crawler.PlatformFRN, "https://pacific.fishingreservations.net/sales/user.php?trip_id=3"},
		{"https://fareharbor.com/mdrsf/items/101/", crawler.PlatformFareHarbor, "https://fareharbor.com/mdrsf/items/"},
		{"https://fareharbor.com/embeds/book/danawharf/items/", crawler.PlatformFareHarbor, "https://fareharbor.com/danawharf/items/"},
		{"https://pierpoint.virtuallanding.com/", crawler.PlatformVirtual, "https://pierpoint.virtuallanding.com/"},
		{"https://checkout.xola.com/index.html#seller/1", crawler.PlatformXola, "https://checkout.xola.com/index.html#seller/1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r := Canonicalize(tt.in)
			require.NotNil(t, r)
			assert.Equal(t, tt.platform, r.Platform)
			assert.Equal(t, tt.url, r.URL)
			assert.Equal(t, MethodVendorDomain, r.Method)
		})
	}

	assert.Nil(t, Canonicalize("https://www.someboat.com/"))
	assert.Nil(t, Canonicalize("not a url"))
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		platform string
		url      string
	}{
		{
			name:     "frn anchor",
			html:     `<a href="https://seaforth.fishingreservations.net/sales/">Book</a>`,
			platform: crawler.PlatformFRN,
			url:      "https://seaforth.fishingreservations.net/sales/",
		},
		{
			name:     "fareharbor anchor",
			html:     `<a href="https://fareharbor.com/daveyslocker/items/55/?full-items=yes">Book</a>`,
			platform: crawler.PlatformFareHarbor,
			url:      "https://fareharbor.com/daveyslocker/items/",
		},
		{
			name:     "fareharbor embed script",
			html:     `<script src="https://fareharbor.com/embeds/api/v1/?autolightframe=yes"></script><script src="https://fareharbor.com/newport/embeds/script/"></script>`,
			platform: crawler.PlatformFareHarbor,
			url:      "https://fareharbor.com/newport/items/",
		},
		{
			name:     "xola anchor",
			html:     `<a href="https://checkout.xola.com/index.html#seller/abc">Reserve</a>`,
			platform: crawler.PlatformXola,
			url:      "https://checkout.xola.com/index.html#seller/abc",
		},
		{
			name:     "virtual landing anchor",
			html:     `<a href="https://redondo.virtuallanding.com/schedule">Schedule</a>`,
			platform: crawler.PlatformVirtual,
			url:      "https://redondo.virtuallanding.com/schedule",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Probe(&crawler.Page{URL: "https://www.landing.example/", HTML: "<html><body>" + tt.html + "</body></html>"})
			require.NotNil(t, r)
			assert.Equal(t, tt.platform, r.Platform)
			assert.Equal(t, tt.url, r.URL)
			assert.Equal(t, MethodDOMProbe, r.Method)
		})
	}

	assert.Nil(t, Probe(&crawler.Page{URL: "https://www.landing.example/", HTML: `<a href="/about">About</a>`}))
}

func TestProbeFrames(t *testing.T) {
	page := &crawler.Page{
		URL:    "https://www.landing.example/",
		HTML:   `<iframe src="/widget"></iframe>`,
		Frames: []crawler.Frame{{URL: "https://www.landing.example/widget", HTML: `<a href="https://hm.fishingreservations.net/sales/">Trips</a>`}},
	}
	r := Probe(page)
	require.NotNil(t, r)
	assert.Equal(t, "https://hm.fishingreservations.net/sales/", r.URL)
}

func TestDiscoverOrder(t *testing.T) {
	ctx := context.Background()
	renderer := &stubRenderer{pages: map[string]string{
		"https://www.mdrsf.com/":     `<a href="https://checkout.xola.com/x">Book</a>`,
		"https://www.pierpoint.com/": `<a href="https://fareharbor.com/pierpoint/items/">Book</a>`,
	}}
	d := New(renderer)

	// the override beats whatever the page links to
	r, err := d.Discover(ctx, "Marina Del Rey Sportfishing", "https://www.mdrsf.com/")
	require.NoError(t, err)
	assert.Equal(t, MethodOverride, r.Method)
	assert.Equal(t, "https://fareharbor.com/mdrsf/items/", r.URL)
	assert.Equal(t, 0, renderer.calls)

	// the page probe beats the name guess
	r, err = d.Discover(ctx, "Pierpoint Landing", "https://www.pierpoint.com/")
	require.NoError(t, err)
	assert.Equal(t, MethodDOMProbe, r.Method)
	assert.Equal(t, crawler.PlatformFareHarbor, r.Platform)

	// a failed probe falls through to the name guess
	r, err = d.Discover(ctx, "Ventura Harbor Sportfishing", "https://www.venturaharbor.example/")
	require.NoError(t, err)
	assert.Equal(t, MethodNameHeuristic, r.Method)
	assert.Equal(t, "https://ventura.virtuallanding.com/", r.URL)

	_, err = d.Discover(ctx, "Unknown Landing", "https://www.unknown.example/")
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.ErrorTypeDiscovery))
}

type turnLimiter struct {
	waits int
	err   error
}

func (l *turnLimiter) Wait(_ context.Context) error {
	l.waits++
	return l.err
}

func TestDiscoverProbeWaitsOnLimiter(t *testing.T) {
	ctx := context.Background()
	renderer := &stubRenderer{pages: map[string]string{
		"https://www.landing.example/": `<a href="https://seaforth.fishingreservations.net/">Book</a>`,
	}}
	limiter := &turnLimiter{}
	d := New(renderer, WithLimiter(limiter))

	_, err := d.Discover(ctx, "Seaforth", "https://www.landing.example/")
	require.NoError(t, err)
	assert.Equal(t, 1, limiter.waits)
	assert.Equal(t, 1, renderer.calls)

	// vendor URLs and overrides need no fetch
	_, err = d.Discover(ctx, "FRN", "https://seaforth.fishingreservations.net/sales/")
	require.NoError(t, err)
	_, err = d.Discover(ctx, "Marina Del Rey Sportfishing", "https://www.mdrsf.com/")
	require.NoError(t, err)
	assert.Equal(t, 1, limiter.waits)

	limiter.err = context.Canceled
	_, err = d.Discover(ctx, "Seaforth", "https://www.landing.example/")
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.ErrorTypeExtractionTimeout))
	assert.Equal(t, 1, renderer.calls)
}

func TestDiscoverOverridesOption(t *testing.T) {
	d := New(nil, WithOverrides(map[string]string{"Newport Landing": "newportlanding"}))
	r, err := d.Discover(context.Background(), "newport  landing", "https://www.newportlanding.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://fareharbor.com/newportlanding/items/", r.URL)
}

func TestDiscoverCache(t *testing.T) {
	ctx := context.Background()
	renderer := &stubRenderer{pages: map[string]string{
		"https://www.landing.example/": `<a href="https://seaforth.fishingreservations.net/">Book</a>`,
	}}
	mc := newMemoryCache()
	d := New(renderer, WithCache(mc, time.Hour))

	first, err := d.Discover(ctx, "Seaforth", "https://www.landing.example/")
	require.NoError(t, err)
	second, err := d.Discover(ctx, "Seaforth", "https://www.landing.example/")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, renderer.calls)

	// a broken cache degrades to live discovery
	mc.err = errors.New("connection refused")
	r, err := d.Discover(ctx, "Seaforth", "https://www.landing.example/")
	require.NoError(t, err)
	assert.Equal(t, crawler.PlatformFRN, r.Platform)
	assert.Equal(t, 2, renderer.calls)

	// vendor URLs never touch the cache
	mc.err = nil
	before := len(mc.items)
	_, err = d.Discover(ctx, "FRN", "https://seaforth.fishingreservations.net/sales/")
	require.NoError(t, err)
	assert.Len(t, mc.items, before)
}
