package helpers

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// ErrDisallowed is returned when robots.txt forbids a fetch
var ErrDisallowed = stderrors.New("disallowed by robots.txt")

// RobotsChecker caches robots.txt rules per host
type RobotsChecker struct {
	rules    map[string]*robotstxt.RobotsData
	expiry   map[string]time.Time
	mu       sync.Mutex
	client   *http.Client
	cacheTTL time.Duration
	enabled  bool
}

// NewRobotsChecker creates a checker. A disabled checker allows everything.
func NewRobotsChecker(client *http.Client, enabled bool) *RobotsChecker {
	return &RobotsChecker{
		rules:    make(map[string]*robotstxt.RobotsData),
		expiry:   make(map[string]time.Time),
		client:   client,
		cacheTTL: time.Hour,
		enabled:  enabled,
	}
}

// IsAllowed reports whether userAgent may fetch rawURL. An unreachable
// robots.txt allows the request.
func (r *RobotsChecker) IsAllowed(ctx context.Context, userAgent, rawURL string) (bool, error) {
	if !r.enabled {
		return true, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false, err
	}

	data, err := r.get(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		return true, nil
	}
	return data.TestAgent(u.Path, userAgent), nil
}

func (r *RobotsChecker) get(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if data, ok := r.rules[origin]; ok && time.Now().Before(r.expiry[origin]) {
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.rules[origin] = data
	r.expiry[origin] = time.Now().Add(r.cacheTTL)
	return data, nil
}
