package helpers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"

	"sjsage522/sailingworker/pkg/errors"
)

// HTTP client and header configurations
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	}

	referers = []string{
		"https://www.google.com/",
		"https://www.bing.com/",
		"https://duckduckgo.com/",
	}
)

const maxBodyBytes = 8 << 20

// Response is a fetched page decoded to UTF-8
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher performs browser-like GET requests
type Fetcher struct {
	client    *http.Client
	userAgent string
	robots    *RobotsChecker
}

// NewFetcher creates a fetcher. An empty userAgent rotates between browser agents.
func NewFetcher(timeout time.Duration, userAgent string, respectRobots bool) *Fetcher {
	client := &http.Client{Timeout: timeout}
	return &Fetcher{
		client:    client,
		userAgent: userAgent,
		robots:    NewRobotsChecker(client, respectRobots),
	}
}

func (f *Fetcher) agent(rnd *mathrand.Rand) string {
	if f.userAgent != "" {
		return f.userAgent
	}
	return userAgents[rnd.Intn(len(userAgents))]
}

// Fetch sends a GET request with browser-like headers, decodes the body
// (gzip, deflate, brotli) and converts it to UTF-8.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	agent := f.agent(rnd)

	allowed, err := f.robots.IsAllowed(ctx, agent, url)
	if err != nil {
		return nil, fmt.Errorf("failed to check robots.txt: %w", err)
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s", ErrDisallowed, url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", agent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("referer", referers[rnd.Intn(len(referers))])
	req.Header.Set("upgrade-insecure-requests", "1")
	req.Header.Set("Sec-Fetch-Mode", "navigate")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode) {
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return nil, errors.NewRateLimit(url, time.Duration(retryAfter)*time.Second)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s unexpected status code: %d", url, resp.StatusCode)
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	encoding, name, _ := charset.DetermineEncoding(body, contentType)
	if !strings.EqualFold(name, "utf-8") {
		utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(body))
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, utf8Reader); err != nil {
			return nil, fmt.Errorf("failed to read converted UTF-8 body: %w", err)
		}
		body = buf.Bytes()
	}

	return &Response{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
	}, nil
}

func decodeBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip body: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	case "br":
		reader = brotli.NewReader(resp.Body)
	}

	data, err := io.ReadAll(io.LimitReader(reader, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}
