package helpers

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "sjsage522/sailingworker/pkg/errors"
)

func TestFetchRotatesHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check that headers are set
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("Accept-Language"))
		assert.NotEmpty(t, r.Header.Get("referer"))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><body>Hello, Skipper!</body></html>"))
	}))
	defer server.Close()

	resp, err := newTestFetcher().Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, string(resp.Body), "Hello, Skipper!")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFetchNonUTF8(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.WriteHeader(http.StatusOK)
		// "Señor" in ISO-8859-1
		w.Write([]byte("<html><body>Se\xf1or</body></html>"))
	}))
	defer server.Close()

	resp, err := newTestFetcher().Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, string(resp.Body), "Señor")
}

func TestFetchCompressedBodies(t *testing.T) {
	page := []byte("<html><body>6/14/2025 6:00 AM $225</body></html>")

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	gw.Write(page)
	gw.Close()

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	bw.Write(page)
	bw.Close()

	bodies := map[string][]byte{"gzip": gz.Bytes(), "br": br.Bytes()}
	for enc, body := range bodies {
		t.Run(enc, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Header().Set("Content-Encoding", enc)
				w.Write(body)
			}))
			defer server.Close()

			resp, err := newTestFetcher().Fetch(context.Background(), server.URL)
			require.NoError(t, err)
			assert.Equal(t, string(page), string(resp.Body))
		})
	}
}

func TestFetchErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestFetcher().Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 500")

	serverRateLimited := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer serverRateLimited.Close()

	_, err = newTestFetcher().Fetch(context.Background(), serverRateLimited.URL)
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.ErrorTypeRateLimit))
	assert.Contains(t, err.Error(), "rate limited for 1m0s")
}

func TestFetchHonorsRobots(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>ok</html>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewFetcher(5*time.Second, "sailingworker-test", true)

	_, err := f.Fetch(context.Background(), server.URL+"/private/schedule")
	assert.True(t, errors.Is(err, ErrDisallowed))

	resp, err := f.Fetch(context.Background(), server.URL+"/schedule")
	require.NoError(t, err)
	assert.Contains(t, string(resp.Body), "ok")
}

func TestFetchCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestFetcher().Fetch(ctx, server.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func newTestFetcher() *Fetcher {
	return NewFetcher(10*time.Second, "", false)
}
