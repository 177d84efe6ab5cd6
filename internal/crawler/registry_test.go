package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExtractor struct {
	name     string
	priority int
	host     string
}

var _ PlatformExtractor = (*stubExtractor)(nil)

func (s *stubExtractor) Name() string              { return s.name }
func (s *stubExtractor) Priority() int             { return s.priority }
func (s *stubExtractor) Detect(url string) bool    { return strings.Contains(url, s.host) }
func (s *stubExtractor) Extract(*Page) []RawListing { return nil }

func TestDefaultRegistrySelect(t *testing.T) {
	r := NewDefaultRegistry()

	cases := map[string]string{
		"https://pacific.fishingreservations.net/sales/": PlatformFRN,
		"https://fareharbor.com/mdrsf/items/":            PlatformFareHarbor,
		"https://checkout.xola.com/index.html":           PlatformXola,
		"https://pierpoint.virtuallanding.com/":          PlatformVirtual,
		"https://www.someboat.com/schedule":              PlatformGeneric,
	}
	for url, want := range cases {
		assert.Equal(t, want, r.Select(url).Name(), url)
	}

	var names []string
	for _, e := range r.Extractors() {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{PlatformFRN, PlatformFareHarbor, PlatformXola, PlatformVirtual, PlatformGeneric}, names)
	assert.Equal(t, PlatformGeneric, r.Fallback().Name())
}

func TestRegistryOrdersByPriority(t *testing.T) {
	low := &stubExtractor{name: "low", priority: 1, host: "shared"}
	high := &stubExtractor{name: "high", priority: 50, host: "shared"}
	tie := &stubExtractor{name: "tie", priority: 50, host: "shared"}

	r := NewRegistry(low, high, tie)
	assert.Equal(t, "high", r.Select("https://shared.example.com").Name())
	assert.Equal(t, "low", r.Fallback().Name())
	assert.Equal(t, "low", r.Select("https://nomatch.example.com").Name())

	e, ok := r.ByName("tie")
	require.True(t, ok)
	assert.Equal(t, 50, e.Priority())

	_, ok = r.ByName("missing")
	assert.False(t, ok)
}
