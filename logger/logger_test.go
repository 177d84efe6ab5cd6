package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComponentLoggersCarryFields(t *testing.T) {
	t.Setenv("SAILINGS_ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", "debug")

	var buf bytes.Buffer
	InitWithWriter(&buf)

	ForExtractor("frn").Info().Msg("rows parsed")
	ForTarget("t1", "https://example.com").Warn().Msg("slow")
	LogError("store", errors.New("boom"), "write %s", "trip")

	out := buf.String()
	assert.Contains(t, out, `"extractor":"frn"`)
	assert.Contains(t, out, `"target":"t1"`)
	assert.Contains(t, out, `"component":"worker"`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, "write trip")
}

func TestGetLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("SAILINGS_ENVIRONMENT", "production")
	assert.Equal(t, "info", getLogLevel().String())

	t.Setenv("SAILINGS_ENVIRONMENT", "development")
	assert.Equal(t, "debug", getLogLevel().String())

	t.Setenv("LOG_LEVEL", "warn")
	assert.Equal(t, "warn", getLogLevel().String())

	t.Setenv("LOG_LEVEL", "nonsense")
	assert.Equal(t, "info", getLogLevel().String())
}
