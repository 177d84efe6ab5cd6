package helpers

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	journal := filepath.Join(t.TempDir(), "error.log")

	logger := NewLogger(journal)
	logger.LogError("landing-7", errors.New("page timed out"))
	logger.LogError("landing-8", errors.New("no booking surface"))

	data, err := os.ReadFile(journal)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[landing-7] page timed out")
	assert.Contains(t, string(data), "[landing-8] no booking surface")

	// Info messages go to the structured logger only
	logger.LogInfo("run finished: %d targets", 2)
	data, err = os.ReadFile(journal)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "run finished")
}

func TestLoggerWithoutFile(t *testing.T) {
	logger := NewLogger("")
	assert.NotPanics(t, func() { logger.LogError("x", errors.New("y")) })
}
