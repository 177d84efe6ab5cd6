package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"sjsage522/sailingworker/config"
)

func TestNewLimiter(t *testing.T) {
	assert.Equal(t, rate.Inf, newLimiter(0).Limit())
	assert.Equal(t, rate.Every(800*time.Millisecond), newLimiter(800*time.Millisecond).Limit())
	assert.Equal(t, 1, newLimiter(time.Second).Burst())
}

func TestOpenStoreMigrates(t *testing.T) {
	ctx := context.Background()
	s, err := openStore(ctx, &config.Config{DatabaseURL: "sqlite::memory:"})
	require.NoError(t, err)
	defer s.Close()

	n, err := s.CountTrips(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = openStore(ctx, &config.Config{DatabaseURL: "mysql://localhost/sailings"})
	assert.Error(t, err)
}
