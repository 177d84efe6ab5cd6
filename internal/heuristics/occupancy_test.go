package heuristics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOccupancyRejectsDurationFractions(t *testing.T) {
	occ, ok := ParseOccupancy("1/2 Day Trip, 3 of 20 open")
	require.True(t, ok)
	assert.Equal(t, 3, occ.Open)
	require.NotNil(t, occ.Capacity)
	assert.Equal(t, 20, *occ.Capacity)
}

func TestParseOccupancyIgnoresDates(t *testing.T) {
	occ, ok := ParseOccupancy("Fri 6/14/2025 6:00 AM ... $225.00 ... Fri 6/14/2025 2:00 PM ... 5 of 24 open")
	require.True(t, ok)
	assert.Equal(t, 5, occ.Open)
	assert.Equal(t, 24, *occ.Capacity)
}

func TestParseOccupancyFallbacks(t *testing.T) {
	cases := []struct {
		text string
		open int
	}{
		{"3/4 Day Local 12 spots", 12},
		{"8-hour trip, 7 available", 7},
		{"Only 2 seats left", 2},
		{"4 open", 4},
		{"SOLD OUT", 0},
	}
	for _, tc := range cases {
		occ, ok := ParseOccupancy(tc.text)
		assert.True(t, ok, tc.text)
		assert.Equal(t, tc.open, occ.Open, tc.text)
		assert.Nil(t, occ.Capacity, tc.text)
	}

	_, ok := ParseOccupancy("1/2 Day")
	assert.False(t, ok)
}

func TestParseOccupancySlashForm(t *testing.T) {
	occ, ok := ParseOccupancy("Open: 14/30")
	require.True(t, ok)
	assert.Equal(t, 14, occ.Open)
	assert.Equal(t, 30, *occ.Capacity)
}
