package heuristics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/sailingworker/internal/models"
)

func TestParseStatus(t *testing.T) {
	zero, five := 0, 5
	assert.Equal(t, models.StatusOpen, ParseStatus("Full Day Islands 5 open", &five))
	assert.Equal(t, models.StatusFull, ParseStatus("Spots: Full", nil))
	assert.Equal(t, models.StatusFull, ParseStatus("Sold out", nil))
	assert.Equal(t, models.StatusFull, ParseStatus("3/4 Day", &zero))
	assert.Equal(t, models.StatusWaitlist, ParseStatus("Join the Waitlist", nil))
	assert.Equal(t, models.StatusChartered, ParseStatus("Chartered", nil))
	assert.Equal(t, models.StatusOpen, ParseStatus("1/2 Day AM", nil))
}

func TestLabeledCounts(t *testing.T) {
	load, spots := LabeledCounts("Load: 24 Spots: 6")
	require.NotNil(t, load)
	require.NotNil(t, spots)
	assert.Equal(t, 24, *load)
	assert.Equal(t, 6, *spots)

	load, spots = LabeledCounts("Load: 30 Spots: Waitlist")
	assert.Equal(t, 30, *load)
	assert.Equal(t, 0, *spots)

	load, spots = LabeledCounts("nothing")
	assert.Nil(t, load)
	assert.Nil(t, spots)
}

func TestParseServiceFee(t *testing.T) {
	pct, ok := ParseServiceFee("Price includes 3.5% service fee")
	require.True(t, ok)
	assert.InDelta(t, 3.5, *pct, 0.0001)

	_, ok = ParseServiceFee("plus fees")
	assert.False(t, ok)
}

func TestFlagsAndPromotions(t *testing.T) {
	flags := ParseFlags("Meals included. Passport required. Mexican permits included.")
	assert.Equal(t, []string{FlagMeals, FlagPassport, FlagPermits}, flags)
	assert.True(t, HasFlag(flags, FlagPassport))
	assert.Empty(t, ParseFlags("bring a lunch"))

	promo := DetectPromotion("Kids fish free on weekdays with a paid adult")
	require.NotNil(t, promo)
	assert.Equal(t, "kids-fish-free", promo.Slug)
	assert.Equal(t, "Kids fish free with paid adult", promo.Summary)
	assert.Equal(t, "weekdays", promo.AppliesWhen)

	promo = DetectPromotion("Weekend special 10% off")
	require.NotNil(t, promo)
	assert.Equal(t, "10-pct-off", promo.Slug)
	assert.Equal(t, "weekends", promo.AppliesWhen)

	assert.Nil(t, DetectPromotion("Regular fare"))
}
