package heuristics

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"sjsage522/sailingworker/internal/models"
)

func intp(n int) *int { return &n }

func TestParseFareTiersLabeled(t *testing.T) {
	got := ParseFareTiers("Adult $225.00 Junior (under 16) $175 Senior 65+ $200 Deposit $10")
	want := []models.FareTier{
		{Type: models.FareAdult, Label: "Adult", PriceCents: 22500, Currency: "USD"},
		{Type: models.FareJunior, Label: "Junior (under 16)", PriceCents: 17500, Currency: "USD", MaxAge: intp(15)},
		{Type: models.FareSenior, Label: "Senior (65+)", PriceCents: 20000, Currency: "USD", MinAge: intp(65)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseFareTiers mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFareTiersIgnoresDatesBeforePrice(t *testing.T) {
	got := ParseFareTiers("Adult 6-14-2025 6:00 AM $225")
	assert.Equal(t, []models.FareTier{{Type: models.FareAdult, Label: "Adult", PriceCents: 22500, Currency: "USD"}}, got)

	got = ParseFareTiers("Junior 6-14-25 ages 12-15 $150")
	want := []models.FareTier{
		{Type: models.FareJunior, Label: "Junior (ages 12-15)", PriceCents: 15000, Currency: "USD", MinAge: intp(12), MaxAge: intp(15)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseFareTiers mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFareTiersFallsBackToMedian(t *testing.T) {
	got := ParseFareTiers("$1 deposit ... $650 ... $28 fuel surcharge")
	assert.Equal(t, []models.FareTier{{Type: models.FareAdult, Label: "Adult", PriceCents: 65000, Currency: "USD"}}, got)
	assert.Nil(t, ParseFareTiers("call for pricing"))
}

func TestClassifyFare(t *testing.T) {
	assert.Equal(t, models.FareJunior, ClassifyFare("Kids"))
	assert.Equal(t, models.FareMilitary, ClassifyFare("Active Military"))
	assert.Equal(t, models.FareStudent, ClassifyFare("students"))
	assert.Equal(t, models.FareOther, ClassifyFare("Rod rental"))
}

func TestPrimaryPrice(t *testing.T) {
	tiers := []models.FareTier{{Type: models.FareJunior, PriceCents: 100}, {Type: models.FareAdult, PriceCents: 200}}
	assert.Equal(t, int64(200), PrimaryPrice(tiers))
	assert.Equal(t, int64(100), PrimaryPrice(tiers[:1]))
	assert.Equal(t, int64(0), PrimaryPrice(nil))
}
