package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/sailingworker/internal/crawler"
	"sjsage522/sailingworker/internal/heuristics"
	"sjsage522/sailingworker/internal/models"
	perrors "sjsage522/sailingworker/pkg/errors"
)

type fakeDirectory struct {
	vessels      map[string][]models.Vessel
	loads        int
	placeholders int
	err          error
}

var _ VesselDirectory = (*fakeDirectory)(nil)

func (f *fakeDirectory) VesselsForLanding(_ context.Context, landingID string) ([]models.Vessel, error) {
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	return f.vessels[landingID], nil
}

func (f *fakeDirectory) EnsurePlaceholderVessel(_ context.Context, landingID string) (*models.Vessel, error) {
	f.placeholders++
	return &models.Vessel{ID: "virt_" + landingID, Name: "Landing Schedule"}, nil
}

func depart() time.Time {
	return time.Date(2025, time.June, 14, 6, 0, 0, 0, heuristics.Location)
}

func TestSourceFor(t *testing.T) {
	assert.Equal(t, models.SourceFRN, SourceFor("frn", ""))
	assert.Equal(t, models.SourceXola, SourceFor("HM", ""))
	assert.Equal(t, models.SourceFareHarbor, SourceFor("", "https://fareharbor.com/mdrsf/items/"))
	assert.Equal(t, models.SourceVirtual, SourceFor("generic", "https://pierpoint.virtuallanding.com/"))
	assert.Equal(t, models.SourceOther, SourceFor("generic", "https://www.someboat.com"))
}

func TestSourceTripIDPrefersNativeID(t *testing.T) {
	l := crawler.RawListing{
		Title:       "Full Day",
		DepartLocal: depart(),
		SourceURL:   "https://pacific.fishingreservations.net/sales/user.php?trip_id=1001",
	}
	assert.Equal(t, "frn:1001", SourceTripID(models.SourceFRN, l))

	l.Title = "Full Day (corrected)"
	l.DepartLocal = depart().Add(time.Hour)
	assert.Equal(t, "frn:1001", SourceTripID(models.SourceFRN, l))

	fh := crawler.RawListing{SourceURL: "https://fareharbor.com/mdrsf/items/101/availability/555/book/"}
	assert.Equal(t, "fareharbor:555", SourceTripID(models.SourceFareHarbor, fh))
}

func TestSourceTripIDHash(t *testing.T) {
	l := crawler.RawListing{Title: "Full Day", DepartLocal: depart(), SourceURL: "https://www.someboat.com/schedule"}

	id := SourceTripID(models.SourceOther, l)
	assert.Len(t, id, 32)
	assert.Equal(t, id, SourceTripID(models.SourceOther, l))

	// an id-like query parameter is only trusted for FRN
	l.SourceURL += "?id=9"
	assert.NotEqual(t, "frn:9", SourceTripID(models.SourceOther, l))

	retitled := l
	retitled.Title = "Full-Day"
	assert.NotEqual(t, SourceTripID(models.SourceOther, l), SourceTripID(models.SourceOther, retitled))
}

func TestMatchVessel(t *testing.T) {
	vessels := []models.Vessel{
		{ID: "v1", Name: "Pacific Voyager"},
		{ID: "v2", Name: "Voyager"},
		{ID: "v3", Name: "Sea Star"},
	}

	v := MatchVessel(crawler.RawListing{VesselGuess: "PACIFIC voyager"}, vessels)
	require.NotNil(t, v)
	assert.Equal(t, "v1", v.ID)

	v = MatchVessel(crawler.RawListing{Title: "Sea Star 3/4 Day"}, vessels)
	require.NotNil(t, v)
	assert.Equal(t, "v3", v.ID)

	// both "Pacific Voyager" and "Voyager" appear; the guess decides
	v = MatchVessel(crawler.RawListing{VesselGuess: "Voyager", Text: "Pacific Voyager overnight"}, vessels)
	require.NotNil(t, v)
	assert.Equal(t, "v2", v.ID)

	assert.Nil(t, MatchVessel(crawler.RawListing{Title: "Seaforth Special"}, vessels))
}

func TestResolverBuildsTrip(t *testing.T) {
	dir := &fakeDirectory{vessels: map[string][]models.Vessel{"l1": {{ID: "v1", Name: "Pacific Voyager"}}}}
	r := NewResolver(dir)

	load, spots := 24, 5
	fee := 3.5
	l := crawler.RawListing{
		Title:             "Full Day Local",
		DepartLocal:       depart(),
		PriceTiers:        []models.FareTier{{Type: models.FareAdult, Label: "Adult", PriceCents: 22500}},
		Load:              &load,
		SpotsOpen:         &spots,
		Status:            models.StatusOpen,
		Flags:             []string{heuristics.FlagMeals},
		Promo:             &models.TripPromotion{Slug: "kids-fish-free", Summary: "Kids fish free with paid adult"},
		PriceIncludesFees: true,
		ServiceFeePct:     &fee,
		SourceURL:         "https://pacific.fishingreservations.net/sales/user.php?trip_id=1001",
		VesselGuess:       "Pacific Voyager",
		Platform:          crawler.PlatformFRN,
	}
	target := models.ScrapeTarget{ID: "t1", LandingID: "l1", Platform: "frn"}

	trip, err := r.Resolve(context.Background(), target, l)
	require.NoError(t, err)
	assert.Equal(t, models.SourceFRN, trip.Source)
	assert.Equal(t, "frn:1001", trip.SourceTripID)
	assert.Equal(t, "l1", trip.LandingID)
	require.NotNil(t, trip.VesselID)
	assert.Equal(t, "v1", *trip.VesselID)
	assert.True(t, trip.MealsIncl)
	assert.False(t, trip.PassportReq)
	assert.Equal(t, models.Timezone, trip.Timezone)
	assert.Equal(t, "USD", trip.FareTiers[0].Currency)
	require.Len(t, trip.Promotions, 1)
	assert.NotEmpty(t, trip.ID)

	_, err = r.Resolve(context.Background(), target, l)
	require.NoError(t, err)
	assert.Equal(t, 1, dir.loads)
}

func TestResolverVirtualPlaceholder(t *testing.T) {
	dir := &fakeDirectory{}
	r := NewResolver(dir)

	l := crawler.RawListing{Title: "3/4 Day", DepartLocal: depart(), SourceURL: "https://pierpoint.virtuallanding.com/"}
	trip, err := r.Resolve(context.Background(), models.ScrapeTarget{LandingID: "l9", Platform: "virtual"}, l)
	require.NoError(t, err)
	require.NotNil(t, trip.VesselID)
	assert.Equal(t, "virt_l9", *trip.VesselID)

	other, err := r.Resolve(context.Background(), models.ScrapeTarget{LandingID: "l9", Platform: "generic"},
		crawler.RawListing{Title: "3/4 Day", DepartLocal: depart(), SourceURL: "https://www.someboat.com/"})
	require.NoError(t, err)
	assert.Nil(t, other.VesselID)
	assert.Equal(t, 1, dir.placeholders)
}

func TestResolverTargetVesselWins(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("should not be called")}
	vesselID := "v7"
	trip, err := NewResolver(dir).Resolve(context.Background(),
		models.ScrapeTarget{LandingID: "l1", VesselID: &vesselID},
		crawler.RawListing{Title: "Full Day", DepartLocal: depart()})
	require.NoError(t, err)
	assert.Equal(t, "v7", *trip.VesselID)
	assert.Equal(t, 0, dir.loads)
}

func TestCollapse(t *testing.T) {
	a := models.Trip{Source: models.SourceFRN, SourceTripID: "frn:1", Title: "Full Day", DepartLocal: depart()}
	same := a
	changed := a
	changed.Title = "Full Day Local"
	other := models.Trip{Source: models.SourceFRN, SourceTripID: "frn:2", DepartLocal: depart()}

	out, collisions := Collapse("https://x", []models.Trip{a, same, other})
	assert.Len(t, out, 2)
	assert.Empty(t, collisions)

	out, collisions = Collapse("https://x", []models.Trip{a, other, changed})
	require.Len(t, out, 2)
	assert.Equal(t, "Full Day Local", out[0].Title)
	require.Len(t, collisions, 1)
	assert.True(t, perrors.Is(collisions[0], perrors.ErrorTypeIdentityCollision))
}
