package identity

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/antzucaro/matchr"
	"github.com/google/uuid"

	"sjsage522/sailingworker/helpers"
	"sjsage522/sailingworker/internal/crawler"
	"sjsage522/sailingworker/internal/heuristics"
	"sjsage522/sailingworker/internal/models"
	"sjsage522/sailingworker/pkg/errors"
)

const hashLength = 32

var availabilityRe = regexp.MustCompile(`/availability/(\d+)`)

// VesselDirectory is the read side of the store used for vessel attribution
type VesselDirectory interface {
	VesselsForLanding(ctx context.Context, landingID string) ([]models.Vessel, error)
	EnsurePlaceholderVessel(ctx context.Context, landingID string) (*models.Vessel, error)
}

// SourceFor maps a platform tag onto a trip source, falling back to the
// booking URL's host when the tag is unknown
func SourceFor(platform, sourceURL string) models.Source {
	switch strings.ToLower(strings.TrimSpace(platform)) {
	case "frn", "fishingreservations":
		return models.SourceFRN
	case "fareharbor":
		return models.SourceFareHarbor
	case "xola", "hm":
		return models.SourceXola
	case "virtual":
		return models.SourceVirtual
	}

	host := helpers.Hostname(sourceURL)
	switch {
	case strings.Contains(host, "fishingreservations"):
		return models.SourceFRN
	case strings.Contains(host, "fareharbor"), strings.Contains(host, "fh-sites"):
		return models.SourceFareHarbor
	case strings.Contains(host, "xola"):
		return models.SourceXola
	case strings.Contains(host, "virtuallanding"):
		return models.SourceVirtual
	}
	return models.SourceOther
}

// NativeID returns the vendor's own trip identifier when the listing carries
// one: FRN's trip_id query parameter or FareHarbor's availability id
func NativeID(source models.Source, l crawler.RawListing) string {
	switch source {
	case models.SourceFRN:
		if u, err := url.Parse(l.SourceURL); err == nil {
			q := u.Query()
			for _, key := range []string{"trip_id", "id", "tripId"} {
				if v := strings.TrimSpace(q.Get(key)); v != "" {
					return "frn:" + v
				}
			}
		}
		if l.SourceItemID != "" {
			return "frn:" + l.SourceItemID
		}
	case models.SourceFareHarbor:
		if m := availabilityRe.FindStringSubmatch(l.SourceURL); m != nil {
			return "fareharbor:" + m[1]
		}
		if l.SourceItemID != "" {
			return "fareharbor:" + l.SourceItemID
		}
	}
	return ""
}

// SourceTripID is the native id when present, otherwise a content hash over
// source, URL, title and depart instant. The hash changes whenever any of the
// four inputs change, so an edited title yields a new trip.
func SourceTripID(source models.Source, l crawler.RawListing) string {
	if id := NativeID(source, l); id != "" {
		return id
	}
	depart := l.DepartLocal.UTC().Format("2006-01-02T15:04:05.000Z")
	sum := sha1.Sum([]byte(strings.Join([]string{string(source), l.SourceURL, l.Title, depart}, "|")))
	return hex.EncodeToString(sum[:])[:hashLength]
}

// MatchVessel attributes a listing to one of the landing's vessels. An exact
// normalized name match wins; otherwise every vessel whose name appears in
// the listing (or contains the vessel guess) is a candidate and the one
// closest to the guess by Jaro-Winkler is chosen.
func MatchVessel(l crawler.RawListing, vessels []models.Vessel) *models.Vessel {
	guess := helpers.NormalizeName(l.VesselGuess)
	if guess != "" {
		for i := range vessels {
			if helpers.NormalizeName(vessels[i].Name) == guess {
				return &vessels[i]
			}
		}
	}

	haystack := " " + helpers.NormalizeName(l.VesselGuess+" "+l.Title+" "+l.Text) + " "
	reference := guess
	if reference == "" {
		reference = helpers.NormalizeName(l.Title)
	}

	var best *models.Vessel
	bestScore := -1.0
	for i := range vessels {
		name := helpers.NormalizeName(vessels[i].Name)
		if name == "" {
			continue
		}
		hit := strings.Contains(haystack, " "+name+" ") ||
			(guess != "" && strings.Contains(" "+name+" ", " "+guess+" "))
		if !hit {
			continue
		}
		score := matchr.JaroWinkler(reference, name, false)
		if score > bestScore {
			best, bestScore = &vessels[i], score
		}
	}
	return best
}

// Resolver turns raw listings into trips keyed by (source, source trip id).
// Vessel lists are loaded once per landing for the life of the resolver.
type Resolver struct {
	dir     VesselDirectory
	now     func() time.Time
	mu      sync.Mutex
	vessels map[string][]models.Vessel
}

// NewResolver creates a resolver reading vessels from dir
func NewResolver(dir VesselDirectory) *Resolver {
	return &Resolver{
		dir:     dir,
		now:     time.Now,
		vessels: make(map[string][]models.Vessel),
	}
}

func (r *Resolver) landingVessels(ctx context.Context, landingID string) ([]models.Vessel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.vessels[landingID]; ok {
		return v, nil
	}
	v, err := r.dir.VesselsForLanding(ctx, landingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load vessels for landing %s: %w", landingID, err)
	}
	r.vessels[landingID] = v
	return v, nil
}

// Resolve builds the canonical trip for one listing of target. A target bound
// to a vessel attributes every listing to it; virtual landings fall back to
// the landing's placeholder vessel when no name matches.
func (r *Resolver) Resolve(ctx context.Context, target models.ScrapeTarget, l crawler.RawListing) (*models.Trip, error) {
	platform := l.Platform
	if target.Platform != "" {
		platform = target.Platform
	}
	source := SourceFor(platform, l.SourceURL)

	vesselID := target.VesselID
	if vesselID == nil {
		vessels, err := r.landingVessels(ctx, target.LandingID)
		if err != nil {
			return nil, err
		}
		if v := MatchVessel(l, vessels); v != nil {
			id := v.ID
			vesselID = &id
		} else if source == models.SourceVirtual {
			v, err := r.dir.EnsurePlaceholderVessel(ctx, target.LandingID)
			if err != nil {
				return nil, fmt.Errorf("failed to ensure placeholder vessel: %w", err)
			}
			id := v.ID
			vesselID = &id
		}
	}

	now := r.now().UTC()
	trip := &models.Trip{
		ID:                uuid.NewString(),
		Source:            source,
		SourceTripID:      SourceTripID(source, l),
		SourceURL:         l.SourceURL,
		LandingID:         target.LandingID,
		VesselID:          vesselID,
		Title:             l.Title,
		PassportReq:       heuristics.HasFlag(l.Flags, heuristics.FlagPassport),
		MealsIncl:         heuristics.HasFlag(l.Flags, heuristics.FlagMeals),
		PermitsIncl:       heuristics.HasFlag(l.Flags, heuristics.FlagPermits),
		DepartLocal:       l.DepartLocal,
		ReturnLocal:       l.ReturnLocal,
		Timezone:          l.Timezone,
		Load:              l.Load,
		Spots:             l.SpotsOpen,
		Status:            l.Status,
		PriceIncludesFees: l.PriceIncludesFees,
		ServiceFeePct:     l.ServiceFeePct,
		LastScrapedAt:     now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if trip.Timezone == "" {
		trip.Timezone = models.Timezone
	}
	if trip.Status == "" {
		trip.Status = models.StatusOpen
	}
	for _, tier := range l.PriceTiers {
		if tier.Currency == "" {
			tier.Currency = "USD"
		}
		trip.FareTiers = append(trip.FareTiers, tier)
	}
	if l.Promo != nil {
		trip.Promotions = []models.TripPromotion{*l.Promo}
	}
	return trip, nil
}

// Collapse keeps one trip per key. When two trips in a pass share a key but
// differ in content, the later one wins and a collision error is reported.
func Collapse(targetURL string, trips []models.Trip) ([]models.Trip, []error) {
	index := make(map[string]int, len(trips))
	out := make([]models.Trip, 0, len(trips))
	var collisions []error

	for _, t := range trips {
		key := t.Key()
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, t)
			continue
		}
		if conflicting(out[i], t) {
			collisions = append(collisions, errors.NewIdentityCollision(targetURL, key))
		}
		out[i] = t
	}
	return out, collisions
}

func conflicting(a, b models.Trip) bool {
	if a.Title != b.Title || !a.DepartLocal.Equal(b.DepartLocal) || a.Status != b.Status {
		return true
	}
	return heuristics.PrimaryPrice(a.FareTiers) != heuristics.PrimaryPrice(b.FareTiers)
}
