package targets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"

	"sjsage522/sailingworker/helpers"
	"sjsage522/sailingworker/internal/crawler"
	"sjsage522/sailingworker/internal/models"
	"sjsage522/sailingworker/logger"
	"sjsage522/sailingworker/pkg/errors"
)

// VesselRow is a boat listed under a landing row
type VesselRow struct {
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Website string `json:"website"`
}

// Row is one landing and the schedule URL to poll for it
type Row struct {
	Landing  string      `json:"landing"`
	Slug     string      `json:"slug"`
	Website  string      `json:"website"`
	URL      string      `json:"url"`
	Platform string      `json:"platform"`
	Active   *bool       `json:"active"`
	Vessel   string      `json:"vessel"`
	Vessels  []VesselRow `json:"vessels"`
}

// File is the targets configuration. Defaults fill every field a row leaves
// empty; Overrides map landing names to FareHarbor slugs for discovery.
type File struct {
	Defaults  Row               `json:"defaults"`
	Overrides map[string]string `json:"overrides"`
	Targets   []Row             `json:"targets"`
}

// Writer is the part of the store an import touches
type Writer interface {
	UpsertLanding(ctx context.Context, l *models.Landing) error
	UpsertVessel(ctx context.Context, v *models.Vessel, landingID string) error
	UpsertTarget(ctx context.Context, t *models.ScrapeTarget) error
}

// Summary counts what an import wrote
type Summary struct {
	Landings int
	Vessels  int
	Targets  int
}

func splitExt(name string) (string, string) {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}

// ReadTargets reads path and merges <name>.local<ext> over it when present.
// Local targets are appended; local defaults and overrides win.
func ReadTargets(path string) (*File, error) {
	var out File
	found := false

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) > 0 {
		if err := json5.Unmarshal(data, &out); err != nil {
			return nil, errors.NewConfiguration("invalid targets file "+path, err)
		}
		found = true
	}

	prefix, ext := splitExt(path)
	localPath := prefix + ".local" + ext
	local, err := os.ReadFile(localPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", localPath, err)
	}
	if len(local) > 0 {
		var overlay File
		if err := json5.Unmarshal(local, &overlay); err != nil {
			return nil, errors.NewConfiguration("invalid targets file "+localPath, err)
		}
		if err := mergo.Merge(&out, overlay, mergo.WithOverride, mergo.WithAppendSlice); err != nil {
			return nil, fmt.Errorf("failed to merge %s: %w", localPath, err)
		}
		logger.ForWorker().Info().Str("local", localPath).Msg("merging targets with local overrides")
		found = true
	}

	if !found {
		return nil, errors.NewConfiguration("targets file not found: "+path, os.ErrNotExist)
	}
	return &out, nil
}

// Rows returns every target with defaults applied and fields normalized
func (f *File) Rows() ([]Row, error) {
	rows := make([]Row, 0, len(f.Targets))
	for i, r := range f.Targets {
		if err := mergo.Merge(&r, f.Defaults); err != nil {
			return nil, fmt.Errorf("failed to apply defaults to target %d: %w", i, err)
		}
		r.Landing = strings.TrimSpace(r.Landing)
		if r.Landing == "" {
			return nil, errors.NewConfiguration(fmt.Sprintf("target %d has no landing name", i), nil)
		}
		if r.URL == "" {
			r.URL = r.Website
		}
		if r.URL == "" {
			return nil, errors.NewConfiguration(fmt.Sprintf("target %d (%s) has no url", i, r.Landing), nil)
		}
		if r.Slug == "" {
			r.Slug = helpers.Slugify(r.Landing)
		}
		if r.Active == nil {
			active := true
			r.Active = &active
		}
		r.Platform = NormalizePlatform(r.Platform)
		rows = append(rows, r)
	}
	return rows, nil
}

// NormalizePlatform maps spreadsheet platform hints onto extractor names.
// Unknown hints return "" so the target goes through discovery.
func NormalizePlatform(hint string) string {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "frn", "fishingreservations", "fishing reservations":
		return crawler.PlatformFRN
	case "fareharbor", "fh", "fare harbor":
		return crawler.PlatformFareHarbor
	case "xola", "hm":
		return crawler.PlatformXola
	case "virtual", "virtuallanding", "virtual landing":
		return crawler.PlatformVirtual
	case "generic":
		return crawler.PlatformGeneric
	}
	return ""
}

// Import upserts every landing, vessel and target in f
func Import(ctx context.Context, w Writer, f *File) (Summary, error) {
	var sum Summary
	rows, err := f.Rows()
	if err != nil {
		return sum, err
	}

	for _, r := range rows {
		landing := &models.Landing{Name: r.Landing, Slug: r.Slug, Website: r.Website}
		if err := w.UpsertLanding(ctx, landing); err != nil {
			return sum, err
		}
		sum.Landings++

		var bound *string
		for _, vr := range r.Vessels {
			v := &models.Vessel{Name: vr.Name, Slug: vr.Slug, PrimaryWebsite: vr.Website}
			if v.Slug == "" {
				v.Slug = helpers.Slugify(vr.Name)
			}
			if err := w.UpsertVessel(ctx, v, landing.ID); err != nil {
				return sum, err
			}
			sum.Vessels++
			if r.Vessel != "" && helpers.NormalizeName(r.Vessel) == helpers.NormalizeName(vr.Name) {
				id := v.ID
				bound = &id
			}
		}
		if r.Vessel != "" && bound == nil {
			return sum, errors.NewConfiguration(fmt.Sprintf("target %s binds unknown vessel %q", r.URL, r.Vessel), nil)
		}

		target := &models.ScrapeTarget{
			LandingID: landing.ID,
			VesselID:  bound,
			URL:       r.URL,
			Domain:    helpers.Hostname(r.URL),
			Platform:  r.Platform,
			Active:    *r.Active,
		}
		if err := w.UpsertTarget(ctx, target); err != nil {
			return sum, err
		}
		sum.Targets++
	}
	return sum, nil
}
