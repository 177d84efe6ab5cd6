package targets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/sailingworker/internal/models"
	perrors "sjsage522/sailingworker/pkg/errors"
)

const baseFile = `{
  // shared values for every row
  defaults: { platform: "frn" },
  overrides: { "Marina Del Rey Sportfishing": "mdrsf" },
  targets: [
    {
      landing: "Pacific Landing",
      website: "https://pacific.example",
      url: "https://pacific.fishingreservations.net/sales/",
      vessels: [{ name: "Pacific Voyager" }, { name: "Sea Star", slug: "sea-star-2" }],
    },
    {
      landing: "Pierpoint Landing",
      url: "https://pierpoint.virtuallanding.com/",
      platform: "Virtual",
      active: false,
    },
  ],
}`

const localFile = `{
  overrides: { "Davey's Locker": "daveyslocker-test" },
  targets: [
    {
      landing: "Private Boat",
      website: "https://www.privateboat.example/",
      platform: "other",
      vessel: "Private Boat",
      vessels: [{ name: "Private Boat" }],
    },
  ],
}`

type fakeWriter struct {
	landings []models.Landing
	vessels  []models.Vessel
	links    map[string]string
	targets  []models.ScrapeTarget
}

var _ Writer = (*fakeWriter)(nil)

func (f *fakeWriter) UpsertLanding(_ context.Context, l *models.Landing) error {
	l.ID = uuid.NewString()
	f.landings = append(f.landings, *l)
	return nil
}

func (f *fakeWriter) UpsertVessel(_ context.Context, v *models.Vessel, landingID string) error {
	v.ID = uuid.NewString()
	if f.links == nil {
		f.links = make(map[string]string)
	}
	f.links[v.ID] = landingID
	f.vessels = append(f.vessels, *v)
	return nil
}

func (f *fakeWriter) UpsertTarget(_ context.Context, t *models.ScrapeTarget) error {
	t.ID = uuid.NewString()
	f.targets = append(f.targets, *t)
	return nil
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return filepath.Join(dir, "targets.json5")
}

func TestReadTargetsWithLocalOverlay(t *testing.T) {
	path := writeFiles(t, map[string]string{"targets.json5": baseFile, "targets.local.json5": localFile})

	f, err := ReadTargets(path)
	require.NoError(t, err)
	require.Len(t, f.Targets, 3)
	assert.Equal(t, "mdrsf", f.Overrides["Marina Del Rey Sportfishing"])
	assert.Equal(t, "daveyslocker-test", f.Overrides["Davey's Locker"])
	assert.Equal(t, "frn", f.Defaults.Platform)

	rows, err := f.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "pacific-landing", rows[0].Slug)
	assert.Equal(t, "frn", rows[0].Platform)
	assert.True(t, *rows[0].Active)

	assert.Equal(t, "virtual", rows[1].Platform)
	assert.False(t, *rows[1].Active)

	// "other" is not a platform; the row goes through discovery
	assert.Equal(t, "", rows[2].Platform)
	assert.Equal(t, "https://www.privateboat.example/", rows[2].URL)
}

func TestReadTargetsMissing(t *testing.T) {
	_, err := ReadTargets(filepath.Join(t.TempDir(), "targets.json5"))
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.ErrorTypeConfiguration))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadTargetsInvalid(t *testing.T) {
	path := writeFiles(t, map[string]string{"targets.json5": `{ targets: [ `})
	_, err := ReadTargets(path)
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.ErrorTypeConfiguration))
}

func TestRowsRequireLandingAndURL(t *testing.T) {
	_, err := (&File{Targets: []Row{{URL: "https://x.example"}}}).Rows()
	assert.Error(t, err)

	_, err = (&File{Targets: []Row{{Landing: "No Url"}}}).Rows()
	assert.Error(t, err)
}

func TestNormalizePlatform(t *testing.T) {
	assert.Equal(t, "frn", NormalizePlatform(" FRN "))
	assert.Equal(t, "fareharbor", NormalizePlatform("FareHarbor"))
	assert.Equal(t, "xola", NormalizePlatform("hm"))
	assert.Equal(t, "virtual", NormalizePlatform("virtuallanding"))
	assert.Equal(t, "generic", NormalizePlatform("generic"))
	assert.Equal(t, "", NormalizePlatform("other"))
}

func TestImport(t *testing.T) {
	path := writeFiles(t, map[string]string{"targets.json5": baseFile, "targets.local.json5": localFile})
	f, err := ReadTargets(path)
	require.NoError(t, err)

	w := &fakeWriter{}
	sum, err := Import(context.Background(), w, f)
	require.NoError(t, err)
	assert.Equal(t, Summary{Landings: 3, Vessels: 3, Targets: 3}, sum)

	assert.Equal(t, "sea-star-2", w.vessels[1].Slug)
	assert.Equal(t, "pacific-voyager", w.vessels[0].Slug)
	assert.Equal(t, w.landings[0].ID, w.links[w.vessels[0].ID])

	assert.Equal(t, "pacific.fishingreservations.net", w.targets[0].Domain)
	assert.Nil(t, w.targets[0].VesselID)
	assert.False(t, w.targets[1].Active)
	require.NotNil(t, w.targets[2].VesselID)
	assert.Equal(t, w.vessels[2].ID, *w.targets[2].VesselID)
}

func TestImportUnknownVessel(t *testing.T) {
	f := &File{Targets: []Row{{Landing: "L", URL: "https://l.example", Vessel: "Ghost"}}}
	_, err := Import(context.Background(), &fakeWriter{}, f)
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.ErrorTypeConfiguration))
}
