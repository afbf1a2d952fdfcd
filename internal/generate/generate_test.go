package generate_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartoza/rue-api/internal/domain"
	"github.com/kartoza/rue-api/internal/generate"
	"github.com/kartoza/rue-api/internal/steps"
)

func mustStep(t *testing.T, name string) steps.Step {
	t.Helper()
	s, err := steps.Default().ByName(name)
	require.NoError(t, err)
	return s
}

func readDoc(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestSiteGeneratorUsesProjectGeometry(t *testing.T) {
	outDir := t.TempDir()
	site := map[string]any{
		"type": "FeatureCollection",
		"features": []any{map[string]any{
			"type":     "Feature",
			"geometry": map[string]any{"type": "Polygon", "coordinates": []any{}},
		}},
	}
	paths, err := generate.SiteGenerator{}.Generate(context.Background(), domain.Project{Site: site}, mustStep(t, "site"), outDir)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	doc := readDoc(t, filepath.Join(outDir, "site.geojson"))
	assert.Equal(t, "FeatureCollection", doc["type"])
	assert.Len(t, doc["features"], 1)

	model := readDoc(t, filepath.Join(outDir, "site.gltf"))
	asset, _ := model["asset"].(map[string]any)
	assert.Equal(t, "2.0", asset["version"])
}

func TestSiteGeneratorPlaceholderWithoutInput(t *testing.T) {
	outDir := t.TempDir()
	_, err := generate.SiteGenerator{}.Generate(context.Background(), domain.Project{}, mustStep(t, "site"), outDir)
	require.NoError(t, err)

	doc := readDoc(t, filepath.Join(outDir, "site.geojson"))
	features := doc["features"].([]any)
	require.Len(t, features, 1)
	props := features[0].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, true, props["placeholder"])
}

func TestStreetsGeneratorAppliesCorridorWidths(t *testing.T) {
	outDir := t.TempDir()
	params := &domain.ProjectParameters{}
	params.Neighbourhood.PublicRoads.WidthOfArteriesM = 24
	params.Neighbourhood.PublicRoads.WidthOfSecondariesM = 16
	params.Neighbourhood.PublicRoads.WidthOfLocalsM = 8

	road := func(class string) any {
		return map[string]any{
			"type":       "Feature",
			"properties": map[string]any{"class": class},
			"geometry":   map[string]any{"type": "LineString", "coordinates": []any{}},
		}
	}
	project := domain.Project{
		Parameters: params,
		Roads: map[string]any{
			"type":     "FeatureCollection",
			"features": []any{road("artery"), road("secondary"), road("service")},
		},
	}
	_, err := generate.StreetsGenerator{}.Generate(context.Background(), project, mustStep(t, "streets"), outDir)
	require.NoError(t, err)

	doc := readDoc(t, filepath.Join(outDir, "streets.geojson"))
	features := doc["features"].([]any)
	require.Len(t, features, 3)
	widths := make([]float64, 3)
	for i, raw := range features {
		props := raw.(map[string]any)["properties"].(map[string]any)
		widths[i] = props["width_m"].(float64)
	}
	assert.Equal(t, []float64{24, 16, 8}, widths)
}

func TestStreetsGeneratorDefaultCross(t *testing.T) {
	outDir := t.TempDir()
	_, err := generate.StreetsGenerator{}.Generate(context.Background(), domain.Project{}, mustStep(t, "streets"), outDir)
	require.NoError(t, err)

	doc := readDoc(t, filepath.Join(outDir, "streets.geojson"))
	features := doc["features"].([]any)
	assert.Len(t, features, 2)
}

func TestDefaultRegistryCoversEveryStep(t *testing.T) {
	reg := steps.Default()
	gens, err := generate.Default(reg, "")
	require.NoError(t, err)

	for _, name := range reg.Names() {
		s, err := reg.ByName(name)
		require.NoError(t, err)
		_, err = gens.For(s)
		assert.NoError(t, err, "step %s has no generator", name)
	}

	_, err = gens.For(steps.Step{Name: "bogus"})
	assert.Error(t, err)
}

func TestFixtureGeneratorWritesEmbeddedArtifacts(t *testing.T) {
	reg := steps.Default()
	gens, err := generate.Default(reg, "")
	require.NoError(t, err)

	step := mustStep(t, "clusters")
	gen, err := gens.For(step)
	require.NoError(t, err)

	outDir := t.TempDir()
	paths, err := gen.Generate(context.Background(), domain.Project{}, step, outDir)
	require.NoError(t, err)
	assert.Len(t, paths, 2)

	for _, ext := range step.Extensions {
		_, err := os.Stat(filepath.Join(outDir, step.Filename(ext)))
		assert.NoError(t, err)
	}
}
