package generate

import (
	"context"
	"path/filepath"

	"github.com/kartoza/rue-api/internal/domain"
	"github.com/kartoza/rue-api/internal/steps"
)

// SiteGenerator materializes the project's raw site polygon as the first
// pipeline artifact. When no site geometry was supplied it emits a
// placeholder square so downstream steps still have an input to read.
type SiteGenerator struct{}

func (g SiteGenerator) Generate(_ context.Context, project domain.Project, step steps.Step, outDir string) ([]string, error) {
	site := project.Site
	if site == nil {
		site = defaultSite()
	}
	geoPath := filepath.Join(outDir, step.Filename(steps.ExtGeoJSON))
	if err := writeJSON(geoPath, site); err != nil {
		return nil, err
	}
	modelPath, err := writeModel(step, outDir)
	if err != nil {
		return nil, err
	}
	return []string{geoPath, modelPath}, nil
}

func defaultSite() map[string]any {
	return map[string]any{
		"type": "FeatureCollection",
		"features": []any{
			map[string]any{
				"type":       "Feature",
				"properties": map[string]any{"placeholder": true},
				"geometry": map[string]any{
					"type": "Polygon",
					"coordinates": [][][2]float64{{
						{0, 0}, {500, 0}, {500, 500}, {0, 500}, {0, 0},
					}},
				},
			},
		},
	}
}
